package energy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is how often live activity sources are re-queried. The
// activity platform has no push notifications for new data.
const DefaultPollInterval = 5 * time.Minute

// Config tunes an Engine. Zero values fall back to defaults.
type Config struct {
	Clock        Clock
	PollInterval time.Duration
	Location     *time.Location
	Logger       zerolog.Logger
}

// Engine computes energy balances from a profile store and an activity
// provider. It holds no per-date state; see Aggregator for date navigation.
type Engine struct {
	profiles ProfileStore
	activity ActivityProvider
	clock    Clock
	interval time.Duration
	loc      *time.Location
	log      zerolog.Logger
}

func NewEngine(profiles ProfileStore, activity ActivityProvider, cfg Config) *Engine {
	e := &Engine{
		profiles: profiles,
		activity: activity,
		clock:    cfg.Clock,
		interval: cfg.PollInterval,
		loc:      cfg.Location,
		log:      cfg.Logger,
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.interval <= 0 {
		e.interval = DefaultPollInterval
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	return e
}

// Location is the time zone day windows are cut in.
func (e *Engine) Location() *time.Location { return e.loc }

// Now reads the engine's clock.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// ModeFor classifies date against today: live for today, historical for any
// earlier day, ErrFutureDate otherwise.
func (e *Engine) ModeFor(date time.Time) (Mode, error) {
	now := e.clock.Now()
	day := StartOfDay(date, e.loc)
	switch {
	case sameDay(day, now, e.loc):
		return ModeLive, nil
	case day.Before(now):
		return ModeHistorical, nil
	}
	return ModeIdle, fmt.Errorf("%s: %w", day.Format("2006-01-02"), ErrFutureDate)
}

// windowAt is the window to query for day as of now: the whole closed day for
// past days, midnight to now while the day is still running.
func (e *Engine) windowAt(day time.Time, now time.Time) TimeWindow {
	w := DayWindow(day, e.loc)
	if w.Contains(now) {
		w.End = now
	}
	return w
}

/* ─── One-shot ───────────────────────────────────────────────────────── */

// Compute queries every component once and returns the balance for date. For
// today it is a snapshot up to now. Only BMR failures are returned as errors;
// optional components degrade to 0 kcal with their status recorded.
func (e *Engine) Compute(ctx context.Context, date time.Time) (EnergyBalance, error) {
	if _, err := e.ModeFor(date); err != nil {
		return EnergyBalance{}, err
	}
	day := StartOfDay(date, e.loc)
	window := e.windowAt(day, e.clock.Now())

	var bmr, neat, active, in Reading
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := e.currentProfile(gctx)
		if err != nil {
			return err
		}
		s := bmrReading(profile, day)
		if s.Err != nil {
			return s.Err
		}
		bmr = s.Reading
		return nil
	})
	g.Go(func() error {
		neat = e.degrade(ComponentNEAT)(NEATCalculator{Provider: e.activity}.Query(gctx, window))
		return nil
	})
	g.Go(func() error {
		active = e.degrade(ComponentActive)(ActiveCalculator{Provider: e.activity}.Query(gctx, window))
		return nil
	})
	g.Go(func() error {
		in = e.degrade(ComponentCaloriesIn)(CaloriesInCalculator{Provider: e.activity}.Query(gctx, window))
		return nil
	})
	if err := g.Wait(); err != nil {
		return EnergyBalance{}, err
	}
	return newBalance(day, SumTDEE(bmr, neat, active), in), nil
}

// currentProfile reads the profile once, without opening a change feed.
func (e *Engine) currentProfile(ctx context.Context) (*UserProfile, error) {
	p, err := e.profiles.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("bmr: read profile: %w", err)
	}
	return p, nil
}

// degrade folds a calculator error into a 0 kcal reading and logs it.
func (e *Engine) degrade(c Component) func(Reading, error) Reading {
	return func(r Reading, err error) Reading {
		if err == nil {
			return r
		}
		r = Degrade(err)
		e.log.Debug().Err(err).Str("component", c.String()).Str("status", r.Status().String()).Msg("component degraded")
		return r
	}
}

/* ─── Streams ────────────────────────────────────────────────────────── */

// Observe returns the balance stream for date. For today the stream keeps
// emitting on every upstream change until ctx ends; for a past day it emits
// exactly one update and closes. Future dates fail with ErrFutureDate.
func (e *Engine) Observe(ctx context.Context, date time.Time) (<-chan Update, error) {
	mode, err := e.ModeFor(date)
	if err != nil {
		return nil, err
	}
	day := StartOfDay(date, e.loc)
	if mode == ModeLive {
		return e.live(ctx, day), nil
	}

	out := make(chan Update, 1)
	go func() {
		defer close(out)
		b, err := e.Compute(ctx, day)
		if ctx.Err() != nil {
			return
		}
		out <- Update{Date: day, Mode: ModeHistorical, Balance: b, Err: err}
	}()
	return out, nil
}

// live wires the today pipeline: a push-driven BMR stream, three polled
// streams, CombineTDEE over the expenditure terms, and a final join with
// calories in. Every goroutine exits when ctx ends.
func (e *Engine) live(ctx context.Context, day time.Time) <-chan Update {
	out := make(chan Update)

	bmr, err := e.bmrStream(ctx, day)
	if err != nil {
		go func() {
			defer close(out)
			select {
			case out <- Update{Date: day, Mode: ModeLive, Err: err}:
			case <-ctx.Done():
			}
		}()
		return out
	}
	neat := e.poll(ctx, day, ComponentNEAT, NEATCalculator{Provider: e.activity}.Query)
	active := e.poll(ctx, day, ComponentActive, ActiveCalculator{Provider: e.activity}.Query)
	caloriesIn := e.poll(ctx, day, ComponentCaloriesIn, CaloriesInCalculator{Provider: e.activity}.Query)
	tdee := CombineTDEE(ctx, bmr, neat, active)

	go func() {
		defer close(out)
		var (
			lastTDEE *TDEESample
			lastIn   *Sample
		)
		for tdee != nil || caloriesIn != nil {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-tdee:
				if !ok {
					tdee = nil
					continue
				}
				lastTDEE = &t
			case s, ok := <-caloriesIn:
				if !ok {
					caloriesIn = nil
					continue
				}
				lastIn = &s
			}
			if lastTDEE == nil || lastIn == nil {
				continue
			}

			u := Update{Date: day, Mode: ModeLive, Err: lastTDEE.Err}
			if u.Err == nil {
				u.Balance = newBalance(day, lastTDEE.TDEE, lastIn.Reading)
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// bmrStream maps profile emissions to BMR samples as they arrive.
func (e *Engine) bmrStream(ctx context.Context, day time.Time) (<-chan Sample, error) {
	profiles, err := e.profiles.ObserveProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("bmr: observe profile: %w", err)
	}
	out := make(chan Sample)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-profiles:
				if !ok {
					if ctx.Err() != nil {
						return
					}
					// Feed gone: later profile edits would be missed, so
					// stop reporting a BMR that may be stale.
					e.log.Warn().Msg("profile feed closed during live subscription")
					select {
					case out <- Sample{Component: ComponentBMR, Err: ErrProfileFeedLost, At: e.clock.Now()}:
					case <-ctx.Done():
					}
					return
				}
				s := bmrReading(p, day)
				s.At = e.clock.Now()
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// poll runs query immediately and then on every tick, each time over the
// day's window as of now. Once the day is over the window stops growing.
func (e *Engine) poll(ctx context.Context, day time.Time, c Component, query func(context.Context, TimeWindow) (Reading, error)) <-chan Sample {
	out := make(chan Sample)
	degrade := e.degrade(c)
	go func() {
		defer close(out)
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			now := e.clock.Now()
			r := degrade(query(ctx, e.windowAt(day, now)))
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Sample{Component: c, Reading: r, At: now}:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
