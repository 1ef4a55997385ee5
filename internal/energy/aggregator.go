package energy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAggregatorClosed is returned by navigation after Close.
var ErrAggregatorClosed = errors.New("energy: aggregator closed")

// State is the aggregator's selected date and the policy applied to it.
type State struct {
	Mode Mode
	Date time.Time
}

// Aggregator is the date-navigation state machine over an Engine. It owns a
// single output stream and at most one active pipeline: selecting a new date
// cancels the previous pipeline and waits for it to stop before starting the
// next, so no update for the old date is sent once Select returns.
//
//	Idle -> Live(today) | Historical(d)
//	Live/Historical -> Live(today) | Historical(d)   (future dates rejected)
type Aggregator struct {
	engine  *Engine
	base    context.Context
	stop    context.CancelFunc
	updates chan Update

	mu     sync.Mutex
	state  State
	sub    *subscription
	closed bool
}

// subscription is the handle of the running pipeline. It is replaced on
// every date change, never mutated.
type subscription struct {
	id     uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAggregator returns an idle aggregator. Pipelines run under ctx; cancel
// it or call Close to stop everything.
func NewAggregator(ctx context.Context, engine *Engine) *Aggregator {
	base, stop := context.WithCancel(ctx)
	return &Aggregator{
		engine:  engine,
		base:    base,
		stop:    stop,
		updates: make(chan Update),
	}
}

// Updates is the aggregator's output. It is closed by Close.
func (a *Aggregator) Updates() <-chan Update { return a.updates }

// State returns the current selection.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Select switches to date. Today starts a live subscription; an earlier day
// emits one historical update. A future date is rejected and leaves the
// current selection running.
func (a *Aggregator) Select(date time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectLocked(date)
}

// Today selects the current day.
func (a *Aggregator) Today() error {
	return a.Select(a.engine.Now())
}

// Previous selects the day before the current selection (or before today
// when idle).
func (a *Aggregator) Previous() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectLocked(a.anchorLocked().AddDate(0, 0, -1))
}

// Next selects the day after the current selection. Moving past today is a
// no-op that returns ErrFutureDate.
func (a *Aggregator) Next() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectLocked(a.anchorLocked().AddDate(0, 0, 1))
}

func (a *Aggregator) anchorLocked() time.Time {
	if a.state.Mode == ModeIdle {
		return StartOfDay(a.engine.Now(), a.engine.Location())
	}
	return a.state.Date
}

func (a *Aggregator) selectLocked(date time.Time) error {
	if a.closed {
		return ErrAggregatorClosed
	}
	mode, err := a.engine.ModeFor(date)
	if err != nil {
		return err
	}
	day := StartOfDay(date, a.engine.Location())

	a.cancelLocked()

	ctx, cancel := context.WithCancel(a.base)
	stream, err := a.engine.Observe(ctx, day)
	if err != nil {
		cancel()
		return err
	}
	sub := &subscription{id: uuid.New(), cancel: cancel, done: make(chan struct{})}
	a.engine.log.Info().
		Str("subscription", sub.id.String()).
		Str("date", day.Format("2006-01-02")).
		Str("mode", mode.String()).
		Msg("energy balance subscription started")
	go a.forward(ctx, sub, stream)

	a.sub = sub
	a.state = State{Mode: mode, Date: day}
	return nil
}

// cancelLocked stops the running pipeline and blocks until its forwarder has
// exited.
func (a *Aggregator) cancelLocked() {
	if a.sub == nil {
		return
	}
	a.sub.cancel()
	<-a.sub.done
	a.engine.log.Info().Str("subscription", a.sub.id.String()).Msg("energy balance subscription stopped")
	a.sub = nil
}

func (a *Aggregator) forward(ctx context.Context, sub *subscription, stream <-chan Update) {
	defer close(sub.done)
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-stream:
			if !ok {
				return
			}
			// A cancelled pipeline must not leak a late update.
			if ctx.Err() != nil {
				return
			}
			select {
			case a.updates <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close cancels the running pipeline and closes Updates. It is safe to call
// more than once.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.cancelLocked()
	a.stop()
	a.closed = true
	a.state = State{}
	close(a.updates)
}
