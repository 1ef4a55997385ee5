package energy

import (
	"context"
	"sync"
	"testing"
	"time"
)

// testNow is the fixed "now" used across engine tests: mid-day so today's
// window has room for morning data.
var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock { return ClockFunc(func() time.Time { return t }) }

func at(hour, min int) time.Time {
	return time.Date(testNow.Year(), testNow.Month(), testNow.Day(), hour, min, 0, 0, time.UTC)
}

// maleProfile is 30 years old on testNow; BMR 1722.5.
func maleProfile() *UserProfile {
	return &UserProfile{
		Sex:       SexMale,
		BirthDate: time.Date(1996, 1, 10, 0, 0, 0, 0, time.UTC),
		WeightKG:  75.5,
		HeightCM:  178,
	}
}

/* ─── Profile store ──────────────────────────────────────────────────── */

// fakeProfiles pushes the current profile to every observer on Set.
type fakeProfiles struct {
	mu       sync.Mutex
	current  *UserProfile
	subs     map[chan *UserProfile]struct{}
	err      error
	reads    int
	observes int
}

func newFakeProfiles(p *UserProfile) *fakeProfiles {
	return &fakeProfiles{current: p, subs: map[chan *UserProfile]struct{}{}}
}

func (f *fakeProfiles) Profile(context.Context) (*UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return f.current, nil
}

func (f *fakeProfiles) ObserveProfile(ctx context.Context) (<-chan *UserProfile, error) {
	f.mu.Lock()
	f.observes++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan *UserProfile, 8)
	f.mu.Lock()
	ch <- f.current
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}()
	return ch, nil
}

// drop closes every observer's feed, as a store does when it loses its
// change notifications.
func (f *fakeProfiles) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}

func (f *fakeProfiles) counts() (reads, observes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.observes
}

func (f *fakeProfiles) Set(p *UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = p
	for ch := range f.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

func (f *fakeProfiles) observers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

/* ─── Activity provider ──────────────────────────────────────────────── */

type stepSample struct {
	start, end time.Time
	steps      int64
}

// fakeActivity filters step buckets against exclusions the same way the
// Postgres store does: a bucket overlapping any exclusion is dropped.
type fakeActivity struct {
	mu       sync.Mutex
	steps    []stepSample
	sessions []ExerciseInterval
	food     []FoodIntakeRecord

	stepsErr, sessionsErr, foodErr error

	lastExclude []TimeWindow
	calls       int
}

func (f *fakeActivity) StepCount(_ context.Context, window TimeWindow, exclude []TimeWindow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastExclude = exclude
	if f.stepsErr != nil {
		return 0, f.stepsErr
	}
	var total int64
	for _, s := range f.steps {
		if !window.Contains(s.start) {
			continue
		}
		bucket := TimeWindow{Start: s.start, End: s.end}
		excluded := false
		for _, x := range exclude {
			if bucket.Overlaps(x) {
				excluded = true
				break
			}
		}
		if !excluded {
			total += s.steps
		}
	}
	return total, nil
}

func (f *fakeActivity) ExerciseSessions(_ context.Context, window TimeWindow) ([]ExerciseInterval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	var out []ExerciseInterval
	for _, s := range f.sessions {
		if s.Window().Overlaps(window) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeActivity) FoodIntake(_ context.Context, window TimeWindow) ([]FoodIntakeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.foodErr != nil {
		return nil, f.foodErr
	}
	var out []FoodIntakeRecord
	for _, r := range f.food {
		if window.Contains(r.Timestamp) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeActivity) setSteps(s ...stepSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = s
}

func (f *fakeActivity) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeActivity) exclusions() []TimeWindow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastExclude
}

/* ─── Stream helpers ─────────────────────────────────────────────────── */

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

// recvUntil reads updates until match returns true.
func recvUntil(t *testing.T, ch <-chan Update, match func(Update) bool) Update {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				t.Fatal("updates closed before match")
			}
			if match(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching update")
		}
	}
}
