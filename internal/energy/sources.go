package energy

import (
	"context"
	"fmt"
)

// ProfileStore is the read side of the external profile store.
type ProfileStore interface {
	// Profile reads the current profile once; nil when unset.
	Profile(ctx context.Context) (*UserProfile, error)
	// ObserveProfile emits the current profile (nil when unset) and then a
	// fresh snapshot after every change. The channel is closed when ctx ends,
	// or early if the store loses its change feed.
	ObserveProfile(ctx context.Context) (<-chan *UserProfile, error)
}

// ActivityProvider is the read side of the activity and nutrition platform.
// Every method may fail with an error wrapping ErrPermissionDenied, which is
// distinct from an empty result.
type ActivityProvider interface {
	// StepCount totals passive steps in window, skipping any step data that
	// falls inside one of the exclude windows.
	StepCount(ctx context.Context, window TimeWindow, exclude []TimeWindow) (int64, error)
	// ExerciseSessions lists the sessions overlapping window.
	ExerciseSessions(ctx context.Context, window TimeWindow) ([]ExerciseInterval, error)
	// FoodIntake lists food records with a timestamp inside window.
	FoodIntake(ctx context.Context, window TimeWindow) ([]FoodIntakeRecord, error)
}

/* ─── Calculators ────────────────────────────────────────────────────── */

// NEATPerStep is the empirical kcal burned per passive step.
const NEATPerStep = 0.04

// NEATFromSteps converts a step count to kcal.
func NEATFromSteps(steps int64) float64 {
	return float64(steps) * NEATPerStep
}

// NEATCalculator computes passive-movement kcal with exercise periods
// excluded from the step count.
type NEATCalculator struct {
	Provider ActivityProvider
}

// Query returns the NEAT reading for window. If the exercise source fails
// (denied or otherwise) the step total is taken unfiltered, which may
// overestimate but never blocks. Zero steps is NoData, not an error.
func (c NEATCalculator) Query(ctx context.Context, window TimeWindow) (Reading, error) {
	var exclude []TimeWindow
	if sessions, err := c.Provider.ExerciseSessions(ctx, window); err == nil {
		for _, w := range MergeExclusions(sessions) {
			if clipped, ok := w.Clip(window); ok {
				exclude = append(exclude, clipped)
			}
		}
	}

	steps, err := c.Provider.StepCount(ctx, window, exclude)
	if err != nil {
		return Reading{}, fmt.Errorf("neat: step count: %w", err)
	}
	if steps <= 0 {
		return NoData(), nil
	}
	return Measured(NEATFromSteps(steps)), nil
}

// ActiveCalculator sums exercise-session energy.
type ActiveCalculator struct {
	Provider ActivityProvider
}

// Query sums the energy of every session overlapping window. No sessions is a
// rest day: NoData.
func (c ActiveCalculator) Query(ctx context.Context, window TimeWindow) (Reading, error) {
	sessions, err := c.Provider.ExerciseSessions(ctx, window)
	if err != nil {
		return Reading{}, fmt.Errorf("active: exercise sessions: %w", err)
	}
	if len(sessions) == 0 {
		return NoData(), nil
	}
	var total float64
	for _, s := range sessions {
		total += s.EnergyKcal
	}
	return Measured(total), nil
}

// CaloriesInCalculator sums logged food energy.
type CaloriesInCalculator struct {
	Provider ActivityProvider
}

func (c CaloriesInCalculator) Query(ctx context.Context, window TimeWindow) (Reading, error) {
	records, err := c.Provider.FoodIntake(ctx, window)
	if err != nil {
		return Reading{}, fmt.Errorf("calories in: food intake: %w", err)
	}
	if len(records) == 0 {
		return NoData(), nil
	}
	var total float64
	for _, r := range records {
		total += r.EnergyKcal
	}
	return Measured(total), nil
}
