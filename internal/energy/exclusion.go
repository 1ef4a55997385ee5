package energy

import (
	"slices"
	"time"
)

// ExerciseInterval is one recorded exercise session.
type ExerciseInterval struct {
	Start      time.Time
	End        time.Time
	EnergyKcal float64
}

func (e ExerciseInterval) Window() TimeWindow { return TimeWindow{Start: e.Start, End: e.End} }

// FoodIntakeRecord is one logged meal or snack.
type FoodIntakeRecord struct {
	Timestamp  time.Time
	EnergyKcal float64
}

// MergeExclusions turns a day's exercise sessions into sorted, non-overlapping
// exclusion windows for the step query. Overlapping or touching sessions
// collapse into one window; empty or inverted sessions are dropped. No
// sessions yields an empty (nil) list.
func MergeExclusions(sessions []ExerciseInterval) []TimeWindow {
	windows := make([]TimeWindow, 0, len(sessions))
	for _, s := range sessions {
		if s.End.After(s.Start) {
			windows = append(windows, s.Window())
		}
	}
	if len(windows) == 0 {
		return nil
	}
	slices.SortFunc(windows, func(a, b TimeWindow) int { return a.Start.Compare(b.Start) })

	merged := windows[:1]
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if !w.Start.After(last.End) {
			if w.End.After(last.End) {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
