package energy

import "time"

// TimeWindow is the half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) Duration() time.Duration { return w.End.Sub(w.Start) }

// Contains reports whether t lies in [Start, End).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether the two windows share any instant.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Clip returns w restricted to bounds, and false when nothing is left.
func (w TimeWindow) Clip(bounds TimeWindow) (TimeWindow, bool) {
	if w.Start.Before(bounds.Start) {
		w.Start = bounds.Start
	}
	if w.End.After(bounds.End) {
		w.End = bounds.End
	}
	return w, w.Start.Before(w.End)
}

// StartOfDay returns local midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayWindow is the closed window of a whole calendar day: midnight of the
// day to midnight of the next. AddDate keeps 23h and 25h DST days correct.
func DayWindow(day time.Time, loc *time.Location) TimeWindow {
	start := StartOfDay(day, loc)
	return TimeWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// TodayWindow is the advancing window from local midnight to now.
func TodayWindow(now time.Time, loc *time.Location) TimeWindow {
	return TimeWindow{Start: StartOfDay(now, loc), End: now.In(loc)}
}

// sameDay reports whether a and b fall on the same calendar day in loc.
func sameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}

// Clock supplies "now". The engine never reads the wall clock directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
