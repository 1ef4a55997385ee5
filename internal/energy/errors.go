package energy

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotConfigured means the profile store has no profile. BMR is
	// required, so this fails the whole balance.
	ErrProfileNotConfigured = errors.New("energy: profile not configured")

	// ErrPermissionDenied is wrapped by data sources the user has not granted
	// access to. It degrades the affected optional component to 0 kcal.
	ErrPermissionDenied = errors.New("energy: permission denied")

	// ErrFutureDate rejects observing or navigating past today.
	ErrFutureDate = errors.New("energy: date is in the future")

	// ErrProfileFeedLost ends BMR updates on a live subscription whose
	// profile change feed closed. It is not fatal: reselecting the day
	// opens a new feed.
	ErrProfileFeedLost = errors.New("energy: profile change feed lost")
)

// ValidationError reports a profile field outside its allowed range.
type ValidationError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("energy: %s %g outside allowed range [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// IsFatal reports whether err fails the whole balance rather than a single
// optional component.
func IsFatal(err error) bool {
	var verr *ValidationError
	return errors.Is(err, ErrProfileNotConfigured) || errors.As(err, &verr)
}
