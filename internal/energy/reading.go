package energy

import (
	"errors"
	"time"
)

// Component names one term of the balance.
type Component int

const (
	ComponentBMR Component = iota
	ComponentNEAT
	ComponentActive
	ComponentCaloriesIn
)

func (c Component) String() string {
	switch c {
	case ComponentBMR:
		return "bmr"
	case ComponentNEAT:
		return "neat"
	case ComponentActive:
		return "active"
	case ComponentCaloriesIn:
		return "calories_in"
	}
	return "unknown"
}

// Status is the availability of a component reading.
type Status int

const (
	// StatusMeasured: the source answered with data.
	StatusMeasured Status = iota
	// StatusNoData: the source answered but had nothing for the window (zero
	// steps, rest day, fasting). Not an error.
	StatusNoData
	// StatusPermissionDenied: the user has not granted access to the source.
	StatusPermissionDenied
	// StatusUnavailable: the source failed for any other reason (timeout,
	// breaker open, database down).
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusMeasured:
		return "measured"
	case StatusNoData:
		return "no_data"
	case StatusPermissionDenied:
		return "permission_denied"
	case StatusUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Degraded reports whether the component contributed a substitute 0 kcal.
func (s Status) Degraded() bool {
	return s == StatusPermissionDenied || s == StatusUnavailable
}

// Reading is one component's contribution. Its fields are unexported so the
// only way to build one is through the constructors below: a denied or
// unavailable reading always carries 0 kcal.
type Reading struct {
	kcal   float64
	status Status
}

// Measured is a successful reading. Zero kcal is still "measured".
func Measured(kcal float64) Reading { return Reading{kcal: kcal, status: StatusMeasured} }

// NoData is a successful, empty reading worth 0 kcal.
func NoData() Reading { return Reading{status: StatusNoData} }

// Degrade maps a source failure to a 0 kcal reading, keeping the
// permission-denied signal distinct from other failures.
func Degrade(err error) Reading {
	if errors.Is(err, ErrPermissionDenied) {
		return Reading{status: StatusPermissionDenied}
	}
	return Reading{status: StatusUnavailable}
}

func (r Reading) Kcal() float64  { return r.kcal }
func (r Reading) Status() Status { return r.status }

// Sample is a reading as emitted by a component stream. Err is set only for
// the BMR stream, whose failures are fatal; optional components fold their
// failures into Reading via Degrade.
type Sample struct {
	Component Component
	Reading   Reading
	Err       error
	At        time.Time
}
