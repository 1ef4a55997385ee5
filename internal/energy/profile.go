package energy

import (
	"fmt"
	"strings"
	"time"
)

// Sex selects the constant term of the Mifflin-St Jeor equation.
type Sex int

const (
	SexMale Sex = iota + 1
	SexFemale
)

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	default:
		return "unknown"
	}
}

// ParseSex accepts "male" or "female" (case-insensitive).
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return SexMale, nil
	case "female":
		return SexFemale, nil
	}
	return 0, fmt.Errorf("sex must be one of: male, female (got %q)", s)
}

// Profile field limits. Anything outside them fails validation.
const (
	MinAgeYears = 13
	MaxAgeYears = 120
	MinWeightKG = 30.0
	MaxWeightKG = 300.0
	MinHeightCM = 100.0
	MaxHeightCM = 250.0
)

// UserProfile is a read-only snapshot of the biometric profile owned by the
// profile store.
type UserProfile struct {
	Sex       Sex
	BirthDate time.Time
	WeightKG  float64
	HeightCM  float64
}

// AgeOn returns the age in whole years on the calendar day of on. Historical
// queries pass the queried day so a past day never shows today's age.
//
// BirthDate is a calendar date: only its year, month and day are used, never
// its instant, so a UTC-midnight date read from the database keeps its day in
// any time zone.
func (p UserProfile) AgeOn(on time.Time) int {
	age := on.Year() - p.BirthDate.Year()
	// Birthday not reached yet this year
	if on.Before(time.Date(on.Year(), p.BirthDate.Month(), p.BirthDate.Day(), 0, 0, 0, 0, on.Location())) {
		age--
	}
	return age
}

// Validate checks sex, age (as of on), weight and height against the allowed
// ranges and returns a *ValidationError for the first field out of range.
func (p UserProfile) Validate(on time.Time) error {
	if p.Sex != SexMale && p.Sex != SexFemale {
		return &ValidationError{Field: "sex", Value: float64(p.Sex), Min: float64(SexMale), Max: float64(SexFemale)}
	}
	if age := p.AgeOn(on); age < MinAgeYears || age > MaxAgeYears {
		return &ValidationError{Field: "age", Value: float64(age), Min: MinAgeYears, Max: MaxAgeYears}
	}
	if p.WeightKG < MinWeightKG || p.WeightKG > MaxWeightKG {
		return &ValidationError{Field: "weight_kg", Value: p.WeightKG, Min: MinWeightKG, Max: MaxWeightKG}
	}
	if p.HeightCM < MinHeightCM || p.HeightCM > MaxHeightCM {
		return &ValidationError{Field: "height_cm", Value: p.HeightCM, Min: MinHeightCM, Max: MaxHeightCM}
	}
	return nil
}

/* ─── BMR ────────────────────────────────────────────────────────────── */

// BMR computes resting metabolic rate (kcal/day) via Mifflin-St Jeor:
//
//	10*weight_kg + 6.25*height_cm - 5*age + (5 male | -161 female)
//
// Age is taken relative to on, not the wall clock.
func BMR(p UserProfile, on time.Time) (float64, error) {
	if err := p.Validate(on); err != nil {
		return 0, err
	}
	bmr := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.AgeOn(on))
	if p.Sex == SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}
	return bmr, nil
}

// bmrReading turns a profile emission into a BMR sample. A nil profile means
// the user never configured one.
func bmrReading(p *UserProfile, on time.Time) Sample {
	if p == nil {
		return Sample{Component: ComponentBMR, Err: ErrProfileNotConfigured}
	}
	kcal, err := BMR(*p, on)
	if err != nil {
		return Sample{Component: ComponentBMR, Err: err}
	}
	return Sample{Component: ComponentBMR, Reading: Measured(kcal)}
}
