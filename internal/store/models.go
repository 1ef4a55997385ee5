package store

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Domain rows ────────────────────────────────────────────────────── */

// User maps to the users table. AuthToken and Password are hidden from JSON responses.
type User struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	AuthToken string     `json:"-" db:"auth_token"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// Profile maps to user_profiles. Every biometric field is nullable; a row with
// any of them missing counts as "not configured".
type Profile struct {
	UserID      int        `json:"user_id"       db:"user_id"`
	Sex         *string    `json:"sex"           db:"sex"`
	DateOfBirth *DateOnly  `json:"date_of_birth" db:"date_of_birth"`
	WeightKG    *float64   `json:"weight_kg"     db:"weight_kg"`
	HeightCM    *float64   `json:"height_cm"     db:"height_cm"`
	UpdatedAt   *time.Time `json:"updated_at"    db:"updated_at"`
}

// ExerciseSession maps to exercise_sessions.
type ExerciseSession struct {
	ID         int64      `json:"id"          db:"id"`
	UserID     int        `json:"user_id"     db:"user_id"`
	Name       string     `json:"name"        db:"name"`
	StartTime  time.Time  `json:"start_time"  db:"start_time"`
	EndTime    time.Time  `json:"end_time"    db:"end_time"`
	EnergyKcal float64    `json:"energy_kcal" db:"energy_kcal"`
	CreatedAt  *time.Time `json:"created_at"  db:"created_at"`
}

// FoodIntake maps to food_intake. Records arrive already validated, whether
// typed in or estimated elsewhere from a photo.
type FoodIntake struct {
	ID         int64      `json:"id"          db:"id"`
	UserID     int        `json:"user_id"     db:"user_id"`
	ItemName   string     `json:"item_name"   db:"item_name"`
	ConsumedAt time.Time  `json:"consumed_at" db:"consumed_at"`
	EnergyKcal float64    `json:"energy_kcal" db:"energy_kcal"`
	CreatedAt  *time.Time `json:"created_at"  db:"created_at"`
}

// StepSample maps to step_samples: the step count of one bucket [start, end).
type StepSample struct {
	ID        int64     `json:"id"         db:"id"`
	UserID    int       `json:"user_id"    db:"user_id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time"   db:"end_time"`
	Steps     int64     `json:"steps"      db:"steps"`
}

// Grant maps to data_source_grants.
type Grant struct {
	Source  string `json:"source"  db:"source"`
	Granted bool   `json:"granted" db:"granted"`
}
