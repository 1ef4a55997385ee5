package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lg/energy-balance-api/internal/energy"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("steps: %w", energy.ErrPermissionDenied), false},
		{pgx.ErrNoRows, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{gobreaker.ErrOpenState, false},
		{errors.New("connection reset by peer"), true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isTransient(tc.err), "isTransient(%v)", tc.err)
	}
}

func TestExclusionBounds(t *testing.T) {
	base := time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)
	starts, ends := exclusionBounds([]energy.TimeWindow{
		{Start: base, End: base.Add(time.Hour)},
		{Start: base.Add(3 * time.Hour), End: base.Add(4 * time.Hour)},
	})
	assert.Equal(t, []time.Time{base, base.Add(3 * time.Hour)}, starts)
	assert.Equal(t, []time.Time{base.Add(time.Hour), base.Add(4 * time.Hour)}, ends)

	// Empty, not nil, so the server sees '{}' rather than NULL.
	starts, ends = exclusionBounds(nil)
	assert.NotNil(t, starts)
	assert.Empty(t, ends)
}

func TestValidSource(t *testing.T) {
	for _, s := range Sources {
		assert.True(t, ValidSource(s))
	}
	assert.False(t, ValidSource("heart_rate"))
}

/* ─── Profile conversion ─────────────────────────────────────────────── */

func completeProfile() Profile {
	sex := "female"
	weight, height := 60.0, 165.0
	dob := DateOnly{time.Date(1996, 3, 1, 0, 0, 0, 0, time.UTC)}
	return Profile{UserID: 7, Sex: &sex, DateOfBirth: &dob, WeightKG: &weight, HeightCM: &height}
}

func TestProfileToDomain(t *testing.T) {
	p, err := completeProfile().ToDomain()
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, energy.SexFemale, p.Sex)
	assert.Equal(t, 60.0, p.WeightKG)
	assert.Equal(t, 165.0, p.HeightCM)
}

// TestProfileToDomain_Incomplete: any missing field means "not configured".
func TestProfileToDomain_Incomplete(t *testing.T) {
	cases := map[string]func(p *Profile){
		"nil sex":    func(p *Profile) { p.Sex = nil },
		"nil dob":    func(p *Profile) { p.DateOfBirth = nil },
		"nil weight": func(p *Profile) { p.WeightKG = nil },
		"nil height": func(p *Profile) { p.HeightCM = nil },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			row := completeProfile()
			mut(&row)
			p, err := row.ToDomain()
			require.NoError(t, err)
			assert.Nil(t, p)
		})
	}
}

func TestDateOnlyJSON(t *testing.T) {
	d := DateOnly{time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-06-15"`, string(b))

	var back DateOnly
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d.Time))

	assert.Error(t, json.Unmarshal([]byte(`"15/06/2026"`), &back))
}

func TestDateArg(t *testing.T) {
	assert.Nil(t, dateArg(nil))
	d := DateOnly{time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "1990-01-02", *dateArg(&d))
}

/* ─── Resilience ─────────────────────────────────────────────────────── */

func newTestStore() *Store {
	s := New(nil, zerolog.Nop())
	s.delay = time.Millisecond
	return s
}

func TestRead_RetriesTransient(t *testing.T) {
	s := newTestStore()
	calls := 0
	got, err := read(context.Background(), s, "op", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

// TestRead_PermissionDeniedNotRetried keeps the denial distinguishable and
// answers it on the first attempt.
func TestRead_PermissionDeniedNotRetried(t *testing.T) {
	s := newTestStore()
	var observed error
	s.OnQuery = func(op string, _ time.Duration, err error) { observed = err }

	calls := 0
	_, err := read(context.Background(), s, "step_count", func(context.Context) (int64, error) {
		calls++
		return 0, fmt.Errorf("steps: %w", energy.ErrPermissionDenied)
	})
	require.ErrorIs(t, err, energy.ErrPermissionDenied)
	assert.Equal(t, 1, calls)
	assert.ErrorContains(t, observed, "step_count")
}

// TestRead_BreakerOpens: five straight transient failures trip the breaker,
// after which reads fail fast without running.
func TestRead_BreakerOpens(t *testing.T) {
	s := newTestStore()
	s.attempts = 1
	failing := func(context.Context) (int, error) { return 0, errors.New("db down") }
	for i := 0; i < 5; i++ {
		_, err := read(context.Background(), s, "op", failing)
		require.Error(t, err)
	}

	ran := false
	_, err := read(context.Background(), s, "op", func(context.Context) (int, error) {
		ran = true
		return 1, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, ran)
}
