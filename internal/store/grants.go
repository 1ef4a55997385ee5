package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lg/energy-balance-api/internal/energy"
)

// Data sources a user can grant or revoke.
const (
	SourceSteps    = "steps"
	SourceExercise = "exercise"
	SourceFood     = "food"
)

// Sources lists every grantable data source.
var Sources = []string{SourceSteps, SourceExercise, SourceFood}

// ValidSource reports whether name is a known data source.
func ValidSource(name string) bool {
	for _, s := range Sources {
		if s == name {
			return true
		}
	}
	return false
}

// Grants returns the access state of every source. A source without a row
// is granted.
func (s *Store) Grants(ctx context.Context, userID int) ([]Grant, error) {
	rows, err := queryMany[Grant](ctx, s.pool,
		"SELECT source, granted FROM data_source_grants WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		return nil, err
	}
	bySource := make(map[string]bool, len(rows))
	for _, r := range rows {
		bySource[r.Source] = r.Granted
	}
	grants := make([]Grant, 0, len(Sources))
	for _, src := range Sources {
		granted, ok := bySource[src]
		grants = append(grants, Grant{Source: src, Granted: !ok || granted})
	}
	return grants, nil
}

// SetGrant records whether source may be read for the user.
func (s *Store) SetGrant(ctx context.Context, userID int, source string, granted bool) error {
	if !ValidSource(source) {
		return fmt.Errorf("unknown data source %q", source)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO data_source_grants (user_id, source, granted)
		 VALUES (@userID, @source, @granted)
		 ON CONFLICT (user_id, source) DO UPDATE SET granted = EXCLUDED.granted, updated_at = now()`,
		pgx.NamedArgs{"userID": userID, "source": source, "granted": granted})
	return err
}

// requireGrant returns an error wrapping energy.ErrPermissionDenied when the
// user has revoked source.
func (s *Store) requireGrant(ctx context.Context, userID int, source string) error {
	var granted bool
	err := s.pool.QueryRow(ctx,
		"SELECT granted FROM data_source_grants WHERE user_id = @userID AND source = @source",
		pgx.NamedArgs{"userID": userID, "source": source}).Scan(&granted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("%s: %w", source, energy.ErrPermissionDenied)
	}
	return nil
}
