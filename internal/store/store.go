// Package store is the PostgreSQL data-source layer behind the energy core:
// profiles, step samples, exercise sessions, food intake and per-source
// access grants. Retry and circuit breaking live here, not in the core.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"lg/energy-balance-api/internal/energy"
)

// Store holds the pool plus the resilience policy shared by every query.
type Store struct {
	pool    *pgxpool.Pool
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger

	attempts uint
	delay    time.Duration

	profiles *profileListener

	// OnQuery, if set, is called after every read with the operation name,
	// its duration and its final error.
	OnQuery func(op string, d time.Duration, err error)
}

// Connect creates a connection pool. We use a pool (not a single conn) because
// Neon closes idle connections after ~5 minutes.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from Neon's server-side prepared statement cache after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	s := &Store{
		pool:     pool,
		log:      log,
		attempts: 3,
		delay:    100 * time.Millisecond,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Denials and missing rows are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	s.profiles = newProfileListener(s)
	return s
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

/* ─── Query helpers ──────────────────────────────────────────────────── */

// isTransient reports whether err is worth retrying and counts against the
// breaker.
func isTransient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, energy.ErrPermissionDenied),
		errors.Is(err, pgx.ErrNoRows),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	return true
}

// read runs fn behind the breaker with jittered retries on transient errors.
// The error returned is fn's last error, so callers can still errors.Is it.
func read[T any](ctx context.Context, s *Store, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	var (
		result T
		last   error
	)
	_, err := s.breaker.Execute(func() (interface{}, error) {
		rerr := retry.Do(
			func() error {
				result, last = fn(ctx)
				return last
			},
			retry.Context(ctx),
			retry.Attempts(s.attempts),
			retry.Delay(s.delay),
			retry.MaxDelay(2*time.Second),
			retry.DelayType(retry.FullJitterBackoffDelay),
			retry.RetryIf(isTransient),
			retry.OnRetry(func(n uint, err error) {
				s.log.Debug().Err(err).Str("op", op).Uint("attempt", n+1).Msg("retrying store read")
			}),
		)
		if rerr != nil && last == nil {
			last = rerr
		}
		return nil, last
	})
	if err != nil && last == nil {
		// Breaker rejected the call without running it.
		last = err
	}
	if last != nil {
		last = fmt.Errorf("%s: %w", op, last)
	}
	if s.OnQuery != nil {
		s.OnQuery(op, time.Since(start), last)
	}
	var zero T
	if last != nil {
		return zero, last
	}
	return result, nil
}

// queryOne runs a query and scans the first row into T using RowToStructByName.
func queryOne[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		var zero T
		return zero, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}
