package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"lg/energy-balance-api/internal/energy"
)

/* ─── energy.ActivityProvider ────────────────────────────────────────── */

// ActivitySource reads one user's steps, sessions and food for the core.
type ActivitySource struct {
	store  *Store
	userID int
}

func (s *Store) ActivitySource(userID int) *ActivitySource {
	return &ActivitySource{store: s, userID: userID}
}

// exclusionBounds splits exclusion windows into parallel start/end arrays for
// unnest() on the server.
func exclusionBounds(exclude []energy.TimeWindow) (starts, ends []time.Time) {
	starts = make([]time.Time, len(exclude))
	ends = make([]time.Time, len(exclude))
	for i, w := range exclude {
		starts[i], ends[i] = w.Start, w.End
	}
	return starts, ends
}

// StepCount sums step buckets starting inside window. A bucket that overlaps
// any exclusion window is dropped whole: its steps belong to the workout.
func (a *ActivitySource) StepCount(ctx context.Context, window energy.TimeWindow, exclude []energy.TimeWindow) (int64, error) {
	starts, ends := exclusionBounds(exclude)
	return read(ctx, a.store, "step_count", func(ctx context.Context) (int64, error) {
		if err := a.store.requireGrant(ctx, a.userID, SourceSteps); err != nil {
			return 0, err
		}
		var steps int64
		err := a.store.pool.QueryRow(ctx,
			`SELECT COALESCE(SUM(s.steps), 0)::bigint
			 FROM step_samples s
			 WHERE s.user_id = @userID
			   AND s.start_time >= @start AND s.start_time < @end
			   AND NOT EXISTS (
				SELECT 1 FROM unnest(@exStarts::timestamptz[], @exEnds::timestamptz[]) AS x(ex_start, ex_end)
				WHERE s.start_time < x.ex_end AND s.end_time > x.ex_start)`,
			pgx.NamedArgs{
				"userID": a.userID, "start": window.Start, "end": window.End,
				"exStarts": starts, "exEnds": ends,
			}).Scan(&steps)
		return steps, err
	})
}

// ExerciseSessions lists sessions overlapping window.
func (a *ActivitySource) ExerciseSessions(ctx context.Context, window energy.TimeWindow) ([]energy.ExerciseInterval, error) {
	rows, err := read(ctx, a.store, "exercise_sessions", func(ctx context.Context) ([]ExerciseSession, error) {
		if err := a.store.requireGrant(ctx, a.userID, SourceExercise); err != nil {
			return nil, err
		}
		return a.store.sessionsOverlapping(ctx, a.userID, window)
	})
	if err != nil {
		return nil, err
	}
	out := make([]energy.ExerciseInterval, len(rows))
	for i, r := range rows {
		out[i] = energy.ExerciseInterval{Start: r.StartTime, End: r.EndTime, EnergyKcal: r.EnergyKcal}
	}
	return out, nil
}

// FoodIntake lists food records consumed inside window.
func (a *ActivitySource) FoodIntake(ctx context.Context, window energy.TimeWindow) ([]energy.FoodIntakeRecord, error) {
	rows, err := read(ctx, a.store, "food_intake", func(ctx context.Context) ([]FoodIntake, error) {
		if err := a.store.requireGrant(ctx, a.userID, SourceFood); err != nil {
			return nil, err
		}
		return a.store.foodInWindow(ctx, a.userID, window)
	})
	if err != nil {
		return nil, err
	}
	out := make([]energy.FoodIntakeRecord, len(rows))
	for i, r := range rows {
		out[i] = energy.FoodIntakeRecord{Timestamp: r.ConsumedAt, EnergyKcal: r.EnergyKcal}
	}
	return out, nil
}

/* ─── Log reads and writes ───────────────────────────────────────────── */

func (s *Store) sessionsOverlapping(ctx context.Context, userID int, window energy.TimeWindow) ([]ExerciseSession, error) {
	return queryMany[ExerciseSession](ctx, s.pool,
		`SELECT * FROM exercise_sessions
		 WHERE user_id = @userID AND start_time < @end AND end_time > @start
		 ORDER BY start_time`,
		pgx.NamedArgs{"userID": userID, "start": window.Start, "end": window.End})
}

func (s *Store) foodInWindow(ctx context.Context, userID int, window energy.TimeWindow) ([]FoodIntake, error) {
	return queryMany[FoodIntake](ctx, s.pool,
		`SELECT * FROM food_intake
		 WHERE user_id = @userID AND consumed_at >= @start AND consumed_at < @end
		 ORDER BY consumed_at`,
		pgx.NamedArgs{"userID": userID, "start": window.Start, "end": window.End})
}

// ExerciseSessions lists the user's sessions overlapping window, without the
// grant check: the user is reading their own log.
func (s *Store) ExerciseSessions(ctx context.Context, userID int, window energy.TimeWindow) ([]ExerciseSession, error) {
	return read(ctx, s, "list_exercise_sessions", func(ctx context.Context) ([]ExerciseSession, error) {
		return s.sessionsOverlapping(ctx, userID, window)
	})
}

// FoodIntake lists the user's food records inside window.
func (s *Store) FoodIntake(ctx context.Context, userID int, window energy.TimeWindow) ([]FoodIntake, error) {
	return read(ctx, s, "list_food_intake", func(ctx context.Context) ([]FoodIntake, error) {
		return s.foodInWindow(ctx, userID, window)
	})
}

func (s *Store) InsertExerciseSession(ctx context.Context, e ExerciseSession) (ExerciseSession, error) {
	return queryOne[ExerciseSession](ctx, s.pool,
		`INSERT INTO exercise_sessions (user_id, name, start_time, end_time, energy_kcal)
		 VALUES (@userID, @name, @start, @end, @energyKcal)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": e.UserID, "name": e.Name, "start": e.StartTime,
			"end": e.EndTime, "energyKcal": e.EnergyKcal,
		})
}

func (s *Store) InsertFoodIntake(ctx context.Context, f FoodIntake) (FoodIntake, error) {
	return queryOne[FoodIntake](ctx, s.pool,
		`INSERT INTO food_intake (user_id, item_name, consumed_at, energy_kcal)
		 VALUES (@userID, @itemName, @consumedAt, @energyKcal)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": f.UserID, "itemName": f.ItemName,
			"consumedAt": f.ConsumedAt, "energyKcal": f.EnergyKcal,
		})
}

// UpsertStepSample writes a step bucket. The UNIQUE(user_id, start_time)
// constraint means re-posting a bucket replaces its count.
func (s *Store) UpsertStepSample(ctx context.Context, st StepSample) (StepSample, error) {
	return queryOne[StepSample](ctx, s.pool,
		`INSERT INTO step_samples (user_id, start_time, end_time, steps)
		 VALUES (@userID, @start, @end, @steps)
		 ON CONFLICT (user_id, start_time) DO UPDATE SET end_time = EXCLUDED.end_time, steps = EXCLUDED.steps
		 RETURNING *`,
		pgx.NamedArgs{"userID": st.UserID, "start": st.StartTime, "end": st.EndTime, "steps": st.Steps})
}

// deleteOwned removes one row of table by id, scoped to the user. It reports
// whether a row was deleted. table is always a package constant.
func (s *Store) deleteOwned(ctx context.Context, table string, userID int, id int64) (bool, error) {
	result, err := s.pool.Exec(ctx,
		"DELETE FROM "+table+" WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (s *Store) DeleteExerciseSession(ctx context.Context, userID int, id int64) (bool, error) {
	return s.deleteOwned(ctx, "exercise_sessions", userID, id)
}

func (s *Store) DeleteFoodIntake(ctx context.Context, userID int, id int64) (bool, error) {
	return s.deleteOwned(ctx, "food_intake", userID, id)
}
