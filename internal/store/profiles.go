package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"lg/energy-balance-api/internal/energy"
)

// profileChannel is the LISTEN/NOTIFY channel fired on every profile write.
// The payload is the user id.
const profileChannel = "profile_changed"

// Profile returns the user's profile row, or pgx.ErrNoRows if none exists.
func (s *Store) Profile(ctx context.Context, userID int) (Profile, error) {
	return read(ctx, s, "profile", func(ctx context.Context) (Profile, error) {
		return queryOne[Profile](ctx, s.pool,
			"SELECT * FROM user_profiles WHERE user_id = @userID",
			pgx.NamedArgs{"userID": userID})
	})
}

// UpsertProfile writes all four biometric fields and notifies live observers.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) (Profile, error) {
	saved, err := queryOne[Profile](ctx, s.pool,
		`INSERT INTO user_profiles (user_id, sex, date_of_birth, weight_kg, height_cm)
		 VALUES (@userID, @sex, @dateOfBirth, @weightKG, @heightCM)
		 ON CONFLICT (user_id) DO UPDATE SET
			sex = EXCLUDED.sex,
			date_of_birth = EXCLUDED.date_of_birth,
			weight_kg = EXCLUDED.weight_kg,
			height_cm = EXCLUDED.height_cm,
			updated_at = now()
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": p.UserID, "sex": p.Sex, "dateOfBirth": dateArg(p.DateOfBirth),
			"weightKG": p.WeightKG, "heightCM": p.HeightCM,
		})
	if err != nil {
		return Profile{}, err
	}
	if _, err := s.pool.Exec(ctx, "SELECT pg_notify(@channel, @payload)",
		pgx.NamedArgs{"channel": profileChannel, "payload": strconv.Itoa(p.UserID)}); err != nil {
		s.log.Warn().Err(err).Int("user_id", p.UserID).Msg("profile change notification failed")
	}
	return saved, nil
}

// dateArg passes a nullable date as a YYYY-MM-DD string.
func dateArg(d *DateOnly) *string {
	if d == nil {
		return nil
	}
	s := d.Time.Format("2006-01-02")
	return &s
}

// ToDomain converts a row to the core's profile snapshot. Nil means the
// profile is incomplete and counts as not configured.
func (p Profile) ToDomain() (*energy.UserProfile, error) {
	if p.Sex == nil || p.DateOfBirth == nil || p.WeightKG == nil || p.HeightCM == nil {
		return nil, nil
	}
	sex, err := energy.ParseSex(*p.Sex)
	if err != nil {
		return nil, err
	}
	return &energy.UserProfile{
		Sex:       sex,
		BirthDate: p.DateOfBirth.Time,
		WeightKG:  *p.WeightKG,
		HeightCM:  *p.HeightCM,
	}, nil
}

// loadProfile returns the user's domain profile, nil when unset.
func (s *Store) loadProfile(ctx context.Context, userID int) (*energy.UserProfile, error) {
	row, err := s.Profile(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain()
}

/* ─── energy.ProfileStore ────────────────────────────────────────────── */

// ProfileSource is the push-driven profile store for one user.
type ProfileSource struct {
	store  *Store
	userID int
}

func (s *Store) ProfileSource(userID int) *ProfileSource {
	return &ProfileSource{store: s, userID: userID}
}

// Profile reads the current profile once, nil when unset.
func (p *ProfileSource) Profile(ctx context.Context) (*energy.UserProfile, error) {
	return p.store.loadProfile(ctx, p.userID)
}

// ObserveProfile emits the current profile and re-reads it whenever a
// profile_changed notification for this user arrives on the store's shared
// listener. The channel closes when ctx ends or the listener cannot reconnect.
func (p *ProfileSource) ObserveProfile(ctx context.Context) (<-chan *energy.UserProfile, error) {
	sub, unsubscribe := p.store.profiles.subscribe(p.userID)
	current, err := p.store.loadProfile(ctx, p.userID)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	out := make(chan *energy.UserProfile, 1)
	out <- current
	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.lost:
				p.store.log.Warn().Int("user_id", p.userID).Msg("profile change feed lost")
				return
			case <-sub.changed:
			}
			prof, err := p.store.loadProfile(ctx, p.userID)
			if err != nil {
				if ctx.Err() == nil {
					p.store.log.Warn().Err(err).Int("user_id", p.userID).Msg("reload profile after notification")
				}
				continue
			}
			select {
			case out <- prof:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
