package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/repository"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, user_name, email, full_name, avatar, cover_image,
	watch_history, password_hash, refresh_token, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.UserName,
		&u.Email,
		&u.FullName,
		&u.Avatar,
		&u.CoverImage,
		&u.WatchHistory,
		&u.PasswordHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// getOne runs a single-row user query and applies the (nil, nil)
// not-found convention.
func (s *UserStore) getOne(ctx context.Context, op, query string, args ...any) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return u, nil
}

// Create inserts a new user row. Postgres generates the UUID and timestamps.
// The unique indexes on user_name and email are the real duplicate guard;
// the handler's pre-check only gives a friendlier message in the common case.
func (s *UserStore) Create(ctx context.Context, nu repository.NewUser) (*models.User, error) {
	query := `
		INSERT INTO users (user_name, email, full_name, avatar, cover_image, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	return s.getOne(ctx, "insert user", query,
		nu.UserName, nu.Email, nu.FullName, nu.Avatar, nu.CoverImage, nu.PasswordHash)
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.getOne(ctx, "get user", query, id)
}

// FindByIdentifier looks a user up by userName or email, whichever the
// caller supplied. Used by login and the registration duplicate check.
func (s *UserStore) FindByIdentifier(ctx context.Context, userName, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1 <> '' AND user_name = $1) OR ($2 <> '' AND email = $2)
		LIMIT 1`
	return s.getOne(ctx, "find user", query, userName, email)
}

func (s *UserStore) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	query := `UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, id, token); err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}

// SwapRefreshToken is a compare-and-swap on the session column. Two
// requests racing to rotate the same token both pass the handler's
// equality check, but only one UPDATE matches the WHERE clause.
func (s *UserStore) SwapRefreshToken(ctx context.Context, id uuid.UUID, current, next string) (bool, error) {
	query := `
		UPDATE users SET refresh_token = $3, updated_at = now()
		WHERE id = $1 AND refresh_token = $2`

	tag, err := s.pool.Exec(ctx, query, id, current, next)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateAccount(ctx context.Context, id uuid.UUID, fullName, email string) (*models.User, error) {
	query := `
		UPDATE users SET full_name = $2, email = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	return s.getOne(ctx, "update account", query, id, fullName, email)
}

func (s *UserStore) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*models.User, error) {
	query := `
		UPDATE users SET avatar = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	return s.getOne(ctx, "update avatar", query, id, url)
}

func (s *UserStore) UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) (*models.User, error) {
	query := `
		UPDATE users SET cover_image = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	return s.getOne(ctx, "update cover image", query, id, url)
}

// ChannelProfile answers the channel page in one round trip: the user row
// plus both subscription counts and the viewer's own subscription.
//
// viewerID may be uuid.Nil for anonymous viewers; no subscription row has
// a nil subscriber, so isSubscribed comes back false.
func (s *UserStore) ChannelProfile(ctx context.Context, userName string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	query := `
		SELECT
			u.id, u.user_name, u.full_name, u.email, u.avatar, u.cover_image,
			(SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id),
			(SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
			EXISTS (
				SELECT 1 FROM subscriptions s
				WHERE s.channel_id = u.id AND s.subscriber_id = $2
			)
		FROM users u
		WHERE u.user_name = $1`

	var p models.ChannelProfile
	err := s.pool.QueryRow(ctx, query, userName, viewerID).Scan(
		&p.ID,
		&p.UserName,
		&p.FullName,
		&p.Email,
		&p.Avatar,
		&p.CoverImage,
		&p.SubscribersCount,
		&p.ChannelsSubscribedToCount,
		&p.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("channel profile: %w", err)
	}
	return &p, nil
}

// PushWatchHistory rewrites one user's history under a row lock, so two
// tabs fetching videos at the same moment can't lose each other's entry.
// It touches a single row; there is no multi-row transaction here.
func (s *UserStore) PushWatchHistory(ctx context.Context, userID, videoID uuid.UUID, maxEntries int) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var history []uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT watch_history FROM users WHERE id = $1 FOR UPDATE`, userID,
		).Scan(&history)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}

		next := models.PushHistory(history, videoID, maxEntries)
		_, err = tx.Exec(ctx,
			`UPDATE users SET watch_history = $2, updated_at = now() WHERE id = $1`,
			userID, next,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("push watch history: %w", err)
	}
	return nil
}
