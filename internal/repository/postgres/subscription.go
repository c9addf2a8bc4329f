package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/repository"
)

type SubscriptionStore struct {
	pool *pgxpool.Pool
}

func NewSubscriptionStore(pool *pgxpool.Pool) *SubscriptionStore {
	return &SubscriptionStore{pool: pool}
}

// Toggle follows the same delete-then-insert shape as LikeStore.Toggle.
// The (subscriber_id, channel_id) unique index keeps the pair unique even
// when two requests land at once.
func (s *SubscriptionStore) Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM subscriptions
		WHERE subscriber_id = $1 AND channel_id = $2`, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("unsubscribe: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	tag, err = s.pool.Exec(ctx, `
		INSERT INTO subscriptions (subscriber_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (subscriber_id, channel_id) DO NOTHING`, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("subscribe: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return false, repository.ErrConflict
	}
	return true, nil
}

func (s *SubscriptionStore) CountSubscribers(ctx context.Context, channelID uuid.UUID) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM subscriptions WHERE channel_id = $1`, channelID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return total, nil
}

func (s *SubscriptionStore) ListSubscribers(ctx context.Context, channelID uuid.UUID) ([]models.Owner, error) {
	query := `
		SELECT u.id, u.user_name, u.full_name, u.avatar
		FROM subscriptions s
		JOIN users u ON u.id = s.subscriber_id
		WHERE s.channel_id = $1
		ORDER BY s.created_at DESC`
	return s.listOwners(ctx, "list subscribers", query, channelID)
}

func (s *SubscriptionStore) ListSubscribedChannels(ctx context.Context, subscriberID uuid.UUID) ([]models.Owner, error) {
	query := `
		SELECT u.id, u.user_name, u.full_name, u.avatar
		FROM subscriptions s
		JOIN users u ON u.id = s.channel_id
		WHERE s.subscriber_id = $1
		ORDER BY s.created_at DESC`
	return s.listOwners(ctx, "list subscribed channels", query, subscriberID)
}

func (s *SubscriptionStore) listOwners(ctx context.Context, op, query string, id uuid.UUID) ([]models.Owner, error) {
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	owners := make([]models.Owner, 0)
	for rows.Next() {
		var o models.Owner
		if err := rows.Scan(&o.ID, &o.UserName, &o.FullName, &o.Avatar); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owners: %w", err)
	}
	return owners, nil
}
