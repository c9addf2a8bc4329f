package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/vidstream/internal/models"
)

type DashboardStore struct {
	pool *pgxpool.Pool
}

func NewDashboardStore(pool *pgxpool.Pool) *DashboardStore {
	return &DashboardStore{pool: pool}
}

// ChannelStats computes the creator dashboard numbers in one query.
// Likes counts only likes on the owner's videos, not on their comments.
func (s *DashboardStore) ChannelStats(ctx context.Context, ownerID uuid.UUID) (*models.ChannelStats, error) {
	query := `
		SELECT
			COALESCE((SELECT sum(views) FROM videos WHERE owner_id = $1), 0)::bigint,
			(SELECT count(*) FROM videos WHERE owner_id = $1),
			(SELECT count(*) FROM subscriptions WHERE channel_id = $1),
			(SELECT count(*) FROM likes l JOIN videos v ON v.id = l.video_id WHERE v.owner_id = $1)`

	var st models.ChannelStats
	err := s.pool.QueryRow(ctx, query, ownerID).Scan(
		&st.TotalViews,
		&st.TotalVideos,
		&st.TotalSubscribers,
		&st.TotalLikes,
	)
	if err != nil {
		return nil, fmt.Errorf("channel stats: %w", err)
	}
	return &st, nil
}
