package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/repository"
)

type LikeStore struct {
	pool *pgxpool.Pool
}

func NewLikeStore(pool *pgxpool.Pool) *LikeStore {
	return &LikeStore{pool: pool}
}

// targetColumn picks the likes column for a target kind. The result is
// interpolated into SQL, so only these two literals may come out of it.
func targetColumn(kind models.LikeKind) (string, error) {
	switch kind {
	case models.LikeVideo:
		return "video_id", nil
	case models.LikeComment:
		return "comment_id", nil
	}
	return "", fmt.Errorf("unknown like target %q", kind)
}

// Toggle flips the user's like on target.
//
// Why DELETE first, then INSERT ... ON CONFLICT DO NOTHING?
//   - The old "SELECT, then decide" flow lets two concurrent toggles both
//     see "not liked" and both insert a row.
//   - DELETE is atomic: if it removed a row, we're done (now unliked).
//   - Otherwise the INSERT races only against the partial unique index
//     on (target, liked_by). Whoever loses inserts zero rows, and we
//     report that as ErrConflict instead of pretending to have liked.
func (s *LikeStore) Toggle(ctx context.Context, target models.LikeTarget, userID uuid.UUID) (bool, error) {
	col, err := targetColumn(target.Kind)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM likes WHERE `+col+` = $1 AND liked_by = $2`, target.ID, userID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	tag, err = s.pool.Exec(ctx,
		`INSERT INTO likes (`+col+`, liked_by) VALUES ($1, $2) ON CONFLICT DO NOTHING`, target.ID, userID)
	if err != nil {
		return false, fmt.Errorf("insert like: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return false, repository.ErrConflict
	}
	return true, nil
}

func (s *LikeStore) IsLiked(ctx context.Context, target models.LikeTarget, userID uuid.UUID) (bool, error) {
	col, err := targetColumn(target.Kind)
	if err != nil {
		return false, err
	}

	var liked bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE `+col+` = $1 AND liked_by = $2)`,
		target.ID, userID,
	).Scan(&liked)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return liked, nil
}

func (s *LikeStore) Count(ctx context.Context, target models.LikeTarget) (int64, error) {
	col, err := targetColumn(target.Kind)
	if err != nil {
		return 0, err
	}

	var total int64
	err = s.pool.QueryRow(ctx, `SELECT count(*) FROM likes WHERE `+col+` = $1`, target.ID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return total, nil
}

func (s *LikeStore) LikedVideos(ctx context.Context, userID uuid.UUID) ([]models.Video, error) {
	query := `
		SELECT v.id, v.owner_id, v.title, v.description, v.video_file, v.thumbnail,
		       v.duration, v.views, v.is_published, v.created_at, v.updated_at,
		       u.user_name, u.full_name, u.avatar
		FROM likes l
		JOIN videos v ON v.id = l.video_id
		JOIN users u ON u.id = v.owner_id
		WHERE l.liked_by = $1 AND (v.is_published OR v.owner_id = $1)
		ORDER BY l.created_at DESC, l.id DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list liked videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan liked video: %w", err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked videos: %w", err)
	}
	return videos, nil
}
