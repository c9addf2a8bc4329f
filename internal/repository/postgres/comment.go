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

type CommentStore struct {
	pool *pgxpool.Pool
}

func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

// commentSelect is parameterized on the source relation so that the
// INSERT/UPDATE ... RETURNING paths can reuse the same owner join.
const commentSelect = `
	SELECT c.id, c.video_id, c.owner_id, c.content, c.created_at, c.updated_at,
	       u.user_name, u.full_name, u.avatar
	FROM %s c
	JOIN users u ON u.id = c.owner_id`

func scanComment(row scanner) (*models.Comment, error) {
	var c models.Comment
	var o models.Owner
	err := row.Scan(
		&c.ID,
		&c.VideoID,
		&c.OwnerID,
		&c.Content,
		&c.CreatedAt,
		&c.UpdatedAt,
		&o.UserName,
		&o.FullName,
		&o.Avatar,
	)
	if err != nil {
		return nil, err
	}
	o.ID = c.OwnerID
	c.Owner = &o
	return &c, nil
}

func (s *CommentStore) getOne(ctx context.Context, op, query string, args ...any) (*models.Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return c, nil
}

func (s *CommentStore) Create(ctx context.Context, videoID, ownerID uuid.UUID, content string) (*models.Comment, error) {
	query := `
		WITH inserted AS (
			INSERT INTO comments (video_id, owner_id, content)
			VALUES ($1, $2, $3)
			RETURNING *
		)` + fmt.Sprintf(commentSelect, "inserted")

	return s.getOne(ctx, "insert comment", query, videoID, ownerID, content)
}

func (s *CommentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return s.getOne(ctx, "get comment", fmt.Sprintf(commentSelect, "comments")+` WHERE c.id = $1`, id)
}

func (s *CommentStore) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Comment, error) {
	query := `
		WITH updated AS (
			UPDATE comments SET content = $2, updated_at = now()
			WHERE id = $1
			RETURNING *
		)` + fmt.Sprintf(commentSelect, "updated")

	return s.getOne(ctx, "update comment", query, id, content)
}

// Delete removes the comment; likes on it cascade.
func (s *CommentStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// ListByVideo pages through a video's comments, newest first. id breaks
// ties between comments created in the same microsecond so pages never
// overlap.
func (s *CommentStore) ListByVideo(ctx context.Context, videoID uuid.UUID, p repository.Page) ([]models.Comment, error) {
	query := fmt.Sprintf(commentSelect, "comments") + `
		WHERE c.video_id = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, videoID, p.Limit, p.Offset())
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

func (s *CommentStore) CountByVideo(ctx context.Context, videoID uuid.UUID) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM comments WHERE video_id = $1`, videoID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return total, nil
}
