package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/repository"
)

type VideoStore struct {
	pool *pgxpool.Pool
}

func NewVideoStore(pool *pgxpool.Pool) *VideoStore {
	return &VideoStore{pool: pool}
}

// Every video read joins the owner so handlers can return the public
// profile next to the video without a second query.
const videoSelect = `
	SELECT v.id, v.owner_id, v.title, v.description, v.video_file, v.thumbnail,
	       v.duration, v.views, v.is_published, v.created_at, v.updated_at,
	       u.user_name, u.full_name, u.avatar
	FROM videos v
	JOIN users u ON u.id = v.owner_id`

// sortColumns whitelists the sortBy values the listing accepts. The
// value is interpolated into ORDER BY, so it must never come from the
// request directly.
var sortColumns = map[string]string{
	"createdAt": "v.created_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

func scanVideo(row scanner) (*models.Video, error) {
	var v models.Video
	var o models.Owner
	err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.Title,
		&v.Description,
		&v.VideoFile,
		&v.Thumbnail,
		&v.Duration,
		&v.Views,
		&v.IsPublished,
		&v.CreatedAt,
		&v.UpdatedAt,
		&o.UserName,
		&o.FullName,
		&o.Avatar,
	)
	if err != nil {
		return nil, err
	}
	o.ID = v.OwnerID
	v.Owner = &o
	return &v, nil
}

func (s *VideoStore) getOne(ctx context.Context, op, query string, args ...any) (*models.Video, error) {
	v, err := scanVideo(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return v, nil
}

func (s *VideoStore) collect(ctx context.Context, op, query string, args ...any) ([]models.Video, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// Create inserts a published video and reads it back with its owner.
func (s *VideoStore) Create(ctx context.Context, nv repository.NewVideo) (*models.Video, error) {
	query := `
		WITH inserted AS (
			INSERT INTO videos (owner_id, title, description, video_file, thumbnail, duration, is_published)
			VALUES ($1, $2, $3, $4, $5, $6, true)
			RETURNING *
		)` + strings.Replace(videoSelect, "FROM videos v", "FROM inserted v", 1)

	return s.getOne(ctx, "insert video", query,
		nv.OwnerID, nv.Title, nv.Description, nv.VideoFile, nv.Thumbnail, nv.Duration)
}

func (s *VideoStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	return s.getOne(ctx, "get video", videoSelect+` WHERE v.id = $1`, id)
}

// IncrementViews is a single UPDATE, so concurrent viewers never lose a
// count the way read-increment-save would.
func (s *VideoStore) IncrementViews(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	query := `
		WITH bumped AS (
			UPDATE videos SET views = views + 1
			WHERE id = $1
			RETURNING *
		)` + strings.Replace(videoSelect, "FROM videos v", "FROM bumped v", 1)

	return s.getOne(ctx, "increment views", query, id)
}

// Update applies a partial update. COALESCE keeps the stored value for
// every field the caller left nil.
func (s *VideoStore) Update(ctx context.Context, id uuid.UUID, upd models.VideoUpdate) (*models.Video, error) {
	query := `
		WITH updated AS (
			UPDATE videos SET
				title       = COALESCE($2, title),
				description = COALESCE($3, description),
				duration    = COALESCE($4, duration),
				thumbnail   = COALESCE($5, thumbnail),
				updated_at  = now()
			WHERE id = $1
			RETURNING *
		)` + strings.Replace(videoSelect, "FROM videos v", "FROM updated v", 1)

	return s.getOne(ctx, "update video", query, id, upd.Title, upd.Description, upd.Duration, upd.Thumbnail)
}

func (s *VideoStore) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.Video, error) {
	query := `
		WITH updated AS (
			UPDATE videos SET is_published = $2, updated_at = now()
			WHERE id = $1
			RETURNING *
		)` + strings.Replace(videoSelect, "FROM videos v", "FROM updated v", 1)

	return s.getOne(ctx, "set published", query, id, published)
}

// Delete removes the video. Its comments and likes go with it through
// ON DELETE CASCADE.
func (s *VideoStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

// where builds the WHERE clause shared by List and Count so the total
// always describes the same set as the page.
func where(f repository.VideoFilter) (string, []any) {
	var conds []string
	var args []any

	if f.PublishedOnly {
		conds = append(conds, "v.is_published")
	}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		conds = append(conds, fmt.Sprintf("v.owner_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(v.title ILIKE $%d OR v.description ILIKE $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *VideoStore) List(ctx context.Context, f repository.VideoFilter) ([]models.Video, error) {
	clause, args := where(f)

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns["createdAt"]
	}
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}

	args = append(args, f.Limit, f.Offset())
	query := fmt.Sprintf("%s%s ORDER BY %s %s, v.id %s LIMIT $%d OFFSET $%d",
		videoSelect, clause, col, dir, dir, len(args)-1, len(args))

	return s.collect(ctx, "list videos", query, args...)
}

func (s *VideoStore) Count(ctx context.Context, f repository.VideoFilter) (int64, error) {
	clause, args := where(f)

	var total int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM videos v`+clause, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return total, nil
}

func (s *VideoStore) ListByIDs(ctx context.Context, ids []uuid.UUID, viewerID uuid.UUID) ([]models.Video, error) {
	if len(ids) == 0 {
		return make([]models.Video, 0), nil
	}
	return s.collect(ctx, "list videos by id",
		videoSelect+` WHERE v.id = ANY($1) AND (v.is_published OR v.owner_id = $2)`, ids, viewerID)
}
