package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/vidstream/internal/models"
)

type PlaylistStore struct {
	pool *pgxpool.Pool
}

func NewPlaylistStore(pool *pgxpool.Pool) *PlaylistStore {
	return &PlaylistStore{pool: pool}
}

const playlistColumns = `id, owner_id, name, description, videos, created_at, updated_at`

func scanPlaylist(row scanner) (*models.Playlist, error) {
	var p models.Playlist
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Description,
		&p.VideoIDs,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.VideoIDs == nil {
		p.VideoIDs = make([]uuid.UUID, 0)
	}
	return &p, nil
}

func (s *PlaylistStore) getOne(ctx context.Context, op, query string, args ...any) (*models.Playlist, error) {
	p, err := scanPlaylist(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *PlaylistStore) Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*models.Playlist, error) {
	query := `
		INSERT INTO playlists (owner_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING ` + playlistColumns
	return s.getOne(ctx, "insert playlist", query, ownerID, name, description)
}

func (s *PlaylistStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Playlist, error) {
	return s.getOne(ctx, "get playlist", `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id)
}

func (s *PlaylistStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

func (s *PlaylistStore) Update(ctx context.Context, id uuid.UUID, name, description *string) (*models.Playlist, error) {
	query := `
		UPDATE playlists SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + playlistColumns
	return s.getOne(ctx, "update playlist", query, id, name, description)
}

func (s *PlaylistStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return nil
}

// AddVideo appends in one statement; the membership test and the append
// see the same row version, so a double click can't add the video twice.
func (s *PlaylistStore) AddVideo(ctx context.Context, id, videoID uuid.UUID) (*models.Playlist, error) {
	query := `
		UPDATE playlists SET
			videos = CASE WHEN $2 = ANY(videos) THEN videos ELSE array_append(videos, $2) END,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + playlistColumns
	return s.getOne(ctx, "add playlist video", query, id, videoID)
}

func (s *PlaylistStore) RemoveVideo(ctx context.Context, id, videoID uuid.UUID) (*models.Playlist, error) {
	query := `
		UPDATE playlists SET
			videos = array_remove(videos, $2),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + playlistColumns
	return s.getOne(ctx, "remove playlist video", query, id, videoID)
}
