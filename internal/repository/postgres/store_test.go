package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/vidstream/internal/config"
	"github.com/lalith-99/vidstream/internal/db"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTranslate(t *testing.T) {
	dup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"}
	assert.ErrorIs(t, translate(dup), repository.ErrConflict)

	fk := &pgconn.PgError{Code: foreignKeyViolation}
	assert.ErrorIs(t, translate(fmt.Errorf("insert: %w", fk)), repository.ErrNotFound)

	other := errors.New("boom")
	assert.Same(t, other, translate(other))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_done\\`, escapeLike(`100% _done\`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

// testPool connects to VIDSTREAM_TEST_DATABASE_URL and applies migrations.
// Tests using it are skipped when the variable isn't set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("VIDSTREAM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("VIDSTREAM_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, config.DatabaseConfig{URL: url, MaxConns: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(database.Close)
	require.NoError(t, database.Migrate(ctx))
	return database.Pool()
}

func createUser(t *testing.T, users *UserStore) *models.User {
	t.Helper()

	name := "u" + uuid.NewString()[:8]
	u, err := users.Create(context.Background(), repository.NewUser{
		UserName:     name,
		Email:        name + "@example.com",
		FullName:     "Test " + name,
		Avatar:       "https://cdn.test/a.png",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func createVideo(t *testing.T, videos *VideoStore, owner uuid.UUID, title string) *models.Video {
	t.Helper()

	v, err := videos.Create(context.Background(), repository.NewVideo{
		OwnerID:     owner,
		Title:       title,
		Description: "description of " + title,
		VideoFile:   "https://cdn.test/v.mp4",
		Thumbnail:   "https://cdn.test/t.png",
		Duration:    10,
	})
	require.NoError(t, err)
	return v
}

func TestUserStoreIntegration(t *testing.T) {
	pool := testPool(t)
	users := NewUserStore(pool)
	ctx := context.Background()

	u := createUser(t, users)

	_, err := users.Create(ctx, repository.NewUser{
		UserName:     "other" + uuid.NewString()[:8],
		Email:        u.Email,
		FullName:     "Dup",
		Avatar:       "x",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	found, err := users.FindByIdentifier(ctx, "", u.Email)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)

	missing, err := users.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	token := "refresh-1"
	require.NoError(t, users.SetRefreshToken(ctx, u.ID, &token))
	swapped, err := users.SwapRefreshToken(ctx, u.ID, "refresh-1", "refresh-2")
	require.NoError(t, err)
	assert.True(t, swapped)
	swapped, err = users.SwapRefreshToken(ctx, u.ID, "refresh-1", "refresh-3")
	require.NoError(t, err)
	assert.False(t, swapped, "a rotated token can't be swapped again")
}

func TestWatchHistoryIntegration(t *testing.T) {
	pool := testPool(t)
	users := NewUserStore(pool)
	videos := NewVideoStore(pool)
	ctx := context.Background()

	u := createUser(t, users)
	a := createVideo(t, videos, u.ID, "a")
	b := createVideo(t, videos, u.ID, "b")
	c := createVideo(t, videos, u.ID, "c")

	for _, id := range []uuid.UUID{a.ID, b.ID, a.ID, c.ID} {
		require.NoError(t, users.PushWatchHistory(ctx, u.ID, id, 2))
	}

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, c.ID}, got.WatchHistory)
}

func TestLikeToggleIntegration(t *testing.T) {
	pool := testPool(t)
	users := NewUserStore(pool)
	videos := NewVideoStore(pool)
	likes := NewLikeStore(pool)
	ctx := context.Background()

	owner := createUser(t, users)
	fan := createUser(t, users)
	v := createVideo(t, videos, owner.ID, "liked")
	target := models.VideoTarget(v.ID)

	liked, err := likes.Toggle(ctx, target, fan.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	n, err := likes.Count(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	liked, err = likes.Toggle(ctx, target, fan.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = likes.Toggle(ctx, models.VideoTarget(uuid.New()), fan.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVideoSearchIntegration(t *testing.T) {
	pool := testPool(t)
	users := NewUserStore(pool)
	videos := NewVideoStore(pool)
	ctx := context.Background()

	owner := createUser(t, users)
	createVideo(t, videos, owner.ID, "100% pure")
	createVideo(t, videos, owner.ID, "1000 pure")

	f := repository.VideoFilter{
		Page:          repository.Page{Page: 1, Limit: 10},
		Search:        "100%",
		OwnerID:       &owner.ID,
		PublishedOnly: true,
	}
	list, err := videos.List(ctx, f)
	require.NoError(t, err)
	require.Len(t, list, 1, "percent sign matches literally")
	assert.Equal(t, "100% pure", list[0].Title)
	require.NotNil(t, list[0].Owner)
	assert.Equal(t, owner.UserName, list[0].Owner.UserName)

	total, err := videos.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestDraftVisibilityIntegration(t *testing.T) {
	pool := testPool(t)
	users := NewUserStore(pool)
	videos := NewVideoStore(pool)
	likes := NewLikeStore(pool)
	ctx := context.Background()

	owner := createUser(t, users)
	fan := createUser(t, users)
	v := createVideo(t, videos, owner.ID, "soon")
	_, err := likes.Toggle(ctx, models.VideoTarget(v.ID), fan.ID)
	require.NoError(t, err)

	_, err = videos.SetPublished(ctx, v.ID, false)
	require.NoError(t, err)

	got, err := videos.ListByIDs(ctx, []uuid.UUID{v.ID}, fan.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = videos.ListByIDs(ctx, []uuid.UUID{v.ID}, owner.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	liked, err := likes.LikedVideos(ctx, fan.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
}
