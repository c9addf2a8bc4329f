package repository

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/models"
)

// Why context.Context as the first parameter on every method?
//
//   - It's idiomatic Go for anything that does I/O.
//   - It carries the request deadline: if the client disconnects, the
//     query is cancelled too.
//
// Lookups return (nil, nil) when the row doesn't exist. The handler
// decides whether that's a 404 or something else.

var (
	// ErrConflict is returned when a write would violate a uniqueness
	// constraint (duplicate userName/email, a second like from the same
	// user, a concurrent toggle that lost the race).
	ErrConflict = errors.New("repository: conflict")

	// ErrNotFound is returned by writes whose referenced row disappeared
	// between the handler's check and the write (foreign key violation).
	ErrNotFound = errors.New("repository: referenced row not found")
)

// Page is an offset page. Page and Limit are 1-based and already clamped
// by the handler.
type Page struct {
	Page  int
	Limit int
}

// Offset is the number of rows to skip. It saturates instead of
// overflowing for absurd page numbers.
func (p Page) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// VideoFilter drives the video listing/search query.
type VideoFilter struct {
	Page
	Search        string
	OwnerID       *uuid.UUID
	PublishedOnly bool
	SortBy        string // createdAt, views, duration, title
	SortAsc       bool
}

// NewUser is what registration inserts.
type NewUser struct {
	UserName     string
	Email        string
	FullName     string
	Avatar       string
	CoverImage   string
	PasswordHash string
}

// NewVideo is what publishing inserts.
type NewVideo struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	VideoFile   string
	Thumbnail   string
	Duration    float64
}

// UserRepository handles accounts, their session token and watch history.
type UserRepository interface {
	// Create inserts a user. Returns ErrConflict on duplicate userName/email.
	Create(ctx context.Context, u NewUser) (*models.User, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// FindByIdentifier matches userName OR email. Empty arguments never match.
	FindByIdentifier(ctx context.Context, userName, email string) (*models.User, error)

	// SetRefreshToken overwrites the persisted refresh token. nil clears it.
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error

	// SwapRefreshToken replaces current with next only if current is still
	// the persisted token. Reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, current, next string) (bool, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// UpdateAccount returns ErrConflict if the email belongs to someone else.
	UpdateAccount(ctx context.Context, id uuid.UUID, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) (*models.User, error)

	// ChannelProfile resolves a channel by userName together with its
	// subscriber counts and whether viewerID subscribes to it.
	ChannelProfile(ctx context.Context, userName string, viewerID uuid.UUID) (*models.ChannelProfile, error)

	// PushWatchHistory moves videoID to the most recent end of the user's
	// history, keeping at most maxEntries ids (0 = unbounded).
	PushWatchHistory(ctx context.Context, userID, videoID uuid.UUID, maxEntries int) error
}

// VideoRepository handles video records. Reads join the owner projection.
type VideoRepository interface {
	Create(ctx context.Context, v NewVideo) (*models.Video, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)

	// IncrementViews bumps the view counter by one and returns the updated
	// video, or (nil, nil) if it doesn't exist.
	IncrementViews(ctx context.Context, id uuid.UUID) (*models.Video, error)

	Update(ctx context.Context, id uuid.UUID, upd models.VideoUpdate) (*models.Video, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, f VideoFilter) ([]models.Video, error)
	Count(ctx context.Context, f VideoFilter) (int64, error)

	// ListByIDs returns the videos that still exist and that viewerID may
	// see (published, or owned by viewerID), in no particular order.
	ListByIDs(ctx context.Context, ids []uuid.UUID, viewerID uuid.UUID) ([]models.Video, error)
}

// CommentRepository handles comments on videos. Reads join the owner.
type CommentRepository interface {
	// Create returns ErrNotFound if the video vanished.
	Create(ctx context.Context, videoID, ownerID uuid.UUID, content string) (*models.Comment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByVideo returns a page of comments, newest first.
	ListByVideo(ctx context.Context, videoID uuid.UUID, p Page) ([]models.Comment, error)
	CountByVideo(ctx context.Context, videoID uuid.UUID) (int64, error)
}

// LikeRepository handles likes on videos and comments.
type LikeRepository interface {
	// Toggle removes the user's like on target if there is one, otherwise
	// adds it. Reports the resulting state. Returns ErrConflict when a
	// concurrent toggle from the same user won the race.
	Toggle(ctx context.Context, target models.LikeTarget, userID uuid.UUID) (bool, error)

	IsLiked(ctx context.Context, target models.LikeTarget, userID uuid.UUID) (bool, error)
	Count(ctx context.Context, target models.LikeTarget) (int64, error)

	// LikedVideos returns the videos the user liked, most recent like first.
	// Videos unpublished by someone else are left out.
	LikedVideos(ctx context.Context, userID uuid.UUID) ([]models.Video, error)
}

// SubscriptionRepository handles who subscribes to which channel.
type SubscriptionRepository interface {
	// Toggle subscribes or unsubscribes. Same race contract as LikeRepository.
	Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error)

	CountSubscribers(ctx context.Context, channelID uuid.UUID) (int64, error)
	ListSubscribers(ctx context.Context, channelID uuid.UUID) ([]models.Owner, error)
	ListSubscribedChannels(ctx context.Context, subscriberID uuid.UUID) ([]models.Owner, error)
}

// PlaylistRepository handles playlists. Videos are stored as an id list;
// expanding them is the handler's job.
type PlaylistRepository interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*models.Playlist, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Playlist, error)
	Update(ctx context.Context, id uuid.UUID, name, description *string) (*models.Playlist, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// AddVideo appends videoID unless it's already in the playlist.
	AddVideo(ctx context.Context, id, videoID uuid.UUID) (*models.Playlist, error)
	// RemoveVideo removes every occurrence of videoID.
	RemoveVideo(ctx context.Context, id, videoID uuid.UUID) (*models.Playlist, error)
}

// DashboardRepository computes a channel's aggregate numbers.
type DashboardRepository interface {
	ChannelStats(ctx context.Context, ownerID uuid.UUID) (*models.ChannelStats, error)
}
