package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. Every account is also a channel: other users
// subscribe to it and it owns videos and playlists.
//
// PasswordHash and RefreshToken are tagged json:"-" so no handler can
// leak them by accident, whatever it serializes.
//
// Why *string for RefreshToken?
//   - NULL means "logged out". An empty string would be a valid-looking
//     value that a forged empty token could compare equal to.
type User struct {
	ID           uuid.UUID   `json:"id"`
	UserName     string      `json:"userName"`
	Email        string      `json:"email"`
	FullName     string      `json:"fullName"`
	Avatar       string      `json:"avatar"`
	CoverImage   string      `json:"coverImage"`
	WatchHistory []uuid.UUID `json:"watchHistory"`
	PasswordHash string      `json:"-"`
	RefreshToken *string     `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// AsOwner returns the public projection of the user.
func (u *User) AsOwner() Owner {
	return Owner{
		ID:       u.ID,
		UserName: u.UserName,
		FullName: u.FullName,
		Avatar:   u.Avatar,
	}
}

// Owner is the public slice of a User embedded into videos, comments and
// subscriber lists.
type Owner struct {
	ID       uuid.UUID `json:"id"`
	UserName string    `json:"userName"`
	FullName string    `json:"fullName"`
	Avatar   string    `json:"avatar"`
}

// Video is an uploaded video. VideoFile and Thumbnail are URLs on the
// media host, never local paths.
//
// Owner is populated by queries that join users; it stays nil for rows
// read without the join.
type Video struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Owner       *Owner    `json:"owner,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VisibleTo reports whether viewerID may see the video at all. Drafts
// exist only for their owner.
func (v *Video) VisibleTo(viewerID uuid.UUID) bool {
	return v.IsPublished || IsOwner(v.OwnerID, viewerID)
}

// VideoUpdate is a partial update. Nil fields are left unchanged.
type VideoUpdate struct {
	Title       *string
	Description *string
	Duration    *float64
	Thumbnail   *string
}

// Empty reports whether the update would change nothing.
func (u VideoUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Duration == nil && u.Thumbnail == nil
}

type Comment struct {
	ID        uuid.UUID `json:"id"`
	VideoID   uuid.UUID `json:"videoId"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Owner     *Owner    `json:"owner,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeKind says which column of the likes table a like points at.
// A like targets exactly one video or exactly one comment, never both.
type LikeKind string

const (
	LikeVideo   LikeKind = "video"
	LikeComment LikeKind = "comment"
)

// LikeTarget identifies the thing being liked.
type LikeTarget struct {
	Kind LikeKind
	ID   uuid.UUID
}

func VideoTarget(id uuid.UUID) LikeTarget   { return LikeTarget{Kind: LikeVideo, ID: id} }
func CommentTarget(id uuid.UUID) LikeTarget { return LikeTarget{Kind: LikeComment, ID: id} }

type Like struct {
	ID        uuid.UUID  `json:"id"`
	VideoID   *uuid.UUID `json:"videoId,omitempty"`
	CommentID *uuid.UUID `json:"commentId,omitempty"`
	LikedBy   uuid.UUID  `json:"likedBy"`
	CreatedAt time.Time  `json:"createdAt"`
}

// LikeInfo is what the like endpoints report back.
type LikeInfo struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

type Subscription struct {
	ID           uuid.UUID `json:"id"`
	SubscriberID uuid.UUID `json:"subscriberId"`
	ChannelID    uuid.UUID `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SubscriptionState is what the subscribe toggle reports back.
type SubscriptionState struct {
	Subscribed       bool  `json:"subscribed"`
	SubscribersCount int64 `json:"subscribersCount"`
}

// Playlist keeps its videos as an ordered id list. Videos is only filled
// when a handler expands the ids into full records.
type Playlist struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"ownerId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	VideoIDs    []uuid.UUID `json:"videoIds"`
	Videos      []Video     `json:"videos"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ChannelProfile is a user as seen from their channel page.
type ChannelProfile struct {
	ID                        uuid.UUID `json:"id"`
	UserName                  string    `json:"userName"`
	FullName                  string    `json:"fullName"`
	Email                     string    `json:"email"`
	Avatar                    string    `json:"avatar"`
	CoverImage                string    `json:"coverImage"`
	SubscribersCount          int64     `json:"subscribersCount"`
	ChannelsSubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
}

// ChannelStats feeds the creator dashboard.
type ChannelStats struct {
	TotalViews       int64 `json:"totalViews"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
}

// IsOwner is the one ownership check every mutating handler goes through.
// uuid.Nil never owns anything, so an anonymous caller can't match a
// record whose owner column was somehow left empty.
func IsOwner(ownerID, actorID uuid.UUID) bool {
	return ownerID != uuid.Nil && ownerID == actorID
}
