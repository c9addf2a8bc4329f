package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/observ"
	"github.com/lalith-99/vidstream/internal/realtime"
	"github.com/lalith-99/vidstream/internal/repository"
	"go.uber.org/zap"
)

// LikeHandler handles likes on videos and comments.
type LikeHandler struct {
	likes    repository.LikeRepository
	videos   repository.VideoRepository
	comments repository.CommentRepository
	hub      *realtime.Hub
	logger   *zap.Logger
}

func NewLikeHandler(
	likes repository.LikeRepository,
	videos repository.VideoRepository,
	comments repository.CommentRepository,
	hub *realtime.Hub,
	logger *zap.Logger,
) *LikeHandler {
	return &LikeHandler{likes: likes, videos: videos, comments: comments, hub: hub, logger: logger}
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/:videoId
func (h *LikeHandler) ToggleVideo(c *gin.Context) {
	target, ok := h.target(c, models.LikeVideo)
	if !ok {
		return
	}
	info, ok := h.toggle(c, target)
	if !ok {
		return
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventLike, VideoID: target.ID, Count: info.LikesCount})
	h.respondToggle(c, info, "video")
}

// ToggleComment handles POST /api/v1/likes/toggle/c/:commentId
func (h *LikeHandler) ToggleComment(c *gin.Context) {
	target, ok := h.target(c, models.LikeComment)
	if !ok {
		return
	}
	info, ok := h.toggle(c, target)
	if !ok {
		return
	}
	h.respondToggle(c, info, "comment")
}

// VideoInfo handles GET /api/v1/likes/info/v/:videoId
func (h *LikeHandler) VideoInfo(c *gin.Context) {
	h.info(c, models.LikeVideo)
}

// CommentInfo handles GET /api/v1/likes/info/c/:commentId
func (h *LikeHandler) CommentInfo(c *gin.Context) {
	h.info(c, models.LikeComment)
}

// LikedVideos handles GET /api/v1/likes/videos
func (h *LikeHandler) LikedVideos(c *gin.Context) {
	videos, err := h.likes.LikedVideos(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch liked videos"))
		return
	}
	respond(c, http.StatusOK, videos, "Liked videos fetched successfully")
}

// toggle flips the caller's like and reads back the new count.
//
// The store does the flip as delete-or-insert against a unique index, so
// two concurrent toggles from the same user can't leave two likes behind;
// the one that loses gets Conflict and may simply retry.
func (h *LikeHandler) toggle(c *gin.Context, target models.LikeTarget) (*models.LikeInfo, bool) {
	ctx := c.Request.Context()

	liked, err := h.likes.Toggle(ctx, target, middleware.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			fail(c, apperr.Conflict("like is being toggled by another request"))
		case errors.Is(err, repository.ErrNotFound):
			fail(c, apperr.NotFound(string(target.Kind)+" not found"))
		default:
			fail(c, apperr.Wrap(err, "failed to toggle like"))
		}
		return nil, false
	}

	count, err := h.likes.Count(ctx, target)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to count likes"))
		return nil, false
	}

	observ.TogglesTotal.WithLabelValues("like_"+string(target.Kind), observ.ToggleState(liked)).Inc()
	return &models.LikeInfo{Liked: liked, LikesCount: count}, true
}

func (h *LikeHandler) respondToggle(c *gin.Context, info *models.LikeInfo, what string) {
	if info.Liked {
		respond(c, http.StatusCreated, info, "Liked the "+what)
		return
	}
	respond(c, http.StatusOK, info, "Removed like from the "+what)
}

func (h *LikeHandler) info(c *gin.Context, kind models.LikeKind) {
	target, ok := h.target(c, kind)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	liked, err := h.likes.IsLiked(ctx, target, middleware.CurrentUserID(c))
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch likes"))
		return
	}
	count, err := h.likes.Count(ctx, target)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch likes"))
		return
	}

	respond(c, http.StatusOK, models.LikeInfo{Liked: liked, LikesCount: count}, "Likes fetched successfully")
}

// target parses the path id for kind and checks the liked thing exists
// and is visible to the caller.
func (h *LikeHandler) target(c *gin.Context, kind models.LikeKind) (models.LikeTarget, bool) {
	param := "videoId"
	if kind == models.LikeComment {
		param = "commentId"
	}
	id, ok := pathID(c, param)
	if !ok {
		return models.LikeTarget{}, false
	}

	videoID := id
	if kind == models.LikeComment {
		comment, err := h.comments.GetByID(c.Request.Context(), id)
		if err != nil {
			fail(c, apperr.Wrap(err, "failed to fetch comment"))
			return models.LikeTarget{}, false
		}
		if comment == nil {
			fail(c, apperr.NotFound("comment not found"))
			return models.LikeTarget{}, false
		}
		videoID = comment.VideoID
	}

	// A comment on someone else's draft is as hidden as the draft.
	if _, ok := visibleVideo(c, h.videos, videoID); !ok {
		return models.LikeTarget{}, false
	}
	return models.LikeTarget{Kind: kind, ID: id}, true
}
