package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/realtime"
	"github.com/lalith-99/vidstream/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CommentHandler handles comments under a video.
type CommentHandler struct {
	comments repository.CommentRepository
	videos   repository.VideoRepository
	hub      *realtime.Hub
	logger   *zap.Logger
}

func NewCommentHandler(
	comments repository.CommentRepository,
	videos repository.VideoRepository,
	hub *realtime.Hub,
	logger *zap.Logger,
) *CommentHandler {
	return &CommentHandler{comments: comments, videos: videos, hub: hub, logger: logger}
}

type commentRequest struct {
	Content string `json:"content" binding:"required,notblank,max=5000"`
}

// List handles GET /api/v1/comments/:videoId
//
// Comments on a draft are only reachable by the draft's owner.
func (h *CommentHandler) List(c *gin.Context) {
	videoID, ok := pathID(c, "videoId")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, ok := visibleVideo(c, h.videos, videoID); !ok {
		return
	}

	p := pageFrom(c)
	var (
		comments []models.Comment
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		comments, err = h.comments.ListByVideo(gctx, videoID, p)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = h.comments.CountByVideo(gctx, videoID)
		return err
	})
	if err := g.Wait(); err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch comments"))
		return
	}

	respond(c, http.StatusOK, paged("comments", comments, p, total), "Comments fetched successfully")
}

// Create handles POST /api/v1/comments/:videoId
func (h *CommentHandler) Create(c *gin.Context) {
	videoID, ok := pathID(c, "videoId")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if _, ok := visibleVideo(c, h.videos, videoID); !ok {
		return
	}

	comment, err := h.comments.Create(ctx, videoID, middleware.CurrentUserID(c), strings.TrimSpace(req.Content))
	if err != nil {
		// The video was deleted between the check and the insert.
		if errors.Is(err, repository.ErrNotFound) {
			fail(c, apperr.NotFound("video not found"))
			return
		}
		fail(c, apperr.Wrap(err, "failed to add comment"))
		return
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventComment, VideoID: videoID, Payload: comment})
	respond(c, http.StatusCreated, comment, "Comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/:commentId
func (h *CommentHandler) Update(c *gin.Context) {
	comment, ok := h.ownedComment(c)
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.comments.UpdateContent(c.Request.Context(), comment.ID, strings.TrimSpace(req.Content))
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to update comment"))
		return
	}
	if updated == nil {
		fail(c, apperr.NotFound("comment not found"))
		return
	}

	respond(c, http.StatusOK, updated, "Comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/:commentId
func (h *CommentHandler) Delete(c *gin.Context) {
	comment, ok := h.ownedComment(c)
	if !ok {
		return
	}

	if err := h.comments.Delete(c.Request.Context(), comment.ID); err != nil {
		fail(c, apperr.Wrap(err, "failed to delete comment"))
		return
	}

	respond(c, http.StatusOK, nil, "Comment deleted successfully")
}

func (h *CommentHandler) ownedComment(c *gin.Context) (*models.Comment, bool) {
	id, ok := pathID(c, "commentId")
	if !ok {
		return nil, false
	}

	comment, err := h.comments.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch comment"))
		return nil, false
	}
	if comment == nil {
		fail(c, apperr.NotFound("comment not found"))
		return nil, false
	}
	if !models.IsOwner(comment.OwnerID, middleware.CurrentUserID(c)) {
		fail(c, apperr.Forbidden("you do not own this comment"))
		return nil, false
	}
	return comment, true
}
