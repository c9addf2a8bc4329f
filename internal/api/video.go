package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/media"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/observ"
	"github.com/lalith-99/vidstream/internal/realtime"
	"github.com/lalith-99/vidstream/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// VideoHandler handles listing, publishing, watching and managing videos.
type VideoHandler struct {
	videos     repository.VideoRepository
	users      repository.UserRepository
	uploader   media.Uploader
	hub        *realtime.Hub
	upgrader   websocket.Upgrader
	tempDir    string
	historyMax int
	logger     *zap.Logger
}

// VideoOptions carries the knobs VideoHandler needs from config.
type VideoOptions struct {
	TempDir    string
	HistoryMax int
	// AllowedOrigin is the browser origin allowed to open the live feed.
	AllowedOrigin string
}

func NewVideoHandler(
	videos repository.VideoRepository,
	users repository.UserRepository,
	uploader media.Uploader,
	hub *realtime.Hub,
	opts VideoOptions,
	logger *zap.Logger,
) *VideoHandler {
	return &VideoHandler{
		videos:     videos,
		users:      users,
		uploader:   uploader,
		hub:        hub,
		tempDir:    opts.TempDir,
		historyMax: opts.HistoryMax,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == opts.AllowedOrigin
			},
		},
	}
}

type listVideosQuery struct {
	Query    string `form:"query"`
	UserID   string `form:"userId"`
	SortBy   string `form:"sortBy"`
	SortType string `form:"sortType"`
}

type publishVideoRequest struct {
	Title       string  `form:"title" binding:"required,notblank,max=200"`
	Description string  `form:"description" binding:"required,notblank,max=5000"`
	Duration    float64 `form:"duration" binding:"gte=0"`
}

type updateVideoRequest struct {
	Title       string   `form:"title" json:"title" binding:"max=200"`
	Description string   `form:"description" json:"description" binding:"max=5000"`
	Duration    *float64 `form:"duration" json:"duration" binding:"omitempty,gte=0"`
}

// List handles GET /api/v1/videos
//
// Only published videos are listed. userId narrows to one channel and is
// ignored when it isn't a valid id; an unknown sortBy falls back to
// createdAt. The page and the total are read concurrently.
func (h *VideoHandler) List(c *gin.Context) {
	var q listVideosQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, bindError(err))
		return
	}

	filter := repository.VideoFilter{
		Page:          pageFrom(c),
		Search:        strings.TrimSpace(q.Query),
		PublishedOnly: true,
		SortBy:        q.SortBy,
		SortAsc:       strings.EqualFold(q.SortType, "asc"),
	}
	if ownerID, err := uuid.Parse(q.UserID); err == nil {
		filter.OwnerID = &ownerID
	}

	videos, total, err := h.page(c, filter)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch videos"))
		return
	}

	respond(c, http.StatusOK, paged("videos", videos, filter.Page, total), "Videos fetched successfully")
}

// page runs List and Count for the same filter concurrently.
func (h *VideoHandler) page(c *gin.Context, f repository.VideoFilter) ([]models.Video, int64, error) {
	var (
		videos []models.Video
		total  int64
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		videos, err = h.videos.List(ctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = h.videos.Count(ctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// Publish handles POST /api/v1/videos
//
// Both the video file and the thumbnail must reach the media host before
// anything is inserted: a failed upload aborts the request and leaves no
// partial record.
func (h *VideoHandler) Publish(c *gin.Context) {
	var req publishVideoRequest
	if !bindForm(c, &req) {
		return
	}

	videoPath, err := requireFile(c, h.tempDir, "videoFile")
	if err != nil {
		fail(c, err)
		return
	}
	thumbPath, err := requireFile(c, h.tempDir, "thumbnail")
	if err != nil {
		discard(videoPath)
		fail(c, err)
		return
	}
	defer discard(videoPath, thumbPath)

	ctx := c.Request.Context()
	videoURL, err := uploadFile(ctx, h.uploader, videoPath, "video")
	if err != nil {
		fail(c, err)
		return
	}
	thumbURL, err := uploadFile(ctx, h.uploader, thumbPath, "thumbnail")
	if err != nil {
		fail(c, err)
		return
	}

	video, err := h.videos.Create(ctx, repository.NewVideo{
		OwnerID:     middleware.CurrentUserID(c),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		VideoFile:   videoURL,
		Thumbnail:   thumbURL,
		Duration:    req.Duration,
	})
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to publish video"))
		return
	}

	h.logger.Info("video published",
		zap.String("video_id", video.ID.String()),
		zap.String("owner_id", video.OwnerID.String()),
	)
	respond(c, http.StatusCreated, video, "Video published successfully")
}

// Get handles GET /api/v1/videos/:videoId
//
// Every successful fetch counts as a view. Signed-in viewers also get the
// video moved to the front of their watch history; a failure there is
// logged and doesn't fail the request.
//
// An unpublished video is only visible to its owner; for everyone else it
// doesn't exist.
func (h *VideoHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "videoId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	viewerID := middleware.CurrentUserID(c)

	if _, ok := visibleVideo(c, h.videos, id); !ok {
		return
	}

	video, err := h.videos.IncrementViews(ctx, id)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch video"))
		return
	}
	if video == nil {
		fail(c, apperr.NotFound("video not found"))
		return
	}

	if viewerID != uuid.Nil {
		if err := h.users.PushWatchHistory(ctx, viewerID, id, h.historyMax); err != nil {
			h.logger.Warn("failed to update watch history",
				zap.String("user_id", viewerID.String()),
				zap.String("video_id", id.String()),
				zap.Error(err),
			)
		}
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventView, VideoID: id, Count: video.Views})
	respond(c, http.StatusOK, video, "Video fetched successfully")
}

// Update handles PATCH /api/v1/videos/:videoId
//
// Every field is optional. Blank values leave the stored value unchanged,
// and a thumbnail part replaces the thumbnail.
func (h *VideoHandler) Update(c *gin.Context) {
	video, ok := h.ownedVideo(c)
	if !ok {
		return
	}

	var req updateVideoRequest
	if !bindForm(c, &req) {
		return
	}

	var upd models.VideoUpdate
	if title := strings.TrimSpace(req.Title); title != "" {
		upd.Title = &title
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		upd.Description = &desc
	}
	upd.Duration = req.Duration

	thumbPath, err := stageFile(c, h.tempDir, "thumbnail")
	if err != nil {
		fail(c, err)
		return
	}
	defer discard(thumbPath)

	ctx := c.Request.Context()
	if thumbPath != "" {
		thumbURL, err := uploadFile(ctx, h.uploader, thumbPath, "thumbnail")
		if err != nil {
			fail(c, err)
			return
		}
		upd.Thumbnail = &thumbURL
	}

	if upd.Empty() {
		respond(c, http.StatusOK, video, "Nothing to update")
		return
	}

	updated, err := h.videos.Update(ctx, video.ID, upd)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to update video"))
		return
	}
	if updated == nil {
		fail(c, apperr.NotFound("video not found"))
		return
	}

	respond(c, http.StatusOK, updated, "Video updated successfully")
}

// Delete handles DELETE /api/v1/videos/:videoId
//
// Comments and likes on the video go with it (ON DELETE CASCADE). The
// media files stay on the media host.
func (h *VideoHandler) Delete(c *gin.Context) {
	video, ok := h.ownedVideo(c)
	if !ok {
		return
	}

	if err := h.videos.Delete(c.Request.Context(), video.ID); err != nil {
		fail(c, apperr.Wrap(err, "failed to delete video"))
		return
	}

	h.logger.Info("video deleted", zap.String("video_id", video.ID.String()))
	respond(c, http.StatusOK, nil, "Video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/:videoId
func (h *VideoHandler) TogglePublish(c *gin.Context) {
	video, ok := h.ownedVideo(c)
	if !ok {
		return
	}

	updated, err := h.videos.SetPublished(c.Request.Context(), video.ID, !video.IsPublished)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to toggle publish status"))
		return
	}
	if updated == nil {
		fail(c, apperr.NotFound("video not found"))
		return
	}

	respond(c, http.StatusOK, updated, "Video publish status toggled")
}

// Live handles GET /api/v1/videos/:videoId/live
//
// Upgrades to a websocket that streams the video's engagement events
// (views, likes, comments) until the client disconnects.
func (h *VideoHandler) Live(c *gin.Context) {
	id, ok := pathID(c, "videoId")
	if !ok {
		return
	}

	if _, ok := visibleVideo(c, h.videos, id); !ok {
		return
	}

	// Upgrade writes its own error response on failure.
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	observ.LiveViewers.Inc()
	defer observ.LiveViewers.Dec()
	realtime.Serve(conn, h.hub.Subscribe(id), h.logger)
}

// ownedVideo loads :videoId and checks the caller owns it. It records
// NotFound or Forbidden and returns false otherwise.
func (h *VideoHandler) ownedVideo(c *gin.Context) (*models.Video, bool) {
	id, ok := pathID(c, "videoId")
	if !ok {
		return nil, false
	}

	video, err := h.videos.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch video"))
		return nil, false
	}
	if video == nil {
		fail(c, apperr.NotFound("video not found"))
		return nil, false
	}
	if !models.IsOwner(video.OwnerID, middleware.CurrentUserID(c)) {
		fail(c, apperr.Forbidden("you do not own this video"))
		return nil, false
	}
	return video, true
}

// visibleVideo loads a video the caller may see. A missing video and
// someone else's draft both record NotFound.
func visibleVideo(c *gin.Context, videos repository.VideoRepository, id uuid.UUID) (*models.Video, bool) {
	video, err := videos.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch video"))
		return nil, false
	}
	if video == nil || !video.VisibleTo(middleware.CurrentUserID(c)) {
		fail(c, apperr.NotFound("video not found"))
		return nil, false
	}
	return video, true
}

// inOrder arranges videos to follow ids, dropping ids with no video.
// A repeated id yields the video once per occurrence.
func inOrder(ids []uuid.UUID, videos []models.Video) []models.Video {
	byID := make(map[uuid.UUID]models.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	out := make([]models.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
