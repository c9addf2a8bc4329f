package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/repository"
	"go.uber.org/zap"
)

// PlaylistHandler handles playlists. Anyone signed in can read them; only
// the owner can change them.
type PlaylistHandler struct {
	playlists repository.PlaylistRepository
	videos    repository.VideoRepository
	logger    *zap.Logger
}

func NewPlaylistHandler(
	playlists repository.PlaylistRepository,
	videos repository.VideoRepository,
	logger *zap.Logger,
) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, videos: videos, logger: logger}
}

type createPlaylistRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=100"`
	Description string `json:"description" binding:"required,notblank,max=1000"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name" binding:"omitempty,notblank,max=100"`
	Description *string `json:"description" binding:"omitempty,notblank,max=1000"`
}

// Create handles POST /api/v1/playlist
func (h *PlaylistHandler) Create(c *gin.Context) {
	var req createPlaylistRequest
	if !bindJSON(c, &req) {
		return
	}

	playlist, err := h.playlists.Create(c.Request.Context(),
		middleware.CurrentUserID(c),
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Description),
	)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to create playlist"))
		return
	}
	if !h.expand(c, playlist) {
		return
	}
	respond(c, http.StatusCreated, playlist, "Playlist created successfully")
}

// ListByUser handles GET /api/v1/playlist/user/:userId
//
// The videos of every playlist are loaded in a single query.
func (h *PlaylistHandler) ListByUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	playlists, err := h.playlists.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch playlists"))
		return
	}
	refs := make([]*models.Playlist, len(playlists))
	for i := range playlists {
		refs[i] = &playlists[i]
	}
	if !h.expand(c, refs...) {
		return
	}
	respond(c, http.StatusOK, playlists, "Playlists fetched successfully")
}

// Get handles GET /api/v1/playlist/:playlistId
//
// Videos are expanded in playlist order. Ids whose video was deleted, or
// is someone else's draft, are skipped.
func (h *PlaylistHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "playlistId")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	playlist, err := h.playlists.GetByID(ctx, id)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch playlist"))
		return
	}
	if playlist == nil {
		fail(c, apperr.NotFound("playlist not found"))
		return
	}

	if !h.expand(c, playlist) {
		return
	}
	respond(c, http.StatusOK, playlist, "Playlist fetched successfully")
}

// Update handles PATCH /api/v1/playlist/:playlistId
func (h *PlaylistHandler) Update(c *gin.Context) {
	playlist, ok := h.ownedPlaylist(c)
	if !ok {
		return
	}
	var req updatePlaylistRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name == nil && req.Description == nil {
		fail(c, apperr.BadRequest("name or description is required"))
		return
	}

	updated, err := h.playlists.Update(c.Request.Context(), playlist.ID, trimmed(req.Name), trimmed(req.Description))
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to update playlist"))
		return
	}
	if updated == nil {
		fail(c, apperr.NotFound("playlist not found"))
		return
	}
	if !h.expand(c, updated) {
		return
	}
	respond(c, http.StatusOK, updated, "Playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlist/:playlistId
func (h *PlaylistHandler) Delete(c *gin.Context) {
	playlist, ok := h.ownedPlaylist(c)
	if !ok {
		return
	}

	if err := h.playlists.Delete(c.Request.Context(), playlist.ID); err != nil {
		fail(c, apperr.Wrap(err, "failed to delete playlist"))
		return
	}
	respond(c, http.StatusOK, nil, "Playlist deleted successfully")
}

// AddVideo handles PATCH /api/v1/playlist/add/:videoId/:playlistId
//
// Adding a video that is already in the playlist changes nothing.
func (h *PlaylistHandler) AddVideo(c *gin.Context) {
	playlist, ok := h.ownedPlaylist(c)
	if !ok {
		return
	}
	videoID, ok := pathID(c, "videoId")
	if !ok {
		return
	}
	if _, ok := visibleVideo(c, h.videos, videoID); !ok {
		return
	}

	if slices.Contains(playlist.VideoIDs, videoID) {
		if h.expand(c, playlist) {
			respond(c, http.StatusOK, playlist, "Video already in playlist")
		}
		return
	}

	updated, err := h.playlists.AddVideo(c.Request.Context(), playlist.ID, videoID)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to add video to playlist"))
		return
	}
	if updated == nil {
		fail(c, apperr.NotFound("playlist not found"))
		return
	}
	if !h.expand(c, updated) {
		return
	}
	respond(c, http.StatusOK, updated, "Video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlist/remove/:videoId/:playlistId
func (h *PlaylistHandler) RemoveVideo(c *gin.Context) {
	playlist, ok := h.ownedPlaylist(c)
	if !ok {
		return
	}
	videoID, ok := pathID(c, "videoId")
	if !ok {
		return
	}

	updated, err := h.playlists.RemoveVideo(c.Request.Context(), playlist.ID, videoID)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to remove video from playlist"))
		return
	}
	if updated == nil {
		fail(c, apperr.NotFound("playlist not found"))
		return
	}
	if !h.expand(c, updated) {
		return
	}
	respond(c, http.StatusOK, updated, "Video removed from playlist")
}

func (h *PlaylistHandler) ownedPlaylist(c *gin.Context) (*models.Playlist, bool) {
	id, ok := pathID(c, "playlistId")
	if !ok {
		return nil, false
	}

	playlist, err := h.playlists.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch playlist"))
		return nil, false
	}
	if playlist == nil {
		fail(c, apperr.NotFound("playlist not found"))
		return nil, false
	}
	if !models.IsOwner(playlist.OwnerID, middleware.CurrentUserID(c)) {
		fail(c, apperr.Forbidden("you do not own this playlist"))
		return nil, false
	}
	return playlist, true
}

// expand fills Videos on each playlist, in playlist order, from one lookup
// over all their ids. Videos is never left nil.
func (h *PlaylistHandler) expand(c *gin.Context, playlists ...*models.Playlist) bool {
	var ids []uuid.UUID
	for _, p := range playlists {
		ids = append(ids, p.VideoIDs...)
	}

	var videos []models.Video
	if len(ids) > 0 {
		var err error
		videos, err = h.videos.ListByIDs(c.Request.Context(), ids, middleware.CurrentUserID(c))
		if err != nil {
			fail(c, apperr.Wrap(err, "failed to fetch playlist videos"))
			return false
		}
	}
	for _, p := range playlists {
		p.Videos = inOrder(p.VideoIDs, videos)
	}
	return true
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
