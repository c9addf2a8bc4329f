package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/auth"
	"github.com/lalith-99/vidstream/internal/media"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/repository"
	"go.uber.org/zap"
)

// UserHandler handles the caller's own account and public channel pages.
type UserHandler struct {
	users    repository.UserRepository
	videos   repository.VideoRepository
	uploader media.Uploader
	tempDir  string
	logger   *zap.Logger
}

func NewUserHandler(
	users repository.UserRepository,
	videos repository.VideoRepository,
	uploader media.Uploader,
	tempDir string,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{
		users:    users,
		videos:   videos,
		uploader: uploader,
		tempDir:  tempDir,
		logger:   logger,
	}
}

type changePasswordRequest struct {
	Password    string `json:"password" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" binding:"required,notblank,max=100"`
	Email    string `json:"email" binding:"required,email"`
}

// ChangePassword handles POST /api/v1/users/change-password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	user := middleware.CurrentUser(c)

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to verify password"))
		return
	}
	if !ok {
		fail(c, apperr.BadRequest("Invalid Old password"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to change password"))
		return
	}
	if err := h.users.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
		fail(c, apperr.Wrap(err, "failed to change password"))
		return
	}

	respond(c, http.StatusOK, nil, "Password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user
func (h *UserHandler) CurrentUser(c *gin.Context) {
	respond(c, http.StatusOK, middleware.CurrentUser(c), "User fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateAccount(c.Request.Context(),
		middleware.CurrentUserID(c),
		strings.TrimSpace(req.FullName),
		strings.ToLower(strings.TrimSpace(req.Email)),
	)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			fail(c, apperr.Conflict("email is already in use"))
			return
		}
		fail(c, apperr.Wrap(err, "failed to update account"))
		return
	}
	if user == nil {
		fail(c, apperr.NotFound("user not found"))
		return
	}

	respond(c, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/update-avatar
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	h.replaceImage(c, "avatar", "avatar", h.users.UpdateAvatar, "Avatar updated successfully")
}

// UpdateCover handles PATCH /api/v1/users/update-cover
func (h *UserHandler) UpdateCover(c *gin.Context) {
	h.replaceImage(c, "coverImage", "cover image", h.users.UpdateCoverImage, "Cover image updated successfully")
}

// replaceImage stages the multipart file in field, uploads it and stores
// the resulting URL through set.
func (h *UserHandler) replaceImage(
	c *gin.Context,
	field, what string,
	set func(ctx context.Context, id uuid.UUID, url string) (*models.User, error),
	message string,
) {
	path, err := requireFile(c, h.tempDir, field)
	if err != nil {
		fail(c, err)
		return
	}
	defer discard(path)

	ctx := c.Request.Context()
	url, err := uploadFile(ctx, h.uploader, path, what)
	if err != nil {
		fail(c, err)
		return
	}

	user, err := set(ctx, middleware.CurrentUserID(c), url)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to update "+what))
		return
	}
	if user == nil {
		fail(c, apperr.NotFound("user not found"))
		return
	}

	respond(c, http.StatusOK, user, message)
}

// ChannelProfile handles GET /api/v1/users/channel/:username
//
// Auth is optional: anonymous viewers get isSubscribed=false.
func (h *UserHandler) ChannelProfile(c *gin.Context) {
	userName := strings.ToLower(strings.TrimSpace(c.Param("username")))
	if userName == "" {
		fail(c, apperr.BadRequest("username is missing"))
		return
	}

	profile, err := h.users.ChannelProfile(c.Request.Context(), userName, middleware.CurrentUserID(c))
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch channel"))
		return
	}
	if profile == nil {
		fail(c, apperr.NotFound("channel does not exist"))
		return
	}

	respond(c, http.StatusOK, profile, "User channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history
//
// Returns the caller's watched videos, most recent first. Ids whose video
// has since been deleted or unpublished by its owner are skipped.
func (h *UserHandler) WatchHistory(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ids := models.RecentFirst(user.WatchHistory)

	videos, err := h.videos.ListByIDs(c.Request.Context(), ids, user.ID)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch watch history"))
		return
	}

	respond(c, http.StatusOK, inOrder(ids, videos), "Watch history fetched successfully")
}
