package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

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

// Sessions is the token side of authentication. *auth.Service implements it.
type Sessions interface {
	IssueTokenPair(ctx context.Context, u *models.User) (*auth.TokenPair, error)
	Rotate(ctx context.Context, presented string) (*auth.TokenPair, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// AuthHandler handles registration and the session lifecycle: login,
// refresh and logout. Register and Login are the only public writes,
// the caller has no token yet (that's what these endpoints produce).
type AuthHandler struct {
	users         repository.UserRepository
	sessions      Sessions
	uploader      media.Uploader
	tempDir       string
	secureCookies bool
	logger        *zap.Logger
}

func NewAuthHandler(
	users repository.UserRepository,
	sessions Sessions,
	uploader media.Uploader,
	tempDir string,
	secureCookies bool,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:         users,
		sessions:      sessions,
		uploader:      uploader,
		tempDir:       tempDir,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type registerRequest struct {
	UserName string `form:"userName" binding:"required,notblank,max=50"`
	Email    string `form:"email" binding:"required,email"`
	FullName string `form:"fullName" binding:"required,notblank,max=100"`
	Password string `form:"password" binding:"required,min=8"`
}

type loginRequest struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// loginResponse carries the tokens in the body too, for clients that
// can't use cookies (mobile, curl).
type loginResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register
//
// Flow:
//  1. Validate the multipart fields
//  2. Reject a taken userName/email before touching the media host
//  3. Upload the avatar (required) and cover image (optional)
//  4. Hash the password and insert the user
//
// The unique indexes still back step 2: two registrations racing for the
// same name both pass the pre-check, and the loser gets Conflict from the
// insert.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindForm(c, &req) {
		return
	}
	userName := strings.ToLower(strings.TrimSpace(req.UserName))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ctx := c.Request.Context()

	existing, err := h.users.FindByIdentifier(ctx, userName, email)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to check existing user"))
		return
	}
	if existing != nil {
		fail(c, apperr.Conflict("user with email or username already exists"))
		return
	}

	avatarPath, err := requireFile(c, h.tempDir, "avatar")
	if err != nil {
		fail(c, err)
		return
	}
	coverPath, err := stageFile(c, h.tempDir, "coverImage")
	if err != nil {
		discard(avatarPath)
		fail(c, err)
		return
	}
	defer discard(avatarPath, coverPath)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to register user"))
		return
	}

	avatarURL, err := uploadFile(ctx, h.uploader, avatarPath, "avatar")
	if err != nil {
		fail(c, err)
		return
	}
	var coverURL string
	if coverPath != "" {
		if coverURL, err = uploadFile(ctx, h.uploader, coverPath, "cover image"); err != nil {
			fail(c, err)
			return
		}
	}

	user, err := h.users.Create(ctx, repository.NewUser{
		UserName:     userName,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			fail(c, apperr.Conflict("user with email or username already exists"))
			return
		}
		fail(c, apperr.Wrap(err, "failed to register user"))
		return
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	respond(c, http.StatusCreated, user, "User registered successfully")
}

// Login handles POST /api/v1/users/login
//
// The identifier is a username or an email. Unlike a generic "invalid
// credentials" answer, an unknown user is reported as NotFound; the
// frontend shows a "sign up instead?" prompt on it.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	userName := strings.ToLower(strings.TrimSpace(req.UserName))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if userName == "" && email == "" {
		fail(c, apperr.BadRequest("username or email is required"))
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.FindByIdentifier(ctx, userName, email)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to find user"))
		return
	}
	if user == nil {
		fail(c, apperr.NotFound("user does not exist"))
		return
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to verify password"))
		return
	}
	if !ok {
		fail(c, apperr.Unauthorized("invalid user credentials"))
		return
	}

	pair, err := h.sessions.IssueTokenPair(ctx, user)
	if err != nil {
		fail(c, err)
		return
	}

	setAuthCookies(c, pair, h.sessions.AccessTTL(), h.sessions.RefreshTTL(), h.secureCookies)
	respond(c, http.StatusOK, loginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User logged in successfully")
}

// Refresh handles POST /api/v1/users/refresh-token
//
// The refresh token comes from the refreshToken cookie, or from the JSON
// body when there is no cookie. An empty body is fine when the cookie is
// present.
func (h *AuthHandler) Refresh(c *gin.Context) {
	presented, _ := c.Cookie(refreshTokenCookie)
	if presented == "" && c.Request.ContentLength != 0 {
		var req refreshRequest
		// A chunked request can carry an empty body; that is no token, not
		// a malformed one.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			fail(c, bindError(err))
			return
		}
		presented = strings.TrimSpace(req.RefreshToken)
	}

	pair, err := h.sessions.Rotate(c.Request.Context(), presented)
	if err != nil {
		fail(c, err)
		return
	}

	setAuthCookies(c, pair, h.sessions.AccessTTL(), h.sessions.RefreshTTL(), h.secureCookies)
	respond(c, http.StatusOK, pair, "Access token refreshed")
}

// Logout handles POST /api/v1/users/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Revoke(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		fail(c, err)
		return
	}

	clearAuthCookies(c, h.secureCookies)
	respond(c, http.StatusOK, nil, "User logged out")
}
