package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/models"
)

// Context keys for the resolved caller. Handlers read them through
// CurrentUser / CurrentUserID rather than c.Get directly.
const (
	ContextKeyUser   = "user"
	ContextKeyUserID = "user_id"
)

// AccessTokenCookie is the cookie the browser client carries the access
// token in when it doesn't send an Authorization header.
const AccessTokenCookie = "accessToken"

// Authenticator resolves an access token to a user. *auth.Service is the
// production implementation.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// tokenFrom pulls the access token from "Authorization: Bearer <token>",
// falling back to the accessToken cookie.
func tokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireAuth rejects the request with Unauthorized unless it carries a
// valid access token for an existing user. On success the user is stored
// on the context and the chain continues.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			_ = c.Error(apperr.Unauthorized("unauthorized request"))
			c.Abort()
			return
		}

		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth identifies the caller when it can and otherwise lets the
// request through anonymously. A bad or expired token counts as anonymous;
// only an internal failure (store down) stops the request.
func OptionalAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.Next()
			return
		}

		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			if apperr.Is(err, apperr.KindInternal) {
				_ = c.Error(err)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
}

// CurrentUser returns the authenticated caller, or nil for anonymous
// requests.
func CurrentUser(c *gin.Context) *models.User {
	val, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// CurrentUserID returns the caller's id, or uuid.Nil when anonymous.
func CurrentUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
