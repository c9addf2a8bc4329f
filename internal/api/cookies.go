package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/vidstream/internal/auth"
	"github.com/lalith-99/vidstream/internal/middleware"
)

const refreshTokenCookie = "refreshToken"

func setAuthCookies(c *gin.Context, pair *auth.TokenPair, accessTTL, refreshTTL time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, int(accessTTL.Seconds()), "/", "", secure, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, int(refreshTTL.Seconds()), "/", "", secure, true)
}

func clearAuthCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", secure, true)
}
