package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/vidstream/internal/media"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/realtime"
	"github.com/lalith-99/vidstream/internal/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies aggregates everything the HTTP layer needs. main builds it
// from the concrete stores; tests build it from in-memory fakes.
type Dependencies struct {
	Users         repository.UserRepository
	Videos        repository.VideoRepository
	Comments      repository.CommentRepository
	Likes         repository.LikeRepository
	Subscriptions repository.SubscriptionRepository
	Playlists     repository.PlaylistRepository
	Dashboard     repository.DashboardRepository

	Auth     middleware.Authenticator
	Sessions Sessions
	Uploader media.Uploader
	Hub      *realtime.Hub

	// RateLimiter is the per-client limiter on every /api/v1 route.
	// AttemptLimiter guards login and registration. Either may be nil.
	RateLimiter    *middleware.RateLimiter
	AttemptLimiter middleware.AttemptCounter

	Health map[string]Check

	TempDir       string
	MaxUploadMB   int64
	HistoryMax    int
	SecureCookies bool
	CORSOrigin    string

	Logger *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
//
// Middleware order matters: Recovery is outermost so a panic anywhere is
// caught; RequestLogger and Metrics wrap ErrorHandler so they see the
// final status; ErrorHandler wraps everything that can call c.Error.
func NewRouter(deps Dependencies) *gin.Engine {
	configureBinding()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.Metrics(),
		middleware.ErrorHandler(logger),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authH := NewAuthHandler(deps.Users, deps.Sessions, deps.Uploader, deps.TempDir, deps.SecureCookies, logger)
	userH := NewUserHandler(deps.Users, deps.Videos, deps.Uploader, deps.TempDir, logger)
	videoH := NewVideoHandler(deps.Videos, deps.Users, deps.Uploader, deps.Hub, VideoOptions{
		TempDir:       deps.TempDir,
		HistoryMax:    deps.HistoryMax,
		AllowedOrigin: deps.CORSOrigin,
	}, logger)
	commentH := NewCommentHandler(deps.Comments, deps.Videos, deps.Hub, logger)
	likeH := NewLikeHandler(deps.Likes, deps.Videos, deps.Comments, deps.Hub, logger)
	subH := NewSubscriptionHandler(deps.Subscriptions, deps.Users, logger)
	playlistH := NewPlaylistHandler(deps.Playlists, deps.Videos, logger)
	dashH := NewDashboardHandler(deps.Dashboard, videoH, logger)
	healthH := NewHealthHandler(deps.Health, logger)

	requireAuth := middleware.RequireAuth(deps.Auth)
	optionalAuth := middleware.OptionalAuth(deps.Auth)
	upload := limitBody(deps.MaxUploadMB << 20)

	var attempts, resetAttempts gin.HandlerFunc = passThrough, passThrough
	if deps.AttemptLimiter != nil {
		attempts = middleware.AttemptLimit(deps.AttemptLimiter, logger)
		resetAttempts = middleware.ResetAttempts(deps.AttemptLimiter, logger)
	}

	v1 := r.Group("/api/v1")
	if deps.RateLimiter != nil {
		v1.Use(middleware.RateLimit(deps.RateLimiter))
	}

	v1.GET("/healthcheck", healthH.Check)

	users := v1.Group("/users")
	{
		users.POST("/register", attempts, upload, authH.Register)
		users.POST("/login", attempts, resetAttempts, authH.Login)
		users.POST("/refresh-token", authH.Refresh)
		users.GET("/channel/:username", optionalAuth, userH.ChannelProfile)

		users.POST("/logout", requireAuth, authH.Logout)
		users.POST("/change-password", requireAuth, userH.ChangePassword)
		users.GET("/current-user", requireAuth, userH.CurrentUser)
		users.PATCH("/update-account", requireAuth, userH.UpdateAccount)
		users.PATCH("/update-avatar", requireAuth, upload, userH.UpdateAvatar)
		users.PATCH("/update-cover", requireAuth, upload, userH.UpdateCover)
		users.GET("/history", requireAuth, userH.WatchHistory)
	}

	videos := v1.Group("/videos")
	{
		videos.GET("", optionalAuth, videoH.List)
		videos.POST("", requireAuth, upload, videoH.Publish)
		videos.GET("/:videoId", optionalAuth, videoH.Get)
		videos.GET("/:videoId/live", optionalAuth, videoH.Live)
		videos.PATCH("/:videoId", requireAuth, upload, videoH.Update)
		videos.DELETE("/:videoId", requireAuth, videoH.Delete)
		videos.PATCH("/toggle/publish/:videoId", requireAuth, videoH.TogglePublish)
	}

	comments := v1.Group("/comments", requireAuth)
	{
		comments.GET("/:videoId", commentH.List)
		comments.POST("/:videoId", commentH.Create)
		comments.PATCH("/c/:commentId", commentH.Update)
		comments.DELETE("/c/:commentId", commentH.Delete)
	}

	likes := v1.Group("/likes", requireAuth)
	{
		likes.POST("/toggle/v/:videoId", likeH.ToggleVideo)
		likes.POST("/toggle/c/:commentId", likeH.ToggleComment)
		likes.GET("/info/v/:videoId", likeH.VideoInfo)
		likes.GET("/info/c/:commentId", likeH.CommentInfo)
		likes.GET("/videos", likeH.LikedVideos)
	}

	subs := v1.Group("/subscriptions", requireAuth)
	{
		subs.POST("/c/:channelId", subH.Toggle)
		subs.GET("/c/:subscriberId", subH.SubscribedChannels)
		subs.GET("/u/:channelId", subH.Subscribers)
	}

	playlists := v1.Group("/playlist", requireAuth)
	{
		playlists.POST("", playlistH.Create)
		playlists.GET("/user/:userId", playlistH.ListByUser)
		playlists.GET("/:playlistId", playlistH.Get)
		playlists.PATCH("/:playlistId", playlistH.Update)
		playlists.DELETE("/:playlistId", playlistH.Delete)
		playlists.PATCH("/add/:videoId/:playlistId", playlistH.AddVideo)
		playlists.PATCH("/remove/:videoId/:playlistId", playlistH.RemoveVideo)
	}

	dashboard := v1.Group("/dashboard", requireAuth)
	{
		dashboard.GET("/stats", dashH.Stats)
		dashboard.GET("/videos", dashH.Videos)
	}

	return r
}

func passThrough(c *gin.Context) { c.Next() }
