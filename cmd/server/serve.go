package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/lalith-99/vidstream/internal/api"
	"github.com/lalith-99/vidstream/internal/auth"
	"github.com/lalith-99/vidstream/internal/cache"
	"github.com/lalith-99/vidstream/internal/config"
	"github.com/lalith-99/vidstream/internal/db"
	"github.com/lalith-99/vidstream/internal/media"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/observ"
	"github.com/lalith-99/vidstream/internal/realtime"
	"github.com/lalith-99/vidstream/internal/repository/postgres"
	"go.uber.org/zap"
)

// setup loads config and builds the logger shared by both commands.
func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func migrateOnly(ctx context.Context, configPath string) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, err := db.New(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	return database.Migrate(ctx)
}

func serve(parent context.Context, configPath string, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ---------------------------------------------------------------
	// 2. Postgres, and migrations if asked for
	// ---------------------------------------------------------------
	database, err := db.New(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if migrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
	}

	// ---------------------------------------------------------------
	// 3. Redis (login attempt counters)
	// ---------------------------------------------------------------
	rdb, err := cache.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// ---------------------------------------------------------------
	// 4. Media host. Multipart parts are staged in tempDir first.
	// ---------------------------------------------------------------
	if err := os.MkdirAll(cfg.Media.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	uploader, err := media.New(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("create media uploader: %w", err)
	}

	// ---------------------------------------------------------------
	// 5. Stores and services
	//
	// Every store shares the one pool; pgxpool is goroutine-safe.
	// ---------------------------------------------------------------
	pool := database.Pool()
	users := postgres.NewUserStore(pool)

	sessions := auth.NewService(users, auth.Options{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(ctx, time.Minute, 10*time.Minute)

	router := api.NewRouter(api.Dependencies{
		Users:         users,
		Videos:        postgres.NewVideoStore(pool),
		Comments:      postgres.NewCommentStore(pool),
		Likes:         postgres.NewLikeStore(pool),
		Subscriptions: postgres.NewSubscriptionStore(pool),
		Playlists:     postgres.NewPlaylistStore(pool),
		Dashboard:     postgres.NewDashboardStore(pool),

		Auth:     sessions,
		Sessions: sessions,
		Uploader: uploader,
		Hub:      realtime.NewHub(logger),

		RateLimiter:    limiter,
		AttemptLimiter: cache.NewAttemptLimiter(rdb, "login", cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow),

		Health: map[string]api.Check{
			"postgres": database.Health,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},

		TempDir:       cfg.Media.TempDir,
		MaxUploadMB:   cfg.Media.MaxUploadMB,
		HistoryMax:    cfg.History.MaxEntries,
		SecureCookies: cfg.Server.SecureCookies,
		CORSOrigin:    cfg.Server.CORSOrigin,
		Logger:        logger,
	})

	// ---------------------------------------------------------------
	// 6. HTTP server
	//
	// The browser client sends cookies cross-origin, so CORS has to name
	// the origin explicitly and allow credentials; a wildcard origin is
	// rejected by browsers when credentials are involved.
	// ---------------------------------------------------------------
	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{cfg.Server.CORSOrigin}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.AllowCredentials(),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      cors(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting vidstream",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("media_provider", cfg.Media.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
