package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/repository"
	"go.uber.org/zap"
)

// DashboardHandler serves the creator dashboard for the caller's own
// channel.
type DashboardHandler struct {
	stats  repository.DashboardRepository
	videos *VideoHandler
	logger *zap.Logger
}

func NewDashboardHandler(stats repository.DashboardRepository, videos *VideoHandler, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{stats: stats, videos: videos, logger: logger}
}

// Stats handles GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.stats.ChannelStats(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch channel stats"))
		return
	}
	respond(c, http.StatusOK, stats, "Channel stats fetched successfully")
}

// Videos handles GET /api/v1/dashboard/videos
//
// Unlike the public listing this includes unpublished videos.
func (h *DashboardHandler) Videos(c *gin.Context) {
	ownerID := middleware.CurrentUserID(c)
	filter := repository.VideoFilter{
		Page:    pageFrom(c),
		OwnerID: &ownerID,
	}

	videos, total, err := h.videos.page(c, filter)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch channel videos"))
		return
	}
	respond(c, http.StatusOK, paged("videos", videos, filter.Page, total), "Channel videos fetched successfully")
}
