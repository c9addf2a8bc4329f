package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/middleware"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/observ"
	"github.com/lalith-99/vidstream/internal/repository"
	"go.uber.org/zap"
)

// SubscriptionHandler handles subscribing to channels. A channel is just
// a user, so channel ids are user ids.
type SubscriptionHandler struct {
	subs   repository.SubscriptionRepository
	users  repository.UserRepository
	logger *zap.Logger
}

func NewSubscriptionHandler(
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	logger *zap.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, users: users, logger: logger}
}

// Toggle handles POST /api/v1/subscriptions/c/:channelId
func (h *SubscriptionHandler) Toggle(c *gin.Context) {
	channelID, ok := pathID(c, "channelId")
	if !ok {
		return
	}
	subscriberID := middleware.CurrentUserID(c)
	if channelID == subscriberID {
		fail(c, apperr.BadRequest("Cannot subscribe to yourself"))
		return
	}
	ctx := c.Request.Context()

	channel, err := h.users.GetByID(ctx, channelID)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch channel"))
		return
	}
	if channel == nil {
		fail(c, apperr.NotFound("channel does not exist"))
		return
	}

	subscribed, err := h.subs.Toggle(ctx, subscriberID, channelID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			fail(c, apperr.Conflict("subscription is being toggled by another request"))
		case errors.Is(err, repository.ErrNotFound):
			fail(c, apperr.NotFound("channel does not exist"))
		default:
			fail(c, apperr.Wrap(err, "failed to toggle subscription"))
		}
		return
	}

	count, err := h.subs.CountSubscribers(ctx, channelID)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to count subscribers"))
		return
	}
	observ.TogglesTotal.WithLabelValues("subscription", observ.ToggleState(subscribed)).Inc()

	state := models.SubscriptionState{Subscribed: subscribed, SubscribersCount: count}
	if subscribed {
		respond(c, http.StatusCreated, state, "Subscribed successfully")
		return
	}
	respond(c, http.StatusOK, state, "Unsubscribed successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/c/:subscriberId
//
// A subscriberId that isn't a valid id means the caller's own
// subscriptions.
func (h *SubscriptionHandler) SubscribedChannels(c *gin.Context) {
	subscriberID, err := uuid.Parse(c.Param("subscriberId"))
	if err != nil {
		subscriberID = middleware.CurrentUserID(c)
	}

	channels, err := h.subs.ListSubscribedChannels(c.Request.Context(), subscriberID)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch subscribed channels"))
		return
	}
	respond(c, http.StatusOK, channels, "Subscribed channels fetched successfully")
}

// Subscribers handles GET /api/v1/subscriptions/u/:channelId
func (h *SubscriptionHandler) Subscribers(c *gin.Context) {
	channelID, ok := pathID(c, "channelId")
	if !ok {
		return
	}

	subscribers, err := h.subs.ListSubscribers(c.Request.Context(), channelID)
	if err != nil {
		fail(c, apperr.Wrap(err, "failed to fetch subscribers"))
		return
	}
	respond(c, http.StatusOK, subscribers, "Subscribers fetched successfully")
}
