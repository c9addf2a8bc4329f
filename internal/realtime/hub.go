package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventType string

const (
	EventView    EventType = "view"
	EventLike    EventType = "like"
	EventComment EventType = "comment"
)

// Event is one engagement change on a video. Count is the new total for
// the counter the event is about (views or likes); Payload carries the
// created comment for comment events.
type Event struct {
	Type    EventType `json:"type"`
	VideoID uuid.UUID `json:"videoId"`
	Count   int64     `json:"count,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

// subscriberBuffer bounds how far a viewer may fall behind before the hub
// gives up on it.
const subscriberBuffer = 16

// Subscription receives events for one video until Close is called or
// the hub drops it for being too slow.
type Subscription struct {
	C <-chan Event

	hub     *Hub
	videoID uuid.UUID
	ch      chan Event
	once    sync.Once
}

func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub fans engagement events out to the open watch pages of a video.
//
// Publish never blocks: a subscriber whose buffer is full is removed and
// its channel closed, so one stalled browser tab can't slow down the
// request that produced the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(videoID uuid.UUID) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	s := &Subscription{C: ch, hub: h, videoID: videoID, ch: ch}

	h.mu.Lock()
	set, ok := h.subs[videoID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[videoID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	return s
}

// Publish delivers ev to every subscriber of ev.VideoID. A nil hub is a
// no-op, so handlers can publish unconditionally.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}

	var slow []*Subscription
	h.mu.RLock()
	for s := range h.subs[ev.VideoID] {
		select {
		case s.ch <- ev:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.logger.Warn("dropping slow live subscriber", zap.String("video_id", ev.VideoID.String()))
		h.remove(s)
	}
}

// Subscribers reports how many viewers are watching videoID live.
func (h *Hub) Subscribers(videoID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[videoID])
}

func (h *Hub) remove(s *Subscription) {
	s.once.Do(func() {
		h.mu.Lock()
		if set, ok := h.subs[s.videoID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.videoID)
			}
		}
		h.mu.Unlock()
		close(s.ch)
	})
}
