package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/metrics"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

const (
	subscriberBuffer = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

type subscriber struct {
	userID string // empty receives every user's events
	ch     chan domain.Event
}

// EventHub fans engine events out to websocket subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the event.
type EventHub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	closed   bool
	upgrader websocket.Upgrader
}

var _ domain.EventPublisher = (*EventHub)(nil)

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish implements domain.EventPublisher.
func (h *EventHub) Publish(e domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.userID != "" && sub.userID != e.UserID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			logger.Debug("[events] subscriber for %q is slow, dropped %s", sub.userID, e.Type)
		}
	}
}

// Subscribe registers a listener for userID's events (every user when
// empty). The returned cancel func unregisters it and closes the channel.
func (h *EventHub) Subscribe(userID string) (<-chan domain.Event, func()) {
	sub := &subscriber{userID: userID, ch: make(chan domain.Event, subscriberBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.EventSubscribers.Set(float64(n))

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { h.remove(sub) })
	}
}

func (h *EventHub) remove(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.EventSubscribers.Set(float64(n))
}

// Len returns the number of subscribers.
func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber. Later subscriptions are closed at once.
func (h *EventHub) Close() {
	h.mu.Lock()
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
	metrics.EventSubscribers.Set(0)
}

// HandleEvents upgrades to a websocket and streams the user's events as
// JSON text frames until either side closes.
func (h *EventHub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[events] upgrade for %s: %v", userID, err)
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(userID)
	defer cancel()
	logger.Debug("[events] %s subscribed", userID)

	// The read loop only services control frames and notices disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case e, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				logger.Debug("[events] write to %s: %v", userID, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
