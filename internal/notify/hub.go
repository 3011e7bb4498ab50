// Package notify pushes content-update events to subscribed consumers over
// WebSocket. Delivery is best-effort: a slow or broken subscriber is
// dropped, never blocks a provider run.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/tinoosan/contentd/internal/downloader"
)

// Update is the wire form of a run notification.
type Update struct {
	Source      string `json:"source"`
	OperationID string `json:"operationId"`
	Outcome     string `json:"outcome"`
	Paths       []string `json:"paths,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Hub tracks subscriber connections and fans events out to them.
type Hub struct {
	log *slog.Logger

	mu    sync.Mutex
	subs  map[*subscriber]struct{}
	close bool
}

type subscriber struct {
	conn *websocket.Conn
	out  chan Update
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{log: log, subs: make(map[*subscriber]struct{})}
}

// Subscribe upgrades the request to a WebSocket and streams updates until
// the client goes away or the hub shuts down.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error("websocket accept", "err", err)
		return
	}

	sub := &subscriber{conn: conn, out: make(chan Update, 16)}

	h.mu.Lock()
	if h.close {
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-sub.out:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, u)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Broadcast fans an event out to every subscriber. Subscribers with a full
// buffer miss the event.
func (h *Hub) Broadcast(e downloader.Event) {
	u := Update{
		Source:      e.Source,
		OperationID: e.OperationID,
		Outcome:     string(e.Type),
		Paths:       e.Paths,
		Error:       e.Err,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.out <- u:
		default:
			h.log.Warn("subscriber buffer full, dropping update", "source", e.Source)
		}
	}
}

// Close disconnects all subscribers and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.close = true
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, s := range subs {
		_ = s.conn.Close(websocket.StatusGoingAway, "shutting down")
	}
}
