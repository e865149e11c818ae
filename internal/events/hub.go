package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type Viewer struct {
	ID   string
	Send chan []byte
}

// Hub tracks the viewers connected to this process.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]*Viewer
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		viewers: make(map[string]*Viewer),
		log:     log.With(slog.String("component", "events.hub")),
	}
}

func (h *Hub) Register(v *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewers[v.ID] = v
}

func (h *Hub) Unregister(v *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[v.ID]; !ok {
		return
	}
	delete(h.viewers, v.ID)
	close(v.Send)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

func (h *Hub) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	h.Broadcast(payload, e.Origin)
	return nil
}

// Broadcast sends payload to every viewer except exclude. A viewer whose
// buffer is full misses the message.
func (h *Hub) Broadcast(payload []byte, exclude string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, v := range h.viewers {
		if exclude != "" && id == exclude {
			continue
		}
		select {
		case v.Send <- payload:
		default:
			h.log.Warn("dropping event for slow viewer", slog.String("viewer_id", id))
		}
	}
}
