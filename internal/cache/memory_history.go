package cache

import (
	"context"
	"sync"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
)

// MemoryHistory is the history store used when redis is disabled.
type MemoryHistory struct {
	mu       sync.Mutex
	sessions map[string][]model.TutorMessage
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{sessions: make(map[string][]model.TutorMessage)}
}

func (h *MemoryHistory) Append(ctx context.Context, sessionID string, messages ...model.TutorMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.sessions[sessionID], messages...)
	if over := len(list) - MaxHistoryPerSession; over > 0 {
		list = append([]model.TutorMessage(nil), list[over:]...)
	}
	h.sessions[sessionID] = list
	return nil
}

func (h *MemoryHistory) Recent(ctx context.Context, sessionID string, limit int) ([]model.TutorMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.sessions[sessionID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]model.TutorMessage, len(list))
	copy(out, list)
	return out, nil
}

func (h *MemoryHistory) Clear(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
	return nil
}
