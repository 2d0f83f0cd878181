package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/events"
	"github.com/spec-kit/campus-service/internal/observability"
)

// Sink receives encoded frames. Enqueue must not block; it reports false when the frame was dropped.
type Sink interface {
	Enqueue(frame []byte) bool
}

// Hub tracks which sinks are subscribed to which rooms.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[Sink]struct{}
	members map[Sink]map[string]struct{}

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:   make(map[string]map[Sink]struct{}),
		members: make(map[Sink]map[string]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Register tracks a connected sink that has not joined any room yet.
func (h *Hub) Register(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[s]; !ok {
		h.members[s] = make(map[string]struct{})
	}
}

// Subscribe adds s to room. Subscribing twice is harmless.
func (h *Hub) Subscribe(s Sink, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[Sink]struct{})
	}
	h.rooms[room][s] = struct{}{}

	if _, ok := h.members[s]; !ok {
		h.members[s] = make(map[string]struct{})
	}
	h.members[s][room] = struct{}{}
}

// Unsubscribe removes s from room.
func (h *Hub) Unsubscribe(s Sink, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(s, room)
}

// Remove drops s from every room and forgets it.
func (h *Hub) Remove(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.members[s] {
		h.leave(s, room)
	}
	delete(h.members, s)
}

func (h *Hub) leave(s Sink, room string) {
	if subs, ok := h.rooms[room]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.members[s]; ok {
		delete(rooms, room)
	}
}

// Broadcast enqueues event to every sink currently subscribed to event.Room and
// returns how many accepted it. Sinks whose buffers are full miss the event.
func (h *Hub) Broadcast(event events.Event) int {
	h.mu.RLock()
	subs := make([]Sink, 0, len(h.rooms[event.Room]))
	for s := range h.rooms[event.Room] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return 0
	}

	data, err := json.Marshal(eventFrame(event))
	if err != nil {
		h.logger.Error("encode event frame", zap.String("event", string(event.Type)), zap.Error(err))
		return 0
	}

	delivered := 0
	for _, s := range subs {
		if s.Enqueue(data) {
			delivered++
		}
	}
	dropped := len(subs) - delivered
	h.metrics.RecordFanout(string(event.Type), delivered, dropped)
	if dropped > 0 {
		h.logger.Warn("dropped realtime frames",
			zap.String("event", string(event.Type)),
			zap.String("room", event.Room),
			zap.Int("dropped", dropped))
	}
	return delivered
}

// HandleEvent adapts Broadcast to events.EventHandler.
func (h *Hub) HandleEvent(_ context.Context, event events.Event) error {
	h.Broadcast(event)
	return nil
}

// CloseAll closes every registered sink that can be closed and returns how many were.
// Closed clients end their pumps and detach themselves through Remove.
func (h *Hub) CloseAll() int {
	h.mu.RLock()
	closers := make([]interface{ Close() }, 0, len(h.members))
	for s := range h.members {
		if c, ok := s.(interface{ Close() }); ok {
			closers = append(closers, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range closers {
		c.Close()
	}
	return len(closers)
}

// RoomSize returns the number of sinks subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount returns the number of registered sinks.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}
