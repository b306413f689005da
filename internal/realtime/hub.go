// Package realtime pushes domain events to WebSocket clients grouped in rooms.
package realtime

import (
	"encoding/json"
	"sync"

	"officine/internal/authz"
	"officine/internal/logger"
	"officine/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultBuffer = 64

// Frame is the JSON envelope written to clients.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Member is the outbound side of one connection. Frames are queued on a
// bounded channel; the owner drains it with Frames.
type Member struct {
	id   string
	send chan []byte
}

func NewMember(buffer int) *Member {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Member{id: uuid.NewString(), send: make(chan []byte, buffer)}
}

func (m *Member) ID() string { return m.id }

// Frames is closed by Hub.Disconnect.
func (m *Member) Frames() <-chan []byte { return m.send }

func (m *Member) offer(frame []byte) bool {
	select {
	case m.send <- frame:
		return true
	default:
		return false
	}
}

type membership struct {
	member *Member
	rooms  []string
}

// Hub is the room registry. Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]*Member
	members map[string]membership
	log     zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[string]*Member),
		members: make(map[string]membership),
		log:     logger.WithComponent("hub"),
	}
}

// Join puts m in the room of role and, when userID is set, in the user room.
// Joining again replaces the previous rooms.
func (h *Hub) Join(m *Member, role authz.Role, userID string) {
	rooms := []string{string(role)}
	if userID != "" {
		rooms = append(rooms, UserRoom(userID))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.members[m.id]; ok {
		h.leave(m.id, prev.rooms)
	} else {
		metrics.HubConnections.Inc()
	}
	for _, r := range rooms {
		set, ok := h.rooms[r]
		if !ok {
			set = make(map[string]*Member)
			h.rooms[r] = set
		}
		set[m.id] = m
	}
	h.members[m.id] = membership{member: m, rooms: rooms}
}

func (h *Hub) leave(id string, rooms []string) {
	for _, r := range rooms {
		delete(h.rooms[r], id)
		if len(h.rooms[r]) == 0 {
			delete(h.rooms, r)
		}
	}
}

// Disconnect removes the member from every room and closes its frame
// channel. It reports false for an id that never joined.
func (h *Hub) Disconnect(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	ms, ok := h.members[id]
	if !ok {
		return false
	}
	h.leave(id, ms.rooms)
	delete(h.members, id)
	close(ms.member.send)
	metrics.HubConnections.Dec()
	return true
}

// Publish sends {event, data} to every member of the target rooms, at most
// once per member. A member with a full buffer misses the frame.
func (h *Hub) Publish(event string, payload any, rooms ...string) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal payload")
		return
	}
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal frame")
		return
	}
	metrics.EventsPublished.WithLabelValues(event).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, r := range rooms {
		for id, m := range h.rooms[r] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if !m.offer(frame) {
				metrics.EventsDropped.Inc()
				h.log.Debug().Str("event", event).Str("member", id).Msg("buffer full, frame dropped")
			}
		}
	}
}

// Count returns the number of joined members.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}
