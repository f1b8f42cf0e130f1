package game

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Registry maps room codes to rooms. It is not safe for concurrent use; the
// Controller confines it to its event loop.
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Create stores a new waiting room under a fresh code
func (r *Registry) Create() *Room {
	code := newCode()
	for r.rooms[code] != nil {
		code = newCode()
	}
	room := newRoom(code)
	r.rooms[code] = room
	return room
}

func newCode() string {
	return strings.ToUpper(uuid.New().String()[:8])
}

// Get retrieves a room by code
func (r *Registry) Get(code string) (*Room, error) {
	room, exists := r.rooms[strings.ToUpper(strings.TrimSpace(code))]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Remove cancels the room's timer and deletes it
func (r *Registry) Remove(code string) {
	if room, exists := r.rooms[code]; exists {
		room.stopTimer()
		delete(r.rooms, code)
	}
}

// ForEach visits rooms in code order. fn must not add or remove rooms.
func (r *Registry) ForEach(fn func(*Room)) {
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fn(r.rooms[code])
	}
}

// Len returns the number of live rooms
func (r *Registry) Len() int {
	return len(r.rooms)
}

// Clear cancels every timer and drops every room
func (r *Registry) Clear() {
	for code, room := range r.rooms {
		room.stopTimer()
		delete(r.rooms, code)
	}
}
