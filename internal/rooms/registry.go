// Package rooms holds the authoritative code buffer and presence roster of
// every collaboration room. It knows nothing about network connections.
package rooms

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pairprog/internal/models"
)

// ErrRoomNotFound is returned by mutations that reference an unknown room.
var ErrRoomNotFound = errors.New("room not found")

const idLength = 8

type room struct {
	mu    sync.Mutex
	code  string
	users []string
}

// Registry maps room ids to room state. The map is guarded by mu; each
// room's fields are guarded by that room's own lock, so edits in one room
// never contend with another.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room

	newID func() string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		newID: shortID,
	}
}

// shortID returns the first eight hex characters of a random UUID.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}

// CreateRoom initialises an empty room under a fresh identifier.
func (r *Registry) CreateRoom() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		id := r.newID()
		if _, taken := r.rooms[id]; taken {
			continue
		}
		r.rooms[id] = &room{users: []string{}}
		return id
	}
}

// EnsureRoom creates a room under a caller-supplied id if it does not exist
// yet. It reports whether a room was created. Existing state is untouched.
func (r *Registry) EnsureRoom(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; ok {
		return false
	}
	r.rooms[id] = &room{users: []string{}}
	return true
}

func (r *Registry) get(id string) (*room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[id]
	return rm, ok
}

// GetRoom returns a snapshot of the room, or false when the id is unknown.
func (r *Registry) GetRoom(id string) (models.Room, bool) {
	rm, ok := r.get(id)
	if !ok {
		return models.Room{}, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return models.Room{Code: rm.code, Users: copyUsers(rm.users)}, true
}

func (r *Registry) RoomExists(id string) bool {
	_, ok := r.get(id)
	return ok
}

// UpdateCode replaces the room's buffer wholesale. Concurrent callers are
// serialised; the last one to acquire the lock wins.
func (r *Registry) UpdateCode(id, code string) error {
	rm, ok := r.get(id)
	if !ok {
		return ErrRoomNotFound
	}
	rm.mu.Lock()
	rm.code = code
	rm.mu.Unlock()
	return nil
}

// AddUser appends userID to the roster. Adding a present user is a no-op.
func (r *Registry) AddUser(id, userID string) error {
	rm, ok := r.get(id)
	if !ok {
		return ErrRoomNotFound
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, u := range rm.users {
		if u == userID {
			return nil
		}
	}
	rm.users = append(rm.users, userID)
	return nil
}

// RemoveUser drops userID from the roster, keeping join order for the rest.
// Removing an absent user is a no-op.
func (r *Registry) RemoveUser(id, userID string) error {
	rm, ok := r.get(id)
	if !ok {
		return ErrRoomNotFound
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for i, u := range rm.users {
		if u == userID {
			rm.users = append(rm.users[:i:i], rm.users[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListUsers returns the roster in join order, or an empty slice for an
// unknown room.
func (r *Registry) ListUsers(id string) []string {
	rm, ok := r.get(id)
	if !ok {
		return []string{}
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return copyUsers(rm.users)
}

// Count is the number of rooms ever created in this process.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func copyUsers(users []string) []string {
	out := make([]string, len(users))
	copy(out, users)
	return out
}
