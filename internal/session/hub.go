package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pairprog/internal/metrics"
	"pairprog/internal/models"
	"pairprog/internal/rooms"
)

type member struct {
	t      Transport
	userID string
}

// Hub tracks which transports are reachable per room and per user.
// Lock order is always hub.mu before any registry lock.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string][]*member
	users    map[string]Transport
	registry *rooms.Registry
	log      *zap.Logger
}

func NewHub(registry *rooms.Registry, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string][]*member),
		users:    make(map[string]Transport),
		registry: registry,
		log:      log,
	}
}

// Connect accepts t and registers it for (roomID, userID). Nothing is
// registered if the room is unknown or the handshake fails. A second
// connection for the same user id replaces the per-user mapping but leaves
// the earlier transport in the room set.
func (h *Hub) Connect(t Transport, roomID, userID string) error {
	_, err := h.register(t, roomID, userID, false)
	return err
}

// Join is Connect followed by a sync of the room's current state to t.
// The snapshot and the enqueue happen under the same lock as registration,
// so no broadcast can reach t ahead of its sync. If the sync cannot be
// delivered the registration is rolled back and ErrSyncFailed is returned.
func (h *Hub) Join(t Transport, roomID, userID string) (models.Room, error) {
	return h.register(t, roomID, userID, true)
}

func (h *Hub) register(t Transport, roomID, userID string, greet bool) (models.Room, error) {
	if !h.registry.RoomExists(roomID) {
		return models.Room{}, rooms.ErrRoomNotFound
	}
	if err := t.Accept(); err != nil {
		return models.Room{}, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.registry.AddUser(roomID, userID); err != nil {
		return models.Room{}, err
	}
	prev, hadPrev := h.users[userID]
	h.rooms[roomID] = append(h.rooms[roomID], &member{t: t, userID: userID})
	h.users[userID] = t
	if !greet {
		metrics.ActiveConnections.Inc()
		return models.Room{}, nil
	}

	room, _ := h.registry.GetRoom(roomID)
	payload, err := json.Marshal(models.NewSync(room.Code, room.Users))
	if err == nil {
		err = t.Send(payload)
	}
	if err != nil {
		h.removeLocked(roomID, t)
		if hadPrev {
			h.users[userID] = prev
		} else {
			delete(h.users, userID)
		}
		if !h.userInRoomLocked(roomID, userID) {
			_ = h.registry.RemoveUser(roomID, userID)
		}
		return models.Room{}, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	metrics.ActiveConnections.Inc()
	return room, nil
}

// Disconnect unregisters t. It is safe to call more than once or for a
// transport that was already pruned by a failed broadcast.
func (h *Hub) Disconnect(t Transport, roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(roomID, t) {
		metrics.ActiveConnections.Dec()
	}
	if cur, ok := h.users[userID]; ok && cur == t {
		delete(h.users, userID)
	}
	if !h.userInRoomLocked(roomID, userID) {
		if err := h.registry.RemoveUser(roomID, userID); err != nil {
			h.log.Warn("presence removal failed", zap.String("room_id", roomID), zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// BroadcastToRoom delivers msg to every connection in the room except the
// one currently mapped to exclude. Connections that fail are pruned from
// the room and closed once the pass completes.
func (h *Hub) BroadcastToRoom(roomID string, msg models.Message, exclude string) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode broadcast", zap.String("kind", string(msg.Kind())), zap.Error(err))
		return
	}

	h.mu.RLock()
	var skip Transport
	if exclude != "" {
		skip = h.users[exclude]
	}
	members := h.rooms[roomID]
	targets := make([]Transport, 0, len(members))
	for _, m := range members {
		if skip != nil && m.t == skip {
			continue
		}
		targets = append(targets, m.t)
	}
	h.mu.RUnlock()

	var failed []Transport
	for _, t := range targets {
		if err := t.Send(payload); err != nil {
			h.log.Debug("broadcast delivery failed", zap.String("room_id", roomID), zap.Error(err))
			failed = append(failed, t)
		}
	}
	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	for _, t := range failed {
		if h.removeLocked(roomID, t) {
			metrics.ActiveConnections.Dec()
		}
		metrics.BroadcastFailures.Inc()
	}
	h.mu.Unlock()

	for _, t := range failed {
		_ = t.Close(CloseInternalError, "Delivery failed")
	}
	h.log.Info("pruned dead connections", zap.String("room_id", roomID), zap.Int("count", len(failed)))
}

// Send delivers msg to a single transport.
func (h *Hub) Send(t Transport, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return t.Send(payload)
}

func (h *Hub) SendToUser(userID string, msg models.Message) error {
	h.mu.RLock()
	t, ok := h.users[userID]
	h.mu.RUnlock()
	if !ok {
		return ErrUserNotConnected
	}
	if err := h.Send(t, msg); err != nil {
		return fmt.Errorf("send to %s: %w", userID, err)
	}
	return nil
}

func (h *Hub) RoomConnectionCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, members := range h.rooms {
		n += len(members)
	}
	return n
}

// CloseAll closes every registered transport. Each session loop then runs
// its own termination sequence.
func (h *Hub) CloseAll(code int, reason string) {
	h.mu.RLock()
	var all []Transport
	for _, members := range h.rooms {
		for _, m := range members {
			all = append(all, m.t)
		}
	}
	h.mu.RUnlock()

	for _, t := range all {
		_ = t.Close(code, reason)
	}
}

func (h *Hub) removeLocked(roomID string, t Transport) bool {
	members := h.rooms[roomID]
	for i, m := range members {
		if m.t != t {
			continue
		}
		members = append(members[:i:i], members[i+1:]...)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		} else {
			h.rooms[roomID] = members
		}
		return true
	}
	return false
}

func (h *Hub) userInRoomLocked(roomID, userID string) bool {
	for _, m := range h.rooms[roomID] {
		if m.userID == userID {
			return true
		}
	}
	return false
}
