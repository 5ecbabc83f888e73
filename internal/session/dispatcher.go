package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pairprog/internal/events"
	"pairprog/internal/metrics"
	"pairprog/internal/models"
	"pairprog/internal/rooms"
)

const publishTimeout = 2 * time.Second

// State is a connection's lifecycle position. It only moves forward.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the per-connection state held by Serve.
type Session struct {
	RoomID string
	UserID string

	transport Transport
	state     atomic.Int32
	limiter   *rate.Limiter
}

func (s *Session) State() State { return State(s.state.Load()) }

// advance moves the state forward; it never goes back.
func (s *Session) advance(to State) {
	for {
		cur := s.state.Load()
		if State(cur) >= to {
			return
		}
		if s.state.CompareAndSwap(cur, int32(to)) {
			return
		}
	}
}

func (s *Session) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

// DispatcherOptions bound inbound traffic per connection. A non-positive
// rate disables limiting.
type DispatcherOptions struct {
	MessagesPerSecond float64
	MessageBurst      int
}

// Dispatcher runs the protocol for individual connections. It keeps no
// per-message history; every inbound frame is handled against the current
// registry and hub state.
type Dispatcher struct {
	registry  *rooms.Registry
	hub       *Hub
	publisher events.Publisher
	opts      DispatcherOptions
	log       *zap.Logger
}

func NewDispatcher(registry *rooms.Registry, hub *Hub, publisher events.Publisher, opts DispatcherOptions, log *zap.Logger) *Dispatcher {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		registry:  registry,
		hub:       hub,
		publisher: publisher,
		opts:      opts,
		log:       log,
	}
}

// Serve drives t from handshake to close. It returns a non-nil error only
// when the connection could not be established; once the session is active
// every exit path runs the termination sequence and returns nil.
func (d *Dispatcher) Serve(ctx context.Context, t Transport, roomID, userID string) error {
	s := &Session{RoomID: roomID, UserID: userID, transport: t}
	if d.opts.MessagesPerSecond > 0 {
		burst := d.opts.MessageBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(d.opts.MessagesPerSecond), burst)
	}
	log := d.log.With(zap.String("room_id", roomID), zap.String("user_id", userID))

	if d.registry.EnsureRoom(roomID) {
		log.Info("room created on first connection")
	}

	// Join delivers the sync before any broadcast can reach t. A failed
	// sync leaves nothing registered, so there is no join to announce and
	// no leave to broadcast.
	if _, err := d.hub.Join(t, roomID, userID); err != nil {
		s.advance(StateClosed)
		_ = t.Close(CloseInternalError, "Connection failed")
		log.Warn("connect failed", zap.Error(err))
		return err
	}
	s.advance(StateActive)
	defer d.terminate(s, log)

	users := d.registry.ListUsers(roomID)
	d.hub.BroadcastToRoom(roomID, models.NewUserJoined(userID, users), userID)
	d.publish(events.UserJoined, roomID, userID, users)
	log.Info("user joined", zap.Int("users", len(users)))

	stop := context.AfterFunc(ctx, func() {
		_ = t.Close(CloseGoingAway, "Server shutting down")
	})
	defer stop()

	for {
		data, err := t.Receive()
		if err != nil {
			log.Debug("receive ended", zap.Error(err))
			return nil
		}
		if s.State() != StateActive {
			return nil
		}
		if !s.allow() {
			metrics.DroppedMessages.WithLabelValues("rate_limited").Inc()
			log.Warn("message dropped: rate limit exceeded")
			continue
		}
		d.Dispatch(roomID, userID, data)
	}
}

func (d *Dispatcher) terminate(s *Session, log *zap.Logger) {
	s.advance(StateClosed)
	d.hub.Disconnect(s.transport, s.RoomID, s.UserID)
	_ = s.transport.Close(CloseNormal, "")

	users := d.registry.ListUsers(s.RoomID)
	d.hub.BroadcastToRoom(s.RoomID, models.NewUserLeft(s.UserID, users), "")
	d.publish(events.UserLeft, s.RoomID, s.UserID, users)
	log.Info("user left", zap.Int("users", len(users)))
}

// Dispatch handles one inbound frame from userID in roomID. Malformed
// frames, unknown kinds and frames missing their required field are logged
// and dropped.
func (d *Dispatcher) Dispatch(roomID, userID string, data []byte) {
	log := d.log.With(zap.String("room_id", roomID), zap.String("user_id", userID))

	in, err := models.ParseInbound(data)
	if err != nil {
		d.drop(log, "malformed", zap.Error(err))
		return
	}
	kind := zap.String("kind", string(in.Type))

	switch in.Type {
	case models.TypeCodeChange:
		if in.Code == nil {
			d.drop(log, "missing_field", kind)
			return
		}
		if err := d.registry.UpdateCode(roomID, *in.Code); err != nil {
			if errors.Is(err, rooms.ErrRoomNotFound) {
				d.drop(log, "unknown_room", kind)
				return
			}
			log.Error("update code", zap.Error(err))
			return
		}
		d.hub.BroadcastToRoom(roomID, models.NewCodeChange(*in.Code, userID), userID)

	case models.TypeCursorPosition:
		if in.Position == nil {
			d.drop(log, "missing_field", kind)
			return
		}
		d.hub.BroadcastToRoom(roomID, models.NewCursorPosition(*in.Position, userID), userID)

	case models.TypeUserTyping:
		typing := in.IsTyping != nil && *in.IsTyping
		d.hub.BroadcastToRoom(roomID, models.NewUserTyping(userID, typing), userID)

	default:
		d.drop(log, "unknown_kind", kind)
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(in.Type)).Inc()
}

func (d *Dispatcher) drop(log *zap.Logger, reason string, fields ...zap.Field) {
	metrics.DroppedMessages.WithLabelValues(reason).Inc()
	log.Warn("message dropped", append(fields, zap.String("reason", reason))...)
}

func (d *Dispatcher) publish(kind events.PresenceType, roomID, userID string, users []string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err := d.publisher.Publish(ctx, events.PresenceEvent{
		Type:   kind,
		RoomID: roomID,
		UserID: userID,
		Users:  users,
	})
	if err != nil {
		metrics.PresencePublishFailures.Inc()
		d.log.Warn("presence publish failed", zap.String("room_id", roomID), zap.String("user_id", userID), zap.Error(err))
	}
}
