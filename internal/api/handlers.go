package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pairprog/internal/middleware"
	"pairprog/internal/models"
	"pairprog/internal/rooms"
	"pairprog/internal/session"
	"pairprog/internal/suggest"
	"pairprog/internal/utils"
)

// Options configure the websocket endpoint.
type Options struct {
	// MaxRoomSize rejects new connections to a room already holding this
	// many. Zero means unlimited.
	MaxRoomSize int
	// AllowedOrigins is matched against the Origin header of websocket
	// upgrades. "*" allows any origin.
	AllowedOrigins []string
	Client         session.ClientOptions
}

type Handlers struct {
	registry   *rooms.Registry
	hub        *session.Hub
	dispatcher *session.Dispatcher
	presence   Pinger
	upgrader   *websocket.Upgrader
	opts       Options
	log        *zap.Logger
}

func NewHandlers(registry *rooms.Registry, hub *session.Hub, dispatcher *session.Dispatcher, presence Pinger, opts Options, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handlers{
		registry:   registry,
		hub:        hub,
		dispatcher: dispatcher,
		presence:   presence,
		opts:       opts,
		log:        log,
	}
	h.upgrader = &websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, _ *http.Request) {
	id := h.registry.CreateRoom()
	h.log.Info("room created", zap.String("room_id", id))
	utils.JSON(w, http.StatusOK, models.CreateRoomResponse{RoomID: id})
}

func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	room, ok := h.registry.GetRoom(roomID)
	if !ok {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "room_not_found",
			Message: "Room not found",
		})
		return
	}
	utils.JSON(w, http.StatusOK, models.RoomResponse{
		RoomID:            roomID,
		Code:              room.Code,
		Users:             room.Users,
		ActiveConnections: h.hub.RoomConnectionCount(roomID),
	})
}

// Suggest expects middleware.ValidateRequest[models.SuggestRequest] in front.
func (h *Handlers) Suggest(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[models.SuggestRequest](r)
	if req == nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_request",
			Message: "Missing request body",
		})
		return
	}
	utils.JSON(w, http.StatusOK, models.SuggestResponse{
		Suggestions: suggest.Suggest(req.Code, req.CursorPosition, req.Language),
	})
}

/*** Collab WebSocket ***/

func (h *Handlers) CollabWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	userID := chi.URLParam(r, "userId")
	log := h.log.With(zap.String("room_id", roomID), zap.String("user_id", userID))

	if limit := h.opts.MaxRoomSize; limit > 0 && h.hub.RoomConnectionCount(roomID) >= limit {
		log.Warn("room full, rejecting connection", zap.Int("max_room_size", limit))
		utils.JSON(w, http.StatusForbidden, models.ErrorResponse{
			Code:    "room_full",
			Message: "Room is full",
		})
		return
	}

	client := session.NewClient(w, r, h.upgrader, h.opts.Client)
	if err := h.dispatcher.Serve(r.Context(), client, roomID, userID); err != nil {
		log.Debug("websocket session not established", zap.Error(err))
	}
}

func (h *Handlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.log.Warn("websocket origin rejected", zap.String("origin", origin))
	return false
}
