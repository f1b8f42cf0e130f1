package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tictacshift/internal/game"
	"tictacshift/internal/models"

	"github.com/gorilla/handlers"
	"github.com/rs/zerolog/log"
)

const queryTimeout = 2 * time.Second

// RoomSource answers read-only questions about live rooms
type RoomSource interface {
	Rooms(ctx context.Context) ([]models.RoomSummary, error)
	Room(ctx context.Context, code string) (models.Snapshot, error)
}

// Handler handles HTTP requests
type Handler struct {
	rooms RoomSource
}

// NewHandler creates a new handler
func NewHandler(rooms RoomSource) *Handler {
	return &Handler{rooms: rooms}
}

// RegisterRoutes sets up the routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms", h.listRooms)
	mux.HandleFunc("GET /api/rooms/{code}", h.getRoom)
	mux.HandleFunc("GET /healthz", h.health)
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	rooms, err := h.rooms.Rooms(ctx)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, rooms)
}

func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	snap, err := h.rooms.Room(ctx, r.PathValue("code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		log.Error().Err(err).Msg("Room query failed")
	}
	h.respondJSON(w, status, models.ErrorPayload{Kind: game.Kind(err), Message: err.Error()})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// CORSMiddleware allows the configured browser origins to call the API
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
}
