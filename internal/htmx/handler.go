package htmx

import (
	"context"
	"net/http"
	"time"

	"tictacshift/internal/models"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"
)

const queryTimeout = 2 * time.Second

// RoomLister lists live rooms.
type RoomLister interface {
	Rooms(ctx context.Context) ([]models.RoomSummary, error)
}

// Handler serves the server-rendered lobby.
type Handler struct {
	rooms RoomLister
}

// NewHandler creates a new HTMX handler.
func NewHandler(rooms RoomLister) *Handler {
	return &Handler{rooms: rooms}
}

// RegisterRoutes sets up the HTMX routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleLobby)
	mux.HandleFunc("GET /htmx/rooms", h.handleRooms)
}

func (h *Handler) handleLobby(w http.ResponseWriter, r *http.Request) {
	rooms, ok := h.list(w, r)
	if !ok {
		return
	}
	render(w, r, LobbyPage(rooms))
}

func (h *Handler) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, ok := h.list(w, r)
	if !ok {
		return
	}
	render(w, r, RoomTable(rooms))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) ([]models.RoomSummary, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	rooms, err := h.rooms.Rooms(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Lobby query failed")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		render(w, r, ErrorStatus("lobby unavailable"))
		return nil, false
	}
	return rooms, true
}

func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		log.Warn().Err(err).Msg("Render failed")
	}
}
