package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"tictacshift/internal/broadcast"
	"tictacshift/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Dispatcher consumes demultiplexed events for one feature.
type Dispatcher interface {
	Dispatch(connID, event string, payload json.RawMessage)
	Disconnect(connID string)
}

// Handler accepts websocket connections, assigns each a connection id and
// routes its events to the game or to chat.
type Handler struct {
	game     Dispatcher
	chat     Dispatcher
	isChat   func(event string) bool
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. Events for which isChat returns
// true go to chat, everything else to game. origins lists the browser origins
// allowed to connect; an empty list allows any.
func NewHandler(game, chat Dispatcher, isChat func(string) bool, hub *broadcast.Hub, origins []string) *Handler {
	return &Handler{
		game:   game,
		chat:   chat,
		isChat: isChat,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

func checkOrigin(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || allowed["*"] {
			return true
		}
		return allowed[origin]
	}
}

// RegisterRoutes sets up the WebSocket routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	connID := uuid.NewString()
	client := h.hub.Register(connID, conn)
	go client.WritePump()
	log.Info().Str("conn", connID).Str("remote", r.RemoteAddr).Msg("Connection opened")

	h.hub.Emit(connID, models.EventConnected, models.Connected{ConnectionID: connID})
	h.readLoop(conn, connID)

	h.game.Disconnect(connID)
	h.chat.Disconnect(connID)
	h.hub.Unregister(connID)
	log.Info().Str("conn", connID).Msg("Connection closed")
}

func (h *Handler) readLoop(conn *websocket.Conn, connID string) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", connID).Msg("WebSocket closed unexpectedly")
			}
			return
		}

		var msg models.Inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			log.Warn().Err(err).Str("conn", connID).Msg("Ignoring malformed message")
			continue
		}

		if h.isChat(msg.Event) {
			h.chat.Dispatch(connID, msg.Event, msg.Payload)
		} else {
			h.game.Dispatch(connID, msg.Event, msg.Payload)
		}
	}
}
