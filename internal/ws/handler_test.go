package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tictacshift/internal/broadcast"
	"tictacshift/internal/chat"
	"tictacshift/internal/game"
	"tictacshift/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func newServer(t *testing.T, origins []string) string {
	t.Helper()
	hub := broadcast.NewHub()
	controller := game.NewController(game.NewRegistry(), hub, 30)
	chatService := chat.NewService(hub, 10)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		controller.Run(ctx)
	}()

	mux := http.NewServeMux()
	NewHandler(controller, chatService, chat.Handles, hub, origins).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-stopped
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	connected := expect(t, conn, models.EventConnected)
	var payload models.Connected
	require.NoError(t, json.Unmarshal(connected, &payload))
	require.NotEmpty(t, payload.ConnectionID)
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(frame{Event: event, Payload: data}))
}

// expect reads frames until one named event arrives and returns its payload.
func expect(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", event)
		if f.Event == event {
			return f.Payload
		}
	}
}

func TestGameOverWebSocket(t *testing.T) {
	url := newServer(t, nil)
	alice := dial(t, url)
	bob := dial(t, url)

	sendEvent(t, alice, models.EventCreateRoom, models.CreateRoomRequest{DisplayName: "Alice"})
	var created models.RoomCreated
	require.NoError(t, json.Unmarshal(expect(t, alice, models.EventRoomCreated), &created))
	assert.Equal(t, models.PlayerX, created.Symbol)

	sendEvent(t, bob, models.EventJoinRoom, models.JoinRoomRequest{DisplayName: "Bob", Code: created.Code})
	var joined models.RoomJoined
	require.NoError(t, json.Unmarshal(expect(t, bob, models.EventRoomJoined), &joined))
	assert.Equal(t, "Alice", joined.OpponentName)
	assert.Equal(t, models.PlayerO, joined.AssignedSymbol)

	var opp models.OpponentJoined
	require.NoError(t, json.Unmarshal(expect(t, alice, models.EventOpponentJoined), &opp))
	assert.Equal(t, "Bob", opp.Name)

	sendEvent(t, alice, models.EventMove, models.MoveRequest{Code: created.Code, CellIndex: 4})
	var move models.OpponentMove
	require.NoError(t, json.Unmarshal(expect(t, bob, models.EventOpponentMove), &move))
	assert.Equal(t, models.OpponentMove{Symbol: models.PlayerX, CellIndex: 4}, move)

	// out of turn: only the sender hears about it
	sendEvent(t, alice, models.EventMove, models.MoveRequest{Code: created.Code, CellIndex: 0})
	var rejected models.ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, alice, models.EventError), &rejected))
	assert.Equal(t, "NotYourTurn", rejected.Kind)

	// disconnect abandons the room for the remaining player
	require.NoError(t, alice.Close())
	var left models.OpponentLeft
	require.NoError(t, json.Unmarshal(expect(t, bob, models.EventOpponentLeft), &left))
	assert.Equal(t, models.OpponentLeft{Name: "Alice", Reason: models.ReasonDisconnected}, left)
}

func TestJoinErrorWebSocket(t *testing.T) {
	url := newServer(t, nil)
	conn := dial(t, url)

	sendEvent(t, conn, models.EventJoinRoom, models.JoinRoomRequest{DisplayName: "Bob", Code: "MISSING1"})

	var rejected models.ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, conn, models.EventJoinError), &rejected))
	assert.Equal(t, "RoomNotFound", rejected.Kind)
}

func TestChatRoutedWebSocket(t *testing.T) {
	url := newServer(t, nil)
	alice := dial(t, url)
	bob := dial(t, url)

	sendEvent(t, alice, chat.EventJoin, map[string]string{"room": "lobby", "name": "Alice"})
	expect(t, alice, chat.EventHistory)
	sendEvent(t, bob, chat.EventJoin, map[string]string{"room": "lobby", "name": "Bob"})
	expect(t, bob, chat.EventHistory)

	// malformed frames are skipped without closing the connection
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))

	sendEvent(t, alice, chat.EventMessage, map[string]string{"room": "lobby", "text": "glhf"})
	var got struct {
		Message chat.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(expect(t, bob, chat.EventMessage), &got))
	assert.Equal(t, "glhf", got.Message.Text)
	assert.Equal(t, "Alice", got.Message.Author)
}

func TestOriginCheck(t *testing.T) {
	url := newServer(t, []string{"http://localhost:5173"})

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	conn.Close()
}

func TestCheckOrigin(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	strict := checkOrigin([]string{"http://localhost:5173"})
	assert.True(t, strict(req("http://localhost:5173")))
	assert.True(t, strict(req("")))
	assert.False(t, strict(req("http://evil.test")))

	assert.True(t, checkOrigin(nil)(req("http://anything.test")))
	assert.True(t, checkOrigin([]string{"*"})(req("http://anything.test")))
}
