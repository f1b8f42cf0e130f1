package game

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"tictacshift/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTurnSeconds is used when no turn duration is configured
	DefaultTurnSeconds = 30

	defaultName    = "Player"
	maxNameLength  = 32
	inboxSize      = 256
	tickResolution = time.Second
)

// Controller serializes every inbound event, timer tick, disconnect and query
// onto a single goroutine, so rooms are mutated without locks.
type Controller struct {
	registry     *Registry
	transport    Transport
	turnSeconds  int
	tickInterval time.Duration
	gen          uint64

	inbox    chan func()
	done     chan struct{}
	doneOnce sync.Once
}

// NewController creates a controller over registry that emits through transport.
func NewController(registry *Registry, transport Transport, turnSeconds int) *Controller {
	if turnSeconds <= 0 {
		turnSeconds = DefaultTurnSeconds
	}
	return &Controller{
		registry:     registry,
		transport:    transport,
		turnSeconds:  turnSeconds,
		tickInterval: tickResolution,
		inbox:        make(chan func(), inboxSize),
		done:         make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled. On exit every room is dropped
// and every timer cancelled.
func (c *Controller) Run(ctx context.Context) {
	log.Info().Int("turnSeconds", c.turnSeconds).Msg("Session controller started")
	defer func() {
		c.doneOnce.Do(func() { close(c.done) })
		c.registry.Clear()
		log.Info().Msg("Session controller stopped")
	}()

	for {
		select {
		case fn := <-c.inbox:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) submit(fn func()) bool {
	select {
	case c.inbox <- fn:
		return true
	case <-c.done:
		return false
	}
}

// Dispatch queues an inbound event from connID.
func (c *Controller) Dispatch(connID, event string, payload json.RawMessage) {
	c.submit(func() { c.HandleEvent(connID, event, payload) })
}

// Disconnect queues the departure of connID from every room it is seated in.
func (c *Controller) Disconnect(connID string) {
	c.submit(func() { c.handleDisconnect(connID) })
}

// Rooms lists every live room.
func (c *Controller) Rooms(ctx context.Context) ([]models.RoomSummary, error) {
	rooms := []models.RoomSummary{}
	err := c.query(ctx, func() error {
		c.registry.ForEach(func(r *Room) {
			rooms = append(rooms, r.Summary())
		})
		return nil
	})
	return rooms, err
}

// Room returns the snapshot of a single room.
func (c *Controller) Room(ctx context.Context, code string) (models.Snapshot, error) {
	var snap models.Snapshot
	err := c.query(ctx, func() error {
		room, err := c.registry.Get(code)
		if err != nil {
			return err
		}
		snap = room.Snapshot()
		return nil
	})
	return snap, err
}

func (c *Controller) query(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case c.inbox <- func() { result <- fn() }:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleEvent applies one inbound event. It must only run on the event loop.
func (c *Controller) HandleEvent(connID, event string, payload json.RawMessage) {
	var err error
	switch event {
	case models.EventCreateRoom:
		var req models.CreateRoomRequest
		if decode(connID, event, payload, &req) {
			c.createRoom(connID, req)
		}
	case models.EventJoinRoom:
		var req models.JoinRoomRequest
		if decode(connID, event, payload, &req) {
			err = c.joinRoom(connID, req)
		}
	case models.EventStartGame:
		var req models.RoomRequest
		if decode(connID, event, payload, &req) {
			err = c.startGame(connID, req)
		}
	case models.EventMove:
		var req models.MoveRequest
		if decode(connID, event, payload, &req) {
			err = c.place(connID, req)
		}
	case models.EventShift:
		var req models.ShiftRequest
		if decode(connID, event, payload, &req) {
			err = c.shift(connID, req)
		}
	case models.EventRematch:
		var req models.RoomRequest
		if decode(connID, event, payload, &req) {
			err = c.rematch(connID, req)
		}
	case models.EventLeaveRoom:
		var req models.RoomRequest
		if decode(connID, event, payload, &req) {
			err = c.leaveRoom(connID, req)
		}
	default:
		log.Warn().Str("conn", connID).Str("event", event).Msg("Ignoring unknown event")
	}

	if err != nil {
		c.reject(connID, event, err)
	}
}

func decode(connID, event string, payload json.RawMessage, v any) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		log.Warn().Err(err).Str("conn", connID).Str("event", event).Msg("Ignoring malformed payload")
		return false
	}
	return true
}

// reject reports err to the originating connection only
func (c *Controller) reject(connID, event string, err error) {
	log.Debug().Err(err).Str("conn", connID).Str("event", event).Msg("Request rejected")
	name := models.EventError
	if event == models.EventJoinRoom {
		name = models.EventJoinError
	}
	c.transport.Emit(connID, name, models.ErrorPayload{Kind: Kind(err), Message: err.Error()})
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}

// seated resolves the room and the seat connID holds in it
func (c *Controller) seated(code, connID string) (*Room, models.Participant, error) {
	room, err := c.registry.Get(code)
	if err != nil {
		return nil, models.Participant{}, err
	}
	p, ok := room.Participant(connID)
	if !ok {
		return nil, models.Participant{}, ErrNotParticipant
	}
	return room, p, nil
}

// playing is seated plus the requirement that a game is in progress
func (c *Controller) playing(code, connID string) (*Room, models.Participant, error) {
	room, p, err := c.seated(code, connID)
	if err != nil {
		return nil, p, err
	}
	if room.Phase != models.PhaseActive {
		return nil, p, ErrInvalidRoomState
	}
	return room, p, nil
}

func (c *Controller) createRoom(connID string, req models.CreateRoomRequest) {
	room := c.registry.Create()
	host, _ := room.seat(connID, displayName(req.DisplayName))
	c.transport.JoinGroup(connID, room.Code)
	c.transport.Emit(connID, models.EventRoomCreated, models.RoomCreated{Code: room.Code, Symbol: host.Symbol})
	log.Info().Str("code", room.Code).Str("conn", connID).Str("name", host.Name).Msg("Room created")
}

func (c *Controller) joinRoom(connID string, req models.JoinRoomRequest) error {
	room, err := c.registry.Get(req.Code)
	if err != nil {
		return err
	}
	if len(room.Participants) >= 2 {
		return ErrRoomFull
	}
	if room.Phase != models.PhaseWaiting {
		return ErrInvalidRoomState
	}
	joiner, err := room.seat(connID, displayName(req.DisplayName))
	if err != nil {
		return err
	}
	host, _ := room.Opponent(connID)

	c.transport.JoinGroup(connID, room.Code)
	room.reset()
	c.armTimer(room)

	c.transport.Emit(connID, models.EventRoomJoined, models.RoomJoined{
		Code:           room.Code,
		OpponentName:   host.Name,
		AssignedSymbol: joiner.Symbol,
	})
	c.transport.Emit(host.ConnID, models.EventOpponentJoined, models.OpponentJoined{Name: joiner.Name})
	c.transport.Broadcast(room.Code, models.EventGameState, room.Snapshot())

	log.Info().Str("code", room.Code).Str("conn", connID).Str("name", joiner.Name).Msg("Player joined, game started")
	return nil
}

// startGame never resets anything; it only resends the current snapshot.
func (c *Controller) startGame(connID string, req models.RoomRequest) error {
	room, _, err := c.playing(req.Code, connID)
	if err != nil {
		return err
	}
	c.transport.Broadcast(room.Code, models.EventGameState, room.Snapshot())
	return nil
}

func (c *Controller) place(connID string, req models.MoveRequest) error {
	room, p, err := c.playing(req.Code, connID)
	if err != nil {
		return err
	}
	if err := ValidatePlace(room.Board, room.TurnOwner, p.Symbol, req.CellIndex); err != nil {
		return err
	}

	room.Board[req.CellIndex] = p.Symbol
	c.transport.BroadcastExcept(room.Code, connID, models.EventOpponentMove, models.OpponentMove{
		Symbol:    p.Symbol,
		CellIndex: req.CellIndex,
	})
	c.completeAction(room, p.Symbol)
	return nil
}

func (c *Controller) shift(connID string, req models.ShiftRequest) error {
	room, p, err := c.playing(req.Code, connID)
	if err != nil {
		return err
	}
	if err := ValidateShift(room.Board, room.TurnOwner, p.Symbol, req.From, req.To); err != nil {
		return err
	}

	room.Board[req.From] = models.Empty
	room.Board[req.To] = p.Symbol
	c.transport.BroadcastExcept(room.Code, connID, models.EventOpponentShift, models.OpponentShift{
		Symbol: p.Symbol,
		From:   req.From,
		To:     req.To,
	})
	c.completeAction(room, p.Symbol)
	return nil
}

// completeAction runs the bookkeeping shared by every legal action
func (c *Controller) completeAction(room *Room, acting models.Symbol) {
	room.MoveCounts.Add(acting)
	room.toggleTurn()

	outcome := Evaluate(room.Board)
	if outcome.Result != Continue {
		c.finish(room, outcome)
		return
	}

	c.armTimer(room)
	c.transport.Broadcast(room.Code, models.EventGameState, room.Snapshot())
	c.transport.Broadcast(room.Code, models.EventNextTurn, models.TurnUpdate{TurnOwner: room.TurnOwner})
}

func (c *Controller) finish(room *Room, outcome Outcome) {
	room.stopTimer()
	room.Phase = models.PhaseFinished
	room.Remaining = 0

	c.transport.Broadcast(room.Code, models.EventGameState, room.Snapshot())
	c.transport.Broadcast(room.Code, models.EventGameOver, models.GameOver{
		Winner:     outcome.Symbol,
		Draw:       outcome.Result == Draw,
		Line:       outcome.Line,
		MoveCounts: room.MoveCounts,
	})
	log.Info().Str("code", room.Code).Stringer("result", outcome.Result).Str("winner", string(outcome.Symbol)).Msg("Game over")
}

func (c *Controller) rematch(connID string, req models.RoomRequest) error {
	room, _, err := c.seated(req.Code, connID)
	if err != nil {
		return err
	}
	if len(room.Participants) != 2 {
		return ErrInvalidRoomState
	}

	room.reset()
	c.armTimer(room)
	c.transport.Broadcast(room.Code, models.EventRematchAccepted, room.Snapshot())
	log.Info().Str("code", room.Code).Str("conn", connID).Msg("Rematch started")
	return nil
}

func (c *Controller) leaveRoom(connID string, req models.RoomRequest) error {
	room, _, err := c.seated(req.Code, connID)
	if err != nil {
		return err
	}
	c.transport.LeaveGroup(connID, room.Code)
	c.depart(room, connID, models.ReasonLeft)
	return nil
}

func (c *Controller) handleDisconnect(connID string) {
	var seatedIn []*Room
	c.registry.ForEach(func(r *Room) {
		if _, ok := r.Participant(connID); ok {
			seatedIn = append(seatedIn, r)
		}
	})
	for _, room := range seatedIn {
		c.depart(room, connID, models.ReasonDisconnected)
	}
}

// depart removes connID from room. An empty room is deleted, otherwise it is
// abandoned and the remaining player is told.
func (c *Controller) depart(room *Room, connID, reason string) {
	p, ok := room.unseat(connID)
	if !ok {
		return
	}
	room.stopTimer()

	if len(room.Participants) == 0 {
		c.registry.Remove(room.Code)
		log.Info().Str("code", room.Code).Str("conn", connID).Str("reason", reason).Msg("Room closed")
		return
	}

	room.Phase = models.PhaseAbandoned
	room.Remaining = 0
	c.transport.BroadcastExcept(room.Code, connID, models.EventOpponentLeft, models.OpponentLeft{
		Name:   p.Name,
		Reason: reason,
	})
	log.Info().Str("code", room.Code).Str("conn", connID).Str("reason", reason).Msg("Room abandoned")
}

// armTimer replaces the room's countdown with a fresh one at full duration
func (c *Controller) armTimer(room *Room) {
	room.stopTimer()
	c.gen++
	room.Remaining = c.turnSeconds
	room.timer = startTurnTimer(room.Code, c.gen, c.tickInterval, c.postTick)
}

func (c *Controller) postTick(code string, gen uint64, stop <-chan struct{}) bool {
	select {
	case c.inbox <- func() { c.handleTick(code, gen) }:
		return true
	case <-stop:
		return false
	case <-c.done:
		return false
	}
}

// handleTick counts down one second. Ticks for deleted rooms or superseded
// timers are dropped silently.
func (c *Controller) handleTick(code string, gen uint64) {
	room, err := c.registry.Get(code)
	if err != nil {
		return
	}
	if room.timer == nil || room.timer.gen != gen || room.Phase != models.PhaseActive {
		return
	}

	room.Remaining--
	c.transport.Broadcast(room.Code, models.EventUpdateTimer, models.TimerUpdate{SecondsRemaining: room.Remaining})
	if room.Remaining > 0 {
		return
	}

	room.toggleTurn()
	c.armTimer(room)
	c.transport.Broadcast(room.Code, models.EventTurnChange, models.TurnUpdate{TurnOwner: room.TurnOwner})
	c.transport.Broadcast(room.Code, models.EventUpdateTimer, models.TimerUpdate{SecondsRemaining: room.Remaining})
	log.Debug().Str("code", room.Code).Str("turnOwner", string(room.TurnOwner)).Msg("Turn timed out, advancing")
}
