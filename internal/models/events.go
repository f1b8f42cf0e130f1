package models

import (
	"encoding/json"
	"errors"
)

// Inbound event names
const (
	EventCreateRoom = "createRoom"
	EventJoinRoom   = "joinRoom"
	EventStartGame  = "startGame"
	EventMove       = "move"
	EventShift      = "shift"
	EventRematch    = "rematch"
	EventLeaveRoom  = "leaveRoom"
)

// Outbound event names
const (
	EventConnected       = "connected"
	EventRoomCreated     = "roomCreated"
	EventRoomJoined      = "roomJoined"
	EventJoinError       = "joinError"
	EventOpponentJoined  = "opponentJoined"
	EventGameState       = "gameState"
	EventOpponentMove    = "opponentMove"
	EventOpponentShift   = "opponentShift"
	EventNextTurn        = "nextTurn"
	EventUpdateTimer     = "updateTimer"
	EventTurnChange      = "turnChange"
	EventGameOver        = "gameOver"
	EventRematchAccepted = "rematchAccepted"
	EventOpponentLeft    = "opponentLeft"
	EventError           = "error"
)

// Inbound is a message read from a client connection
type Inbound struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Envelope is a message written to a client connection
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// CreateRoomRequest opens a new room with the sender as host
type CreateRoomRequest struct {
	DisplayName string `json:"displayName"`
}

// JoinRoomRequest takes the second seat in the room named by Code
type JoinRoomRequest struct {
	DisplayName string `json:"displayName"`
	Code        string `json:"code"`
}

// RoomRequest carries only a room code (startGame, rematch, leaveRoom)
type RoomRequest struct {
	Code string `json:"code"`
}

// ErrMissingIndex is returned when a move or shift omits a cell index
var ErrMissingIndex = errors.New("cell index is required")

// MoveRequest places the sender's symbol on CellIndex
type MoveRequest struct {
	Code      string `json:"code"`
	CellIndex int    `json:"cellIndex"`
}

// UnmarshalJSON rejects a payload without cellIndex instead of defaulting it to 0.
func (m *MoveRequest) UnmarshalJSON(data []byte) error {
	type plain MoveRequest
	var req struct {
		plain
		CellIndex *int `json:"cellIndex"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	if req.CellIndex == nil {
		return ErrMissingIndex
	}
	*m = MoveRequest(req.plain)
	m.CellIndex = *req.CellIndex
	return nil
}

// ShiftRequest moves one of the sender's pieces from From to To
type ShiftRequest struct {
	Code string `json:"code"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// UnmarshalJSON rejects a payload missing either index.
func (s *ShiftRequest) UnmarshalJSON(data []byte) error {
	type plain ShiftRequest
	var req struct {
		plain
		From *int `json:"from"`
		To   *int `json:"to"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	if req.From == nil || req.To == nil {
		return ErrMissingIndex
	}
	*s = ShiftRequest(req.plain)
	s.From, s.To = *req.From, *req.To
	return nil
}

// Connected carries the id assigned to a new connection
type Connected struct {
	ConnectionID string `json:"connectionId"`
}

// RoomCreated confirms a new room to its host
type RoomCreated struct {
	Code   string `json:"code"`
	Symbol Symbol `json:"symbol"`
}

// RoomJoined confirms a seat to the joining player
type RoomJoined struct {
	Code           string `json:"code"`
	OpponentName   string `json:"opponentName"`
	AssignedSymbol Symbol `json:"assignedSymbol"`
}

// OpponentJoined tells the host who took the second seat
type OpponentJoined struct {
	Name string `json:"name"`
}

// OpponentMove relays a placement to the other player
type OpponentMove struct {
	Symbol    Symbol `json:"symbol"`
	CellIndex int    `json:"cellIndex"`
}

// OpponentShift relays a shift to the other player
type OpponentShift struct {
	Symbol Symbol `json:"symbol"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

// TurnUpdate is the payload of nextTurn and turnChange
type TurnUpdate struct {
	TurnOwner Symbol `json:"turnOwner"`
}

// TimerUpdate is the countdown broadcast once per second
type TimerUpdate struct {
	SecondsRemaining int `json:"secondsRemaining"`
}

// GameOver reports a terminal outcome. Winner is empty on a draw.
type GameOver struct {
	Winner     Symbol     `json:"winner,omitempty"`
	Draw       bool       `json:"draw"`
	Line       []int      `json:"line,omitempty"`
	MoveCounts MoveCounts `json:"moveCounts"`
}

// Reasons carried by opponentLeft
const (
	ReasonLeft         = "left"
	ReasonDisconnected = "disconnected"
)

// OpponentLeft tells the remaining player that the other seat emptied
type OpponentLeft struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ErrorPayload is sent to the originating connection on any rejected request
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
