package models

// Symbol is the mark a participant plays with
type Symbol string

const (
	PlayerX Symbol = "X"
	PlayerO Symbol = "O"
	Empty   Symbol = ""
)

// Other returns the opposing symbol.
func (s Symbol) Other() Symbol {
	if s == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// BoardSize is the number of cells on the 3x3 board
const BoardSize = 9

// Board represents the 3x3 game board
type Board [BoardSize]Symbol

// Full reports whether no empty cell remains.
func (b Board) Full() bool {
	for _, cell := range b {
		if cell == Empty {
			return false
		}
	}
	return true
}

// Phase is the coarse lifecycle state of a room
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseActive    Phase = "active"
	PhaseFinished  Phase = "finished"
	PhaseAbandoned Phase = "abandoned"
)

// MoveCounts counts completed actions per symbol
type MoveCounts struct {
	X int `json:"X"`
	O int `json:"O"`
}

// Add increments the count for s.
func (m *MoveCounts) Add(s Symbol) {
	switch s {
	case PlayerX:
		m.X++
	case PlayerO:
		m.O++
	}
}

// Participant is one seat in a room
type Participant struct {
	ConnID string `json:"-"`
	Name   string `json:"name"`
	Symbol Symbol `json:"symbol"`
}

// Snapshot is the full broadcastable state of a room
type Snapshot struct {
	Code             string        `json:"code"`
	Board            Board         `json:"board"`
	TurnOwner        Symbol        `json:"turnOwner"`
	MoveCounts       MoveCounts    `json:"moveCounts"`
	Phase            Phase         `json:"phase"`
	Players          []Participant `json:"players"`
	RemainingSeconds int           `json:"remainingSeconds"`
}

// RoomSummary is the lobby view of a room
type RoomSummary struct {
	Code    string   `json:"code"`
	Phase   Phase    `json:"phase"`
	Players []string `json:"players"`
	Open    bool     `json:"open"`
}
