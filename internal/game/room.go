package game

import (
	"time"

	"tictacshift/internal/models"
)

// Room is one authoritative two-player session. It is only touched from the
// controller's event loop.
type Room struct {
	Code         string
	Participants []models.Participant
	Board        models.Board
	TurnOwner    models.Symbol
	MoveCounts   models.MoveCounts
	Phase        models.Phase
	Remaining    int
	CreatedAt    time.Time

	timer *turnTimer
}

func newRoom(code string) *Room {
	return &Room{
		Code:      code,
		TurnOwner: models.PlayerX,
		Phase:     models.PhaseWaiting,
		CreatedAt: time.Now(),
	}
}

// Participant looks up the seat held by connID.
func (r *Room) Participant(connID string) (models.Participant, bool) {
	for _, p := range r.Participants {
		if p.ConnID == connID {
			return p, true
		}
	}
	return models.Participant{}, false
}

// Opponent returns the seat that is not held by connID.
func (r *Room) Opponent(connID string) (models.Participant, bool) {
	for _, p := range r.Participants {
		if p.ConnID != connID {
			return p, true
		}
	}
	return models.Participant{}, false
}

// seat appends a participant. The first seat plays X, the second O.
func (r *Room) seat(connID, name string) (models.Participant, error) {
	if len(r.Participants) >= 2 {
		return models.Participant{}, ErrRoomFull
	}
	if _, ok := r.Participant(connID); ok {
		return models.Participant{}, ErrAlreadyInRoom
	}
	symbol := models.PlayerX
	if len(r.Participants) == 1 {
		symbol = models.PlayerO
	}
	p := models.Participant{ConnID: connID, Name: name, Symbol: symbol}
	r.Participants = append(r.Participants, p)
	return p, nil
}

func (r *Room) unseat(connID string) (models.Participant, bool) {
	for i, p := range r.Participants {
		if p.ConnID == connID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return p, true
		}
	}
	return models.Participant{}, false
}

// reset starts a fresh game with the current participants.
func (r *Room) reset() {
	r.Board = models.Board{}
	r.TurnOwner = models.PlayerX
	r.MoveCounts = models.MoveCounts{}
	r.Phase = models.PhaseActive
}

func (r *Room) toggleTurn() {
	r.TurnOwner = r.TurnOwner.Other()
}

// stopTimer cancels the live countdown, if any.
func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.cancel()
		r.timer = nil
	}
}

// Snapshot copies the broadcastable state.
func (r *Room) Snapshot() models.Snapshot {
	players := make([]models.Participant, len(r.Participants))
	copy(players, r.Participants)
	return models.Snapshot{
		Code:             r.Code,
		Board:            r.Board,
		TurnOwner:        r.TurnOwner,
		MoveCounts:       r.MoveCounts,
		Phase:            r.Phase,
		Players:          players,
		RemainingSeconds: r.Remaining,
	}
}

// Summary is the lobby view of the room.
func (r *Room) Summary() models.RoomSummary {
	names := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		names = append(names, p.Name)
	}
	return models.RoomSummary{
		Code:    r.Code,
		Phase:   r.Phase,
		Players: names,
		Open:    r.Phase == models.PhaseWaiting && len(r.Participants) < 2,
	}
}
