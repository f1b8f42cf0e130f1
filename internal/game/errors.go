package game

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrInvalidRoomState    = errors.New("room is not accepting this action")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrOutOfBounds         = errors.New("cell index out of bounds")
	ErrCellOccupied        = errors.New("cell already taken")
	ErrNotOwnPiece         = errors.New("source cell does not hold your piece")
	ErrDestinationOccupied = errors.New("destination cell already taken")
	ErrNotParticipant      = errors.New("connection is not seated in this room")
	ErrAlreadyInRoom       = errors.New("connection is already seated in this room")

	// ErrStopped is returned by queries once the controller loop has exited.
	ErrStopped = errors.New("controller stopped")
)

var errorKinds = map[error]string{
	ErrRoomNotFound:        "RoomNotFound",
	ErrRoomFull:            "RoomFull",
	ErrInvalidRoomState:    "InvalidRoomState",
	ErrNotYourTurn:         "NotYourTurn",
	ErrOutOfBounds:         "OutOfBounds",
	ErrCellOccupied:        "CellOccupied",
	ErrNotOwnPiece:         "NotOwnPiece",
	ErrDestinationOccupied: "DestinationOccupied",
	ErrNotParticipant:      "NotParticipant",
	ErrAlreadyInRoom:       "AlreadyInRoom",
}

// Kind returns the wire name of a game error, or "Internal" for anything else.
func Kind(err error) string {
	for sentinel, kind := range errorKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return "Internal"
}
