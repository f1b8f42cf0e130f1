package game

import "tictacshift/internal/models"

// winConditions defines all possible winning combinations
var winConditions = [][3]int{
	{0, 1, 2}, // top row
	{3, 4, 5}, // middle row
	{6, 7, 8}, // bottom row
	{0, 3, 6}, // left column
	{1, 4, 7}, // middle column
	{2, 5, 8}, // right column
	{0, 4, 8}, // diagonal
	{2, 4, 6}, // anti-diagonal
}

// Result classifies a board
type Result int

const (
	Continue Result = iota
	Winner
	Draw
)

func (r Result) String() string {
	switch r {
	case Winner:
		return "winner"
	case Draw:
		return "draw"
	default:
		return "continue"
	}
}

// Outcome is what Evaluate decides for a board. Symbol and Line are set only for Winner.
type Outcome struct {
	Result Result
	Symbol models.Symbol
	Line   []int
}

// Evaluate checks the board for a winner or a draw
func Evaluate(board models.Board) Outcome {
	for _, line := range winConditions {
		a, b, c := line[0], line[1], line[2]
		if board[a] != models.Empty && board[a] == board[b] && board[b] == board[c] {
			return Outcome{Result: Winner, Symbol: board[a], Line: []int{a, b, c}}
		}
	}
	if board.Full() {
		return Outcome{Result: Draw}
	}
	return Outcome{Result: Continue}
}

func inBounds(i int) bool {
	return i >= 0 && i < models.BoardSize
}

// ValidatePlace decides whether acting may write its symbol into cell.
func ValidatePlace(board models.Board, turnOwner, acting models.Symbol, cell int) error {
	if acting != turnOwner {
		return ErrNotYourTurn
	}
	if !inBounds(cell) {
		return ErrOutOfBounds
	}
	if board[cell] != models.Empty {
		return ErrCellOccupied
	}
	return nil
}

// ValidateShift decides whether acting may move its piece from one cell to another.
func ValidateShift(board models.Board, turnOwner, acting models.Symbol, from, to int) error {
	if acting != turnOwner {
		return ErrNotYourTurn
	}
	if !inBounds(from) || !inBounds(to) {
		return ErrOutOfBounds
	}
	if board[from] != acting {
		return ErrNotOwnPiece
	}
	if board[to] != models.Empty {
		return ErrDestinationOccupied
	}
	return nil
}
