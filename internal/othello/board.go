package othello

import "strings"

// Size is the width and height of an Othello board.
const Size = 8

// Cells is the number of cells on a board.
const Cells = Size * Size

// Cell is the content of a single board square.
type Cell uint8

const (
	Empty Cell = iota
	Black
	White
)

// Opponent returns the other player. Empty has no opponent and maps to itself.
func (c Cell) Opponent() Cell {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

// String returns the player name.
func (c Cell) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

func (c Cell) symbol() byte {
	switch c {
	case Black:
		return 'X'
	case White:
		return 'O'
	default:
		return '.'
	}
}

// Board is an 8x8 grid indexed as [row][col]. It is a value type; copying a
// Board copies every cell.
type Board [Size][Size]Cell

// NewBoard returns the standard opening position.
func NewBoard() Board {
	var b Board
	b[3][3] = White
	b[3][4] = Black
	b[4][3] = Black
	b[4][4] = White
	return b
}

// Flatten returns the cells in row-major order.
func (b Board) Flatten() [Cells]Cell {
	var out [Cells]Cell
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[r*Size+c] = b[r][c]
		}
	}
	return out
}

// Count returns the number of cells holding c.
func (b Board) Count(c Cell) int {
	n := 0
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			if b[r][col] == c {
				n++
			}
		}
	}
	return n
}

// String renders the board with file letters across the top and ranks down
// the side. Black is X and White is O.
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for r := 0; r < Size; r++ {
		sb.WriteByte(byte('1' + r))
		for c := 0; c < Size; c++ {
			sb.WriteByte(' ')
			sb.WriteByte(b[r][c].symbol())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func onBoard(r, c int) bool {
	return r >= 0 && r < Size && c >= 0 && c < Size
}
