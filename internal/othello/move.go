package othello

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is returned when a token cannot be decoded to a square.
var ErrInvalidMove = errors.New("invalid move")

var directions = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Move is a zero-based board coordinate.
type Move struct {
	Row int
	Col int
}

// ParseMove decodes a two-character token such as "c4". The file letter
// selects the column (a-h, either case) and the rank digit the row (1-8).
func ParseMove(token string) (Move, error) {
	if len(token) != 2 {
		return Move{}, fmt.Errorf("%w: %q has length %d", ErrInvalidMove, token, len(token))
	}

	file := token[0]
	if file >= 'A' && file <= 'Z' {
		file += 'a' - 'A'
	}
	rank := token[1]

	if file < 'a' || file >= 'a'+Size {
		return Move{}, fmt.Errorf("%w: file %q out of range in %q", ErrInvalidMove, token[0], token)
	}
	if rank < '1' || rank >= '1'+Size {
		return Move{}, fmt.Errorf("%w: rank %q out of range in %q", ErrInvalidMove, rank, token)
	}

	return Move{Row: int(rank - '1'), Col: int(file - 'a')}, nil
}

// MoveFromIndex is the inverse of Move.Index.
func MoveFromIndex(index int) (Move, error) {
	if index < 0 || index >= Cells {
		return Move{}, fmt.Errorf("%w: index %d out of range", ErrInvalidMove, index)
	}
	return Move{Row: index / Size, Col: index % Size}, nil
}

// Index returns the row-major cell index, row*8+col.
func (m Move) Index() int {
	return m.Row*Size + m.Col
}

// Valid reports whether the move lies on the board.
func (m Move) Valid() bool {
	return onBoard(m.Row, m.Col)
}

// String encodes the move as a lowercase token.
func (m Move) String() string {
	if !m.Valid() {
		return fmt.Sprintf("(%d,%d)", m.Row, m.Col)
	}
	return string([]byte{byte('a' + m.Col), byte('1' + m.Row)})
}

// Flips returns the opponent cells that p playing m would turn over. A run
// in a given direction only counts when it is closed off by a cell already
// owned by p; hitting an empty cell or the board edge first flips nothing.
// The target cell itself is not inspected.
func Flips(b Board, m Move, p Cell) []Move {
	opp := p.Opponent()
	var flips []Move
	for _, d := range directions {
		r, c := m.Row+d[0], m.Col+d[1]
		var run []Move
		for onBoard(r, c) && b[r][c] == opp {
			run = append(run, Move{Row: r, Col: c})
			r += d[0]
			c += d[1]
		}
		if len(run) > 0 && onBoard(r, c) && b[r][c] == p {
			flips = append(flips, run...)
		}
	}
	return flips
}

// Apply places p at m and flips every bracketed opponent run. Legality is not
// checked: an occupied target is simply overwritten. The caller's board is
// left untouched since Board is passed by value.
func Apply(b Board, m Move, p Cell) Board {
	b[m.Row][m.Col] = p
	for _, f := range Flips(b, m, p) {
		b[f.Row][f.Col] = p
	}
	return b
}
