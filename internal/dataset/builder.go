package dataset

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dmmcquay/othello-dataset/internal/logging"
	"github.com/dmmcquay/othello-dataset/internal/metrics"
	"github.com/dmmcquay/othello-dataset/internal/othello"
	"github.com/dmmcquay/othello-dataset/internal/transcript"
)

// resultToken matches score markers such as "37-27" that end a move list.
var resultToken = regexp.MustCompile(`^\d+-\d+`)

// Row is one training example: the position before a move and the move's
// cell index.
type Row struct {
	Board [othello.Cells]othello.Cell
	Move  int
}

// GameStats summarizes the replay of a single game.
type GameStats struct {
	Rows             int
	SkippedResults   int
	SkippedMalformed int
}

// Stats summarizes a whole build.
type Stats struct {
	Games            int
	Rows             int
	SkippedResults   int
	SkippedMalformed int
}

func (s *Stats) add(g GameStats) {
	s.Games++
	s.Rows += g.Rows
	s.SkippedResults += g.SkippedResults
	s.SkippedMalformed += g.SkippedMalformed
}

// Builder replays games and emits one Row per played move.
type Builder struct {
	logger  logging.ContextLogger
	metrics *metrics.Collector
}

// NewBuilder creates a builder. metrics may be nil.
func NewBuilder(logger logging.ContextLogger, m *metrics.Collector) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{logger: logger, metrics: m}
}

// Build replays every game in order and writes the rows to sink. It stops at
// the first sink error or when ctx is cancelled between games.
func (b *Builder) Build(ctx context.Context, games []transcript.Game, sink Sink) (Stats, error) {
	var stats Stats
	for i, g := range games {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		gs, err := b.BuildGame(g, sink.WriteRow)
		stats.add(gs)
		if err != nil {
			return stats, fmt.Errorf("game %d: %w", i+1, err)
		}
		if b.metrics != nil {
			b.metrics.RecordGame(gs.Rows, gs.SkippedResults, gs.SkippedMalformed)
		}
	}
	return stats, nil
}

// BuildGame replays one game from the opening position with Black to move.
// Result markers and undecodable tokens are skipped without touching the
// board or the turn.
func (b *Builder) BuildGame(g transcript.Game, emit func(Row) error) (GameStats, error) {
	var gs GameStats
	board := othello.NewBoard()
	player := othello.Black

	for _, token := range g.Moves {
		m, reason, err := decodeToken(token)
		switch reason {
		case metrics.SkipResult:
			gs.SkippedResults++
			continue
		case metrics.SkipMalformed:
			gs.SkippedMalformed++
			b.logger.Debug("Skipping move token", "token", token, "error", err)
			continue
		}

		if err := emit(Row{Board: board.Flatten(), Move: m.Index()}); err != nil {
			return gs, err
		}
		gs.Rows++

		board = othello.Apply(board, m, player)
		player = player.Opponent()
	}

	return gs, nil
}

// Replay returns the board after the first plies decoded moves of g, and the
// player to move next. A negative plies replays the whole game.
func Replay(g transcript.Game, plies int) (othello.Board, othello.Cell, int) {
	board := othello.NewBoard()
	player := othello.Black
	played := 0

	for _, token := range g.Moves {
		if plies >= 0 && played >= plies {
			break
		}
		m, reason, _ := decodeToken(token)
		if reason != "" {
			continue
		}
		board = othello.Apply(board, m, player)
		player = player.Opponent()
		played++
	}

	return board, player, played
}

// decodeToken returns the move for token, or the metrics skip reason when the
// token is not a playable move.
func decodeToken(token string) (othello.Move, string, error) {
	if resultToken.MatchString(token) {
		return othello.Move{}, metrics.SkipResult, nil
	}
	m, err := othello.ParseMove(token)
	if err != nil {
		return othello.Move{}, metrics.SkipMalformed, err
	}
	return m, "", nil
}
