package engine

import (
	"sync/atomic"
	"testing"

	"github.com/corvidchess/corvid/internal/board"
	"github.com/stretchr/testify/require"
)

func newTestWorker() *Worker {
	tt := NewTranspositionTable(8)
	var stop atomic.Bool
	return NewWorker(0, tt, NewSharedHistory(), &stop)
}

// TestSearchFindsMateInOne: the back-rank mate must come out with a
// mate-in-1 score at any depth >= 1.
func TestSearchFindsMateInOne(t *testing.T) {
	w := newTestWorker()
	w.Reset()
	w.InitSearch(mustFEN(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"))

	move, score := w.SearchDepth(3, -Infinity, Infinity)
	require.Equal(t, board.NewMove(board.A1, board.A8), move)
	require.Equal(t, MateScore-1, score)
}

// TestSearchAvoidsMateInOne: Black to move must stop the back-rank mate.
func TestSearchAvoidsMateInOne(t *testing.T) {
	w := newTestWorker()
	w.Reset()
	// Black must make luft or cover the back rank against Ra8.
	w.InitSearch(mustFEN(t, "5rk1/5ppp/8/8/8/8/5PPP/R5K1 b - - 0 1"))

	move, score := w.SearchDepth(4, -Infinity, Infinity)
	require.NotEqual(t, board.NoMove, move)
	require.Greater(t, score, -ScoreWin, "black should not be getting mated")
}

// TestSearchStalemateIsDraw: the classic stalemate corner scores zero.
func TestSearchStalemateIsDraw(t *testing.T) {
	w := newTestWorker()
	w.Reset()
	// White to move: Qb6 stalemates black immediately; from black's
	// side of that line the score is a draw, not a loss, so white
	// should prefer a mating line when one exists. Here we just check
	// a stalemated side returns the draw score.
	w.InitSearch(mustFEN(t, "k7/8/1Q6/8/8/8/8/K7 b - - 0 1"))

	move, score := w.SearchDepth(2, -Infinity, Infinity)
	require.Equal(t, board.NoMove, move)
	require.Equal(t, 0, score)
}

// TestSearchReturnsLegalMove: a quick depth-limited search on the start
// position yields a legal move with a bounded score.
func TestSearchReturnsLegalMove(t *testing.T) {
	w := newTestWorker()
	w.Reset()
	pos := board.NewPosition()
	w.InitSearch(pos)

	move, score := w.SearchDepth(5, -Infinity, Infinity)
	require.True(t, pos.GenerateLegalMoves().Contains(move))
	require.Less(t, abs(score), 500, "start position should be near balanced")
}

// TestFiftyMoveRuleDraw: halfmove clock at 100 scores zero regardless of
// material.
func TestFiftyMoveRuleDraw(t *testing.T) {
	w := newTestWorker()
	w.Reset()
	w.InitSearch(mustFEN(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 100 80"))

	require.True(t, w.isDraw())
}

func TestInsufficientMaterialDraw(t *testing.T) {
	w := newTestWorker()
	w.Reset()

	for _, fen := range []string{
		"4k3/8/8/8/8/8/8/4K3 w - - 0 1",   // bare kings
		"4k3/8/8/8/8/8/4N3/4K3 w - - 0 1", // lone horse
		"4k3/8/8/8/8/8/4B3/4K3 w - - 0 1", // lone bishop
	} {
		w.InitSearch(mustFEN(t, fen))
		require.True(t, w.isDraw(), "expected draw: %s", fen)
	}

	w.InitSearch(mustFEN(t, "4k3/8/8/8/8/8/4R3/4K3 w - - 0 1"))
	require.False(t, w.isDraw(), "rook endings are not material draws")
}
