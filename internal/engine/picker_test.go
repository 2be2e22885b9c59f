package engine

import (
	"testing"

	"github.com/corvidchess/corvid/internal/board"
	"github.com/stretchr/testify/require"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func drainPicker(mp *MovePicker) []board.Move {
	var out []board.Move
	for {
		m, ok := mp.Next()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

// TestPickerYieldsEachLegalMoveOnce drains the picker and compares
// against GenerateLegalMoves as a set.
func TestPickerYieldsEachLegalMoveOnce(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		// In check: evasions only.
		"rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
	}

	for _, fen := range fens {
		pos := mustFEN(t, fen)
		orderer := NewMoveOrderer()

		picked := drainPicker(NewMovePicker(pos, orderer, board.NoMove, 0, nil, false))

		legal := pos.GenerateLegalMoves()
		require.Equal(t, legal.Len(), len(picked), "move count in %s", fen)

		seen := make(map[board.Move]bool)
		for _, m := range picked {
			require.False(t, seen[m], "move %s yielded twice in %s", m, fen)
			seen[m] = true
			require.True(t, legal.Contains(m), "illegal move %s in %s", m, fen)
		}
	}
}

// TestPickerTTMoveFirst seeds a TT move and checks it leads.
func TestPickerTTMoveFirst(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	orderer := NewMoveOrderer()
	ttMove := board.NewMove(board.D2, board.D4)

	picked := drainPicker(NewMovePicker(pos, orderer, ttMove, 0, nil, false))
	require.NotEmpty(t, picked)
	require.Equal(t, ttMove, picked[0])

	count := 0
	for _, m := range picked {
		if m == ttMove {
			count++
		}
	}
	require.Equal(t, 1, count, "TT move must be de-duplicated")
}

// TestPickerIllegalTTMoveSkipped gives the picker a TT move that is not
// even pseudo-legal.
func TestPickerIllegalTTMoveSkipped(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	orderer := NewMoveOrderer()
	bogus := board.NewMove(board.E5, board.E6)

	picked := drainPicker(NewMovePicker(pos, orderer, bogus, 0, nil, false))
	require.Equal(t, pos.GenerateLegalMoves().Len(), len(picked))
	for _, m := range picked {
		require.NotEqual(t, bogus, m)
	}
}

// TestPickerGoodCapturesBeforeQuiets: with a hanging queen on the board,
// the winning capture must come out before any quiet move.
func TestPickerGoodCapturesBeforeQuiets(t *testing.T) {
	// White knight on f3 can take the undefended queen on e5.
	pos := mustFEN(t, "4k3/8/8/4q3/8/5N2/8/6K1 w - - 0 1")
	orderer := NewMoveOrderer()

	picked := drainPicker(NewMovePicker(pos, orderer, board.NoMove, 0, nil, false))
	require.NotEmpty(t, picked)
	require.Equal(t, board.NewMove(board.F3, board.E5), picked[0])
}

// TestPickerBadCapturesLast: a losing capture is deferred behind quiets.
func TestPickerBadCapturesLast(t *testing.T) {
	// Queen takes a pawn defended by a pawn: losing, so it must come
	// after the quiet moves.
	pos := mustFEN(t, "3q3k/8/4p3/3p4/8/8/8/3Q3K w - - 0 1")
	orderer := NewMoveOrderer()

	picked := drainPicker(NewMovePicker(pos, orderer, board.NoMove, 0, nil, false))
	losing := board.NewMove(board.D1, board.D5)

	idx := -1
	for i, m := range picked {
		if m == losing {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0, "losing capture must still be yielded")
	require.Equal(t, len(picked)-1, idx, "losing capture should be yielded last")
}

// TestPickerSkipQuiets drains a quiescence-style picker: quiets are
// omitted, noisy moves still flow.
func TestPickerSkipQuiets(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/4q3/8/5N2/8/6K1 w - - 0 1")
	orderer := NewMoveOrderer()

	picked := drainPicker(NewMovePicker(pos, orderer, board.NoMove, 0, nil, true))
	require.Len(t, picked, 1)
	require.Equal(t, board.NewMove(board.F3, board.E5), picked[0])
}
