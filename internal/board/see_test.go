package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustFEN(t *testing.T, fen string) *Position {
	t.Helper()
	pos, err := ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func TestSEEWinningCapture(t *testing.T) {
	// Rook takes an undefended pawn.
	pos := mustFEN(t, "1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1")

	m := NewMove(E1, E5)
	require.Equal(t, PieceValue[Pawn], SEE(pos, m))
	require.True(t, SEEGE(pos, m, 0))
	require.True(t, SEEGE(pos, m, PieceValue[Pawn]))
	require.False(t, SEEGE(pos, m, PieceValue[Pawn]+1))
}

func TestSEELosingCapture(t *testing.T) {
	// Queen takes a pawn defended by a pawn: wins 100, loses 900.
	pos := mustFEN(t, "3q3k/8/4p3/3p4/8/8/8/3Q3K w - - 0 1")

	m := NewMove(D1, D5)
	require.Equal(t, PieceValue[Pawn]-PieceValue[Queen], SEE(pos, m))
	require.False(t, SEEGE(pos, m, 0))
}

func TestSEEXrayAttacker(t *testing.T) {
	// Bxd5 with the queen behind the bishop on the same diagonal:
	// black's rook recapture loses the exchange to the revealed queen,
	// so black stands pat and white keeps the pawn.
	pos := mustFEN(t, "3r3k/8/8/3p4/8/5B2/6Q1/7K w - - 0 1")

	m := NewMove(F3, D5)
	require.Equal(t, PieceValue[Pawn], SEE(pos, m))
}

func TestSEEPinnedDefenderExcluded(t *testing.T) {
	// The d6 knight defends c5 but is pinned to its own king by the d1
	// rook, so it cannot legally recapture: taking the pawn is clean.
	pos := mustFEN(t, "3k4/8/3n4/2p5/8/4B3/8/3RK3 w - - 0 1")

	m := NewMove(E3, C5)
	require.Equal(t, PieceValue[Pawn], SEE(pos, m))
}

func TestSEENonCaptureIsZero(t *testing.T) {
	pos := NewPosition()
	require.Equal(t, 0, SEE(pos, NewMove(E2, E4)))
}
