package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckmateBackRank(t *testing.T) {
	// White Ra8 delivers back-rank mate on a king boxed in by its own pawns.
	pos, err := ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.True(t, pos.InCheck())
	require.False(t, pos.HasLegalMoves())
	require.True(t, pos.IsCheckmate())
	require.False(t, pos.IsStalemate())
}

func TestCheckmateKingCanCapture(t *testing.T) {
	// The checking rook is undefended and adjacent to the king: not mate.
	pos, err := ParseFEN("6Rk/8/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.True(t, pos.InCheck())
	require.True(t, pos.HasLegalMoves())
	require.False(t, pos.IsCheckmate())
}

func TestStalemate(t *testing.T) {
	// Classic king-and-queen stalemate: Black king a8 has no legal move
	// and is not in check.
	pos, err := ParseFEN("k7/8/1Q6/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.False(t, pos.InCheck())
	require.False(t, pos.HasLegalMoves())
	require.False(t, pos.IsCheckmate())
	require.True(t, pos.IsStalemate())
}
