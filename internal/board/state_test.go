package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// snapshot captures every field that UnmakeMove must restore exactly.
type snapshot struct {
	pieces      [2][6]Bitboard
	occupied    [2]Bitboard
	allOccupied Bitboard
	sideToMove  Color
	castling    CastlingRights
	enPassant   Square
	halfMove    int
	fullMove    int
	hash        uint64
	pawnKey     uint64
	nonPawnKey  [2]uint64
	kings       [2]Square
}

func snap(p *Position) snapshot {
	return snapshot{
		pieces:      p.Pieces,
		occupied:    p.Occupied,
		allOccupied: p.AllOccupied,
		sideToMove:  p.SideToMove,
		castling:    p.CastlingRights,
		enPassant:   p.EnPassant,
		halfMove:    p.HalfMoveClock,
		fullMove:    p.FullMoveNumber,
		hash:        p.Hash,
		pawnKey:     p.PawnKey,
		nonPawnKey:  p.NonPawnKey,
		kings:       p.KingSquare,
	}
}

// TestMakeUnmakeRestoresState plays every legal move from positions
// covering castling, en passant, promotion and pins, and checks that
// unmake restores the position byte for byte.
func TestMakeUnmakeRestoresState(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
	}

	for _, fen := range fens {
		pos := mustFEN(t, fen)
		before := snap(pos)

		moves := pos.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			require.True(t, pos.MakeMove(m), "make %s in %s", m, fen)
			pos.UnmakeMove(m)
			require.Equal(t, before, snap(pos), "unmake %s in %s", m, fen)
		}
	}
}

// TestIncrementalHashesMatchScratch verifies that after any make, the
// incrementally maintained keys equal the from-scratch recomputation.
func TestIncrementalHashesMatchScratch(t *testing.T) {
	pos := mustFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		pos.MakeMove(m)
		require.Equal(t, pos.ComputeHash(), pos.Hash, "hash after %s", m)
		require.Equal(t, pos.ComputePawnKey(), pos.PawnKey, "pawn key after %s", m)
		require.Equal(t, pos.ComputeNonPawnKeys(), pos.NonPawnKey, "non-pawn keys after %s", m)
		pos.UnmakeMove(m)
	}
}

// TestLegalSubsetOfPseudoLegal checks legal(P) is a subset of
// pseudo_legal(P) and that every legal move passes PseudoLegal.
func TestLegalSubsetOfPseudoLegal(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
	}

	for _, fen := range fens {
		pos := mustFEN(t, fen)
		pseudo := pos.GeneratePseudoLegalMoves()
		legal := pos.GenerateLegalMoves()

		for i := 0; i < legal.Len(); i++ {
			m := legal.Get(i)
			require.True(t, pseudo.Contains(m), "legal move %s missing from pseudo-legal in %s", m, fen)
			require.True(t, pos.PseudoLegal(m), "legal move %s fails PseudoLegal in %s", m, fen)
		}
	}
}

// TestQuietCapturePartition checks GenerateCaptures and
// GenerateQuietMoves partition GenerateLegalMoves.
func TestQuietCapturePartition(t *testing.T) {
	pos := mustFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")

	legal := pos.GenerateLegalMoves()
	noisy := pos.GenerateCaptures()
	quiet := pos.GenerateQuietMoves()

	require.Equal(t, legal.Len(), noisy.Len()+quiet.Len())
	for i := 0; i < noisy.Len(); i++ {
		require.True(t, legal.Contains(noisy.Get(i)))
		require.False(t, quiet.Contains(noisy.Get(i)))
	}
	for i := 0; i < quiet.Len(); i++ {
		require.True(t, legal.Contains(quiet.Get(i)))
	}
}

// TestHasCycleKnightShuffle reaches a position where the side to move
// can step a knight back to repeat an earlier position.
func TestHasCycleKnightShuffle(t *testing.T) {
	pos := NewPosition()

	require.True(t, pos.MakeMove(NewMove(G1, F3)))
	require.True(t, pos.MakeMove(NewMove(G8, F6)))
	require.True(t, pos.MakeMove(NewMove(F3, G1)))

	// Black to move can play Ng8 and repeat the starting position.
	require.True(t, pos.HasCycle(4))

	// At the root there is no search line yet, and the start position
	// never occurred twice before, so no cycle is reported.
	require.False(t, pos.HasCycle(0))
}

func TestHasCycleBlockedPath(t *testing.T) {
	pos := NewPosition()

	// Rook shuffle is impossible from the start: every reversible rook
	// path is blocked by its own pieces, and three plies of knight
	// development create no repeatable delta for the side to move.
	require.True(t, pos.MakeMove(NewMove(G1, F3)))
	require.True(t, pos.MakeMove(NewMove(B8, C6)))
	require.True(t, pos.MakeMove(NewMove(B1, C3)))
	require.False(t, pos.HasCycle(4))
}

func TestRepetitionCount(t *testing.T) {
	pos := NewPosition()

	shuffle := []Move{
		NewMove(G1, F3), NewMove(G8, F6),
		NewMove(F3, G1), NewMove(F6, G8),
		NewMove(G1, F3), NewMove(G8, F6),
	}
	for _, m := range shuffle {
		require.True(t, pos.MakeMove(m))
	}

	// The position after 1.Nf3 Nf6 occurred at plies 2 and 6.
	require.Equal(t, 1, pos.RepetitionCount())
}

// TestFENRoundTrip verifies FEN -> Position -> FEN is the identity for
// well-formed inputs.
func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"4k3/8/8/8/8/8/8/4K3 w - - 12 34",
	}

	for _, fen := range fens {
		pos := mustFEN(t, fen)
		require.Equal(t, fen, pos.ToFEN())
	}
}
