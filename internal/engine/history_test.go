package engine

import (
	"testing"

	"github.com/corvidchess/corvid/internal/board"
	"github.com/stretchr/testify/require"
)

// TestHistoryUpdateContracting hammers the main history with maximal
// bonuses and checks the bounded-drift rule keeps |entry| <= ClampMax.
func TestHistoryUpdateContracting(t *testing.T) {
	mo := NewMoveOrderer()
	m := board.NewMove(board.E2, board.E4)

	for i := 0; i < 1000; i++ {
		mo.UpdateHistory(m, 60, true)
		require.LessOrEqual(t, mo.GetHistoryScore(m), historyClampMax)
	}
	high := mo.GetHistoryScore(m)
	require.Greater(t, high, historyClampMax/2)

	for i := 0; i < 1000; i++ {
		mo.UpdateHistory(m, 60, false)
		require.GreaterOrEqual(t, mo.GetHistoryScore(m), -historyClampMax)
	}
	require.Less(t, mo.GetHistoryScore(m), -historyClampMax/2)
}

func TestCaptureHistoryContracting(t *testing.T) {
	mo := NewMoveOrderer()

	for i := 0; i < 1000; i++ {
		mo.UpdateCaptureHistory(board.WhiteKnight, board.D5, board.Pawn, 50, true)
	}
	score := mo.GetCaptureHistoryScore(board.WhiteKnight, board.D5, board.Pawn)
	require.LessOrEqual(t, score, historyClampMax)
	require.Greater(t, score, 0)
}

func TestContinuationHistoryContracting(t *testing.T) {
	mo := NewMoveOrderer()
	table := mo.GetContinuationHistoryTable(false, false, board.WhiteKnight, board.F3)

	for i := 0; i < 1000; i++ {
		mo.UpdateContinuationHistory(table, board.WhitePawn, board.E4, 50, 1, true)
	}
	require.LessOrEqual(t, int(table[board.WhitePawn][board.E4]), historyClampMax)
	require.Greater(t, int(table[board.WhitePawn][board.E4]), 0)

	// Distinct (inCheck, isCapture) contexts own distinct tables.
	other := mo.GetContinuationHistoryTable(true, false, board.WhiteKnight, board.F3)
	require.Zero(t, int(other[board.WhitePawn][board.E4]))
}

func TestCountermoveHistoryContracting(t *testing.T) {
	mo := NewMoveOrderer()
	prev := board.NewMove(board.E7, board.E5)
	reply := board.NewMove(board.G1, board.F3)

	for i := 0; i < 1000; i++ {
		mo.UpdateCountermoveHistory(prev, reply, board.BlackPawn, board.WhiteKnight, 50, true)
	}
	score := mo.GetCountermoveHistoryScore(prev, board.BlackPawn, board.WhiteKnight, reply.To())
	require.LessOrEqual(t, score, historyClampMax)
	require.Greater(t, score, 0)
}

func TestCounterMoveTable(t *testing.T) {
	mo := NewMoveOrderer()
	pos := board.NewPosition()
	require.True(t, pos.MakeMove(board.NewMove(board.E2, board.E4)))

	prev := board.NewMove(board.E2, board.E4)
	counter := board.NewMove(board.E7, board.E5)
	mo.UpdateCounterMove(prev, counter, pos)
	require.Equal(t, counter, mo.GetCounterMove(prev, pos))

	mo.Clear()
	require.Equal(t, board.NoMove, mo.GetCounterMove(prev, pos))
}

func TestSharedHistoryContracting(t *testing.T) {
	sh := NewSharedHistory()

	for i := 0; i < 1000; i++ {
		sh.Update(int(board.E2), int(board.E4), 4096)
	}
	require.LessOrEqual(t, sh.Get(int(board.E2), int(board.E4)), historyClampMax)
	require.Greater(t, sh.Get(int(board.E2), int(board.E4)), 0)
}

func TestCorrectionHistoryBounded(t *testing.T) {
	ch := NewCorrectionHistory()
	pos := board.NewPosition()

	for i := 0; i < 2000; i++ {
		ch.Update(pos, 400, 0, 10)
	}
	// Get halves the sum of the pawn and the two non-pawn buckets; each
	// bucket is clamped, so the result stays within 1.5x the clamp.
	require.LessOrEqual(t, ch.Get(pos), 2*corrHistClampMax)

	ch.Clear()
	require.Zero(t, ch.Get(pos))
}

func TestLowPlyHistoryWindow(t *testing.T) {
	mo := NewMoveOrderer()
	m := board.NewMove(board.G1, board.F3)

	mo.UpdateLowPlyHistory(m, 1, 8, true)
	require.Greater(t, mo.GetLowPlyHistoryScore(m, 1), 0)
	require.Zero(t, mo.GetLowPlyHistoryScore(m, 2))

	// Past the low-ply window updates are dropped.
	mo.UpdateLowPlyHistory(m, lowPlyMax, 8, true)
	require.Zero(t, mo.GetLowPlyHistoryScore(m, lowPlyMax))
}

func TestKillersShift(t *testing.T) {
	mo := NewMoveOrderer()
	m1 := board.NewMove(board.E2, board.E4)
	m2 := board.NewMove(board.D2, board.D4)

	mo.UpdateKillers(m1, 3)
	mo.UpdateKillers(m2, 3)
	require.Equal(t, m2, mo.killers[3][0])
	require.Equal(t, m1, mo.killers[3][1])

	// Re-storing the first killer is a no-op.
	mo.UpdateKillers(m2, 3)
	require.Equal(t, m1, mo.killers[3][1])
}
