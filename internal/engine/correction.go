package engine

import (
	"github.com/corvidchess/corvid/internal/board"
)

// correctionEntries is the table size for each correction bucket,
// indexed by hash mod correctionEntries.
const correctionEntries = 16384

// CorrectionHistory adjusts static evaluation based on search results.
// When the search discovers the static eval was wrong, it records the
// error and applies corrections to similar positions in the future.
// Split pawn / non-pawn per side to move, following Stockfish's
// correction history: pawn structure and piece placement drift at
// different rates, so mixing them into one bucket dilutes both signals.
type CorrectionHistory struct {
	pawn    [2][correctionEntries]int
	nonPawn [2][2][correctionEntries]int
}

// NewCorrectionHistory creates a new correction history table.
func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

// Get returns the correction value to add to the static evaluation.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	us := pos.SideToMove
	pawnIdx := pos.PawnKey % correctionEntries
	total := ch.pawn[us][pawnIdx]
	for side := board.White; side <= board.Black; side++ {
		idx := pos.NonPawnKey[side] % correctionEntries
		total += ch.nonPawn[us][side][idx]
	}
	return total / 2
}

// Update records a correction based on the difference between the
// search result and the static evaluation, using the bounded-drift
// rule new = old + bonus - old*|bonus|/ClampMax so entries saturate
// near +-ClampMax instead of overflowing.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}

	weight := depth*depth + 1
	if weight > 128 {
		weight = 128
	}
	diff := searchScore - staticEval
	bonus := clampInt(diff*weight/128, -corrHistClampMax/4, corrHistClampMax/4)

	us := pos.SideToMove
	pawnIdx := pos.PawnKey % correctionEntries
	updateGravity(&ch.pawn[us][pawnIdx], bonus, corrHistClampMax)

	for side := board.White; side <= board.Black; side++ {
		idx := pos.NonPawnKey[side] % correctionEntries
		updateGravity(&ch.nonPawn[us][side][idx], bonus, corrHistClampMax)
	}
}

// Clear resets all correction values.
func (ch *CorrectionHistory) Clear() {
	ch.pawn = [2][correctionEntries]int{}
	ch.nonPawn = [2][2][correctionEntries]int{}
}
