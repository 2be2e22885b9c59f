package engine

import (
	"sync/atomic"

	"github.com/corvidchess/corvid/internal/board"
)

// PieceToHistory is one continuation-history slice: the historical score
// of playing (piece, to) given some earlier (piece, to) pair. Entries are
// int16 and updated with the bounded-drift rule, so they saturate near
// +-historyClampMax without explicit clamping at every read.
type PieceToHistory [12][64]int16

// SharedHistory is a from-to butterfly history shared by all workers.
// Entries are plain atomics; lost updates under contention are tolerated
// the same way transposition-table races are.
type SharedHistory struct {
	table [64 * 64]atomic.Int32
}

// NewSharedHistory creates an empty shared history.
func NewSharedHistory() *SharedHistory {
	return &SharedHistory{}
}

// Get returns the shared history score for a from-to pair.
func (sh *SharedHistory) Get(from, to int) int {
	return int(sh.table[from*64+to].Load())
}

// Update applies a bounded-drift bonus to a from-to pair.
func (sh *SharedHistory) Update(from, to, bonus int) {
	e := &sh.table[from*64+to]
	old := int(e.Load())
	delta := bonus - old*abs(bonus)/historyClampMax
	e.Store(int32(clampInt(old+delta, -historyClampMax, historyClampMax)))
}

// Clear zeroes the table.
func (sh *SharedHistory) Clear() {
	for i := range sh.table {
		sh.table[i].Store(0)
	}
}

// lowPlyMax is the number of plies from root that keep a dedicated
// per-ply history, sharpening root-area move ordering where the same
// few moves recur across iterations.
const lowPlyMax = 4

// GetContinuationHistoryTable returns the continuation-history slice a
// child node consults for moves following (piece, to), split by whether
// the mover was in check and whether the move was a capture.
func (mo *MoveOrderer) GetContinuationHistoryTable(inCheck, isCapture bool, piece board.Piece, to board.Square) *PieceToHistory {
	ck, cp := 0, 0
	if inCheck {
		ck = 1
	}
	if isCapture {
		cp = 1
	}
	return &mo.continuationHistory[ck][cp][piece][to]
}

// UpdateContinuationHistory applies a bounded-drift bonus for playing
// (piece, to) after the earlier (prevPiece, prevTo). More distant plies
// get a weaker bonus.
func (mo *MoveOrderer) UpdateContinuationHistory(table *PieceToHistory, piece board.Piece, to board.Square, depth, plyBack int, isGood bool) {
	if table == nil || piece == board.NoPiece {
		return
	}

	bonus := clampInt(depth*depth, 0, historyClampMax/4)
	if plyBack > 2 {
		bonus /= 2
	}
	if !isGood {
		bonus = -bonus
	}

	entry := &table[piece][to]
	old := int(*entry)
	delta := bonus - old*abs(bonus)/historyClampMax
	*entry = int16(clampInt(old+delta, -historyClampMax, historyClampMax))
}

// GetLowPlyHistoryScore returns the per-ply history score for a move at
// a low ply, or zero past the low-ply window.
func (mo *MoveOrderer) GetLowPlyHistoryScore(m board.Move, ply int) int {
	if ply >= lowPlyMax {
		return 0
	}
	return mo.lowPlyHistory[ply][int(m.From())*64+int(m.To())]
}

// UpdateLowPlyHistory applies a bounded-drift bonus to the per-ply
// history for a move at a low ply.
func (mo *MoveOrderer) UpdateLowPlyHistory(m board.Move, ply, depth int, isGood bool) {
	if ply >= lowPlyMax {
		return
	}
	bonus := clampInt(depth*depth, 0, historyClampMax/4)
	if !isGood {
		bonus = -bonus
	}
	updateGravity(&mo.lowPlyHistory[ply][int(m.From())*64+int(m.To())], bonus, historyClampMax)
}
