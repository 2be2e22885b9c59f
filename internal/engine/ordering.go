package engine

import (
	"github.com/corvidchess/corvid/internal/board"
)

// GoodCaptureBase lifts scored evasion captures above quiet evasions so
// in-check batches keep captures first.
const GoodCaptureBase = 1000000

// historyClampMax and corrHistClampMax bound the history and correction
// tables' bounded-drift updates: new = old + bonus - old*|bonus|/ClampMax,
// which saturates entries near +-ClampMax rather than overflowing.
const (
	historyClampMax  = 16384
	corrHistClampMax = 16384
)

// updateGravity applies the bounded-drift rule to entry in place.
func updateGravity(entry *int, bonus, clampMax int) {
	old := *entry
	delta := bonus - old*abs(bonus)/clampMax
	*entry = clampInt(old+delta, -clampMax, clampMax)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MoveOrderer handles move ordering for the search.
type MoveOrderer struct {
	// Killer moves (quiet moves that caused beta cutoffs)
	killers [MaxPly][2]board.Move

	// History heuristic (indexed by [from][to])
	history [64][64]int

	// Counter move heuristic (indexed by [piece][to])
	counterMoves [12][64]board.Move

	// Capture history (indexed by [attackerPiece][toSquare][capturedPieceType])
	captureHistory [12][64][6]int

	// Countermove history (indexed by [prevPiece][prevTo][movePiece][moveTo])
	countermoveHistory [12][64][12][64]int

	// Continuation history, split by whether the earlier mover was in
	// check and whether its move was a capture; consulted via the search
	// stack's per-ply table pointers at plies 1, 2, 4 and 6 back.
	continuationHistory [2][2][12][64]PieceToHistory

	// Per-ply history for plies near the root.
	lowPlyHistory [lowPlyMax][64 * 64]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets the move orderer for a new search. The history tables
// themselves are left alone: the bounded-drift update rule already
// keeps them saturated near +-ClampMax, so periodic halving isn't
// needed between searches the way it was under the old additive scheme.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}

	for i := range mo.counterMoves {
		for j := range mo.counterMoves[i] {
			mo.counterMoves[i][j] = board.NoMove
		}
	}
}

// ScoreNoisy returns the ordering score for a capture, promotion or en
// passant: a victim-value multiple plus capture history, or the promoted
// piece's value for quiet promotions.
func (mo *MoveOrderer) ScoreNoisy(pos *board.Position, m board.Move) int {
	if !m.IsCapture(pos) {
		return pieceValues[m.Promotion()]
	}

	var victim board.PieceType
	if m.IsEnPassant() {
		victim = board.Pawn
	} else {
		victim = pos.PieceAt(m.To()).Type()
	}

	score := 8 * pieceValues[victim]
	score += mo.GetCaptureHistoryScore(pos.PieceAt(m.From()), m.To(), victim)
	if m.IsPromotion() {
		score += pieceValues[m.Promotion()]
	}
	return score
}

// ScoreQuiet returns the ordering score for a quiet move: twice the main
// history, the continuation histories owned by plies 1, 2, 4 and 6 back
// (the nearest weighted double), low-ply history near the root, and a
// bonus for moves that give check.
func (mo *MoveOrderer) ScoreQuiet(pos *board.Position, m board.Move, ply int, contHist *[4]*PieceToHistory) int {
	piece := pos.PieceAt(m.From())
	to := m.To()

	score := 2 * mo.history[m.From()][to]
	if contHist != nil {
		if contHist[0] != nil {
			score += 2 * int(contHist[0][piece][to])
		}
		if contHist[1] != nil {
			score += int(contHist[1][piece][to])
		}
		if contHist[2] != nil {
			score += int(contHist[2][piece][to])
		}
		if contHist[3] != nil {
			score += int(contHist[3][piece][to])
		}
	}

	if ply < lowPlyMax {
		score += 4 * mo.GetLowPlyHistoryScore(m, ply) / (1 + ply)
	}

	if piece != board.NoPiece && pos.CheckSquares(piece.Type())&board.SquareBB(to) != 0 {
		score += 10000
	}

	return score
}

// SortMoves sorts moves by their scores (descending).
func SortMoves(moves *board.MoveList, scores []int) {
	// Simple selection sort (sufficient for ~40 moves)
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			// Swap moves
			moves.Swap(i, best)
			// Swap scores
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove selects the best remaining move and moves it to position index.
// This allows lazy move sorting (only sort as much as needed).
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers adds a killer move at the given ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	// Ignore plies beyond the killer table
	if ply >= MaxPly {
		return
	}

	// Don't store if it's already the first killer
	if mo.killers[ply][0] == m {
		return
	}

	// Shift killers
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory updates the history score for a move using the
// bounded-drift rule new = old + bonus - old*|bonus|/ClampMax.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int, isGood bool) {
	bonus := clampInt(depth*depth, 0, historyClampMax/4)
	if !isGood {
		bonus = -bonus
	}
	updateGravity(&mo.history[m.From()][m.To()], bonus, historyClampMax)
}

// UpdateCounterMove updates the counter move table.
func (mo *MoveOrderer) UpdateCounterMove(prevMove, counterMove board.Move, pos *board.Position) {
	if prevMove == board.NoMove {
		return
	}

	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return
	}

	mo.counterMoves[piece][prevMove.To()] = counterMove
}

// GetCounterMove returns the counter move for a previous move.
func (mo *MoveOrderer) GetCounterMove(prevMove board.Move, pos *board.Position) board.Move {
	if prevMove == board.NoMove {
		return board.NoMove
	}

	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return board.NoMove
	}

	return mo.counterMoves[piece][prevMove.To()]
}

// GetHistoryScore returns the history score for a move.
// Used for history pruning in search.
func (mo *MoveOrderer) GetHistoryScore(m board.Move) int {
	return mo.history[m.From()][m.To()]
}

// UpdateCaptureHistory updates the capture history for a move using
// the bounded-drift rule.
func (mo *MoveOrderer) UpdateCaptureHistory(attackerPiece board.Piece, toSq board.Square, capturedType board.PieceType, depth int, isGood bool) {
	if attackerPiece == board.NoPiece || capturedType >= board.King {
		return
	}

	bonus := clampInt(depth*depth, 0, historyClampMax/4)
	if !isGood {
		bonus = -bonus
	}
	updateGravity(&mo.captureHistory[attackerPiece][toSq][capturedType], bonus, historyClampMax)
}

// GetCaptureHistoryScore returns the capture history score for a capture move.
func (mo *MoveOrderer) GetCaptureHistoryScore(attackerPiece board.Piece, toSq board.Square, capturedType board.PieceType) int {
	if attackerPiece == board.NoPiece || capturedType >= board.King {
		return 0
	}
	return mo.captureHistory[attackerPiece][toSq][capturedType]
}

// UpdateCountermoveHistory updates the countermove history for a quiet
// move using the bounded-drift rule.
func (mo *MoveOrderer) UpdateCountermoveHistory(prevMove, goodMove board.Move, prevPiece, movePiece board.Piece, depth int, isGood bool) {
	if prevMove == board.NoMove || prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return
	}

	bonus := clampInt(depth*depth, 0, historyClampMax/4)
	if !isGood {
		bonus = -bonus
	}
	updateGravity(&mo.countermoveHistory[prevPiece][prevMove.To()][movePiece][goodMove.To()], bonus, historyClampMax)
}

// GetCountermoveHistoryScore returns the CMH score for a move given the previous move.
func (mo *MoveOrderer) GetCountermoveHistoryScore(prevMove board.Move, prevPiece, movePiece board.Piece, moveTo board.Square) int {
	if prevMove == board.NoMove || prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return 0
	}
	return mo.countermoveHistory[prevPiece][prevMove.To()][movePiece][moveTo]
}
