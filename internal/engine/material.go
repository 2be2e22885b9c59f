package engine

import "github.com/corvidchess/corvid/internal/board"

// Piece values used by SEE-adjacent pruning heuristics (QS delta/futility
// margins, threat detection) and move ordering — not by the evaluator,
// which is NNUE-only.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// materialBalance returns the side-to-move-relative material count,
// used as a cheap lazy-eval gate before the full NNUE evaluation runs.
func materialBalance(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pos.Pieces[board.White][pt].PopCount() * pieceValues[pt]
		score -= pos.Pieces[board.Black][pt].PopCount() * pieceValues[pt]
	}
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}
