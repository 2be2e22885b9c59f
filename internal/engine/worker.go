package engine

import (
	"sync/atomic"

	"github.com/corvidchess/corvid/internal/board"
	"github.com/corvidchess/corvid/sfnnue"
)

// SearchStack stores per-ply search state for continuation history
// tracking and the pruning heuristics that look a few plies back.
type SearchStack struct {
	// Current move at this ply
	currentMove board.Move

	// Piece that moved at this ply
	movedPiece board.Piece

	// Destination square of the move
	moveTo board.Square

	// Pointer to continuation history table for this move's piece/to.
	// Used by child nodes to look up move patterns.
	continuationHistory *PieceToHistory

	// Killer move: the quiet move that most recently cut off here.
	killer board.Move

	// Statistical score for history-based decisions
	statScore int

	// Reduction applied at this ply (for hindsight depth adjustment)
	reduction int

	// Count of beta cutoffs at this ply (for LMR scaling)
	cutoffCnt int

	// Double-extension budget consumed along this line.
	doubleExtensions int
}

// Worker represents a search worker for parallel Lazy SMP search.
// Each worker has its own state but shares the transposition table and
// the cross-thread butterfly history.
type Worker struct {
	id int

	// Per-worker position copy
	pos *board.Position

	// Per-worker move ordering (killers stay local, history shared)
	orderer *MoveOrderer

	// Per-worker search state
	nodes uint64
	pv    PVTable

	// Per-worker stacks
	evalStack   [MaxPly]int
	searchStack [MaxPly]SearchStack

	// Per-worker position history for repetition detection.
	// Pre-allocated buffer avoids allocation per move in negamax.
	// Size: MaxPly (128) + 640 for root history = 768
	posHistoryBuffer [768]uint64
	posHistoryLen    int
	rootPosHashes    []uint64

	// Nodes spent under each root move in the current iteration, for
	// the node-count term of soft time management.
	rootMoveNodes map[board.Move]uint64

	// Multi-PV support: moves to exclude at root
	excludedRootMoves []board.Move

	// Shared resources (pointers to engine's shared state)
	tt            *TranspositionTable
	sharedHistory *SharedHistory
	corrHistory   *CorrectionHistory
	stopFlag      *atomic.Bool

	// NNUE evaluation (per-worker for thread safety)
	useNNUE   bool
	nnueNet   *sfnnue.Network
	nnueAcc   *sfnnue.AccumulatorStack
	nnueCache *sfnnue.AccumulatorCache

	// Pre-allocated buffer for active feature indices (avoids allocation
	// per computeAccumulator call).
	activeIndicesBuffer [64]int

	// Dirty piece tracking for incremental NNUE updates
	dirtyState DirtyState

	// Communication channel for results
	resultCh chan<- WorkerResult

	// Current search depth (for result reporting)
	depth int

	// Optimism tracking: material scaling includes an optimism term
	// based on the running average of root scores.
	optimism [2]int
	avgScore int

	// Root delta for LMR scaling: width of the initial aspiration
	// window at root, used to scale reductions.
	rootDelta int

	// NMP verification: null-move pruning is disabled below this ply
	// while a verification search runs, guarding against zugzwang.
	nmpMinPly int
}

// WorkerResult contains the result from a worker's search at a given depth.
type WorkerResult struct {
	WorkerID int
	Depth    int
	Score    int
	Move     board.Move
	PV       []board.Move
	Nodes    uint64

	// BestMoveNodes is the share of this iteration's nodes spent under
	// the best root move, for soft-time shaping.
	BestMoveNodes uint64
}

// NewWorker creates a new search worker.
func NewWorker(id int, tt *TranspositionTable, sharedHistory *SharedHistory, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		id:            id,
		orderer:       NewMoveOrderer(),
		tt:            tt,
		sharedHistory: sharedHistory,
		corrHistory:   NewCorrectionHistory(),
		stopFlag:      stopFlag,
	}
}

// initNNUE initializes NNUE evaluation for this worker.
func (w *Worker) initNNUE(net *sfnnue.Network) {
	w.nnueNet = net
	w.nnueAcc = sfnnue.NewAccumulatorStack()
	w.nnueCache = sfnnue.NewAccumulatorCache(sfnnue.TransformedFeatureDimensions, net.FeatureTransformer.Biases)
}

// ID returns the worker's ID.
func (w *Worker) ID() int {
	return w.id
}

// Nodes returns the number of nodes searched by this worker.
func (w *Worker) Nodes() uint64 {
	return w.nodes
}

// Reset resets the worker for a new search.
func (w *Worker) Reset() {
	w.nodes = 0
	w.nmpMinPly = 0
	w.orderer.Clear()
	for i := range w.searchStack {
		w.searchStack[i] = SearchStack{}
	}
	w.avgScore = -Infinity
	w.optimism[0] = 0
	w.optimism[1] = 0
}

// UpdateOptimism calculates optimism for the current iteration based on
// the running average root score. Called before each depth in iterative
// deepening.
func (w *Worker) UpdateOptimism() {
	avg := w.avgScore
	if avg == -Infinity {
		w.optimism[0] = 0
		w.optimism[1] = 0
		return
	}

	us := 0
	if w.pos.SideToMove == board.Black {
		us = 1
	}

	absAvg := avg
	if absAvg < 0 {
		absAvg = -absAvg
	}
	w.optimism[us] = (142 * avg) / (absAvg + 91)
	w.optimism[1-us] = -w.optimism[us]
}

// UpdateAvgScore updates the running average score after each iteration.
func (w *Worker) UpdateAvgScore(score int) {
	if w.avgScore == -Infinity {
		w.avgScore = score
	} else {
		w.avgScore = (score + w.avgScore) / 2
	}
}

// SetRootHistory sets the position history from the game (for repetition detection).
func (w *Worker) SetRootHistory(hashes []uint64) {
	w.rootPosHashes = make([]uint64, len(hashes))
	copy(w.rootPosHashes, hashes)
}

// SetResultChannel sets the channel for sending search results.
func (w *Worker) SetResultChannel(ch chan<- WorkerResult) {
	w.resultCh = ch
}

// SetExcludedMoves sets the moves to exclude at root (for Multi-PV).
func (w *Worker) SetExcludedMoves(moves []board.Move) {
	w.excludedRootMoves = moves
}

// InitSearch initializes the worker for a new search.
// pos must be a dedicated copy for this worker (not shared with other
// goroutines); the caller (engine.workerSearch) provides it.
func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos

	if w.nnueAcc != nil {
		w.nnueAcc.Reset()
	}

	// Initialize position history using the pre-allocated buffer.
	rootLen := len(w.rootPosHashes)
	if rootLen > 640 {
		rootLen = 640
		copy(w.posHistoryBuffer[:rootLen], w.rootPosHashes[len(w.rootPosHashes)-640:])
	} else {
		copy(w.posHistoryBuffer[:rootLen], w.rootPosHashes)
	}
	w.posHistoryBuffer[rootLen] = w.pos.Hash
	w.posHistoryLen = rootLen + 1

	w.rootMoveNodes = make(map[board.Move]uint64)
}

// Pos returns the current position (for debugging).
func (w *Worker) Pos() *board.Position {
	return w.pos
}

// SearchDepth performs search at the given depth and sends result via channel.
func (w *Worker) SearchDepth(depth, alpha, beta int) (board.Move, int) {
	w.depth = depth
	w.rootDelta = beta - alpha
	for k := range w.rootMoveNodes {
		delete(w.rootMoveNodes, k)
	}

	score := w.negamax(depth, 0, alpha, beta, board.NoMove, board.NoMove, false)

	var bestMove board.Move
	if w.pv.length[0] > 0 {
		bestMove = w.pv.moves[0][0]
	}

	// Safety fallback: if no PV but legal moves exist, use first legal move
	if bestMove == board.NoMove && !w.stopFlag.Load() {
		moves := w.pos.GenerateLegalMoves()
		if moves.Len() > 0 {
			bestMove = moves.Get(0)
		}
	}

	if w.resultCh != nil && !w.stopFlag.Load() {
		pv := make([]board.Move, w.pv.length[0])
		for i := 0; i < w.pv.length[0]; i++ {
			pv[i] = w.pv.moves[0][i]
		}
		w.resultCh <- WorkerResult{
			WorkerID:      w.id,
			Depth:         depth,
			Score:         score,
			Move:          bestMove,
			PV:            pv,
			Nodes:         w.nodes,
			BestMoveNodes: w.rootMoveNodes[bestMove],
		}
	}

	return bestMove, score
}

// evaluate returns the static evaluation from NNUE when a network is
// loaded and enabled, and a plain material count otherwise. An engine
// search started without a loaded network logs a warning and runs on
// this material fallback.
func (w *Worker) evaluate() int {
	if w.useNNUE && w.nnueNet != nil {
		return w.nnueEvaluate()
	}
	return materialBalance(w.pos)
}

// stopped returns true if search should stop.
func (w *Worker) stopped() bool {
	return w.stopFlag.Load()
}

// GetPV returns the principal variation from the last search.
func (w *Worker) GetPV() []board.Move {
	pv := make([]board.Move, w.pv.length[0])
	for i := 0; i < w.pv.length[0]; i++ {
		pv[i] = w.pv.moves[0][i]
	}
	return pv
}

// isExcludedRootMove checks if a move is in the excluded list (for Multi-PV).
func (w *Worker) isExcludedRootMove(move board.Move) bool {
	for _, excluded := range w.excludedRootMoves {
		if move == excluded {
			return true
		}
	}
	return false
}

// isDraw checks for draw by the fifty-move rule, insufficient material,
// or repetition against the game-plus-search history.
func (w *Worker) isDraw() bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}

	if w.pos.IsInsufficientMaterial() {
		return true
	}

	if w.posHistoryLen > 0 {
		currentHash := w.pos.Hash
		count := 0
		for i := 0; i < w.posHistoryLen; i++ {
			if w.posHistoryBuffer[i] == currentHash {
				count++
				if count >= 2 {
					return true
				}
			}
		}
	}

	return false
}

// contHistPlies are the ply distances whose continuation-history slices
// feed quiet-move scoring and updates; 3 and 5 are skipped since they
// span an opponent reply and add little signal over the nearer even
// plies.
var contHistPlies = [4]int{1, 2, 4, 6}

// gatherContHist collects the continuation-history slices owned by
// plies 1, 2, 4 and 6 back from ply.
func (w *Worker) gatherContHist(ply int) [4]*PieceToHistory {
	var out [4]*PieceToHistory
	for i, back := range contHistPlies {
		if ply-back >= 0 {
			out[i] = w.searchStack[ply-back].continuationHistory
		}
	}
	return out
}

// negamax implements the alpha-beta search. excludedMove is set during a
// singular-extension verification and skips that move; cutNode marks
// nodes where a beta cutoff is expected.
func (w *Worker) negamax(depth, ply int, alpha, beta int, prevMove, excludedMove board.Move, cutNode bool) int {
	// Bounds check to prevent array overflow (extensions can push ply
	// past depth). MaxPly-1 because pv.length[ply+1] is accessed below.
	if ply >= MaxPly-1 {
		return w.evaluate()
	}

	// Check for stop signal periodically
	if w.nodes&4095 == 0 && w.stopFlag.Load() {
		return 0
	}

	w.nodes++

	isPvNode := alpha < beta-1

	// Initialize PV length for this ply
	w.pv.length[ply] = ply

	if ply > 0 {
		if w.isDraw() {
			return 0
		}

		// Upcoming-repetition detection: if the side to move can force
		// a repetition from here, the node is worth at least a draw.
		if alpha < 0 && w.pos.HasCycle(ply) {
			alpha = 0
			if alpha >= beta {
				return alpha
			}
		}

		// Mate distance pruning: cap the window by the best/worst mate
		// scores still reachable from this ply.
		if mateLower := -MateScore + ply; alpha < mateLower {
			alpha = mateLower
		}
		if mateUpper := MateScore - ply - 1; beta > mateUpper {
			beta = mateUpper
		}
		if alpha >= beta {
			return alpha
		}
	}

	// Probe transposition table. Singular verification searches skip the
	// probe cutoff so the excluded move's entry can't short-circuit them.
	var ttMove board.Move
	ttPv := isPvNode
	ttEntry, found := w.tt.Probe(w.pos.Hash)
	if excludedMove != board.NoMove {
		found = false
	}
	if found {
		ttMove = ttEntry.BestMove
		ttPv = ttPv || ttEntry.IsPV()

		// TT moves can be corrupted by hash collisions or races;
		// validate before trusting one.
		if ttMove != board.NoMove && !w.pos.PseudoLegal(ttMove) {
			ttMove = board.NoMove
		}

		// Multi-PV: don't take TT cutoffs at root if the TT move is excluded
		ttCutoffAllowed := ply > 0 || !w.isExcludedRootMove(ttMove)

		if ttEntry.Depth() >= depth && ttCutoffAllowed && !isPvNode {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag() {
			case TTExact:
				return score
			case TTLowerBound:
				if score >= beta {
					return score
				}
			case TTUpperBound:
				if score <= alpha {
					return score
				}
			}
		}
	}

	// Quiescence search at depth 0
	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	inCheck := w.pos.InCheck()

	// Internal iterative reductions: with no TT move the first search
	// mostly seeds ordering, so shrink it — twice at cut nodes.
	if depth >= 4 && ttMove == board.NoMove && !inCheck {
		depth--
		if cutNode {
			depth--
		}
		if depth <= 0 {
			return w.quiescence(ply, alpha, beta)
		}
	}

	// Check extension
	extension := 0
	if inCheck {
		extension = 1
	}

	// Threat extension
	if EnableThreatExt && extension == 0 && depth >= threatExtensionMinDepth && ply > 0 {
		if w.detectSeriousThreats() {
			extension = 1
		}
	}

	// Static evaluation, adjusted by correction history.
	var rawEval, staticEval int
	if inCheck {
		rawEval = ScoreNone
		staticEval = ScoreNone
		w.evalStack[ply] = -Infinity
	} else {
		rawEval = w.evaluate()
		staticEval = rawEval + w.corrHistory.Get(w.pos)
		w.evalStack[ply] = staticEval
	}

	// Improving: compare against our eval 2 (or 4) plies ago.
	improving := false
	if !inCheck {
		if ply >= 2 && w.evalStack[ply-2] != -Infinity {
			improving = staticEval > w.evalStack[ply-2]
		} else if ply >= 4 && w.evalStack[ply-4] != -Infinity {
			improving = staticEval > w.evalStack[ply-4]
		}
	}

	// opponentWorsening: our eval improved versus their last eval.
	opponentWorsening := !inCheck && ply >= 1 && staticEval > -w.evalStack[ply-1]

	// Hindsight depth adjustment: correct this node's depth using how
	// the previous ply's reduction turned out.
	if EnableHindsightDepth && ply >= 1 && !inCheck {
		priorReduction := w.searchStack[ply-1].reduction
		if priorReduction >= 3 && !opponentWorsening {
			depth++
		}
		if priorReduction >= 2 && depth >= 2 && staticEval+w.evalStack[ply-1] > 173 {
			depth--
		}
	}

	// Reset grandchild cutoff count
	if ply+2 < MaxPly {
		w.searchStack[ply+2].cutoffCnt = 0
	}

	pruningAllowed := !isPvNode && !inCheck && excludedMove == board.NoMove && ply > 0

	// Reverse futility pruning: static eval so far above beta that a
	// shallow search will not bring it back down.
	if EnableRFP && pruningAllowed && depth <= rfpMaxDepth && ttMove == board.NoMove &&
		staticEval-rfpMargin(depth, improving) >= beta && staticEval < ScoreWin {
		return (staticEval + beta) / 2
	}

	// Razoring: eval hopelessly below alpha, drop into quiescence.
	if EnableRazoring && pruningAllowed && depth <= razoringDepth {
		razorMargin := 485 + 281*depth*depth
		if staticEval+razorMargin <= alpha {
			score := w.quiescence(ply, alpha, beta)
			if score <= alpha {
				return score
			}
		}
	}

	// Null move pruning: give the opponent a free move; if the position
	// still beats beta the real move certainly would.
	if EnableNMP && pruningAllowed && depth >= nmpMinDepth && staticEval >= beta &&
		ply >= w.nmpMinPly && w.pos.PliesFromNull() > 0 &&
		w.pos.HasNonPawnMaterial(w.pos.SideToMove) {
		evalTerm := (staticEval - beta) / nmpEvalDiv
		if evalTerm > nmpEvalCap {
			evalTerm = nmpEvalCap
		}
		R := nmpBase + depth/nmpDepthDiv + evalTerm
		if R > depth {
			R = depth
		}

		w.nnueNullPush()
		nullUndo := w.pos.MakeNullMove()
		nullScore := -w.negamax(depth-R, ply+1, -beta, -beta+1, board.NoMove, board.NoMove, !cutNode)
		w.pos.UnmakeNullMove(nullUndo)
		w.nnuePop()

		if nullScore >= beta {
			// Never return unproven mate scores from a null search.
			if nullScore >= ScoreWin {
				nullScore = beta
			}

			if w.nmpMinPly > 0 || depth < nmpVerifDepth {
				return nullScore
			}

			// Verification search with null moves locked out over the
			// first part of the remaining line, against zugzwang.
			w.nmpMinPly = ply + 3*(depth-R)/4
			verified := w.negamax(depth-R, ply, beta-1, beta, prevMove, board.NoMove, false)
			w.nmpMinPly = 0

			if verified >= beta {
				return nullScore
			}
		}
	}

	// ProbCut: a capture that beats beta by a margin at reduced depth is
	// overwhelmingly likely to hold at full depth.
	if EnableProbcut && pruningAllowed && depth >= probcutDepth &&
		abs(beta) < ScoreWin {
		adaptiveMargin := probcutMargin
		if improving {
			adaptiveMargin -= 63
		}
		probcutBeta := beta + adaptiveMargin
		probcutSearchDepth := depth - 4
		if probcutSearchDepth < 1 {
			probcutSearchDepth = 1
		}

		captures := w.pos.GenerateCaptures()
		for i := 0; i < captures.Len(); i++ {
			capture := captures.Get(i)
			// Only captures whose exchange already recovers the margin.
			if !board.SEEGE(w.pos, capture, probcutBeta-staticEval) {
				continue
			}

			w.computeDirtyPieces(capture)
			w.nnuePush()
			if !w.pos.MakeMove(capture) {
				w.nnuePop()
				continue
			}

			// Cheap qsearch filter before the reduced verification search.
			score := -w.quiescence(ply+1, -probcutBeta, -probcutBeta+1)
			if score >= probcutBeta {
				score = -w.negamax(probcutSearchDepth, ply+1, -probcutBeta, -probcutBeta+1, capture, board.NoMove, !cutNode)
			}

			w.pos.UnmakeMove(capture)
			w.nnuePop()

			if score >= probcutBeta {
				w.tt.Store(w.pos.Hash, probcutSearchDepth+1, AdjustScoreToTT(score, ply), TTLowerBound, capture, ttPv, rawEval)
				return score
			}
		}
	}

	// Futility pruning flag for the move loop.
	pruneQuietMoves := false
	if EnableFutilityPruning && pruningAllowed && depth <= 5 {
		futilityMargin := [6]int{0, 200, 300, 500, 700, 900}
		if staticEval+futilityMargin[depth] <= alpha {
			pruneQuietMoves = true
		}
	}

	// Singular extension: verify the TT move is uniquely good by
	// searching everything else against a lowered beta.
	singularExtension := 0
	if EnableSingularExt && depth >= singularMinDepth && ttMove != board.NoMove &&
		excludedMove == board.NoMove && found &&
		abs(int(ttEntry.Score)) < ScoreWin &&
		ttEntry.Depth() >= depth-3 &&
		(ttEntry.Flag() == TTLowerBound || ttEntry.Flag() == TTExact) {
		margin := 53
		if ttPv && !isPvNode {
			margin = 128
		}
		ttValue := AdjustScoreFromTT(int(ttEntry.Score), ply)
		singularBeta := ttValue - margin*depth/60

		singularDepth := (depth - 1) / 2
		singularScore := w.negamax(singularDepth, ply, singularBeta-1, singularBeta, prevMove, ttMove, cutNode)

		if singularScore < singularBeta {
			ttCapture := ttMove.IsCapture(w.pos)

			doubleMargin := -4
			if isPvNode {
				doubleMargin += 199
			}
			if !ttCapture {
				doubleMargin -= 201
			}

			tripleMargin := 73
			if isPvNode {
				tripleMargin += 302
			}
			if !ttCapture {
				tripleMargin -= 248
			}
			if ttPv {
				tripleMargin += 90
			}

			singularExtension = 1
			if singularScore < singularBeta-doubleMargin && w.searchStack[ply].doubleExtensions <= 12 {
				singularExtension = 2
				w.searchStack[ply].doubleExtensions++
			}
			if singularScore < singularBeta-tripleMargin {
				singularExtension = 3
			}
		} else if singularBeta >= beta {
			// Multi-cut: even with the TT move excluded the node beats
			// beta, so at least two moves fail high here.
			return singularBeta
		} else if ttValue >= beta {
			singularExtension = -3
		} else if cutNode {
			singularExtension = -2
		}
	}

	contHist := w.gatherContHist(ply)
	mp := NewMovePicker(w.pos, w.orderer, ttMove, ply, &contHist, false)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	movesSearched := 0

	// Moves searched without a cutoff, for the malus half of the
	// history update at a cutoff.
	var searchedQuiets [64]board.Move
	var searchedNoisies [32]board.Move
	numQuiets, numNoisies := 0, 0

	for {
		move, ok := mp.Next()
		if !ok {
			break
		}

		// Multi-PV: skip excluded moves at root
		if ply == 0 && w.isExcludedRootMove(move) {
			continue
		}

		// Singular verification: skip the excluded move
		if move == excludedMove {
			continue
		}

		isCapture := move.IsCapture(w.pos)
		isPromotion := move.IsPromotion()
		isQuiet := !isCapture && !isPromotion

		if ply > 0 && bestScore > -ScoreWin && w.pos.HasNonPawnMaterial(w.pos.SideToMove) {
			// Late move pruning: past the move-count threshold, stop
			// considering quiets altogether.
			if EnableLMP && !inCheck && depth <= lmpMaxDepth {
				improvingIdx := 0
				if improving {
					improvingIdx = 1
				}
				if movesSearched >= lmpThresholds[improvingIdx][depth] {
					mp.SkipQuiets()
				}
			}

			// Futility: quiets can't raise alpha from a hopeless eval.
			if EnableFutilityPruning && pruneQuietMoves && isQuiet && bestMove != board.NoMove {
				mp.SkipQuiets()
				continue
			}

			// SEE pruning: losing captures at shallow depths.
			if EnableSEEPruning && isCapture && depth <= 7 && !inCheck && movesSearched > 0 &&
				!board.SEEGE(w.pos, move, -20*depth*depth) {
				continue
			}

			// History pruning: quiets with clearly bad history.
			if EnableHistoryPruning && isQuiet && depth <= historyPruningDepth && !inCheck &&
				movesSearched > 0 && move != ttMove &&
				w.orderer.GetHistoryScore(move) < historyPruningThreshold {
				continue
			}
		}

		movingPiece := w.pos.PieceAt(move.From())
		moveTo := move.To()

		w.computeDirtyPieces(move)
		w.nnuePush()
		if !w.pos.MakeMove(move) {
			w.nnuePop()
			continue
		}

		// Store move info in search stack for continuation history
		w.searchStack[ply].currentMove = move
		w.searchStack[ply].movedPiece = movingPiece
		w.searchStack[ply].moveTo = moveTo
		w.searchStack[ply].continuationHistory = w.orderer.GetContinuationHistoryTable(inCheck, isCapture, movingPiece, moveTo)

		w.posHistoryBuffer[w.posHistoryLen] = w.pos.Hash
		w.posHistoryLen++
		movesSearched++

		nodesBefore := w.nodes

		var score int
		newDepth := depth - 1 + extension

		// Apply singular extension (positive) or negative extension
		if move == ttMove && singularExtension != 0 {
			newDepth += singularExtension
		}

		// Late move reductions
		doLMR := depth >= lmrMinDepth && movesSearched >= lmrMinMoves && !inCheck &&
			!(isPvNode && (isCapture || isPromotion))
		if doLMR {
			d := depth
			if d > 63 {
				d = 63
			}
			m := movesSearched
			if m > 63 {
				m = 63
			}
			reduction := lmrReductions[d][m]

			// Scale inversely with the root aspiration window: narrow
			// windows mean a confident position, reduce less.
			if w.rootDelta > 0 && w.rootDelta < Infinity {
				reduction -= (beta - alpha) * 608 / w.rootDelta / 1024
			}

			if !improving {
				reduction++
			}
			if cutNode {
				reduction += 2
			}
			if ttPv {
				reduction--
			}
			if isPvNode {
				reduction--
			}
			if move == w.searchStack[ply].killer {
				reduction--
			}

			// Cutoff-count scaling: a child ply that keeps cutting off
			// suggests this subtree is refuted anyway.
			if ply+1 < MaxPly && w.searchStack[ply+1].cutoffCnt > 2 {
				reduction++
			}

			// Combined history score shrinks or grows the reduction.
			if isQuiet {
				from := move.From()
				localHist := w.orderer.history[from][moveTo]
				sharedHist := w.sharedHistory.Get(int(from), int(moveTo))
				mainHist := (localHist + sharedHist) / 2

				statScore := 2 * mainHist
				if contHist[0] != nil {
					statScore += 2 * int(contHist[0][movingPiece][moveTo])
				}
				if contHist[1] != nil {
					statScore += int(contHist[1][movingPiece][moveTo])
				}
				w.searchStack[ply].statScore = statScore
				reduction -= statScore / lmrHistoryDiv
			}

			if reduction < 0 {
				reduction = 0
			}

			reducedDepth := newDepth - reduction
			if reducedDepth < 1 {
				reducedDepth = 1
			}

			w.searchStack[ply].reduction = reduction

			score = -w.negamax(reducedDepth, ply+1, -alpha-1, -alpha, move, board.NoMove, true)

			if score > alpha && reducedDepth < newDepth {
				// Fail-high at reduced depth: re-search, going one
				// deeper when the fail-high is convincing and one
				// shallower when it barely scraped past.
				deeper := score > bestScore+40+2*newDepth
				shallower := score < bestScore+9
				redoDepth := newDepth
				if deeper {
					redoDepth++
				} else if shallower {
					redoDepth--
				}
				score = -w.negamax(redoDepth, ply+1, -alpha-1, -alpha, move, board.NoMove, !cutNode)

				// Tell the continuations how the hindsight went.
				w.updateContinuationHistories(ply, movingPiece, moveTo, depth, score > alpha)
			}
			if score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove, false)
			}
		} else if movesSearched == 1 {
			// First move: full window
			score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove, false)
		} else {
			// Principal variation search: null window, re-search on improvement
			score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha, move, board.NoMove, !cutNode)
			if score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove, false)
			}
		}

		w.posHistoryLen--
		w.pos.UnmakeMove(move)
		w.nnuePop()

		if ply == 0 {
			w.rootMoveNodes[move] += w.nodes - nodesBefore
		}

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				w.pv.moves[ply][ply] = move
				for j := ply + 1; j < w.pv.length[ply+1]; j++ {
					w.pv.moves[ply][j] = w.pv.moves[ply+1][j]
				}
				w.pv.length[ply] = w.pv.length[ply+1]
			}
		}

		// Beta cutoff
		if score >= beta {
			if extension < 2 || isPvNode {
				w.searchStack[ply].cutoffCnt++
			}

			if ply == 0 && bestMove != board.NoMove {
				w.pv.moves[0][0] = bestMove
				w.pv.length[0] = 1
			}

			w.updateStats(bestMove, prevMove, ply, depth,
				searchedQuiets[:numQuiets], searchedNoisies[:numNoisies])

			if excludedMove == board.NoMove {
				w.tt.Store(w.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove, ttPv, rawEval)
			}

			return score
		}

		// Remember the move for the malus pass at a later cutoff.
		if isQuiet {
			if numQuiets < len(searchedQuiets) {
				searchedQuiets[numQuiets] = move
				numQuiets++
			}
		} else if numNoisies < len(searchedNoisies) {
			searchedNoisies[numNoisies] = move
			numNoisies++
		}
	}

	// No legal moves: checkmate or stalemate — unless a singular
	// verification excluded the only reply, which proves nothing.
	if movesSearched == 0 {
		if excludedMove != board.NoMove {
			return alpha
		}
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	// Correction history learns from quiet positions where the search
	// outcome refuted the static eval.
	if excludedMove == board.NoMove && !inCheck &&
		(bestMove == board.NoMove || bestMove.IsQuiet(w.pos)) &&
		!(flag == TTUpperBound && bestScore >= staticEval) {
		w.corrHistory.Update(w.pos, bestScore, rawEval, depth)
	}

	if excludedMove == board.NoMove {
		w.tt.Store(w.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove, ttPv, rawEval)
	}

	return bestScore
}

// updateStats rewards the cutoff move's histories and penalises the
// moves searched before it.
func (w *Worker) updateStats(bestMove, prevMove board.Move, ply, depth int, searchedQuiets, searchedNoisies []board.Move) {
	pos := w.pos

	if bestMove.IsCapture(pos) {
		attackerPiece := pos.PieceAt(bestMove.From())
		w.orderer.UpdateCaptureHistory(attackerPiece, bestMove.To(), capturedType(pos, bestMove), depth, true)
	} else {
		w.orderer.UpdateKillers(bestMove, ply)
		w.searchStack[ply].killer = bestMove
		w.orderer.UpdateHistory(bestMove, depth, true)
		w.orderer.UpdateLowPlyHistory(bestMove, ply, depth, true)
		w.sharedHistory.Update(int(bestMove.From()), int(bestMove.To()), depth*depth)
		w.orderer.UpdateCounterMove(prevMove, bestMove, pos)

		if prevMove != board.NoMove {
			prevPiece := pos.PieceAt(prevMove.To())
			movePiece := pos.PieceAt(bestMove.From())
			w.orderer.UpdateCountermoveHistory(prevMove, bestMove, prevPiece, movePiece, depth, true)
		}

		w.updateContinuationHistories(ply, pos.PieceAt(bestMove.From()), bestMove.To(), depth, true)

		// Malus: quiets searched before the cutoff move learn they did
		// not refute this position.
		for _, m := range searchedQuiets {
			if m == bestMove {
				continue
			}
			w.orderer.UpdateHistory(m, depth, false)
			w.orderer.UpdateLowPlyHistory(m, ply, depth, false)
			w.updateContinuationHistories(ply, pos.PieceAt(m.From()), m.To(), depth, false)
		}
	}

	for _, m := range searchedNoisies {
		if m == bestMove || !m.IsCapture(pos) {
			continue
		}
		w.orderer.UpdateCaptureHistory(pos.PieceAt(m.From()), m.To(), capturedType(pos, m), depth, false)
	}
}

// capturedType returns the piece type a capture removes.
func capturedType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	captured := pos.PieceAt(m.To())
	if captured == board.NoPiece {
		return board.NoPieceType
	}
	return captured.Type()
}

// quiescence searches captures to avoid horizon effect.
func (w *Worker) quiescence(ply int, alpha, beta int) int {
	return w.quiescenceInternal(ply, 0, alpha, beta)
}

// quiescenceInternal is the internal quiescence search with qPly tracking.
func (w *Worker) quiescenceInternal(ply, qPly int, alpha, beta int) int {
	const maxQuiescencePly = 32
	if ply >= MaxPly || qPly > maxQuiescencePly {
		return w.evaluate()
	}

	if w.stopFlag.Load() {
		return 0
	}

	w.nodes++
	originalAlpha := alpha

	// TT probe: quiescence stores with depth 0, so any entry suffices.
	var ttMove board.Move
	ttEntry, ttHit := w.tt.Probe(w.pos.Hash)
	if ttHit {
		ttMove = ttEntry.BestMove
		if ttMove != board.NoMove && !w.pos.PseudoLegal(ttMove) {
			ttMove = board.NoMove
		}
		if ttEntry.Depth() >= 0 {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag() {
			case TTExact:
				return score
			case TTLowerBound:
				if score >= beta {
					return score
				}
			case TTUpperBound:
				if score <= alpha {
					return score
				}
			}
		}
	}

	inCheck := w.pos.InCheck()

	var standPat, bestValue int
	var bestMove board.Move

	if inCheck {
		// No standing pat in check: a move must be found or it's mate.
		bestValue = -MateScore + ply
		standPat = bestValue
	} else {
		// Lazy evaluation cutoff before the full network runs.
		lazyEval := materialBalance(w.pos)
		if lazyEval-lazyEvalMargin >= beta {
			return beta
		}
		if lazyEval+lazyEvalMargin <= alpha {
			return alpha
		}

		standPat = w.evaluate() + w.corrHistory.Get(w.pos)
		bestValue = standPat

		if standPat >= beta {
			w.tt.Store(w.pos.Hash, 0, AdjustScoreToTT(standPat, ply), TTLowerBound, board.NoMove, false, standPat)
			return standPat
		}

		if standPat > alpha {
			alpha = standPat
		}

		// Big delta pruning: even a free queen can't raise alpha.
		if standPat+QueenValue < alpha {
			return alpha
		}
	}

	mp := NewMovePicker(w.pos, w.orderer, ttMove, ply, nil, !inCheck)

	movesSearched := 0
	quietEvasions := 0

	for {
		move, ok := mp.Next()
		if !ok {
			break
		}

		// Cap quiet check evasions: past two, trust that the line is
		// lost rather than walking the whole evasion tree.
		if inCheck && move.IsQuiet(w.pos) {
			if quietEvasions >= 2 && bestValue > -ScoreWin {
				break
			}
			quietEvasions++
		}

		// Pruning only when not in check and the move is a capture.
		if !inCheck && move.IsCapture(w.pos) {
			captureValue := qsCaptureValue(w.pos, move)
			futilityBase := standPat + 351

			// Futility: even winning this exchange can't reach alpha.
			floor := standPat
			if bestValue < floor {
				floor = bestValue
			}
			if floor+captureValue+200 <= alpha && !move.IsPromotion() {
				if futilityBase+captureValue > bestValue {
					bestValue = futilityBase + captureValue
				}
				continue
			}

			// SEE pruning: skip losing captures.
			seeValue := board.SEE(w.pos, move)
			if seeValue < 0 {
				continue
			}

			if futilityBase+seeValue <= alpha {
				if futilityBase > bestValue {
					bestValue = futilityBase
				}
				continue
			}

			// Move-count pruning against alpha for late ordinals.
			if movesSearched >= 3 && standPat+captureValue <= alpha {
				continue
			}
		}

		w.computeDirtyPieces(move)
		w.nnuePush()
		if !w.pos.MakeMove(move) {
			w.nnuePop()
			continue
		}
		movesSearched++

		score := -w.quiescenceInternal(ply+1, qPly+1, -beta, -alpha)
		w.pos.UnmakeMove(move)
		w.nnuePop()

		if score > bestValue {
			bestValue = score
			bestMove = move

			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	// Checkmate: in check with no legal moves searched.
	if inCheck && movesSearched == 0 {
		return -MateScore + ply
	}

	var ttFlag TTFlag
	if bestValue >= beta {
		ttFlag = TTLowerBound
	} else if bestValue > originalAlpha {
		ttFlag = TTExact
	} else {
		ttFlag = TTUpperBound
	}
	w.tt.Store(w.pos.Hash, 0, AdjustScoreToTT(bestValue, ply), ttFlag, bestMove, false, standPat)

	return bestValue
}

// qsCaptureValue returns the material value of a capture for QS pruning.
func qsCaptureValue(pos *board.Position, move board.Move) int {
	var value int
	if move.IsEnPassant() {
		value = PawnValue
	} else {
		captured := pos.PieceAt(move.To())
		if captured != board.NoPiece {
			value = pieceValues[captured.Type()]
		}
	}
	if move.IsPromotion() {
		value += pieceValues[move.Promotion()] - PawnValue
	}
	return value
}

// detectSeriousThreats checks if the opponent has serious threats
// against our pieces: a hanging piece worth a rook or more, or a heavy
// piece attacked by something cheaper.
func (w *Worker) detectSeriousThreats() bool {
	pos := w.pos
	us := pos.SideToMove
	them := us.Other()
	occupied := pos.AllOccupied

	enemyPawnAttacks := computePawnAttacksBB(pos, them)
	enemyKnightAttacks := computeKnightAttacksBB(pos, them)
	enemyBishopAttacks := computeBishopAttacksBB(pos, them, occupied)
	enemyRookAttacks := computeRookAttacksBB(pos, them, occupied)
	enemyQueenAttacks := computeQueenAttacksBB(pos, them, occupied)

	enemyAttacks := enemyPawnAttacks | enemyKnightAttacks | enemyBishopAttacks |
		enemyRookAttacks | enemyQueenAttacks

	ourPawnAttacks := computePawnAttacksBB(pos, us)
	ourKnightAttacks := computeKnightAttacksBB(pos, us)
	ourBishopAttacks := computeBishopAttacksBB(pos, us, occupied)
	ourRookAttacks := computeRookAttacksBB(pos, us, occupied)
	ourQueenAttacks := computeQueenAttacksBB(pos, us, occupied)
	ourKingAttacks := board.KingAttacks(pos.KingSquare[us])

	ourDefenses := ourPawnAttacks | ourKnightAttacks | ourBishopAttacks |
		ourRookAttacks | ourQueenAttacks | ourKingAttacks

	ourPieces := pos.Occupied[us] &^ board.SquareBB(pos.KingSquare[us])

	hangingPieces := ourPieces & enemyAttacks & ^ourDefenses

	for hangingPieces != 0 {
		sq := hangingPieces.PopLSB()
		piece := pos.PieceAt(sq)
		if piece != board.NoPiece && pieceValues[piece.Type()] >= threatExtensionThreshold {
			return true
		}
	}

	queens := pos.Pieces[us][board.Queen]
	if queens&(enemyPawnAttacks|enemyKnightAttacks|enemyBishopAttacks|enemyRookAttacks) != 0 {
		return true
	}

	rooks := pos.Pieces[us][board.Rook]
	if rooks&(enemyPawnAttacks|enemyKnightAttacks|enemyBishopAttacks) != 0 {
		return true
	}

	return false
}

func computePawnAttacksBB(pos *board.Position, c board.Color) board.Bitboard {
	var attacks board.Bitboard
	bb := pos.Pieces[c][board.Pawn]
	for bb != 0 {
		attacks |= board.PawnAttacks(bb.PopLSB(), c)
	}
	return attacks
}

func computeKnightAttacksBB(pos *board.Position, c board.Color) board.Bitboard {
	var attacks board.Bitboard
	bb := pos.Pieces[c][board.Knight]
	for bb != 0 {
		attacks |= board.KnightAttacks(bb.PopLSB())
	}
	return attacks
}

func computeBishopAttacksBB(pos *board.Position, c board.Color, occupied board.Bitboard) board.Bitboard {
	var attacks board.Bitboard
	bb := pos.Pieces[c][board.Bishop]
	for bb != 0 {
		attacks |= board.BishopAttacks(bb.PopLSB(), occupied)
	}
	return attacks
}

func computeRookAttacksBB(pos *board.Position, c board.Color, occupied board.Bitboard) board.Bitboard {
	var attacks board.Bitboard
	bb := pos.Pieces[c][board.Rook]
	for bb != 0 {
		attacks |= board.RookAttacks(bb.PopLSB(), occupied)
	}
	return attacks
}

func computeQueenAttacksBB(pos *board.Position, c board.Color, occupied board.Bitboard) board.Bitboard {
	var attacks board.Bitboard
	bb := pos.Pieces[c][board.Queen]
	for bb != 0 {
		attacks |= board.QueenAttacks(bb.PopLSB(), occupied)
	}
	return attacks
}

// updateContinuationHistories updates continuation history at plies
// 1, 2, 4 and 6 back from the current ply.
func (w *Worker) updateContinuationHistories(ply int, piece board.Piece, toSq board.Square, depth int, isGood bool) {
	for _, plyBack := range contHistPlies {
		targetPly := ply - plyBack
		if targetPly < 0 {
			continue
		}

		ss := &w.searchStack[targetPly]
		if ss.currentMove == board.NoMove || ss.movedPiece == board.NoPiece {
			continue
		}

		w.orderer.UpdateContinuationHistory(ss.continuationHistory, piece, toSq, depth, plyBack, isGood)
	}
}
