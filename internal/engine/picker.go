package engine

import "github.com/corvidchess/corvid/internal/board"

// pickerStage tracks where a MovePicker is in its emission sequence.
type pickerStage uint8

const (
	stageTTMove pickerStage = iota
	stageGenNoisy
	stageGoodNoisy
	stageKiller
	stageGenQuiet
	stagePlayQuiet
	stageStartBadNoisy
	stageBadNoisy
	stageEnd
)

// MovePicker streams legal moves in search order without presorting:
// TT move, then winning/equal captures, killer, quiets by history, and
// finally the losing captures deferred earlier. Each stage selection-
// sorts on demand, so a node that cuts off early never pays for
// ordering moves it will not search.
//
// In check, every legal evasion is emitted through the noisy stages in
// one scored batch. Quiescence passes skipQuiets to omit the quiet
// stages when not in check.
type MovePicker struct {
	pos     *board.Position
	orderer *MoveOrderer

	ttMove  board.Move
	killers [2]board.Move
	ply     int

	contHist   *[4]*PieceToHistory
	skipQuiets bool
	inCheck    bool

	stage pickerStage

	noisy       *board.MoveList
	noisyScores []int
	noisyIdx    int

	badNoisy    []board.Move
	badScores   []int
	badNoisyIdx int

	quiets      *board.MoveList
	quietScores []int
	quietIdx    int

	killerIdx int
}

// NewMovePicker prepares a picker for one node. contHist carries the
// continuation-history slices owned by plies 1, 2, 4 and 6 back; it may
// be nil in quiescence.
func NewMovePicker(pos *board.Position, orderer *MoveOrderer, ttMove board.Move, ply int, contHist *[4]*PieceToHistory, skipQuiets bool) *MovePicker {
	mp := &MovePicker{
		pos:        pos,
		orderer:    orderer,
		ttMove:     ttMove,
		ply:        ply,
		contHist:   contHist,
		skipQuiets: skipQuiets,
		inCheck:    pos.InCheck(),
		stage:      stageTTMove,
	}
	if ply < MaxPly {
		mp.killers = orderer.killers[ply]
	}
	return mp
}

// SkipQuiets stops the quiet stages from emitting further moves; the
// bad-noisy tail still plays. Used by late-move pruning.
func (mp *MovePicker) SkipQuiets() {
	mp.skipQuiets = true
}

// Next returns the next move to search, or (NoMove, false) when the
// node is exhausted. Every returned move is legal; TT and killer moves
// are emitted once and suppressed from the generated batches.
func (mp *MovePicker) Next() (board.Move, bool) {
	for {
		switch mp.stage {
		case stageTTMove:
			mp.stage = stageGenNoisy
			m := mp.ttMove
			if m != board.NoMove && mp.pos.PseudoLegal(m) && mp.pos.IsLegal(m) {
				if !mp.skipQuiets || !m.IsQuiet(mp.pos) || mp.inCheck {
					return m, true
				}
			}
			mp.ttMove = board.NoMove

		case stageGenNoisy:
			if mp.inCheck {
				// Evasions: one scored batch of every legal move.
				mp.noisy = mp.pos.GenerateLegalMoves()
				mp.noisyScores = make([]int, mp.noisy.Len())
				for i := 0; i < mp.noisy.Len(); i++ {
					m := mp.noisy.Get(i)
					if m.IsQuiet(mp.pos) {
						mp.noisyScores[i] = mp.orderer.ScoreQuiet(mp.pos, m, mp.ply, mp.contHist)
					} else {
						mp.noisyScores[i] = GoodCaptureBase + mp.orderer.ScoreNoisy(mp.pos, m)
					}
				}
			} else {
				mp.noisy = mp.pos.GenerateCaptures()
				mp.noisyScores = make([]int, mp.noisy.Len())
				for i := 0; i < mp.noisy.Len(); i++ {
					mp.noisyScores[i] = mp.orderer.ScoreNoisy(mp.pos, mp.noisy.Get(i))
				}
			}
			mp.stage = stageGoodNoisy

		case stageGoodNoisy:
			for mp.noisyIdx < mp.noisy.Len() {
				PickMove(mp.noisy, mp.noisyScores, mp.noisyIdx)
				m := mp.noisy.Get(mp.noisyIdx)
				score := mp.noisyScores[mp.noisyIdx]
				mp.noisyIdx++

				if m == mp.ttMove {
					continue
				}

				// Losing captures wait until the quiets have played.
				if !mp.inCheck && !board.SEEGE(mp.pos, m, -score/4) {
					mp.badNoisy = append(mp.badNoisy, m)
					mp.badScores = append(mp.badScores, score)
					continue
				}
				return m, true
			}
			if mp.inCheck {
				// Evasion batches already covered every legal move.
				mp.stage = stageEnd
				continue
			}
			mp.stage = stageKiller

		case stageKiller:
			for mp.killerIdx < 2 {
				m := mp.killers[mp.killerIdx]
				mp.killerIdx++
				if mp.skipQuiets || m == board.NoMove || m == mp.ttMove {
					continue
				}
				if m.IsQuiet(mp.pos) && mp.pos.PseudoLegal(m) && mp.pos.IsLegal(m) {
					return m, true
				}
			}
			mp.stage = stageGenQuiet

		case stageGenQuiet:
			if mp.skipQuiets {
				mp.stage = stageStartBadNoisy
				continue
			}
			mp.quiets = mp.pos.GenerateQuietMoves()
			mp.quietScores = make([]int, mp.quiets.Len())
			for i := 0; i < mp.quiets.Len(); i++ {
				mp.quietScores[i] = mp.orderer.ScoreQuiet(mp.pos, mp.quiets.Get(i), mp.ply, mp.contHist)
			}
			mp.stage = stagePlayQuiet

		case stagePlayQuiet:
			for !mp.skipQuiets && mp.quietIdx < mp.quiets.Len() {
				PickMove(mp.quiets, mp.quietScores, mp.quietIdx)
				m := mp.quiets.Get(mp.quietIdx)
				mp.quietIdx++
				if m == mp.ttMove || m == mp.killers[0] || m == mp.killers[1] {
					continue
				}
				return m, true
			}
			mp.stage = stageStartBadNoisy

		case stageStartBadNoisy:
			mp.stage = stageBadNoisy

		case stageBadNoisy:
			for mp.badNoisyIdx < len(mp.badNoisy) {
				best := mp.badNoisyIdx
				for j := mp.badNoisyIdx + 1; j < len(mp.badNoisy); j++ {
					if mp.badScores[j] > mp.badScores[best] {
						best = j
					}
				}
				mp.badNoisy[mp.badNoisyIdx], mp.badNoisy[best] = mp.badNoisy[best], mp.badNoisy[mp.badNoisyIdx]
				mp.badScores[mp.badNoisyIdx], mp.badScores[best] = mp.badScores[best], mp.badScores[mp.badNoisyIdx]
				m := mp.badNoisy[mp.badNoisyIdx]
				mp.badNoisyIdx++
				return m, true
			}
			mp.stage = stageEnd

		case stageEnd:
			return board.NoMove, false
		}
	}
}
