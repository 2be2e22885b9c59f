package board

// Cuckoo detection of upcoming repetitions (HasCycle). Every reversible
// single-piece move m: s1->s2 has a fixed Zobrist delta (the XOR of the
// piece-square keys for both squares plus the side-to-move flip); two
// positions differing by exactly that delta, with the path between s1
// and s2 currently empty, are one such move apart from repeating.
//
// Populated once at init from the pseudo-attack tables: for every
// (color, piece kind) and every pair of squares s1<s2 where the piece
// pseudo-attacks s2 from s1 on an empty board, the move's Zobrist delta
// is inserted into one shared 8192-entry table addressed by two hash
// functions, using the standard cuckoo eviction loop.
var (
	cuckooKeys  [8192]uint64
	cuckooMoves [8192]Move
)

func cuckooHash1(key uint64) int { return int(key & 0x1FFF) }
func cuckooHash2(key uint64) int { return int((key >> 16) & 0x1FFF) }

func init() {
	initCuckoo()
}

func initCuckoo() {
	count := 0
	for c := White; c <= Black; c++ {
		for pt := Knight; pt <= King; pt++ {
			for s1 := A1; s1 <= H8; s1++ {
				for s2 := s1 + 1; s2 <= H8; s2++ {
					if pseudoAttacksEmptyBoard(pt, s1)&SquareBB(s2) == 0 {
						continue
					}

					m := NewMove(s1, s2)
					key := ZobristPiece(c, pt, s1) ^ ZobristPiece(c, pt, s2) ^ ZobristSideToMove()

					slot := cuckooHash1(key)
					for {
						cuckooKeys[slot], key = key, cuckooKeys[slot]
						cuckooMoves[slot], m = m, cuckooMoves[slot]
						if m == NoMove {
							break
						}
						if slot == cuckooHash1(key) {
							slot = cuckooHash2(key)
						} else {
							slot = cuckooHash1(key)
						}
					}
					count++
				}
			}
		}
	}
}

// pseudoAttacksEmptyBoard returns pt's attack set from sq on an empty
// board, used only to seed the cuckoo table (sliders ignore occupancy).
func pseudoAttacksEmptyBoard(pt PieceType, sq Square) Bitboard {
	switch pt {
	case Knight:
		return KnightAttacks(sq)
	case Bishop:
		return BishopAttacks(sq, 0)
	case Rook:
		return RookAttacks(sq, 0)
	case Queen:
		return BishopAttacks(sq, 0) | RookAttacks(sq, 0)
	case King:
		return KingAttacks(sq)
	default:
		return 0
	}
}

// HasCycle reports whether the side to move can force an upcoming
// repetition within the current halfmove-clock/null-move window,
// starting its search from ply (the search ply, not the state-stack
// ply) so mate-distance-sensitive callers can tell a cycle that only
// repeats past the current search horizon from one that repeats now.
func (p *Position) HasCycle(ply int) bool {
	dist := p.current().PliesFromNull
	if p.current().HalfMoveClock < dist {
		dist = p.current().HalfMoveClock
	}
	if dist < 3 {
		return false
	}

	hashAt := func(i int) uint64 {
		return p.states[p.ply-i].Hash
	}

	originalKey := p.Hash

	for i := 3; i <= dist; i += 2 {
		diff := originalKey ^ hashAt(i)

		slot := cuckooHash1(diff)
		if diff != cuckooKeys[slot] {
			slot = cuckooHash2(diff)
			if diff != cuckooKeys[slot] {
				continue
			}
		}

		m := cuckooMoves[slot]
		from, to := m.From(), m.To()

		if p.AllOccupied&Between(from, to) != 0 {
			continue
		}

		if ply > i {
			return true
		}

		var pc Color
		if p.PieceAt(from) != NoPiece {
			pc = p.PieceAt(from).Color()
		} else {
			pc = p.PieceAt(to).Color()
		}
		if pc != p.SideToMove {
			continue
		}

		// At or before the root there is no search line yet to
		// repeat into, so only report a cycle if the candidate
		// state itself already recurred earlier in the game.
		if p.hasEarlierRepetition(p.ply - i) {
			return true
		}
	}

	return false
}

// hasEarlierRepetition reports whether the state at stack index idx
// already matched an earlier state within its own halfmove-clock
// run, i.e. whether idx was itself a repetition when it was reached.
func (p *Position) hasEarlierRepetition(idx int) bool {
	hmc := p.states[idx].HalfMoveClock
	end := idx - hmc
	if end < 0 {
		end = 0
	}
	h := p.states[idx].Hash
	for j := idx - 2; j >= end; j -= 2 {
		if p.states[j].Hash == h {
			return true
		}
	}
	return false
}
