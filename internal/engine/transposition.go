package engine

import (
	"math/bits"

	"github.com/corvidchess/corvid/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// ttAgeBits is the width of the generation field packed into the
// entry's genBoundPV byte (age:5, pv:1, bound:2).
const ttAgeBits = 5
const ttAgeMask = 1<<ttAgeBits - 1

// ttDepthOffset biases stored depths so that "no entry" (a zeroed
// cluster slot) never collides with a real depth-0 (quiescence) store.
const ttDepthOffset = 1

// TTEntry is the caller-facing view of one of a cluster's three slots:
// 16-bit key, 16-bit score, 16-bit static eval, 16-bit move, packed
// age/pv/bound byte, depth byte — 10 bytes, matching spec's 32-byte
// 3-entry cluster once padded.
type TTEntry struct {
	key16      uint16
	Score      int16
	Eval       int16
	BestMove   board.Move
	depth8     uint8
	genBoundPV uint8
}

// Depth returns the entry's search depth.
func (e TTEntry) Depth() int { return int(e.depth8) - ttDepthOffset }

// Flag returns the entry's bound type.
func (e TTEntry) Flag() TTFlag { return TTFlag(e.genBoundPV & 0x3) }

// IsPV reports whether this entry was stored from (or touched) a PV node.
func (e TTEntry) IsPV() bool { return (e.genBoundPV>>2)&1 != 0 }

func (e TTEntry) age() uint8 { return e.genBoundPV >> 3 }

func (e TTEntry) empty() bool { return e.depth8 == 0 }

// ttCluster is a 32-byte, 3-entry bucket. The two trailing padding
// bytes round the cluster to a cacheline-friendly 32 bytes even though
// Go makes no alignment guarantee as strict as the packed C layout the
// spec describes.
type ttCluster struct {
	entries [3]TTEntry
	_       [2]byte
}

// TranspositionTable is a generational, lock-free-by-convention shared
// hash table of 3-way clusters addressed by high-multiply hashing.
type TranspositionTable struct {
	clusters []ttCluster
	count    uint64
	age      uint8

	hits   uint64
	probes uint64
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	clusterSize := uint64(32)
	numClusters := (uint64(sizeMB) * 1024 * 1024) / clusterSize
	if numClusters == 0 {
		numClusters = 1
	}

	return &TranspositionTable{
		clusters: make([]ttCluster, numClusters),
		count:    numClusters,
	}
}

// clusterIndex maps a 64-bit hash uniformly onto [0, count) by taking
// the high 64 bits of the 128-bit product hash*count, avoiding a
// modulus and its power-of-two-size requirement.
func (tt *TranspositionTable) clusterIndex(hash uint64) uint64 {
	hi, _ := bits.Mul64(hash, tt.count)
	return hi
}

// Probe locates a position's cluster and scans its three entries for a
// key match. A hit requires both the key to match and the entry to be
// non-empty.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes++

	cluster := &tt.clusters[tt.clusterIndex(hash)]
	key16 := uint16(hash)

	for i := range cluster.entries {
		e := &cluster.entries[i]
		if !e.empty() && e.key16 == key16 {
			tt.hits++
			// Refresh the generation of entries we touch so they
			// survive replacement scoring a little longer.
			e.genBoundPV = (tt.age << 3) | (e.genBoundPV & 0x7)
			return *e, true
		}
	}

	return TTEntry{}, false
}

// Store writes a search result into the table. It overwrites an
// existing same-key entry when the new bound is Exact, or when the new
// depth is not much shallower than what's stored (allowing a little
// more staleness for PV nodes); otherwise it picks the cluster slot
// that minimises raw_depth - relative_age among the three.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move, isPV bool, staticEval int) {
	cluster := &tt.clusters[tt.clusterIndex(hash)]
	key16 := uint16(hash)
	depth8 := uint8(depth + ttDepthOffset)

	var slot *TTEntry
	for i := range cluster.entries {
		e := &cluster.entries[i]
		if e.empty() || e.key16 == key16 {
			slot = e
			break
		}
	}

	if slot != nil && !slot.empty() && slot.key16 == key16 {
		pvBonus := 0
		if isPV {
			pvBonus = 2
		}
		if flag != TTExact && depth+pvBonus < int(slot.depth8)-ttDepthOffset-4 {
			// Existing deeper/fresher non-exact entry: keep it but
			// still record the best move if we found a new one and
			// the old slot had none.
			if bestMove != board.NoMove && slot.BestMove == board.NoMove {
				slot.BestMove = bestMove
			}
			return
		}
	} else {
		slot = tt.chooseReplacement(cluster)
	}

	if bestMove == board.NoMove && slot.key16 == key16 {
		bestMove = slot.BestMove // keep the previous move on a depth-preferred refresh
	}

	pvBit := uint8(0)
	if isPV {
		pvBit = 1
	}

	slot.key16 = key16
	slot.Score = int16(score)
	slot.Eval = int16(staticEval)
	slot.BestMove = bestMove
	slot.depth8 = depth8
	slot.genBoundPV = (tt.age << 3) | (pvBit << 2) | uint8(flag)
}

// chooseReplacement picks the cluster slot minimising raw_depth -
// relative_age, where relative age is the cyclic distance (mod the
// 5-bit age field width) between the table's current age and the
// entry's stored age — entries from older generations look "deeper
// negative" and are preferred for eviction even if their raw depth
// was high.
func (tt *TranspositionTable) chooseReplacement(cluster *ttCluster) *TTEntry {
	best := &cluster.entries[0]
	bestScore := tt.replacementScore(best)

	for i := 1; i < len(cluster.entries); i++ {
		e := &cluster.entries[i]
		if e.empty() {
			return e
		}
		s := tt.replacementScore(e)
		if s < bestScore {
			bestScore = s
			best = e
		}
	}
	return best
}

func (tt *TranspositionTable) replacementScore(e *TTEntry) int {
	if e.empty() {
		return -1 << 30
	}
	relAge := int(tt.age-e.age()) & ttAgeMask
	return int(e.depth8) - relAge
}

// NewSearch advances the generation counter. Generation is 5 bits wide
// and wraps; relative-age comparisons are cyclic modulo that width so
// wrap-around never misclassifies an entry as impossibly old.
func (tt *TranspositionTable) NewSearch() {
	tt.age = (tt.age + 1) & ttAgeMask
}

// Clear zeros every cluster, discarding all stored entries.
func (tt *TranspositionTable) Clear() {
	for i := range tt.clusters {
		tt.clusters[i] = ttCluster{}
	}
	tt.age = 0
	tt.hits = 0
	tt.probes = 0
}

// HashFull returns the permille (parts per thousand) of the table that
// holds current-generation entries, sampled from the first 1000 clusters.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := uint64(334) // ~1000 entries worth of clusters
	if sampleSize > tt.count {
		sampleSize = tt.count
	}

	used := 0
	total := 0
	for i := uint64(0); i < sampleSize; i++ {
		for _, e := range tt.clusters[i].entries {
			total++
			if !e.empty() && e.age() == tt.age {
				used++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return (used * 1000) / total
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of clusters in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.count
}

// AdjustScoreFromTT un-normalises a mate-distance score read from the
// table back to the current root's ply-relative scale.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT normalises a mate-distance score to ply 0 before
// storage so it remains meaningful regardless of the probing node's
// depth from root.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
