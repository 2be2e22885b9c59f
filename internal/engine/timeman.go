package engine

import (
	"time"

	"github.com/corvidchess/corvid/internal/board"
)

// UCILimits contains UCI time control parameters.
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
	Ponder    bool             // ponder mode
}

// DefaultMoveOverhead is subtracted from the remaining clock before any
// allocation is computed, covering GUI/network latency around each move so
// a search that finishes right at its budget doesn't flag on time.
const DefaultMoveOverhead = 30 * time.Millisecond

// TimeManager handles time allocation for searches.
type TimeManager struct {
	optimumTime  time.Duration // Target time for this move
	maximumTime  time.Duration // Maximum time allowed
	startTime    time.Time     // When search started
	moveOverhead time.Duration // Lag budget reserved on top of the search's own time
}

// NewTimeManager creates a new time manager with the default move overhead.
func NewTimeManager() *TimeManager {
	return &TimeManager{moveOverhead: DefaultMoveOverhead}
}

// SetMoveOverhead configures the lag budget reserved on top of the search's
// own time, corresponding to the UCI "Move Overhead" option.
func (tm *TimeManager) SetMoveOverhead(d time.Duration) {
	tm.moveOverhead = d
}

// Init initializes the time manager for a new search.
// ply is the current game ply (half-move number).
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.startTime = time.Now()

	// Fixed move time mode
	if limits.MoveTime > 0 {
		budget := limits.MoveTime - tm.moveOverhead
		if budget < 10*time.Millisecond {
			budget = 10 * time.Millisecond
		}
		tm.optimumTime = budget
		tm.maximumTime = budget
		return
	}

	// Infinite or depth-limited mode
	if limits.Infinite || (limits.Time[us] == 0 && limits.MoveTime == 0) {
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
		return
	}

	// Calculate time allocation based on remaining time and increment
	timeLeft := limits.Time[us] - tm.moveOverhead
	if timeLeft < 0 {
		timeLeft = 0
	}
	inc := limits.Inc[us]

	// Estimate moves to go
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: estimate moves remaining based on game phase
		// Early game: more moves expected, late game: fewer
		mtg = 50 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 50 {
			mtg = 50
		}
	}

	// Base time per move (simple division)
	baseTime := timeLeft / time.Duration(mtg)

	// Add most of the increment
	baseTime += inc * 9 / 10

	// Use baseTime directly as the optimum
	// No aggressive scaling - we need time to search!
	tm.optimumTime = baseTime

	// Slight reduction for very early moves (give some buffer)
	if ply < 8 {
		tm.optimumTime = baseTime * 85 / 100
	}

	// Maximum time: 5x optimum or 80% of remaining, whichever is smaller
	maxFromOptimum := tm.optimumTime * 5
	maxFromRemaining := timeLeft * 8 / 10

	if maxFromOptimum < maxFromRemaining {
		tm.maximumTime = maxFromOptimum
	} else {
		tm.maximumTime = maxFromRemaining
	}

	// Safety margin: never use more than 95% of remaining time
	safetyMargin := timeLeft * 95 / 100
	if tm.maximumTime > safetyMargin {
		tm.maximumTime = safetyMargin
	}

	// Minimum times
	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < 50*time.Millisecond {
		tm.maximumTime = 50 * time.Millisecond
	}
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// ShouldStop returns true if we should stop searching.
func (tm *TimeManager) ShouldStop() bool {
	return tm.Elapsed() >= tm.maximumTime
}

// PastOptimum returns true if we've exceeded the optimum time.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.optimumTime
}

// bmStabilityTable maps the count of consecutive iterations with the
// same best move to a soft-time factor: an unstable best move buys more
// time, a long-stable one gives it back.
var bmStabilityTable = [...]float64{2.43, 1.35, 1.09, 0.88, 0.68}

// SoftScale combines the three soft-time terms: the fraction of nodes
// spent on the best move (a concentrated search is a confident one),
// best-move stability, and the 4-iteration score trend compressed into
// [0.85, 1.15].
func SoftScale(bestMoveNodeFraction float64, stability int, scoreDelta int) float64 {
	nodeTM := (1.52 - bestMoveNodeFraction) * 1.74

	if stability >= len(bmStabilityTable) {
		stability = len(bmStabilityTable) - 1
	}
	bmStability := bmStabilityTable[stability]

	scoreStability := 1.0 + float64(scoreDelta)/400.0
	if scoreStability < 0.85 {
		scoreStability = 0.85
	} else if scoreStability > 1.15 {
		scoreStability = 1.15
	}

	return nodeTM * bmStability * scoreStability
}

// PastSoftLimit reports whether the elapsed time has passed the optimum
// budget scaled by the soft-time multiplier.
func (tm *TimeManager) PastSoftLimit(mult float64) bool {
	return tm.Elapsed() >= time.Duration(float64(tm.optimumTime)*mult)
}

// AdjustForStability adjusts time allocation based on best move stability.
// If the best move hasn't changed for several depths, we can stop earlier.
// stability: number of consecutive depths with same best move
func (tm *TimeManager) AdjustForStability(stability int) {
	if stability >= 6 {
		// Very stable: use only 40% of optimum
		tm.optimumTime = tm.optimumTime * 40 / 100
	} else if stability >= 4 {
		// Stable: use only 60% of optimum
		tm.optimumTime = tm.optimumTime * 60 / 100
	} else if stability >= 2 {
		// Somewhat stable: use 80% of optimum
		tm.optimumTime = tm.optimumTime * 80 / 100
	}
}

// AdjustForInstability increases time when best move keeps changing.
// changes: number of best move changes in recent depths
func (tm *TimeManager) AdjustForInstability(changes int) {
	if changes >= 4 {
		// Very unstable: use 200% of optimum (up to maximum)
		tm.optimumTime = tm.optimumTime * 200 / 100
		if tm.optimumTime > tm.maximumTime {
			tm.optimumTime = tm.maximumTime
		}
	} else if changes >= 2 {
		// Unstable: use 150% of optimum
		tm.optimumTime = tm.optimumTime * 150 / 100
		if tm.optimumTime > tm.maximumTime {
			tm.optimumTime = tm.maximumTime
		}
	}
}
