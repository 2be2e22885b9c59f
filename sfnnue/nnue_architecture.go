// Network architecture definition: one bucketed evaluator, not Stockfish's
// separate big/small network pair.

package sfnnue

import (
	"io"

	"github.com/corvidchess/corvid/sfnnue/layers"
)

// Network architecture constants.
const (
	// TransformedFeatureDimensions is the feature transformer's half
	// width: each perspective contributes this many int16 accumulator
	// slots, pair-activated down to the same number of L1 outputs.
	TransformedFeatureDimensions = 1024
	L2                           = 16
	L3                           = 32

	PSQTBuckets = 8
	LayerStacks = 8
)

// ForwardBuffers holds the fixed-size scratch buffers for one layer
// stack's forward pass. Propagate declares one per call, so goroutines
// sharing a Network never share them.
type ForwardBuffers struct {
	L1     [TransformedFeatureDimensions]float32
	FC0Out [L2 + 1]float32
	Act    [(L2 + 1) * 2]float32
	FC1Out [L3]float32
	Ac1Out [L3]float32
	FC2Out [1]float32
}

// NetworkArchitecture is one output bucket's layer stack: the L1
// pair-activation output (computed by FeatureTransformer.Transform) is
// permuted for activation density, then run through two float dense
// hidden layers and one float dense output layer.
type NetworkArchitecture struct {
	FC0Outputs int // L2 + 1
	FC1Outputs int // L3

	// L1Permutation reorders the TransformedFeatureDimensions-wide pair
	// activation output before FC0 consumes it.
	L1Permutation []int

	FC0    *layers.AffineTransform
	AcSqr0 *layers.SqrClippedReLU
	Ac0    *layers.ClippedReLU
	FC1    *layers.AffineTransform
	Ac1    *layers.ClippedReLU
	FC2    *layers.AffineTransform
}

// NewNetworkArchitecture builds one layer stack.
func NewNetworkArchitecture() *NetworkArchitecture {
	fc0Out := L2 + 1
	return &NetworkArchitecture{
		FC0Outputs:    fc0Out,
		FC1Outputs:    L3,
		L1Permutation: buildL1Permutation(TransformedFeatureDimensions),
		FC0:           layers.NewAffineTransform(TransformedFeatureDimensions, fc0Out),
		AcSqr0:        layers.NewSqrClippedReLU(fc0Out),
		Ac0:           layers.NewClippedReLU(fc0Out),
		FC1:           layers.NewAffineTransform(fc0Out*2, L3),
		Ac1:           layers.NewClippedReLU(L3),
		FC2:           layers.NewAffineTransform(L3, 1),
	}
}

// buildL1Permutation reorders the pair-activation output in four-wide
// blocks, interleaving the first and second half of the vector (which
// Transform fills from the side-to-move and not-side-to-move perspectives
// respectively). A trained network would derive this ordering from the
// observed nonzero frequency per feature; absent that, each four-wide
// block of the result comes from one perspective and the blocks alternate
// between the two, so every eight-wide span FC0 walks holds four entries
// from each side. Any tail past the last full block pair keeps its place.
func buildL1Permutation(n int) []int {
	const block = 4
	perm := make([]int, n)
	numBlocks := n / block
	half := numBlocks / 2
	pos := 0
	for i := 0; i < half; i++ {
		for b := 0; b < block; b++ {
			perm[pos] = i*block + b
			pos++
		}
		for b := 0; b < block; b++ {
			perm[pos] = (i+half)*block + b
			pos++
		}
	}
	for ; pos < n; pos++ {
		perm[pos] = pos
	}
	return perm
}

// GetHashValue returns the hash value for this architecture, used to
// validate a loaded weight file before trusting its layer parameters.
func (n *NetworkArchitecture) GetHashValue() uint32 {
	hashValue := uint32(0xEC42E90D)
	hashValue ^= uint32(TransformedFeatureDimensions * 2)

	hashValue = n.FC0.GetHashValue(hashValue)
	hashValue = n.Ac0.GetHashValue(hashValue)
	hashValue = n.FC1.GetHashValue(hashValue)
	hashValue = n.Ac1.GetHashValue(hashValue)
	hashValue = n.FC2.GetHashValue(hashValue)

	return hashValue
}

// ReadParameters reads all layer parameters from a stream. AcSqr0 and Ac0
// have none.
func (n *NetworkArchitecture) ReadParameters(r io.Reader) error {
	if err := n.FC0.ReadParameters(r); err != nil {
		return err
	}
	if err := n.FC1.ReadParameters(r); err != nil {
		return err
	}
	return n.FC2.ReadParameters(r)
}

// Propagate runs the forward pass for one output bucket, from the L1
// pair-activation output to a centipawn score.
func (n *NetworkArchitecture) Propagate(transformedFeatures []uint8) int32 {
	var buffers ForwardBuffers

	l1 := buffers.L1[:TransformedFeatureDimensions]
	for i, p := range n.L1Permutation {
		l1[i] = float32(transformedFeatures[p]) / 127
	}

	fc0Out := buffers.FC0Out[:n.FC0Outputs]
	n.FC0.Propagate(l1, fc0Out)

	act := buffers.Act[:n.FC0Outputs*2]
	n.AcSqr0.Propagate(fc0Out, act[:n.FC0Outputs])
	n.Ac0.Propagate(fc0Out, act[n.FC0Outputs:])

	fc1Out := buffers.FC1Out[:n.FC1Outputs]
	n.FC1.Propagate(act, fc1Out)

	ac1Out := buffers.Ac1Out[:n.FC1Outputs]
	n.Ac1.Propagate(fc1Out, ac1Out)

	fc2Out := buffers.FC2Out[:1]
	n.FC2.Propagate(ac1Out, fc2Out)

	// Skip connection straight from FC0's last output, mirroring the
	// teacher's direct forward term.
	skip := fc0Out[n.FC0Outputs-1] * 600

	return int32((fc2Out[0] + skip) * float32(OutputScale))
}

// NetworkHash returns the expected architecture hash for a freshly built
// layer stack.
func NetworkHash() uint32 {
	return NewNetworkArchitecture().GetHashValue()
}
