package sfnnue

import "testing"

func newTestTransformer(halfDims, inputDims int) *FeatureTransformer {
	return &FeatureTransformer{
		HalfDimensions:  halfDims,
		InputDimensions: inputDims,
		Biases:          make([]int16, halfDims),
		Weights:         make([]int16, halfDims*inputDims),
		PSQTWeights:     make([]int32, inputDims*PSQTBuckets),
	}
}

func fillTestTransformer(ft *FeatureTransformer) {
	for i := range ft.Biases {
		ft.Biases[i] = int16(i % 100)
	}
	for i := range ft.Weights {
		ft.Weights[i] = int16((i * 7) % 200)
	}
	for i := range ft.PSQTWeights {
		ft.PSQTWeights[i] = int32((i * 3) % 500)
	}
}

// TestForwardIncrementalUpdate verifies that incremental update produces
// the same result as a full refresh.
func TestForwardIncrementalUpdate(t *testing.T) {
	halfDims := 128
	ft := newTestTransformer(halfDims, 1000)
	fillTestTransformer(ft)

	prevAcc := NewAccumulator(halfDims)
	currAccIncremental := NewAccumulator(halfDims)
	currAccFull := NewAccumulator(halfDims)

	initialFeatures := []int{10, 50, 100, 200, 500}
	ft.ComputeAccumulator(initialFeatures, prevAcc.Accumulation[0], prevAcc.PSQTAccumulation[0])
	prevAcc.Computed[0] = true
	prevAcc.KingSq[0] = 4

	removed := []int{50}
	added := []int{300}

	ft.ForwardUpdateIncremental(prevAcc, currAccIncremental, removed, added, 0)

	newFeatures := []int{10, 100, 200, 300, 500}
	ft.ComputeAccumulator(newFeatures, currAccFull.Accumulation[0], currAccFull.PSQTAccumulation[0])

	for i := 0; i < halfDims; i++ {
		if currAccIncremental.Accumulation[0][i] != currAccFull.Accumulation[0][i] {
			t.Errorf("mismatch at accumulation[%d]: incremental=%d, full=%d",
				i, currAccIncremental.Accumulation[0][i], currAccFull.Accumulation[0][i])
		}
	}

	for i := 0; i < PSQTBuckets; i++ {
		if currAccIncremental.PSQTAccumulation[0][i] != currAccFull.PSQTAccumulation[0][i] {
			t.Errorf("mismatch at PSQT[%d]: incremental=%d, full=%d",
				i, currAccIncremental.PSQTAccumulation[0][i], currAccFull.PSQTAccumulation[0][i])
		}
	}
}

// TestBackwardIncrementalUpdate verifies backward update reverses changes correctly.
func TestBackwardIncrementalUpdate(t *testing.T) {
	halfDims := 128
	ft := newTestTransformer(halfDims, 1000)
	fillTestTransformer(ft)

	originalAcc := NewAccumulator(halfDims)
	laterAcc := NewAccumulator(halfDims)
	recoveredAcc := NewAccumulator(halfDims)

	originalFeatures := []int{10, 50, 100, 200, 500}
	ft.ComputeAccumulator(originalFeatures, originalAcc.Accumulation[0], originalAcc.PSQTAccumulation[0])
	originalAcc.Computed[0] = true

	removed := []int{50}
	added := []int{300}
	ft.ForwardUpdateIncremental(originalAcc, laterAcc, removed, added, 0)
	ft.BackwardUpdateIncremental(laterAcc, recoveredAcc, removed, added, 0)

	for i := 0; i < halfDims; i++ {
		if recoveredAcc.Accumulation[0][i] != originalAcc.Accumulation[0][i] {
			t.Errorf("mismatch at accumulation[%d]: recovered=%d, original=%d",
				i, recoveredAcc.Accumulation[0][i], originalAcc.Accumulation[0][i])
		}
	}

	for i := 0; i < PSQTBuckets; i++ {
		if recoveredAcc.PSQTAccumulation[0][i] != originalAcc.PSQTAccumulation[0][i] {
			t.Errorf("mismatch at PSQT[%d]: recovered=%d, original=%d",
				i, recoveredAcc.PSQTAccumulation[0][i], originalAcc.PSQTAccumulation[0][i])
		}
	}
}

// TestDoubleUpdateOptimization verifies double update equals two separate updates.
func TestDoubleUpdateOptimization(t *testing.T) {
	halfDims := 128
	ft := newTestTransformer(halfDims, 1000)
	fillTestTransformer(ft)

	originalAcc := NewAccumulator(halfDims)
	singleUpdateAcc := NewAccumulator(halfDims)
	doubleUpdateAcc := NewAccumulator(halfDims)

	originalFeatures := []int{10, 50, 100, 200, 500}
	ft.ComputeAccumulator(originalFeatures, originalAcc.Accumulation[0], originalAcc.PSQTAccumulation[0])
	originalAcc.Computed[0] = true

	removed1, added1 := []int{50}, []int{300}
	removed2, added2 := []int{100}, []int{400}

	intermediateAcc := NewAccumulator(halfDims)
	ft.ForwardUpdateIncremental(originalAcc, intermediateAcc, removed1, added1, 0)
	ft.ForwardUpdateIncremental(intermediateAcc, singleUpdateAcc, removed2, added2, 0)

	ft.DoubleUpdateIncremental(originalAcc, doubleUpdateAcc, removed1, added1, removed2, added2, 0)

	for i := 0; i < halfDims; i++ {
		if doubleUpdateAcc.Accumulation[0][i] != singleUpdateAcc.Accumulation[0][i] {
			t.Errorf("mismatch at accumulation[%d]: double=%d, single=%d",
				i, doubleUpdateAcc.Accumulation[0][i], singleUpdateAcc.Accumulation[0][i])
		}
	}

	for i := 0; i < PSQTBuckets; i++ {
		if doubleUpdateAcc.PSQTAccumulation[0][i] != singleUpdateAcc.PSQTAccumulation[0][i] {
			t.Errorf("mismatch at PSQT[%d]: double=%d, single=%d",
				i, doubleUpdateAcc.PSQTAccumulation[0][i], singleUpdateAcc.PSQTAccumulation[0][i])
		}
	}
}

// TestAccumulatorStack verifies stack push/pop bookkeeping.
func TestAccumulatorStack(t *testing.T) {
	stack := NewAccumulatorStack()

	if stack.Size != 1 {
		t.Errorf("initial size should be 1, got %d", stack.Size)
	}

	stack.Push()
	if stack.Size != 2 {
		t.Errorf("after push, size should be 2, got %d", stack.Size)
	}

	if prev := stack.Previous(); prev == nil {
		t.Error("Previous should not be nil after push")
	}

	stack.Pop()
	if stack.Size != 1 {
		t.Errorf("after pop, size should be 1, got %d", stack.Size)
	}

	if prev := stack.Previous(); prev != nil {
		t.Error("Previous should be nil when at bottom of stack")
	}
}

// TestNetworkArchitecturePropagateShape verifies Propagate runs end to end
// over a zeroed (but correctly sized) layer stack.
func TestNetworkArchitecturePropagateShape(t *testing.T) {
	arch := NewNetworkArchitecture()
	input := make([]uint8, TransformedFeatureDimensions)
	for i := range input {
		input[i] = uint8(i % 128)
	}

	// With zeroed weights only the bias terms and the FC0 skip connection
	// contribute; the test only checks that the forward pass completes
	// over correctly sized buffers.
	score := arch.Propagate(input)
	_ = score
}

// TestL1PermutationIsBijective verifies buildL1Permutation produces a
// valid permutation of [0, n).
func TestL1PermutationIsBijective(t *testing.T) {
	perm := buildL1Permutation(TransformedFeatureDimensions)
	seen := make([]bool, TransformedFeatureDimensions)
	for _, p := range perm {
		if p < 0 || p >= TransformedFeatureDimensions {
			t.Fatalf("permutation index out of range: %d", p)
		}
		if seen[p] {
			t.Fatalf("permutation index %d appears more than once", p)
		}
		seen[p] = true
	}
}
