// Network loading and evaluation: one feature transformer plus one layer
// stack per output bucket, selected by remaining piece count.

package sfnnue

import (
	"fmt"
	"io"
	"os"
)

// Network is a complete NNUE evaluator.
type Network struct {
	FeatureTransformer *FeatureTransformer

	// LayerStacks holds one layer stack per output bucket.
	LayerStacks [LayerStacks]*NetworkArchitecture

	CurrentFile    string
	NetDescription string
	Initialized    bool

	Hash uint32
}

// NewNetwork creates an uninitialized network with its layer stacks ready
// for ReadParameters/Load to fill in.
func NewNetwork() *Network {
	net := &Network{
		FeatureTransformer: NewFeatureTransformer(),
	}

	for i := 0; i < LayerStacks; i++ {
		net.LayerStacks[i] = NewNetworkArchitecture()
	}

	net.Hash = net.calculateHash()

	return net
}

// calculateHash calculates the expected hash for this network.
func (n *Network) calculateHash() uint32 {
	return n.FeatureTransformer.GetHashValue() ^ n.LayerStacks[0].GetHashValue()
}

// Load loads network parameters from a file.
func (n *Network) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	n.CurrentFile = filename
	return n.LoadFromReader(f)
}

// LoadFromReader loads network parameters from a reader.
func (n *Network) LoadFromReader(r io.Reader) error {
	n.Initialized = true

	hashValue, description, err := n.readHeader(r)
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	if hashValue != n.Hash {
		return fmt.Errorf("hash mismatch: expected %08x, got %08x", n.Hash, hashValue)
	}

	n.NetDescription = description

	if err := n.readParameters(r); err != nil {
		return fmt.Errorf("failed to read parameters: %w", err)
	}

	return nil
}

// readHeader reads and validates the network file header.
func (n *Network) readHeader(r io.Reader) (uint32, string, error) {
	version, err := ReadLittleEndian[uint32](r)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read version: %w", err)
	}
	if version != Version {
		return 0, "", fmt.Errorf("version mismatch: expected %08x, got %08x", Version, version)
	}

	hashValue, err := ReadLittleEndian[uint32](r)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read hash: %w", err)
	}

	descSize, err := ReadLittleEndian[uint32](r)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read description size: %w", err)
	}

	descBytes := make([]byte, descSize)
	if _, err := io.ReadFull(r, descBytes); err != nil {
		return 0, "", fmt.Errorf("failed to read description: %w", err)
	}

	return hashValue, string(descBytes), nil
}

// readParameters reads all network parameters.
func (n *Network) readParameters(r io.Reader) error {
	transformerHash, err := ReadLittleEndian[uint32](r)
	if err != nil {
		return fmt.Errorf("failed to read transformer hash: %w", err)
	}
	expectedTransformerHash := n.FeatureTransformer.GetHashValue()
	if transformerHash != expectedTransformerHash {
		return fmt.Errorf("transformer hash mismatch: expected %08x, got %08x",
			expectedTransformerHash, transformerHash)
	}

	if err := n.FeatureTransformer.ReadParameters(r); err != nil {
		return fmt.Errorf("failed to read transformer parameters: %w", err)
	}

	for i := 0; i < LayerStacks; i++ {
		stackHash, err := ReadLittleEndian[uint32](r)
		if err != nil {
			return fmt.Errorf("failed to read layer stack %d hash: %w", i, err)
		}
		expectedStackHash := n.LayerStacks[i].GetHashValue()
		if stackHash != expectedStackHash {
			return fmt.Errorf("layer stack %d hash mismatch: expected %08x, got %08x",
				i, expectedStackHash, stackHash)
		}

		if err := n.LayerStacks[i].ReadParameters(r); err != nil {
			return fmt.Errorf("failed to read layer stack %d: %w", i, err)
		}
	}

	return nil
}

// Evaluate evaluates a position using the network. bucket selection and the
// psqt/positional split match the teacher's network.cpp; the layer stack's
// forward pass is the float pair-activation evaluator (see
// nnue_architecture.go).
func (n *Network) Evaluate(
	accumulation [2][]int16,
	psqtAccumulation [2][]int32,
	sideToMove int,
	pieceCount int,
) (psqt int32, positional int32) {
	bucket := (pieceCount - 1) / 4
	if bucket < 0 {
		bucket = 0
	} else if bucket >= LayerStacks {
		bucket = LayerStacks - 1
	}

	perspectives := [2]int{sideToMove, 1 - sideToMove}

	halfDims := n.FeatureTransformer.HalfDimensions
	transformedFeatures := make([]uint8, halfDims)

	psqt = n.FeatureTransformer.Transform(
		accumulation,
		psqtAccumulation,
		perspectives,
		bucket,
		transformedFeatures,
	)

	positional = n.LayerStacks[bucket].Propagate(transformedFeatures)

	return psqt / int32(OutputScale), positional / int32(OutputScale)
}

// LoadNetwork loads a network from file.
func LoadNetwork(file string) (*Network, error) {
	net := NewNetwork()
	if err := net.Load(file); err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}
	return net, nil
}

// Evaluator provides a high-level interface for NNUE evaluation.
type Evaluator struct {
	Network  *Network
	AccStack *AccumulatorStack
	Cache    *AccumulatorCache
}

// NewEvaluator creates a new evaluator from a network file.
func NewEvaluator(file string) (*Evaluator, error) {
	net, err := LoadNetwork(file)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		Network:  net,
		AccStack: NewAccumulatorStack(),
		Cache:    NewAccumulatorCache(TransformedFeatureDimensions, net.FeatureTransformer.Biases),
	}, nil
}

// Push saves accumulator state before a move.
func (e *Evaluator) Push() {
	e.AccStack.Push()
}

// Pop restores accumulator state after unmaking a move.
func (e *Evaluator) Pop() {
	e.AccStack.Pop()
}

// Reset resets the accumulator stack.
func (e *Evaluator) Reset() {
	e.AccStack.Reset()
}

// Refresh forces a full recomputation of the current accumulator.
func (e *Evaluator) Refresh() {
	e.AccStack.Current().Reset()
}
