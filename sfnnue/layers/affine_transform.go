// AffineTransform (fully connected) layer.
//
// The evaluator's hidden and output layers are float dense layers rather
// than Stockfish's int8-quantized ones, so this no longer reads a
// scrambled int8 weight matrix: it reads a plain row-major float32 matrix
// and computes output = Weights*input + Biases directly.

package layers

import (
	"encoding/binary"
	"io"
)

// AffineTransform is a fully connected layer with float32 weights and
// biases.
type AffineTransform struct {
	InputDimensions  int
	OutputDimensions int

	Biases  []float32
	Weights []float32 // row-major: OutputDimensions x InputDimensions
}

// NewAffineTransform creates a layer with zeroed parameters, ready for
// ReadParameters to fill in.
func NewAffineTransform(inputDims, outputDims int) *AffineTransform {
	return &AffineTransform{
		InputDimensions:  inputDims,
		OutputDimensions: outputDims,
		Biases:           make([]float32, outputDims),
		Weights:          make([]float32, outputDims*inputDims),
	}
}

// GetHashValue returns the hash for this layer, chained from prevHash.
func (a *AffineTransform) GetHashValue(prevHash uint32) uint32 {
	hashValue := uint32(0xCC03DAE4)
	hashValue += uint32(a.OutputDimensions)
	hashValue ^= prevHash >> 1
	hashValue ^= prevHash << 31
	return hashValue
}

// ReadParameters reads biases then weights, both little-endian float32.
func (a *AffineTransform) ReadParameters(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, a.Biases); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, a.Weights)
}

// Propagate computes output = Weights*input + Biases. Inputs left at
// exactly zero by a preceding clipped activation are skipped one by one;
// for the first layer, the L1 permutation table in nnue_architecture.go
// fixes the order in which the input vector is laid out.
func (a *AffineTransform) Propagate(input, output []float32) {
	for o := 0; o < a.OutputDimensions; o++ {
		sum := a.Biases[o]
		row := a.Weights[o*a.InputDimensions : (o+1)*a.InputDimensions]
		for i, x := range input {
			if x == 0 {
				continue
			}
			sum += row[i] * x
		}
		output[o] = sum
	}
}
