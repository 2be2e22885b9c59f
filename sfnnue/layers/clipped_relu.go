// ClippedReLU activation layer.

package layers

// ClippedReLU clamps its input to [0, 1]. It sits between the evaluator's
// float dense layers, where Stockfish's version clamps a shifted int32
// accumulator to [0, 127] instead.
type ClippedReLU struct {
	Dimensions int
}

// NewClippedReLU creates a new ClippedReLU layer.
func NewClippedReLU(dims int) *ClippedReLU {
	return &ClippedReLU{Dimensions: dims}
}

// GetHashValue returns the hash for this layer type, chained from prevHash.
func (c *ClippedReLU) GetHashValue(prevHash uint32) uint32 {
	return 0x538D24C7 ^ prevHash
}

// Propagate applies the clamp.
func (c *ClippedReLU) Propagate(input, output []float32) {
	for i := 0; i < c.Dimensions; i++ {
		v := input[i]
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		output[i] = v
	}
}
