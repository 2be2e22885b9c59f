// SqrClippedReLU (squared clipped ReLU) activation layer.

package layers

// SqrClippedReLU clamps its input to [0, 1] and squares it, the
// counterpart of ClippedReLU used for the other half of a pair-activation
// split.
type SqrClippedReLU struct {
	Dimensions int
}

// NewSqrClippedReLU creates a new SqrClippedReLU layer.
func NewSqrClippedReLU(dims int) *SqrClippedReLU {
	return &SqrClippedReLU{Dimensions: dims}
}

// GetHashValue returns the hash for this layer type, chained from prevHash.
func (s *SqrClippedReLU) GetHashValue(prevHash uint32) uint32 {
	return 0x538D24C7 ^ prevHash
}

// Propagate applies clamp-then-square.
func (s *SqrClippedReLU) Propagate(input, output []float32) {
	for i := 0; i < s.Dimensions; i++ {
		v := input[i]
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		output[i] = v * v
	}
}
