package board

// Zobrist key material: one 64-bit key per (color, piece kind, square),
// one per en-passant file, one per castling-rights combination, and one
// flip key for side to move. Keys are drawn once from a fixed-seed PRNG
// so hashes are reproducible across runs; nothing here is mutated after
// package init.

// prng is a minimal xorshift64* generator, shared by zobrist-key
// generation and the magic-number search in magic.go.
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

var (
	// Index 7 keeps NoPieceType in range even though no key is ever
	// drawn for it.
	zobristPiece      [2][7][64]uint64
	zobristEnPassant  [8]uint64
	zobristCastling   [16]uint64
	zobristSideToMove uint64
)

// Key generation runs in the package's variable-initialization phase,
// which precedes every init() function: the cuckoo table in cuckoo.go
// is built from these keys inside an init() and must never observe
// them zeroed.
var _ = initZobrist()

func initZobrist() struct{} {
	rng := newPRNG(0x98F107A2BEEF1234)

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}
	for file := range zobristEnPassant {
		zobristEnPassant[file] = rng.next()
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.next()
	}
	zobristSideToMove = rng.next()

	return struct{}{}
}

// ZobristPiece returns the key for piece (c, pt) standing on sq.
func ZobristPiece(c Color, pt PieceType, sq Square) uint64 {
	return zobristPiece[c][pt][sq]
}

// ZobristEnPassant returns the key for an en-passant target on file.
func ZobristEnPassant(file int) uint64 {
	return zobristEnPassant[file]
}

// ZobristCastling returns the key for a castling-rights bitmask.
func ZobristCastling(cr CastlingRights) uint64 {
	return zobristCastling[cr]
}

// ZobristSideToMove returns the key XORed in whenever it is Black to move.
func ZobristSideToMove() uint64 {
	return zobristSideToMove
}
