package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		states:         make([]State, stateStackCapacity),
	}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare
	for i := range pos.CastlingRookSquare {
		pos.CastlingRookSquare[i] = NoSquare
	}

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	// Parse castling rights (field 2). Accepts both standard KQkq
	// notation and Shredder-FEN rook-file letters (A-H/a-h), the
	// latter implying a Chess960 position.
	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}
	pos.computeCastlingPaths()

	// Parse en passant square (field 3)
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		pos.EnPassant = sq
	}

	// Parse half-move clock (field 4, optional)
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		pos.HalfMoveClock = hmc
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	// Update derived state
	pos.updateOccupied()
	pos.findKings()
	pos.Hash = pos.ComputeHash()
	pos.PawnKey = pos.ComputePawnKey()
	pos.NonPawnKey = pos.ComputeNonPawnKeys()
	st := pos.current()
	st.Hash = pos.Hash
	st.PawnKey = pos.PawnKey
	st.NonPawnKey = pos.NonPawnKey
	st.HalfMoveClock = pos.HalfMoveClock
	st.CastlingRights = pos.CastlingRights
	st.EnPassant = pos.EnPassant
	pos.updateCheckInfo()

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN starts from rank 8
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}

			if c >= '1' && c <= '8' {
				// Skip empty squares
				file += int(c - '0')
			} else {
				// Place a piece
				piece := PieceFromChar(byte(c))
				if piece == NoPiece {
					return fmt.Errorf("invalid piece character: %c", c)
				}
				sq := NewSquare(file, rank)
				pos.setPiece(piece, sq)
				file++
			}
		}

		if file != 8 {
			return fmt.Errorf("invalid number of squares in rank %d: got %d", rank+1, file)
		}
	}

	return nil
}

// parseCastlingRights parses the castling rights section of a FEN
// string. Standard "KQkq" letters assume the rook starts on its
// traditional corner; Shredder-FEN rook-file letters ('A'-'H' for
// White, 'a'-'h' for Black) name the rook's file explicitly and mark
// the position Chess960.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" {
		pos.CastlingRights = NoCastling
		return nil
	}

	whiteKing := pos.Pieces[White][King].LSB()
	blackKing := pos.Pieces[Black][King].LSB()

	setRook := func(bit CastlingRights, c Color, rookSq Square) {
		pos.CastlingRights |= bit
		pos.CastlingRookSquare[castlingIndex(bit)] = rookSq
	}

	for _, c := range castling {
		switch c {
		case 'K':
			setRook(WhiteKingSideCastle, White, highestRookEastOf(pos, White, whiteKing))
		case 'Q':
			setRook(WhiteQueenSideCastle, White, lowestRookWestOf(pos, White, whiteKing))
		case 'k':
			setRook(BlackKingSideCastle, Black, highestRookEastOf(pos, Black, blackKing))
		case 'q':
			setRook(BlackQueenSideCastle, Black, lowestRookWestOf(pos, Black, blackKing))
		default:
			switch {
			case c >= 'A' && c <= 'H':
				pos.Chess960 = true
				file := int(c - 'A')
				rookSq := NewSquare(file, whiteKing.Rank())
				if file > whiteKing.File() {
					setRook(WhiteKingSideCastle, White, rookSq)
				} else {
					setRook(WhiteQueenSideCastle, White, rookSq)
				}
			case c >= 'a' && c <= 'h':
				pos.Chess960 = true
				file := int(c - 'a')
				rookSq := NewSquare(file, blackKing.Rank())
				if file > blackKing.File() {
					setRook(BlackKingSideCastle, Black, rookSq)
				} else {
					setRook(BlackQueenSideCastle, Black, rookSq)
				}
			default:
				return fmt.Errorf("invalid castling character: %c", c)
			}
		}
	}

	return nil
}

// highestRookEastOf finds the rook used for standard kingside
// castling: the outermost rook on the king's rank east of the king.
func highestRookEastOf(pos *Position, c Color, king Square) Square {
	rooks := pos.Pieces[c][Rook] & RankMask[king.Rank()]
	best := NoSquare
	for rooks != 0 {
		sq := rooks.PopLSB()
		if sq > king && (best == NoSquare || sq > best) {
			best = sq
		}
	}
	return best
}

// lowestRookWestOf finds the rook used for standard queenside
// castling: the outermost rook on the king's rank west of the king.
func lowestRookWestOf(pos *Position, c Color, king Square) Square {
	rooks := pos.Pieces[c][Rook] & RankMask[king.Rank()]
	best := NoSquare
	for rooks != 0 {
		sq := rooks.PopLSB()
		if sq < king && (best == NoSquare || sq < best) {
			best = sq
		}
	}
	return best
}

// computeCastlingPaths fills CastlingPath with the squares (besides
// the king's and rook's own squares) that must be empty for each
// castling right, covering Chess960 starting squares where the king
// or rook may already sit inside the other's destination square.
func (p *Position) computeCastlingPaths() {
	for bit := CastlingRights(1); bit <= BlackQueenSideCastle; bit <<= 1 {
		if p.CastlingRights&bit == 0 {
			continue
		}
		idx := castlingIndex(bit)
		rookSq := p.CastlingRookSquare[idx]
		if rookSq == NoSquare {
			continue
		}
		var kingFrom Square
		if bit == WhiteKingSideCastle || bit == WhiteQueenSideCastle {
			kingFrom = p.Pieces[White][King].LSB()
		} else {
			kingFrom = p.Pieces[Black][King].LSB()
		}
		kingside := bit == WhiteKingSideCastle || bit == BlackKingSideCastle
		kingTo := KingDestination(kingFrom, kingside)
		rank := kingFrom.Rank()
		var rookTo Square
		if kingside {
			rookTo = NewSquare(5, rank)
		} else {
			rookTo = NewSquare(3, rank)
		}

		path := Between(kingFrom, kingTo) | SquareBB(kingTo) | Between(rookSq, rookTo) | SquareBB(rookTo)
		path &^= SquareBB(kingFrom) | SquareBB(rookSq)
		p.CastlingPath[idx] = path
	}
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	// Piece placement
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				empty++
			} else {
				if empty > 0 {
					sb.WriteString(strconv.Itoa(empty))
					empty = 0
				}
				sb.WriteString(piece.String())
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	// Side to move
	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	// Castling rights
	sb.WriteByte(' ')
	sb.WriteString(p.CastlingRights.String())

	// En passant
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	// Half-move clock and full-move number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}

// ComputeHash computes the Zobrist hash for the position from scratch.
func (p *Position) ComputeHash() uint64 {
	var hash uint64

	// Hash pieces
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				hash ^= zobristPiece[c][pt][sq]
			}
		}
	}

	// Hash side to move
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}

	// Hash castling rights
	hash ^= zobristCastling[p.CastlingRights]

	// Hash en passant
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	return hash
}

// ComputePawnKey computes the pawn hash key from scratch.
// Only includes pawn positions for pawn structure caching.
func (p *Position) ComputePawnKey() uint64 {
	var key uint64

	for c := White; c <= Black; c++ {
		bb := p.Pieces[c][Pawn]
		for bb != 0 {
			sq := bb.PopLSB()
			key ^= zobristPiece[c][Pawn][sq]
		}
	}

	return key
}

// ComputeNonPawnKeys computes the per-color non-pawn hash keys from
// scratch. Each key covers one color's pieces other than pawns.
func (p *Position) ComputeNonPawnKeys() [2]uint64 {
	var keys [2]uint64

	for c := White; c <= Black; c++ {
		for pt := Knight; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				keys[c] ^= zobristPiece[c][pt][sq]
			}
		}
	}

	return keys
}
