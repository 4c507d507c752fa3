package game

import (
	"github.com/notnil/chess"
	"gorgonia.org/tensor"
)

// HistoryDepth is the default number of predecessor positions folded into
// the encoded tensor, matching the reference AlphaZero-chess encoder (T=8).
const HistoryDepth = 8

// pieceTypes lists the six piece types in a fixed order, used to lay down
// one binary plane per piece type per colour.
var pieceTypes = [6]chess.PieceType{
	chess.King, chess.Queen, chess.Rook, chess.Bishop, chess.Knight, chess.Pawn,
}

// Encoder turns Positions into the fixed-shape tensor the network consumes.
// It is deterministic and holds no state beyond its configured history
// depth, so encoding the same position twice yields identical tensors.
type Encoder struct {
	HistoryDepth int
}

// NewEncoder returns an Encoder using the given history depth; a
// non-positive depth is replaced by HistoryDepth.
func NewEncoder(historyDepth int) *Encoder {
	if historyDepth <= 0 {
		historyDepth = HistoryDepth
	}
	return &Encoder{HistoryDepth: historyDepth}
}

// Planes returns the number of feature planes produced per position:
// 14 per history slot (current + HistoryDepth predecessors) plus one
// side-to-move plane.
func (e *Encoder) Planes() int {
	return 14*(e.HistoryDepth+1) + 1
}

// Encode builds the 8x8xPlanes() tensor for pos: for the current position
// and each of HistoryDepth predecessors (zero-padded when history is
// short), 14 binary planes (6 piece types + 1 blank plane, per colour), and
// a final plane filled with the side-to-move indicator.
func (e *Encoder) Encode(pos *Position) *tensor.Dense {
	planes := e.Planes()
	backing := make([]float32, 8*8*planes)

	writePlaneSet := func(board *chess.Board, slot int) {
		if board == nil {
			return // zero-padded: leave as zeroes
		}
		base := slot * 14
		m := board.SquareMap()
		var ourBlank, theirBlank [64]bool
		for i := range ourBlank {
			ourBlank[i] = true
			theirBlank[i] = true
		}
		for sq, piece := range m {
			if piece == chess.NoPiece {
				continue
			}
			ptIdx := pieceTypeIndex(piece.Type())
			if ptIdx < 0 {
				continue
			}
			colourOffset := 0
			if piece.Color() == chess.Black {
				colourOffset = 7
				theirBlank[sq] = false
			} else {
				ourBlank[sq] = false
			}
			plane := base + colourOffset + ptIdx
			idx := int(sq)*planes + plane
			backing[idx] = 1
		}
		// blank planes: complement of the piece planes for each colour.
		for sq := 0; sq < 64; sq++ {
			if ourBlank[sq] {
				backing[sq*planes+base+6] = 1
			}
			if theirBlank[sq] {
				backing[sq*planes+base+13] = 1
			}
		}
	}

	writePlaneSet(pos.Board(), 0)
	history := pos.History(e.HistoryDepth)
	for i, h := range history {
		if h == nil {
			continue
		}
		writePlaneSet(h.Board(), i+1)
	}

	turnVal := float32(0)
	if pos.Turn() == chess.Black {
		turnVal = 1
	}
	turnPlane := planes - 1
	for sq := 0; sq < 64; sq++ {
		backing[sq*planes+turnPlane] = turnVal
	}

	return tensor.New(tensor.WithBacking(backing), tensor.WithShape(8, 8, planes))
}

func pieceTypeIndex(pt chess.PieceType) int {
	for i, p := range pieceTypes {
		if p == pt {
			return i
		}
	}
	return -1
}

// Stack combines per-request tensors into one batch tensor of shape
// [N, 8, 8, Planes], the representation the broker hands to the model in
// one call.
func Stack(reqs []*tensor.Dense) (*tensor.Dense, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	ts := make([]tensor.Tensor, len(reqs))
	for i, t := range reqs {
		ts[i] = t
	}
	return tensor.Stack(0, ts[0], ts[1:]...)
}
