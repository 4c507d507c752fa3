// Package game wraps the external chess rules engine (github.com/notnil/chess)
// behind the small surface the search core needs: legal-move generation,
// move application, terminal detection and result scoring.
package game

import (
	"fmt"

	"github.com/notnil/chess"
)

// NullMove is the sentinel returned whenever no move exists, per the UCI
// convention this engine follows.
const NullMove = "0000"

// Result is the outcome of a finished game from White's perspective.
type Result int8

// Result values. Undefined means the game has not ended.
const (
	Undefined Result = iota
	WhiteWins
	BlackWins
	Draw
)

// Position is one game state: the board plus the move history that produced
// it. It is the Position type of the specification; Apply never mutates the
// receiver, it returns an independent successor.
type Position struct {
	g *chess.Game
}

// NewPosition returns the starting position, using UCI notation for parsing
// and rendering moves (matching the wire format the search core consumes).
func NewPosition() *Position {
	return &Position{g: chess.NewGame(chess.UseNotation(chess.UCINotation{}))}
}

// fromGame wraps an already-built *chess.Game without copying it.
func fromGame(g *chess.Game) *Position {
	return &Position{g: g}
}

// Turn returns the colour to move.
func (p *Position) Turn() chess.Color {
	return p.g.Position().Turn()
}

// Hash returns a stable hash of the board (ignoring history), suitable for
// transposition bookkeeping.
func (p *Position) Hash() [16]byte {
	return p.g.Position().Hash()
}

// Board returns the underlying board, used by the encoder.
func (p *Position) Board() *chess.Board {
	return p.g.Position().Board()
}

// MoveNumber is the number of plies applied to reach this position.
func (p *Position) MoveNumber() int {
	return len(p.g.Moves())
}

// LegalMoves returns the legal moves from this position as UCI strings, in
// the rules engine's own enumeration order. Expansion consumes this order
// LIFO (see mcts.expand), so the order here directly determines child order.
func (p *Position) LegalMoves() []string {
	valid := p.g.ValidMoves()
	out := make([]string, len(valid))
	for i, m := range valid {
		out[i] = m.String()
	}
	return out
}

// Check reports whether m is a legal move from this position.
func (p *Position) Check(m string) bool {
	for _, v := range p.g.ValidMoves() {
		if v.String() == m {
			return true
		}
	}
	return false
}

// Apply applies the UCI move m and returns the resulting Position. It panics
// if m is not legal: the search core only ever feeds legal moves (see
// errs.ErrInvalidMove doc comment), so an illegal move here is a programming
// error, not a runtime condition to recover from.
func (p *Position) Apply(m string) *Position {
	clone := p.g.Clone()
	if err := clone.MoveStr(m); err != nil {
		panic(fmt.Sprintf("game: illegal move fed to Apply: %s: %v", m, err))
	}
	return fromGame(clone)
}

// Result reports whether the game has ended and, if so, its result.
func (p *Position) Result() (ended bool, result Result) {
	switch p.g.Outcome() {
	case chess.NoOutcome:
		return false, Undefined
	case chess.WhiteWon:
		return true, WhiteWins
	case chess.BlackWon:
		return true, BlackWins
	default:
		return true, Draw
	}
}

// Score returns the scalar game result from White's perspective: +1, 0 or
// -1. It must only be called on a terminal position.
func (r Result) Score() float32 {
	switch r {
	case WhiteWins:
		return 1
	case BlackWins:
		return -1
	default:
		return 0
	}
}

// MoveHistory returns the UCI strings of every move applied so far, oldest
// first.
func (p *Position) MoveHistory() []string {
	moves := p.g.Moves()
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

// History returns the n positions preceding the current one (the current
// position itself is not included), most recent first. Missing (pre-game)
// entries are nil, to be zero-padded by the encoder.
func (p *Position) History(n int) []*chess.Position {
	all := p.g.Positions() // oldest (start) first, len == MoveNumber()+1
	out := make([]*chess.Position, n)
	for i := 0; i < n; i++ {
		idx := len(all) - 2 - i
		if idx < 0 {
			break
		}
		out[i] = all[idx]
	}
	return out
}

// Clone returns an independent copy of the position.
func (p *Position) Clone() *Position {
	return fromGame(p.g.Clone())
}

// String renders the board for debugging.
func (p *Position) String() string {
	return p.g.Position().Board().Draw()
}
