package mcts

import (
	"sync"

	"github.com/rookzero/engine/game"
)

// nilNode marks the absence of a node: the root's parent, or an expand
// failure.
const nilNode int32 = -1

// Node is one explored (our-move, opponent-reply) tree edge: position is the
// state after both the move that created this node and, when the resulting
// position was non-terminal, the opponent's best reply. parent is a
// non-owning back-reference used only during backpropagation — an index
// into the owning Tree's arena, never a pointer, so tree teardown is a
// single top-down walk and never frees memory through this link.
//
// mu guards every mutable field below, at the coarsest granularity the
// design allows: visits/value/vloss updates, the untried stack, and the
// children slice all serialise through it. This keeps a single node's
// expansion and backpropagation simple at the cost of letting only one
// worker touch a given node's bookkeeping at a time; distinct nodes still
// expand fully concurrently.
type Node struct {
	position *game.Position
	parent   int32

	// ourMove is the move popped from the parent's untried stack that
	// produced this node; replyMove is the opponent's reply folded into the
	// same edge, or game.NullMove when the position after ourMove was
	// already terminal (or reply was itself the null move).
	ourMove   string
	replyMove string

	mu      sync.Mutex
	untried []string // legal moves not yet materialised as children, popped LIFO
	children []int32

	visits uint32
	value  float32
	prior  float32
	vloss  uint32
}

// newNode builds a Node for pos with the given parent arena index. prior
// defaults to 1 until a policy update sets it (data model default).
func newNode(pos *game.Position, parent int32) *Node {
	return &Node{
		position: pos,
		parent:   parent,
		untried:  pos.LegalMoves(),
		prior:    1,
	}
}

// fullyExpanded reports whether every legal move from this node's position
// has been materialised as a child.
func (n *Node) fullyExpanded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.untried) == 0
}

// Visits returns the node's visit count.
func (n *Node) Visits() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visits
}

// Value returns the node's accumulated value sum.
func (n *Node) Value() float32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

// Prior returns the node's prior probability.
func (n *Node) Prior() float32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prior
}

// VLoss returns the node's current virtual-loss count.
func (n *Node) VLoss() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vloss
}

// Children returns a snapshot of the node's children arena indices.
func (n *Node) Children() []int32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int32(nil), n.children...)
}

// Position returns the position this node represents.
func (n *Node) Position() *game.Position {
	return n.position
}

// Moves returns the move (and, if present, the opponent's reply) that
// produced this node.
func (n *Node) Moves() (ourMove, replyMove string) {
	return n.ourMove, n.replyMove
}
