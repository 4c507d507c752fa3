package mcts

import (
	"sync"

	"github.com/rookzero/engine/game"
)

// rootPrior is the sentinel prior value the data model assigns to the root
// (it is never read by selection, since the root is never a candidate
// child).
const rootPrior float32 = -1

// Tree is the per-search-move arena of Nodes: it exists for the duration of
// exactly one SearchMove call, owns every Node exclusively, and is
// discarded wholesale when the call returns. Nodes are created by expand
// and never removed, so the arena only ever grows.
type Tree struct {
	mu    sync.Mutex // guards arena growth; individual Node fields have their own locks
	arena []*Node
	root  int32
}

// newTree builds a Tree rooted at pos, with the bootstrap visit the data
// model requires (root.visits = 1 at construction).
func newTree(pos *game.Position) *Tree {
	t := &Tree{}
	root := newNode(pos, nilNode)
	root.visits = 1
	root.prior = rootPrior
	t.arena = append(t.arena, root)
	t.root = 0
	return t
}

// alloc appends n to the arena and returns its index.
func (t *Tree) alloc(n *Node) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.arena = append(t.arena, n)
	return int32(len(t.arena) - 1)
}

// node returns the Node at arena index i.
func (t *Tree) node(i int32) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.arena[i]
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node {
	return t.node(t.root)
}

// Size returns the number of nodes allocated so far.
func (t *Tree) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.arena)
}
