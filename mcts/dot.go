package mcts

import (
	"fmt"

	"github.com/awalterschulze/gographviz"
)

// DOT renders the tree as Graphviz DOT source for offline inspection. It
// walks the arena directly rather than recursing from the root, so it never
// stack-overflows on a deep tree.
func (t *Tree) DOT() string {
	g := gographviz.NewGraph()
	_ = g.SetName("tree")
	_ = g.SetDir(true)

	t.mu.Lock()
	arena := append([]*Node(nil), t.arena...)
	t.mu.Unlock()

	for i, n := range arena {
		n.mu.Lock()
		hash := n.position.Hash()
		label := fmt.Sprintf("\"n=%d pos=%x visits=%d value=%.3f prior=%.3f vloss=%d\"",
			i, hash[:4], n.visits, n.value, n.prior, n.vloss)
		parent := n.parent
		n.mu.Unlock()

		name := fmt.Sprintf("n%d", i)
		_ = g.AddNode("tree", name, map[string]string{"label": label})
		if parent != nilNode {
			_ = g.AddEdge(fmt.Sprintf("n%d", parent), name, true, nil)
		}
	}
	return g.String()
}
