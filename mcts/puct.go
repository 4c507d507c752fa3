package mcts

import "github.com/chewxy/math32"

// DefaultPUCTConst is the exploration constant C. It is larger than the
// typical AlphaZero C≈1-4, retained verbatim from the reference source.
const DefaultPUCTConst float32 = 10

// puctScore computes the PUCT selection score for candidate child, given the
// summed visit count across all children of child's own parent (the
// standard N(s,·) term, computed once per selection by the caller and
// shared across every sibling).
//
//	score = value/(1+visits) + C·prior·sqrt(siblingVisitSum)/(1+visits) - vloss
func puctScore(child *Node, c float32, siblingVisitSum uint32) float32 {
	child.mu.Lock()
	visits := child.visits
	value := child.value
	prior := child.prior
	vloss := child.vloss
	child.mu.Unlock()

	denom := 1 + float32(visits)
	q := value / denom
	u := c * prior * math32.Sqrt(float32(siblingVisitSum)) / denom
	return q + u - float32(vloss)
}

// selectChild picks the PUCT-maximising child of node. Ties are broken by
// child index: the first child to reach the maximum wins, since later
// candidates must strictly exceed it to replace it.
func selectChild(tree *Tree, node *Node, puctC float32) (int32, error) {
	children := node.Children()
	if len(children) == 0 {
		return nilNode, errNoChildren
	}

	var total uint32
	for _, ci := range children {
		total += tree.node(ci).Visits()
	}

	best := children[0]
	bestScore := math32.Inf(-1)
	for _, ci := range children {
		score := puctScore(tree.node(ci), puctC, total)
		if score > bestScore {
			bestScore = score
			best = ci
		}
	}
	return best, nil
}
