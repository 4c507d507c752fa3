// Package mcts implements the parallel PUCT Monte Carlo Tree Search core:
// an arena-backed Tree of Nodes, the select/expand/simulate/backpropagate
// primitives, and the SearchMove driver that runs many exploration passes
// concurrently against a Player and extracts a move from the resulting
// visit distribution.
package mcts

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/rookzero/engine/errs"
	"github.com/rookzero/engine/game"
)

var (
	errAlreadyExpanded = errors.New("mcts: node has no untried moves left")
	errNoChildren      = errors.New("mcts: node has no children to select among")
)

// Player is the narrow interface the search core consumes from the Player
// Facade: value/policy prediction and best-move lookup, each assumed to be
// backed by an independent broker channel so that cloned workers never
// serialise on each other's traffic.
type Player interface {
	PredictValue(pos *game.Position) (float32, error)
	PredictPolicy(pos *game.Position, maskLegal bool) ([]float32, error)
	BestMove(pos *game.Position, realGame bool) (string, error)
	Clone() Player
}

// Config configures one SearchMove call.
type Config struct {
	MaxIters         int
	Threads          int
	PUCTConst        float32
	Noise            bool
	TauSwitchPly     int
	DirichletAlpha   float64
	DirichletEpsilon float64
}

// DefaultConfig mirrors the specification's defaults.
func DefaultConfig() Config {
	return Config{
		MaxIters:         900,
		Threads:          6,
		PUCTConst:        DefaultPUCTConst,
		Noise:            true,
		TauSwitchPly:     30,
		DirichletAlpha:   0.03,
		DirichletEpsilon: 0.25,
	}
}

// Result is what SearchMove returns: the move we chose and, when requested,
// the opponent's reply folded into the same tree edge. Either may be
// game.NullMove when no move exists or the corresponding slot is absent.
type Result struct {
	Move  string
	Reply string
}

var nullResult = Result{Move: game.NullMove, Reply: game.NullMove}

// SearchMove runs cfg.MaxIters exploration passes against pos using player
// and returns the chosen move. It returns the null-move sentinel
// immediately, without any broker traffic, when pos has no legal moves.
func SearchMove(ctx context.Context, pos *game.Position, player Player, cfg Config, aiMove bool) (Result, error) {
	if ended, _ := pos.Result(); ended {
		return nullResult, nil
	}
	if len(pos.LegalMoves()) == 0 {
		return nullResult, nil
	}

	tree, err := runSearch(ctx, pos, player, cfg)
	if err != nil {
		return Result{}, err
	}

	root := tree.Root()
	children := root.Children()
	if len(children) == 0 {
		return nullResult, nil
	}

	pi := tree.RootPolicy(PolicyConfig{
		TauSwitchPly:     cfg.TauSwitchPly,
		DirichletNoise:   cfg.Noise,
		DirichletAlpha:   cfg.DirichletAlpha,
		DirichletEpsilon: cfg.DirichletEpsilon,
	})

	best := 0
	for i, p := range pi {
		if p > pi[best] {
			best = i
		}
	}

	bestNode := tree.node(children[best])
	ourMove, replyMove := bestNode.Moves()
	result := Result{Move: ourMove, Reply: game.NullMove}
	if aiMove {
		result.Reply = replyMove
	}
	return result, nil
}

// DebugTree runs the same exploration passes as SearchMove but returns the
// resulting Tree itself instead of extracting a move, for offline
// inspection (e.g. Tree.DOT()). It does not apply the "already terminal" or
// "no legal moves" early returns SearchMove has, since an empty tree has
// nothing interesting to render; callers should check pos.Result() first.
func DebugTree(ctx context.Context, pos *game.Position, player Player, cfg Config) (*Tree, error) {
	return runSearch(ctx, pos, player, cfg)
}

// runSearch builds a fresh Tree rooted at pos and runs cfg.MaxIters
// exploration passes across cfg.Threads worker goroutines, each holding its
// own cloned Player handle so broker requests pipeline across workers.
func runSearch(ctx context.Context, pos *game.Position, player Player, cfg Config) (*Tree, error) {
	tree := newTree(pos)

	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	maxIters := cfg.MaxIters
	if maxIters < 1 {
		maxIters = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	perWorker := maxIters / threads
	remainder := maxIters % threads

	for w := 0; w < threads; w++ {
		n := perWorker
		if w < remainder {
			n++
		}
		worker := player.Clone()
		g.Go(func() error {
			for i := 0; i < n; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				if err := pass(tree, worker, cfg.PUCTConst); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tree, nil
}

// pass performs one select -> expand-if-needed -> simulate -> backpropagate
// exploration pass against tree, using player for priors/value/best-reply
// lookups. On error the pass releases any virtual loss it applied and
// returns without backpropagating.
func pass(tree *Tree, player Player, puctC float32) error {
	leafIdx, err := selectLeaf(tree, tree.root, player, puctC)
	if err != nil {
		return err
	}
	leaf := tree.node(leafIdx)

	ended, result := leaf.position.Result()
	var value float32
	if ended {
		value = result.Score()
	} else {
		v, err := player.PredictValue(leaf.position)
		if err != nil {
			releaseVloss(tree, leafIdx)
			return err
		}
		value = v
	}

	backpropagate(tree, leafIdx, value)
	return nil
}

// selectLeaf descends from start via PUCT, expanding the first
// not-fully-expanded node it meets, and applies one virtual loss to the node
// it stops at.
func selectLeaf(tree *Tree, start int32, player Player, puctC float32) (int32, error) {
	current := start
	for {
		node := tree.node(current)

		if ended, _ := node.position.Result(); ended {
			applyVloss(node)
			return current, nil
		}

		if !node.fullyExpanded() {
			child, err := expand(tree, current, player)
			if err == errAlreadyExpanded {
				// Another worker popped the last untried move between our
				// fullyExpanded() check and the expand() call. node is now
				// fully expanded; fall through to selectChild below.
				next, err := selectChild(tree, node, puctC)
				if err != nil {
					return nilNode, err
				}
				current = next
				continue
			}
			if err != nil {
				return nilNode, err
			}
			applyVloss(tree.node(child))
			return child, nil
		}

		next, err := selectChild(tree, node, puctC)
		if err != nil {
			return nilNode, err
		}
		current = next
	}
}

// expand pops one untried action from node (LIFO), applies it plus the
// opponent's best reply when the resulting position is non-terminal, and
// appends the new child. If this empties node's untried stack, it also
// fetches node's masked policy and assigns priors to every one of node's
// children in one pass, in the reverse of consumption order (children were
// appended in LIFO-pop order, so children[0] corresponds to the
// legal-move-order policy's last entry).
//
// The whole operation holds node's mutex: the coarsest-granularity option
// the design explicitly permits. This serialises expansion of a single
// node across workers but lets distinct nodes expand fully concurrently,
// and it makes prior-assignment-exactly-once trivial to guarantee.
func expand(tree *Tree, nodeIdx int32, player Player) (int32, error) {
	node := tree.node(nodeIdx)
	node.mu.Lock()
	defer node.mu.Unlock()

	if len(node.untried) == 0 {
		return nilNode, errAlreadyExpanded
	}
	last := len(node.untried) - 1
	ourMove := node.untried[last]
	node.untried = node.untried[:last]

	after := node.position.Apply(ourMove)
	replyMove := game.NullMove
	if ended, _ := after.Result(); !ended {
		reply, err := player.BestMove(after, true)
		if err != nil {
			return nilNode, err
		}
		if reply != game.NullMove {
			// The reply comes back over the broker/Player boundary, not
			// from our own move generator, so it is validated before
			// Apply rather than trusted: Apply panics on an illegal move.
			if !after.Check(reply) {
				return nilNode, errors.Wrapf(errs.ErrInvalidMove, "opponent reply %q", reply)
			}
			after = after.Apply(reply)
			replyMove = reply
		}
	}

	child := newNode(after, nodeIdx)
	child.ourMove = ourMove
	child.replyMove = replyMove
	childIdx := tree.alloc(child)
	node.children = append(node.children, childIdx)

	if len(node.untried) == 0 {
		legal := node.position.LegalMoves()
		policy, err := player.PredictPolicy(node.position, true)
		if err != nil {
			return nilNode, err
		}
		if len(policy) == len(legal) {
			n := len(node.children)
			for j := 0; j < n; j++ {
				c := tree.node(node.children[j])
				c.mu.Lock()
				c.prior = policy[n-1-j]
				c.mu.Unlock()
			}
		}
	}

	return childIdx, nil
}

func applyVloss(n *Node) {
	n.mu.Lock()
	n.vloss++
	n.mu.Unlock()
}

func releaseVloss(tree *Tree, idx int32) {
	if idx == nilNode {
		return
	}
	n := tree.node(idx)
	n.mu.Lock()
	if n.vloss > 0 {
		n.vloss--
	}
	n.mu.Unlock()
}

// backpropagate walks parent links from leafIdx to the root, incrementing
// visits and adding value under each node's mutex. The virtual loss applied
// in selectLeaf is released only at the leaf itself; ancestors never carry
// per-pass vloss.
func backpropagate(tree *Tree, leafIdx int32, value float32) {
	idx := leafIdx
	first := true
	for idx != nilNode {
		n := tree.node(idx)
		n.mu.Lock()
		n.visits++
		n.value += value
		if first && n.vloss > 0 {
			n.vloss--
		}
		parent := n.parent
		n.mu.Unlock()
		first = false
		idx = parent
	}
}
