package mcts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rookzero/engine/errs"
	"github.com/rookzero/engine/game"
)

// mockPlayer is a deterministic stand-in for the Player Facade: it returns
// a fixed value and a uniform policy, and picks the first legal move as its
// "best move" for opponent replies — enough to drive the scenarios in the
// specification's testable-properties section without a real broker.
type mockPlayer struct {
	value float32
	delay func()
}

func (m *mockPlayer) PredictValue(pos *game.Position) (float32, error) {
	if m.delay != nil {
		m.delay()
	}
	return m.value, nil
}

func (m *mockPlayer) PredictPolicy(pos *game.Position, maskLegal bool) ([]float32, error) {
	legal := pos.LegalMoves()
	p := make([]float32, len(legal))
	if len(legal) == 0 {
		return p, nil
	}
	v := float32(1) / float32(len(legal))
	for i := range p {
		p[i] = v
	}
	return p, nil
}

func (m *mockPlayer) BestMove(pos *game.Position, realGame bool) (string, error) {
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return game.NullMove, nil
	}
	return legal[0], nil
}

func (m *mockPlayer) Clone() Player {
	return &mockPlayer{value: m.value, delay: m.delay}
}

func TestSearchMoveSingleIterationExpandsOneChild(t *testing.T) {
	pos := game.NewPosition()
	player := &mockPlayer{value: 0}
	cfg := Config{MaxIters: 1, Threads: 1, PUCTConst: DefaultPUCTConst, Noise: false, TauSwitchPly: 30}

	tree := newTree(pos)
	require.NoError(t, pass(tree, player, cfg.PUCTConst))

	root := tree.Root()
	require.Equal(t, uint32(2), root.Visits())
	require.Equal(t, float32(0), root.Value())
	require.Len(t, root.Children(), 1)
	require.Equal(t, uint32(0), root.VLoss())
}

func TestSearchMoveStalemateReturnsNullMoveImmediately(t *testing.T) {
	// Fool's mate leaves White checkmated, not stalemated, but exercises the
	// same "no legal moves" early-return path SearchMove takes before ever
	// touching a player.
	pos := game.NewPosition()
	for _, m := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		pos = pos.Apply(m)
	}
	ended, _ := pos.Result()
	require.True(t, ended)

	player := &countingPlayer{}
	res, err := SearchMove(context.Background(), pos, player, DefaultConfig(), true)
	require.NoError(t, err)
	require.Equal(t, game.NullMove, res.Move)
	require.Equal(t, game.NullMove, res.Reply)
	require.Equal(t, 0, player.calls)
}

type countingPlayer struct{ calls int }

func (c *countingPlayer) PredictValue(pos *game.Position) (float32, error) {
	c.calls++
	return 0, nil
}
func (c *countingPlayer) PredictPolicy(pos *game.Position, maskLegal bool) ([]float32, error) {
	c.calls++
	return nil, nil
}
func (c *countingPlayer) BestMove(pos *game.Position, realGame bool) (string, error) {
	c.calls++
	return game.NullMove, nil
}
func (c *countingPlayer) Clone() Player { return c }

func TestSearchMoveCheckmateInOne(t *testing.T) {
	// The classic scholar's-mate trap: after 1.e4 e5 2.Qh5 Nc6 3.Bc4 Nf6??,
	// Qxf7 is checkmate.
	pos := game.NewPosition()
	for _, m := range []string{"e2e4", "e7e5", "d1h5", "b8c6", "f1c4", "g8f6"} {
		pos = pos.Apply(m)
	}
	player := &mockPlayer{value: 0}
	res, err := SearchMove(context.Background(), pos, player, Config{
		MaxIters: 200, Threads: 4, PUCTConst: DefaultPUCTConst, Noise: false, TauSwitchPly: 30,
	}, false)
	require.NoError(t, err)
	require.NotEqual(t, game.NullMove, res.Move)
	next := pos.Apply(res.Move)
	ended, result := next.Result()
	require.True(t, ended)
	require.Equal(t, game.WhiteWins, result)
}

func TestSearchMoveVirtualLossDivergesUnderContention(t *testing.T) {
	pos := game.NewPosition()
	player := &mockPlayer{value: 0, delay: func() { time.Sleep(50 * time.Millisecond) }}
	cfg := Config{MaxIters: 8, Threads: 8, PUCTConst: DefaultPUCTConst, Noise: false, TauSwitchPly: 30}

	_, err := SearchMove(context.Background(), pos, player, cfg, false)
	require.NoError(t, err)

	tree, err := DebugTree(context.Background(), pos, player, cfg)
	require.NoError(t, err)
	visited := 0
	for _, ci := range tree.Root().Children() {
		if tree.node(ci).Visits() >= 1 {
			visited++
		}
	}
	require.GreaterOrEqual(t, visited, 2)
}

func TestBackpropagateReleasesVirtualLossAtLeafOnly(t *testing.T) {
	pos := game.NewPosition()
	tree := newTree(pos)
	player := &mockPlayer{value: 0.5}

	leafIdx, err := selectLeaf(tree, tree.root, player, DefaultPUCTConst)
	require.NoError(t, err)
	require.Equal(t, uint32(1), tree.node(leafIdx).VLoss())

	backpropagate(tree, leafIdx, 0.5)
	require.Equal(t, uint32(0), tree.node(leafIdx).VLoss())
	require.Equal(t, uint32(0), tree.Root().VLoss())
}

func TestExpandAssignsPriorsOnlyWhenFullyExpanded(t *testing.T) {
	pos := game.NewPosition()
	tree := newTree(pos)
	player := &mockPlayer{value: 0}

	legal := pos.LegalMoves()
	root := tree.Root()
	for i := 0; i < len(legal)-1; i++ {
		_, err := expand(tree, tree.root, player)
		require.NoError(t, err)
	}
	// Not yet fully expanded: priors are still the default sentinel.
	for _, ci := range root.Children() {
		require.Equal(t, float32(1), tree.node(ci).Prior())
	}

	_, err := expand(tree, tree.root, player)
	require.NoError(t, err)
	require.True(t, root.fullyExpanded())

	var sum float32
	for _, ci := range root.Children() {
		sum += tree.node(ci).Prior()
	}
	require.InDelta(t, float64(1), float64(sum), 0.01)
}

func TestExpandOrderIsReverseOfLegalMoves(t *testing.T) {
	pos := game.NewPosition()
	tree := newTree(pos)
	player := &mockPlayer{value: 0}
	legal := pos.LegalMoves()

	for range legal {
		_, err := expand(tree, tree.root, player)
		require.NoError(t, err)
	}

	root := tree.Root()
	children := root.Children()
	require.Len(t, children, len(legal))
	for i, ci := range children {
		ourMove, _ := tree.node(ci).Moves()
		require.Equal(t, legal[len(legal)-1-i], ourMove)
	}
}

func TestSimulateTerminalLeafNeverCallsPlayer(t *testing.T) {
	pos := game.NewPosition()
	for _, m := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		pos = pos.Apply(m)
	}
	tree := newTree(pos)
	player := &countingPlayer{}

	err := pass(tree, player, DefaultPUCTConst)
	require.NoError(t, err)
	require.Equal(t, 0, player.calls)
	require.Equal(t, uint32(2), tree.Root().Visits())
}

func TestSearchMoveDeterministicAtT1NoNoise(t *testing.T) {
	run := func() string {
		pos := game.NewPosition()
		player := &mockPlayer{value: 0}
		cfg := Config{MaxIters: 5, Threads: 1, PUCTConst: DefaultPUCTConst, Noise: false, TauSwitchPly: 30}
		res, err := SearchMove(context.Background(), pos, player, cfg, false)
		require.NoError(t, err)
		return res.Move
	}
	first := run()
	second := run()
	require.Equal(t, first, second)
}

// failingPolicyPlayer errors on PredictPolicy, used to confirm expand
// surfaces that failure instead of silently leaving priors at the sentinel
// default.
type failingPolicyPlayer struct{}

func (failingPolicyPlayer) PredictValue(pos *game.Position) (float32, error) { return 0, nil }
func (failingPolicyPlayer) PredictPolicy(pos *game.Position, maskLegal bool) ([]float32, error) {
	return nil, errs.ErrModelFailure
}
func (failingPolicyPlayer) BestMove(pos *game.Position, realGame bool) (string, error) {
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return game.NullMove, nil
	}
	return legal[0], nil
}
func (p failingPolicyPlayer) Clone() Player { return p }

func TestExpandPropagatesPolicyFailureOnLastPop(t *testing.T) {
	pos := game.NewPosition()
	tree := newTree(pos)
	player := failingPolicyPlayer{}
	legal := pos.LegalMoves()

	for i := 0; i < len(legal)-1; i++ {
		_, err := expand(tree, tree.root, player)
		require.NoError(t, err)
	}

	_, err := expand(tree, tree.root, player)
	require.ErrorIs(t, err, errs.ErrModelFailure)
	// The untried-move pop already landed before the failing policy fetch,
	// so the node is left fully expanded; the caller (selectLeaf/pass) is
	// responsible for aborting on this error rather than treating the node
	// as usable.
	require.True(t, tree.Root().fullyExpanded())
}

// invalidReplyPlayer always proposes an opponent reply that is illegal in
// the position it is offered, to confirm expand rejects it instead of
// letting Position.Apply panic.
type invalidReplyPlayer struct{ *mockPlayer }

func (invalidReplyPlayer) BestMove(pos *game.Position, realGame bool) (string, error) {
	return "a1a1", nil
}

func TestExpandRejectsIllegalOpponentReply(t *testing.T) {
	pos := game.NewPosition()
	tree := newTree(pos)
	player := invalidReplyPlayer{&mockPlayer{value: 0}}

	_, err := expand(tree, tree.root, player)
	require.ErrorIs(t, err, errs.ErrInvalidMove)
}

// TestSelectLeafSurvivesRaceOnLastUntriedMove exercises the TOCTOU window
// between selectLeaf's fullyExpanded() check and expand's untried-move pop:
// with exactly one untried move left, two concurrent callers can both see
// fullyExpanded()==false before either pops it. The loser must retry via
// selectChild instead of failing its pass.
func TestSelectLeafSurvivesRaceOnLastUntriedMove(t *testing.T) {
	pos := game.NewPosition()
	legal := pos.LegalMoves()

	for attempt := 0; attempt < 25; attempt++ {
		tree := newTree(pos)
		player := &mockPlayer{value: 0}
		for i := 0; i < len(legal)-1; i++ {
			_, err := expand(tree, tree.root, player)
			require.NoError(t, err)
		}
		require.Len(t, tree.Root().untried, 1)

		var wg sync.WaitGroup
		errsOut := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := selectLeaf(tree, tree.root, player, DefaultPUCTConst)
				errsOut[i] = err
			}(i)
		}
		wg.Wait()

		require.NoError(t, errsOut[0])
		require.NoError(t, errsOut[1])
		require.Len(t, tree.Root().Children(), len(legal))
	}
}
