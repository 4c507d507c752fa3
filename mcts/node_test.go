package mcts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rookzero/engine/game"
)

func TestNewNodeDefaultPriorIsOne(t *testing.T) {
	pos := game.NewPosition()
	n := newNode(pos, nilNode)
	require.Equal(t, float32(1), n.Prior())
	require.False(t, n.fullyExpanded())
	require.Len(t, n.untried, 20) // start position has 20 legal moves
}

func TestNodeFullyExpandedOnceUntriedEmpty(t *testing.T) {
	pos := game.NewPosition()
	n := newNode(pos, nilNode)
	n.untried = nil
	require.True(t, n.fullyExpanded())
}

func TestNodeAccessorsAreLockProtected(t *testing.T) {
	pos := game.NewPosition()
	n := newNode(pos, nilNode)
	n.visits = 4
	n.value = 2.5
	n.vloss = 1
	require.Equal(t, uint32(4), n.Visits())
	require.Equal(t, float32(2.5), n.Value())
	require.Equal(t, uint32(1), n.VLoss())
}
