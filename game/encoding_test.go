package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIsDeterministic(t *testing.T) {
	pos := NewPosition()
	enc := NewEncoder(HistoryDepth)

	a := enc.Encode(pos)
	b := enc.Encode(pos)

	require.Equal(t, a.Shape(), b.Shape())
	aData := a.Data().([]float32)
	bData := b.Data().([]float32)
	assert.Equal(t, aData, bData)
}

func TestEncodeShape(t *testing.T) {
	pos := NewPosition()
	enc := NewEncoder(8)
	out := enc.Encode(pos)
	require.Equal(t, []int{8, 8, 14*9 + 1}, []int(out.Shape()))
}

func TestEncodeAfterMoveDiffers(t *testing.T) {
	pos := NewPosition()
	enc := NewEncoder(8)
	before := enc.Encode(pos)

	after := pos.Apply("e2e4")
	afterTensor := enc.Encode(after)

	assert.NotEqual(t, before.Data(), afterTensor.Data())
}
