package cl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTablePutIsStable(t *testing.T) {
	var h handleTable[string]

	a := h.put("platform-a")
	b := h.put("platform-b")
	require.NotZero(t, a)
	require.NotZero(t, b)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, h.put("platform-a"), "same object must keep its handle")
	assert.Equal(t, 2, h.len())
}

func TestHandleTableTakeOnce(t *testing.T) {
	var h handleTable[int]

	id := h.put(42)
	v, ok := h.get(id)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	v, ok = h.take(id)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = h.take(id)
	assert.False(t, ok, "second take must fail")

	_, ok = h.get(id)
	assert.False(t, ok)
	assert.Zero(t, h.len())
}

func TestHandleTableUnknownID(t *testing.T) {
	var h handleTable[int]

	_, ok := h.get(0)
	assert.False(t, ok)
	_, ok = h.take(7)
	assert.False(t, ok)
}

func TestHandleTableReissuesAfterTake(t *testing.T) {
	var h handleTable[int]

	first := h.put(1)
	_, ok := h.take(first)
	require.True(t, ok)

	second := h.put(1)
	assert.NotEqual(t, first, second, "handles are never reused")
}
