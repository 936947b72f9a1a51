package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEmptyUndoRedoFail(t *testing.T) {
	h := NewHistory()
	_, ok := h.Undo()
	assert.False(t, ok)
	_, ok = h.Redo()
	assert.False(t, ok)
}

func TestRecordClearsRedo(t *testing.T) {
	h := NewHistory()
	h.Record(ClearAction{Layer: 0})
	h.Record(ClearAction{Layer: 1})
	_, ok := h.Undo()
	require.True(t, ok)
	require.Equal(t, 1, h.RedoLen())

	h.Record(ClearAllAction{})
	assert.Equal(t, 0, h.RedoLen())
	assert.Equal(t, 2, h.UndoLen())
}

func TestUndoMovesEntryToRedo(t *testing.T) {
	h := NewHistory()
	h.Record(ClearAction{Layer: 3})
	a, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, ClearAction{Layer: 3}, a)
	assert.Equal(t, 0, h.UndoLen())
	assert.Equal(t, 1, h.RedoLen())

	b, ok := h.Redo()
	require.True(t, ok)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, h.UndoLen())
	assert.Equal(t, 0, h.RedoLen())
}

func TestUndoStackBounded(t *testing.T) {
	h := NewHistory()
	for i := 0; i < maxUndo+10; i++ {
		h.Record(ClearAction{Layer: i})
	}
	require.Equal(t, maxUndo, h.UndoLen())
	// The oldest entries were evicted.
	first := h.Entries()[0].(ClearAction)
	assert.Equal(t, 10, first.Layer)
}
