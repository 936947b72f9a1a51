package engine

import (
	"layerboard/internal/brush"
	"layerboard/internal/canvas"
)

// maxUndo bounds the undo stack; the oldest entry is evicted on
// overflow.
const maxUndo = 50

// Action is a completed, immutable canvas mutation: one of
// StrokeAction, ClearAction, or ClearAllAction. An action is owned by
// exactly one history stack at a time and moves between the undo and
// redo stacks, never duplicated.
type Action interface {
	isAction()
}

// StrokeAction is one completed pointer-down-to-up gesture. Points is
// never empty; a single-point stroke renders as a dot.
type StrokeAction struct {
	// ID identifies the action in logs only; it never goes on the wire.
	ID      string
	Layer   int
	Color   string
	Size    float64
	Brush   brush.Type
	Opacity float64
	Blend   canvas.BlendMode
	Points  []canvas.Point
}

// ClearAction erases one layer's surface.
type ClearAction struct {
	Layer int
}

// ClearAllAction erases every layer surface.
type ClearAllAction struct{}

func (StrokeAction) isAction()   {}
func (ClearAction) isAction()    {}
func (ClearAllAction) isAction() {}

// History holds the local undo/redo stacks. Undo correctness comes
// from deterministic replay of the remaining stack, not from inverse
// operations, so every Action must replay to the same pixels each
// time.
type History struct {
	undo []Action
	redo []Action
}

// NewHistory creates empty history.
func NewHistory() *History {
	return &History{}
}

// Record appends a completed action to the undo stack, clears the
// redo stack, and evicts the oldest entry past the bound.
func (h *History) Record(a Action) {
	h.undo = append(h.undo, a)
	if len(h.undo) > maxUndo {
		h.undo = h.undo[1:]
	}
	h.redo = h.redo[:0]
}

// Undo pops the most recent action onto the redo stack and returns
// it. Fails when the undo stack is empty.
func (h *History) Undo() (Action, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	a := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, a)
	return a, true
}

// Redo pops the most recently undone action back onto the undo stack
// and returns it. Fails when the redo stack is empty.
func (h *History) Redo() (Action, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	a := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, a)
	return a, true
}

// Entries returns the live undo stack in order, for replay.
func (h *History) Entries() []Action {
	return h.undo
}

// UndoLen returns the undo stack depth.
func (h *History) UndoLen() int { return len(h.undo) }

// RedoLen returns the redo stack depth.
func (h *History) RedoLen() int { return len(h.redo) }
