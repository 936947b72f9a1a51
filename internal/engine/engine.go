// Package engine orchestrates the collaborative drawing pipeline:
// pointer input runs through the stabilizer and brush engine into the
// layer stack, completed gestures are recorded into history, and every
// local intent is mirrored onto the room channel. Inbound peer
// messages mutate the same layer stack through the same rendering
// code, with no local echo.
//
// The engine is confined to one goroutine: all input handling, history
// mutation, and recomposition are sequential, and network messages
// must be handed to it in receipt order.
package engine

import (
	"encoding/json"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"

	"layerboard/internal/brush"
	"layerboard/internal/canvas"
	"layerboard/internal/protocol"
)

// Engine is the drawing orchestrator for one participant.
type Engine struct {
	layers   *canvas.LayerStack
	history  *History
	settings Settings

	// OnSend, when set, receives every envelope the engine wants on
	// the room channel. The transport fills in the sender identity.
	OnSend func(protocol.Envelope)

	// In-progress local stroke.
	drawing     bool
	raw         []canvas.Point // raw pointer samples (stabilizer input)
	pts         []canvas.Point // stabilized points, as sent and recorded
	strokeLayer int
	params      brush.Params

	// In-progress remote strokes, at most one per peer.
	builders map[string]*strokeBuilder
}

// strokeBuilder accumulates a remote peer's stroke between its start
// and end messages.
type strokeBuilder struct {
	action StrokeAction
	params brush.Params
}

// New creates an engine with a canvas of the given size and a single
// background layer.
func New(width, height int) *Engine {
	return &Engine{
		layers:   canvas.NewLayerStack(width, height),
		history:  NewHistory(),
		settings: DefaultSettings(),
		builders: make(map[string]*strokeBuilder),
	}
}

// Layers exposes the layer stack.
func (e *Engine) Layers() *canvas.LayerStack { return e.layers }

// History exposes the undo/redo stacks.
func (e *Engine) History() *History { return e.history }

// Settings returns the local drawing settings.
func (e *Engine) Settings() Settings { return e.settings }

func (e *Engine) emit(kind string, payload any) {
	if e.OnSend == nil {
		return
	}
	env, err := protocol.NewEnvelope(kind, payload)
	if err != nil {
		glog.Errorf("engine: marshal %s: %v", kind, err)
		return
	}
	e.OnSend(env)
}

// StrokeStart begins a local stroke at the current layer with the
// current settings. Nothing is painted until the first move; a stroke
// that never moves renders as a dot when it ends.
func (e *Engine) StrokeStart(x, y float64) {
	if e.drawing {
		// A new pointer-down while drawing finalizes the prior stroke.
		e.StrokeEnd()
	}
	e.drawing = true
	e.strokeLayer = e.layers.Current()
	e.raw = []canvas.Point{{X: x, Y: y}}
	p0 := Smooth(e.raw, e.settings.StabilizerWindow)
	e.pts = []canvas.Point{p0}
	e.params = brush.ParamsFor(
		e.settings.Brush,
		canvas.Hex(e.settings.Color),
		e.settings.Size,
		e.settings.Opacity,
		e.settings.Blend,
	)

	e.emit(protocol.KindDrawing, protocol.Drawing{
		Type:       protocol.DrawStart,
		LayerIndex: protocol.IntPtr(e.strokeLayer),
		X:          protocol.FloatPtr(p0.X),
		Y:          protocol.FloatPtr(p0.Y),
		Color:      e.settings.Color,
		Size:       protocol.FloatPtr(e.settings.Size),
		Brush:      e.settings.Brush.String(),
		Opacity:    protocol.FloatPtr(e.settings.Opacity),
		BlendMode:  e.settings.Blend.String(),
	})
}

// StrokeMove feeds one raw pointer sample into the active stroke,
// paints the newly completed segment, and mirrors the stabilized
// point to peers.
func (e *Engine) StrokeMove(x, y float64) {
	if !e.drawing {
		return
	}
	e.raw = append(e.raw, canvas.Point{X: x, Y: y})
	sp := Smooth(e.raw, e.settings.StabilizerWindow)
	e.pts = append(e.pts, sp)

	if l, ok := e.layers.Layer(e.strokeLayer); ok {
		brush.DrawSegment(l.Surface, e.pts, len(e.pts)-1, e.params)
		e.layers.Recompose()
	}

	e.emit(protocol.KindDrawing, protocol.Drawing{
		Type:       protocol.DrawMove,
		LayerIndex: protocol.IntPtr(e.strokeLayer),
		X:          protocol.FloatPtr(sp.X),
		Y:          protocol.FloatPtr(sp.Y),
	})
}

// StrokeEnd finalizes the active stroke: the tail (or dot) is painted,
// the completed gesture becomes an immutable StrokeAction in history,
// and peers are told to finalize their copy.
func (e *Engine) StrokeEnd() {
	if !e.drawing {
		return
	}
	e.drawing = false

	if l, ok := e.layers.Layer(e.strokeLayer); ok {
		if len(e.pts) == 1 {
			brush.DrawDot(l.Surface, e.pts[0], e.params)
		} else {
			brush.DrawTail(l.Surface, e.pts, e.params)
		}
		e.layers.Recompose()
	}

	e.history.Record(StrokeAction{
		ID:      ulid.Make().String(),
		Layer:   e.strokeLayer,
		Color:   e.settings.Color,
		Size:    e.settings.Size,
		Brush:   e.settings.Brush,
		Opacity: e.settings.Opacity,
		Blend:   e.settings.Blend,
		Points:  e.pts,
	})
	e.raw = nil
	e.pts = nil

	e.emit(protocol.KindDrawing, protocol.Drawing{
		Type:       protocol.DrawEnd,
		LayerIndex: protocol.IntPtr(e.strokeLayer),
	})
}

// Clear erases the selected layer and records the action.
func (e *Engine) Clear() {
	idx := e.layers.Current()
	e.layers.Clear(idx)
	e.history.Record(ClearAction{Layer: idx})
	e.emit(protocol.KindDrawing, protocol.Drawing{
		Type:       protocol.DrawClear,
		LayerIndex: protocol.IntPtr(idx),
	})
}

// ClearAll erases every layer and records the action.
func (e *Engine) ClearAll() {
	e.layers.ClearAll()
	e.history.Record(ClearAllAction{})
	e.emit(protocol.KindDrawing, protocol.Drawing{Type: protocol.DrawClearAll})
}

// Undo reverts the most recent recorded action by rebuilding the
// canvas from the remaining history, and mirrors the undo to peers.
// Fails when there is nothing to undo.
func (e *Engine) Undo() bool {
	if !e.undoLocal() {
		return false
	}
	e.emit(protocol.KindDrawing, protocol.Drawing{Type: protocol.DrawUndo})
	return true
}

// Redo re-applies the most recently undone action and mirrors the
// redo to peers. Fails when there is nothing to redo.
func (e *Engine) Redo() bool {
	if !e.redoLocal() {
		return false
	}
	e.emit(protocol.KindDrawing, protocol.Drawing{Type: protocol.DrawRedo})
	return true
}

func (e *Engine) undoLocal() bool {
	if _, ok := e.history.Undo(); !ok {
		return false
	}
	e.rebuild()
	return true
}

func (e *Engine) redoLocal() bool {
	a, ok := e.history.Redo()
	if !ok {
		return false
	}
	// Going forward, state is additive: applying the one action
	// suffices, no full rebuild.
	e.applyAction(a)
	e.layers.Recompose()
	return true
}

// rebuild clears every layer surface and replays the whole undo stack
// in order. Replay is the only correctness mechanism for undo; there
// are no incremental inverses.
func (e *Engine) rebuild() {
	for i := 0; i < e.layers.Count(); i++ {
		if l, ok := e.layers.Layer(i); ok {
			l.Surface.Clear()
		}
	}
	for _, a := range e.history.Entries() {
		e.applyAction(a)
	}
	e.layers.Recompose()
}

// applyAction mutates layer surfaces for one history entry. It is the
// single funnel for replayed state: local redo, history rebuilds, and
// remote replay all pass through here. It does not record history and
// does not recompose; callers do.
func (e *Engine) applyAction(a Action) {
	switch act := a.(type) {
	case StrokeAction:
		e.layers.EnsureIndex(act.Layer)
		l, ok := e.layers.Layer(act.Layer)
		if !ok {
			return
		}
		p := brush.ParamsFor(act.Brush, canvas.Hex(act.Color), act.Size, act.Opacity, act.Blend)
		brush.DrawStroke(l.Surface, act.Points, p)
	case ClearAction:
		e.layers.EnsureIndex(act.Layer)
		if l, ok := e.layers.Layer(act.Layer); ok {
			l.Surface.Clear()
		}
	case ClearAllAction:
		for i := 0; i < e.layers.Count(); i++ {
			if l, ok := e.layers.Layer(i); ok {
				l.Surface.Clear()
			}
		}
	}
}

// AddLayer appends a layer and announces it. Returns -1 when the
// stack is full.
func (e *Engine) AddLayer(name string) int {
	idx := e.layers.AddLayer(name)
	if idx < 0 {
		return -1
	}
	e.emit(protocol.KindLayerAction, protocol.LayerAction{
		Type:  protocol.LayerAdd,
		Index: protocol.IntPtr(idx),
		Name:  name,
	})
	return idx
}

// RemoveLayer removes a layer and announces it. The last remaining
// layer cannot be removed.
func (e *Engine) RemoveLayer(index int) bool {
	if !e.layers.RemoveLayer(index) {
		return false
	}
	e.emit(protocol.KindLayerAction, protocol.LayerAction{
		Type:  protocol.LayerRemove,
		Index: protocol.IntPtr(index),
	})
	return true
}

// SetLayerVisibility toggles a layer and announces it.
func (e *Engine) SetLayerVisibility(index int, visible bool) bool {
	if !e.layers.SetVisibility(index, visible) {
		return false
	}
	e.emit(protocol.KindLayerAction, protocol.LayerAction{
		Type:    protocol.LayerVisibility,
		Index:   protocol.IntPtr(index),
		Visible: protocol.BoolPtr(visible),
	})
	return true
}

// SetLayerOpacity adjusts a layer's opacity and announces it.
func (e *Engine) SetLayerOpacity(index int, opacity float64) bool {
	if !e.layers.SetOpacity(index, opacity) {
		return false
	}
	e.emit(protocol.KindLayerAction, protocol.LayerAction{
		Type:    protocol.LayerOpacity,
		Index:   protocol.IntPtr(index),
		Opacity: protocol.FloatPtr(opacity),
	})
	return true
}

// MoveLayerUp swaps a layer with its successor and announces it.
func (e *Engine) MoveLayerUp(index int) bool {
	if !e.layers.MoveUp(index) {
		return false
	}
	e.emit(protocol.KindLayerAction, protocol.LayerAction{
		Type:      protocol.LayerMove,
		Index:     protocol.IntPtr(index),
		Direction: "up",
	})
	return true
}

// MoveLayerDown swaps a layer with its predecessor and announces it.
func (e *Engine) MoveLayerDown(index int) bool {
	if !e.layers.MoveDown(index) {
		return false
	}
	e.emit(protocol.KindLayerAction, protocol.LayerAction{
		Type:      protocol.LayerMove,
		Index:     protocol.IntPtr(index),
		Direction: "down",
	})
	return true
}

// SelectLayer changes the local drawing target. Selection is local
// state and never replicated.
func (e *Engine) SelectLayer(index int) bool {
	return e.layers.Select(index)
}

// SetColor updates the local color and announces the settings change.
func (e *Engine) SetColor(hex string) {
	e.settings.Color = hex
	e.emitSetting(protocol.SettingColor, hex)
}

// SetSize updates the local brush size.
func (e *Engine) SetSize(size float64) {
	if size < 1 {
		size = 1
	}
	e.settings.Size = size
	e.emitSetting(protocol.SettingSize, size)
}

// SetBrush updates the local brush type.
func (e *Engine) SetBrush(t brush.Type) {
	e.settings.Brush = t
	e.emitSetting(protocol.SettingBrushType, t.String())
}

// SetOpacity updates the local opacity, clamped to [0, 1].
func (e *Engine) SetOpacity(opacity float64) {
	e.settings.Opacity = clamp01(opacity)
	e.emitSetting(protocol.SettingOpacity, e.settings.Opacity)
}

// SetBlendMode updates the local blend mode. An unknown mode is
// rejected and the prior setting retained.
func (e *Engine) SetBlendMode(name string) bool {
	m, ok := canvas.ParseBlendMode(name)
	if !ok {
		glog.Warningf("engine: unknown blend mode %q, keeping %s", name, e.settings.Blend)
		return false
	}
	e.settings.Blend = m
	e.emitSetting(protocol.SettingBlendMode, m.String())
	return true
}

// SetStabilizer updates the stabilizer window, clamped to [0, 20].
func (e *Engine) SetStabilizer(window int) {
	if window < 0 {
		window = 0
	}
	if window > 20 {
		window = 20
	}
	e.settings.StabilizerWindow = window
	e.emitSetting(protocol.SettingStabilizer, window)
}

func (e *Engine) emitSetting(typ string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		glog.Errorf("engine: marshal setting %s: %v", typ, err)
		return
	}
	e.emit(protocol.KindDrawingSettings, protocol.Setting{Type: typ, Value: data})
}

// Disconnected abandons the local in-progress stroke without emitting
// an end message: the painted pixels stay, nothing enters history.
func (e *Engine) Disconnected() {
	e.drawing = false
	e.raw = nil
	e.pts = nil
}

// PeerDisconnected discards the peer's in-flight stroke builder. Its
// already-painted partial stroke stays on the canvas un-recorded; this
// inconsistency is accepted, not rolled back.
func (e *Engine) PeerDisconnected(peer string) {
	delete(e.builders, peer)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
