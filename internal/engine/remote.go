package engine

import (
	"encoding/json"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"

	"layerboard/internal/brush"
	"layerboard/internal/canvas"
	"layerboard/internal/protocol"
)

// bulkPeer keys the stroke builder used while replaying a bulk sync.
// The replayed log carries no per-event sender, so interleaved strokes
// from different peers collapse onto one builder under the same
// last-start-wins rule as live traffic.
const bulkPeer = "bulk-sync"

// HandleEnvelope applies one inbound peer message. Bulk sync replay
// and live traffic go through the exact same application path, so a
// late joiner converges to the same canvas as everyone else.
//
// Error taxonomy: malformed messages are dropped with a log line,
// unknown enum values degrade to defaults or no-ops, and nothing here
// is fatal — every early return leaves the canvas in its last
// composited state.
func (e *Engine) HandleEnvelope(env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindDrawing:
		var d protocol.Drawing
		if err := json.Unmarshal(env.Data, &d); err != nil {
			glog.Warningf("engine: dropping malformed drawing from %s: %v", env.From, err)
			return
		}
		e.handleDrawing(env.From, d)
	case protocol.KindLayerAction:
		var a protocol.LayerAction
		if err := json.Unmarshal(env.Data, &a); err != nil {
			glog.Warningf("engine: dropping malformed layer action from %s: %v", env.From, err)
			return
		}
		e.handleLayerAction(a)
	case protocol.KindDrawings:
		var b protocol.BulkDrawings
		if err := json.Unmarshal(env.Data, &b); err != nil {
			glog.Warningf("engine: dropping malformed bulk drawings: %v", err)
			return
		}
		glog.Infof("engine: replaying %d drawing events from bulk sync", len(b.Drawings))
		for _, d := range b.Drawings {
			e.handleDrawing(bulkPeer, d)
		}
	case protocol.KindLayerActions:
		var b protocol.BulkLayerActions
		if err := json.Unmarshal(env.Data, &b); err != nil {
			glog.Warningf("engine: dropping malformed bulk layer actions: %v", err)
			return
		}
		glog.Infof("engine: replaying %d layer actions from bulk sync", len(b.Actions))
		for _, a := range b.Actions {
			e.handleLayerAction(a)
		}
	case protocol.KindDrawingSettings:
		// Settings only adjust the server-held shadow; the drawing
		// engine has nothing to apply.
	default:
		glog.V(1).Infof("engine: ignoring unknown envelope kind %q", env.Kind)
	}
}

func (e *Engine) handleDrawing(peer string, d protocol.Drawing) {
	switch d.Type {
	case protocol.DrawStart:
		e.remoteStart(peer, d)
	case protocol.DrawMove:
		e.remoteMove(peer, d)
	case protocol.DrawEnd:
		e.remoteEnd(peer)
	case protocol.DrawClear:
		if d.LayerIndex == nil || *d.LayerIndex < 0 || *d.LayerIndex >= canvas.MaxLayers {
			glog.Warningf("engine: dropping clear from %s with bad layerIndex", peer)
			return
		}
		e.layers.EnsureIndex(*d.LayerIndex)
		e.layers.Clear(*d.LayerIndex)
		e.history.Record(ClearAction{Layer: *d.LayerIndex})
	case protocol.DrawClearAll:
		e.layers.ClearAll()
		e.history.Record(ClearAllAction{})
	case protocol.DrawUndo:
		// Peers run the identical local algorithm against their own
		// stacks. This only lands on the same action when delivery
		// order matched; under concurrent edits the undo targets can
		// desynchronize, an accepted limitation.
		e.undoLocal()
	case protocol.DrawRedo:
		e.redoLocal()
	default:
		glog.V(1).Infof("engine: ignoring unknown drawing type %q from %s", d.Type, peer)
	}
}

func (e *Engine) remoteStart(peer string, d protocol.Drawing) {
	if d.LayerIndex == nil || d.X == nil || d.Y == nil {
		glog.Warningf("engine: dropping incomplete start from %s", peer)
		return
	}
	layer := *d.LayerIndex
	if layer < 0 || layer >= canvas.MaxLayers {
		glog.Warningf("engine: dropping start from %s with layer index %d", peer, layer)
		return
	}
	// A peer may reference a layer the local stack has not created
	// yet; extend synthetically so the canvases cannot diverge on a
	// layer-creation race.
	e.layers.EnsureIndex(layer)

	color := d.Color
	if color == "" {
		color = "#000000"
	}
	size := 3.0
	if d.Size != nil {
		size = *d.Size
	}
	opacity := 1.0
	if d.Opacity != nil {
		opacity = clamp01(*d.Opacity)
	}
	bt := brush.ParseType(d.Brush)
	blend, ok := canvas.ParseBlendMode(d.BlendMode)
	if !ok && d.BlendMode != "" {
		glog.V(1).Infof("engine: unknown blend mode %q in start from %s, using source-over", d.BlendMode, peer)
	}

	// Last start wins: a new start discards any unfinished remote
	// stroke, including one from a different peer. The overwritten
	// stroke stays painted but is never recorded.
	if len(e.builders) > 0 {
		glog.Warningf("engine: start from %s overwrites an unfinished stroke", peer)
		clear(e.builders)
	}
	e.builders[peer] = &strokeBuilder{
		action: StrokeAction{
			Layer:   layer,
			Color:   color,
			Size:    size,
			Brush:   bt,
			Opacity: opacity,
			Blend:   blend,
			Points:  []canvas.Point{{X: *d.X, Y: *d.Y}},
		},
		params: brush.ParamsFor(bt, canvas.Hex(color), size, opacity, blend),
	}
}

func (e *Engine) remoteMove(peer string, d protocol.Drawing) {
	b, ok := e.builders[peer]
	if !ok {
		glog.V(1).Infof("engine: move from %s with no open stroke", peer)
		return
	}
	if d.X == nil || d.Y == nil {
		glog.Warningf("engine: dropping incomplete move from %s", peer)
		return
	}
	b.action.Points = append(b.action.Points, canvas.Point{X: *d.X, Y: *d.Y})

	e.layers.EnsureIndex(b.action.Layer)
	if l, lok := e.layers.Layer(b.action.Layer); lok {
		brush.DrawSegment(l.Surface, b.action.Points, len(b.action.Points)-1, b.params)
		e.layers.Recompose()
	}
}

func (e *Engine) remoteEnd(peer string) {
	b, ok := e.builders[peer]
	if !ok {
		glog.V(1).Infof("engine: end from %s with no open stroke", peer)
		return
	}
	delete(e.builders, peer)

	e.layers.EnsureIndex(b.action.Layer)
	if l, lok := e.layers.Layer(b.action.Layer); lok {
		if len(b.action.Points) == 1 {
			brush.DrawDot(l.Surface, b.action.Points[0], b.params)
		} else {
			brush.DrawTail(l.Surface, b.action.Points, b.params)
		}
		e.layers.Recompose()
	}

	b.action.ID = ulid.Make().String()
	e.history.Record(b.action)
}

func (e *Engine) handleLayerAction(a protocol.LayerAction) {
	switch a.Type {
	case protocol.LayerAdd:
		name := a.Name
		if name == "" {
			name = "Layer"
		}
		e.layers.AddLayer(name)
	case protocol.LayerRemove:
		if a.Index == nil {
			glog.Warningf("engine: layer remove missing index")
			return
		}
		e.layers.RemoveLayer(*a.Index)
	case protocol.LayerVisibility:
		if a.Index == nil || a.Visible == nil {
			glog.Warningf("engine: layer visibility missing fields")
			return
		}
		e.layers.SetVisibility(*a.Index, *a.Visible)
	case protocol.LayerOpacity:
		if a.Index == nil || a.Opacity == nil {
			glog.Warningf("engine: layer opacity missing fields")
			return
		}
		e.layers.SetOpacity(*a.Index, *a.Opacity)
	case protocol.LayerMove:
		if a.Index == nil {
			glog.Warningf("engine: layer move missing index")
			return
		}
		switch a.Direction {
		case "up":
			e.layers.MoveUp(*a.Index)
		case "down":
			e.layers.MoveDown(*a.Index)
		default:
			glog.V(1).Infof("engine: ignoring layer move with direction %q", a.Direction)
		}
	default:
		glog.V(1).Infof("engine: ignoring unknown layer action %q", a.Type)
	}
}
