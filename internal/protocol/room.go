package protocol

import (
	"encoding/json"

	"github.com/golang/glog"

	"layerboard/internal/canvas"
)

const (
	// DrawingBufferCap bounds the per-room drawing event buffer.
	DrawingBufferCap = 1000
	// drawingDropBatch entries are evicted together on overflow.
	drawingDropBatch = 100
	// LayerLogCap bounds the per-room layer-action log.
	LayerLogCap = 100
)

// Shadow is the server-held copy of one participant's drawing
// settings, kept in sync by settings messages and used to default
// fields that participant omits on a `start` message. Peers never see
// each other's settings directly, only the strokes they produce.
type Shadow struct {
	Color      string
	Size       *float64
	Brush      string
	Opacity    *float64
	BlendMode  string
	Stabilizer *int
}

// RoomState is the per-room replication state owned by the session
// layer on the host: the bounded drawing event buffer and layer-action
// log replayed to late joiners, plus the per-peer settings shadows.
//
// RoomState is confined to the host's message-handling goroutine.
type RoomState struct {
	name     string
	drawings []Drawing
	layerLog []LayerAction
	settings map[string]*Shadow
}

// NewRoomState creates empty room state.
func NewRoomState(name string) *RoomState {
	return &RoomState{
		name:     name,
		settings: make(map[string]*Shadow),
	}
}

// Name returns the room name.
func (r *RoomState) Name() string { return r.name }

// AppendDrawing records a drawing event for late-joiner replay.
// A clear or clearAll compacts the buffer down to just that event;
// everything before it no longer affects the canvas. On overflow the
// oldest batch of entries is dropped.
func (r *RoomState) AppendDrawing(d Drawing) {
	if d.Type == DrawClear || d.Type == DrawClearAll {
		r.drawings = append(r.drawings[:0], d)
		return
	}
	if len(r.drawings) >= DrawingBufferCap {
		r.drawings = r.drawings[drawingDropBatch:]
		glog.V(1).Infof("room %s: drawing buffer overflow, dropped %d oldest events", r.name, drawingDropBatch)
	}
	r.drawings = append(r.drawings, d)
}

// AppendLayerAction records a layer edit for late-joiner replay,
// evicting the oldest entry on overflow.
func (r *RoomState) AppendLayerAction(a LayerAction) {
	if len(r.layerLog) >= LayerLogCap {
		r.layerLog = r.layerLog[1:]
	}
	r.layerLog = append(r.layerLog, a)
}

// DrawingCount returns the current drawing buffer length.
func (r *RoomState) DrawingCount() int { return len(r.drawings) }

// LayerActionCount returns the current layer log length.
func (r *RoomState) LayerActionCount() int { return len(r.layerLog) }

// ApplySetting updates the sender's shadow from a settings message.
// Numeric values are clamped on receipt; an unknown blend mode is
// rejected and the prior setting retained.
func (r *RoomState) ApplySetting(peer string, s Setting) {
	shadow := r.settings[peer]
	if shadow == nil {
		shadow = &Shadow{}
		r.settings[peer] = shadow
	}

	switch s.Type {
	case SettingColor:
		var v string
		if err := json.Unmarshal(s.Value, &v); err != nil {
			glog.Warningf("room %s: bad color value from %s: %v", r.name, peer, err)
			return
		}
		shadow.Color = v
	case SettingSize:
		var v float64
		if err := json.Unmarshal(s.Value, &v); err != nil {
			glog.Warningf("room %s: bad size value from %s: %v", r.name, peer, err)
			return
		}
		shadow.Size = &v
	case SettingBrushType:
		var v string
		if err := json.Unmarshal(s.Value, &v); err != nil {
			glog.Warningf("room %s: bad brush value from %s: %v", r.name, peer, err)
			return
		}
		shadow.Brush = v
	case SettingOpacity:
		var v float64
		if err := json.Unmarshal(s.Value, &v); err != nil {
			glog.Warningf("room %s: bad opacity value from %s: %v", r.name, peer, err)
			return
		}
		v = clamp(v, 0, 1)
		shadow.Opacity = &v
	case SettingBlendMode:
		var v string
		if err := json.Unmarshal(s.Value, &v); err != nil {
			glog.Warningf("room %s: bad blend mode value from %s: %v", r.name, peer, err)
			return
		}
		if _, ok := canvas.ParseBlendMode(v); !ok {
			glog.Warningf("room %s: unknown blend mode %q from %s, keeping prior", r.name, v, peer)
			return
		}
		shadow.BlendMode = v
	case SettingStabilizer:
		var v float64
		if err := json.Unmarshal(s.Value, &v); err != nil {
			glog.Warningf("room %s: bad stabilizer value from %s: %v", r.name, peer, err)
			return
		}
		w := int(clamp(v, 0, 20))
		shadow.Stabilizer = &w
	default:
		glog.V(1).Infof("room %s: ignoring unknown setting type %q from %s", r.name, s.Type, peer)
	}
}

// Shadow returns the settings shadow for a peer, or nil.
func (r *RoomState) Shadow(peer string) *Shadow {
	return r.settings[peer]
}

// DropPeer forgets a disconnected peer's shadow.
func (r *RoomState) DropPeer(peer string) {
	delete(r.settings, peer)
}

// DefaultStart fills brush fields omitted on a start message from the
// sender's shadow, so the stroke renders with the settings that
// participant last announced.
func (r *RoomState) DefaultStart(peer string, d Drawing) Drawing {
	if d.Type != DrawStart {
		return d
	}
	shadow := r.settings[peer]
	if shadow == nil {
		return d
	}
	if d.Color == "" {
		d.Color = shadow.Color
	}
	if d.Size == nil && shadow.Size != nil {
		d.Size = FloatPtr(*shadow.Size)
	}
	if d.Brush == "" {
		d.Brush = shadow.Brush
	}
	if d.Opacity == nil && shadow.Opacity != nil {
		d.Opacity = FloatPtr(*shadow.Opacity)
	}
	if d.BlendMode == "" {
		d.BlendMode = shadow.BlendMode
	}
	return d
}

// SyncEnvelopes returns the bulk sync messages for a new joiner in
// application order: the drawing event buffer first, then the
// layer-action log. Removes and moves in the log refer to layers the
// drawings created, so the inverse order would leave the joiner with a
// different layer set than the room.
func (r *RoomState) SyncEnvelopes() ([]Envelope, error) {
	drawings, actions := r.Snapshot()
	de, err := NewEnvelope(KindDrawings, drawings)
	if err != nil {
		return nil, err
	}
	le, err := NewEnvelope(KindLayerActions, actions)
	if err != nil {
		return nil, err
	}
	return []Envelope{de, le}, nil
}

// Snapshot returns the bulk sync payloads sent once to a new joiner.
func (r *RoomState) Snapshot() (BulkDrawings, BulkLayerActions) {
	drawings := make([]Drawing, len(r.drawings))
	copy(drawings, r.drawings)
	actions := make([]LayerAction, len(r.layerLog))
	copy(actions, r.layerLog)
	return BulkDrawings{Drawings: drawings}, BulkLayerActions{Actions: actions}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
