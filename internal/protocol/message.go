// Package protocol defines the wire vocabulary shared by every room
// participant and the per-room server-side state used to bring late
// joiners up to date. All messages travel over one reliable ordered
// channel and are JSON-serializable.
package protocol

import "encoding/json"

// Envelope kinds.
const (
	KindDrawing         = "drawing"
	KindDrawingSettings = "drawingSettings"
	KindLayerAction     = "layerAction"
	KindDrawings        = "drawings"
	KindLayerActions    = "layerActions"
)

// Drawing message types.
const (
	DrawStart    = "start"
	DrawMove     = "move"
	DrawEnd      = "end"
	DrawClear    = "clear"
	DrawClearAll = "clearAll"
	DrawUndo     = "undo"
	DrawRedo     = "redo"
)

// Settings message types.
const (
	SettingColor      = "color"
	SettingSize       = "size"
	SettingBrushType  = "brushType"
	SettingOpacity    = "opacity"
	SettingBlendMode  = "blendMode"
	SettingStabilizer = "stabilizer"
)

// Layer action types.
const (
	LayerAdd        = "add"
	LayerRemove     = "remove"
	LayerVisibility = "visibility"
	LayerOpacity    = "opacity"
	LayerMove       = "move"
)

// Envelope wraps every message on the room channel.
type Envelope struct {
	Kind string          `json:"kind"`
	From string          `json:"from,omitempty"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope marshals a payload into an envelope of the given kind.
func NewEnvelope(kind string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: kind, Data: data}, nil
}

// Drawing is a stroke-lifecycle or history message. Optional fields
// are pointers so an omitted field is distinguishable from a zero
// value; a `start` with fields omitted is defaulted from the sender's
// settings shadow on the server.
type Drawing struct {
	Type       string   `json:"type"`
	LayerIndex *int     `json:"layerIndex,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Color      string   `json:"color,omitempty"`
	Size       *float64 `json:"size,omitempty"`
	Brush      string   `json:"brush,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty"`
	BlendMode  string   `json:"blendMode,omitempty"`
}

// Setting is a participant settings update. It only adjusts the
// server-held shadow for its sender and is never relayed to peers.
type Setting struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// LayerAction is a layer edit.
type LayerAction struct {
	Type      string   `json:"type"`
	Index     *int     `json:"index,omitempty"`
	Name      string   `json:"name,omitempty"`
	Visible   *bool    `json:"visible,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
	Direction string   `json:"direction,omitempty"`
}

// BulkDrawings replays the room's drawing event buffer to a new
// participant in one message.
type BulkDrawings struct {
	Drawings []Drawing `json:"drawings"`
}

// BulkLayerActions replays the room's layer-action log to a new
// participant in one message.
type BulkLayerActions struct {
	Actions []LayerAction `json:"actions"`
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
