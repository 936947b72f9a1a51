package engine

import (
	"layerboard/internal/brush"
	"layerboard/internal/canvas"
)

// Settings are one participant's drawing settings. The local copy
// feeds every outgoing start message; remote participants only ever
// see the strokes it produces.
type Settings struct {
	Color            string
	Size             float64
	Brush            brush.Type
	Opacity          float64
	Blend            canvas.BlendMode
	StabilizerWindow int
}

// DefaultSettings matches a fresh participant before any settings
// messages: an opaque black pen with stabilization off.
func DefaultSettings() Settings {
	return Settings{
		Color:   "#000000",
		Size:    3,
		Brush:   brush.Pen,
		Opacity: 1.0,
		Blend:   canvas.SourceOver,
	}
}
