// Package brush maps brush types and drawing settings to concrete
// raster rendering parameters, and renders smoothed stroke segments
// onto layer surfaces. The mapping is applied identically whether a
// stroke is painted live or replayed from history.
package brush

import "layerboard/internal/canvas"

// Type is a closed enum of the supported brush kinds.
type Type int

const (
	Pen Type = iota
	Pencil
	Brush
	Marker
	Eraser
	Airbrush
)

var typeNames = [...]string{"pen", "pencil", "brush", "marker", "eraser", "airbrush"}

// String returns the wire name of the brush type.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "pen"
	}
	return typeNames[t]
}

// ParseType maps a wire name to a brush Type. Unknown names fall back
// to Pen; this is the recoverable default at the deserialization
// boundary, never a failure.
func ParseType(s string) Type {
	for i, name := range typeNames {
		if name == s {
			return Type(i)
		}
	}
	return Pen
}

// Spray describes the particle emission of the airbrush.
type Spray struct {
	// Count particles are emitted per segment.
	Count int
	// Radius bounds the particle scatter around the segment end.
	Radius float64
	// MaxAlpha caps each particle's independent random alpha.
	MaxAlpha float64
}

// Params are the concrete rendering parameters for one stroke.
type Params struct {
	Color     canvas.RGBA
	Alpha     float64
	Width     float64
	Composite canvas.BlendMode
	// SquareCap stamps square dabs instead of round ones (marker).
	SquareCap bool
	// Spray is non-nil for the airbrush only.
	Spray *Spray
}

// ParamsFor resolves the (brushType, settings) pair into rendering
// parameters:
//
//	pen      alpha=opacity      width=size      composite=blendMode
//	pencil   alpha=opacity*0.8  width=size*0.5  composite=source-over
//	brush    alpha=opacity*0.9  width=size*2    composite=blendMode
//	marker   alpha=0.6          width=size*3    composite=multiply, square cap
//	eraser   alpha=1.0          width=size*2    composite=destination-out
//	airbrush alpha=0.2          width=size*0.5  composite=blendMode, spray
//
// The eraser's color is forced to background-neutral white; only its
// alpha matters under destination-out.
func ParamsFor(t Type, color canvas.RGBA, size, opacity float64, blend canvas.BlendMode) Params {
	switch t {
	case Pencil:
		return Params{
			Color:     color,
			Alpha:     opacity * 0.8,
			Width:     size * 0.5,
			Composite: canvas.SourceOver,
		}
	case Brush:
		return Params{
			Color:     color,
			Alpha:     opacity * 0.9,
			Width:     size * 2,
			Composite: blend,
		}
	case Marker:
		return Params{
			Color:     color,
			Alpha:     0.6,
			Width:     size * 3,
			Composite: canvas.Multiply,
			SquareCap: true,
		}
	case Eraser:
		return Params{
			Color:     canvas.White,
			Alpha:     1.0,
			Width:     size * 2,
			Composite: canvas.DestinationOut,
		}
	case Airbrush:
		return Params{
			Color:     color,
			Alpha:     0.2,
			Width:     size * 0.5,
			Composite: blend,
			Spray: &Spray{
				Count:    int(size),
				Radius:   size * 3,
				MaxAlpha: 0.1,
			},
		}
	default:
		return Params{
			Color:     color,
			Alpha:     opacity,
			Width:     size,
			Composite: blend,
		}
	}
}
