package brush

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"layerboard/internal/canvas"
)

func TestParseTypeUnknownFallsBackToPen(t *testing.T) {
	assert.Equal(t, Pen, ParseType("sparkle"))
	assert.Equal(t, Pen, ParseType(""))
	assert.Equal(t, Marker, ParseType("marker"))
	assert.Equal(t, Airbrush, ParseType("airbrush"))
}

func TestParamsTable(t *testing.T) {
	red := canvas.Hex("#ff0000")
	size := 4.0
	opacity := 0.5

	cases := []struct {
		name  string
		typ   Type
		alpha float64
		width float64
		comp  canvas.BlendMode
	}{
		{"pen", Pen, 0.5, 4, canvas.Multiply},
		{"pencil", Pencil, 0.4, 2, canvas.SourceOver},
		{"brush", Brush, 0.45, 8, canvas.Multiply},
		{"marker", Marker, 0.6, 12, canvas.Multiply},
		{"eraser", Eraser, 1.0, 8, canvas.DestinationOut},
		{"airbrush", Airbrush, 0.2, 2, canvas.Multiply},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ParamsFor(tc.typ, red, size, opacity, canvas.Multiply)
			assert.InDelta(t, tc.alpha, p.Alpha, 1e-9)
			assert.InDelta(t, tc.width, p.Width, 1e-9)
			assert.Equal(t, tc.comp, p.Composite)
		})
	}
}

func TestMarkerUsesSquareCap(t *testing.T) {
	p := ParamsFor(Marker, canvas.Black, 4, 1, canvas.SourceOver)
	assert.True(t, p.SquareCap)
	for _, typ := range []Type{Pen, Pencil, Brush, Eraser, Airbrush} {
		assert.False(t, ParamsFor(typ, canvas.Black, 4, 1, canvas.SourceOver).SquareCap, typ.String())
	}
}

func TestEraserForcesNeutralColor(t *testing.T) {
	p := ParamsFor(Eraser, canvas.Hex("#ff00ff"), 4, 1, canvas.Multiply)
	assert.Equal(t, canvas.White, p.Color)
	assert.Equal(t, canvas.DestinationOut, p.Composite)
}

func TestAirbrushSpray(t *testing.T) {
	p := ParamsFor(Airbrush, canvas.Black, 10, 1, canvas.SourceOver)
	if assert.NotNil(t, p.Spray) {
		assert.Equal(t, 10, p.Spray.Count)
		assert.InDelta(t, 30.0, p.Spray.Radius, 1e-9)
		assert.InDelta(t, 0.1, p.Spray.MaxAlpha, 1e-9)
	}

	for _, typ := range []Type{Pen, Pencil, Brush, Marker, Eraser} {
		assert.Nil(t, ParamsFor(typ, canvas.Black, 10, 1, canvas.SourceOver).Spray, typ.String())
	}
}
