package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBlendMode(t *testing.T) {
	for _, name := range []string{
		"source-over", "multiply", "screen", "darken", "lighten", "destination-out",
	} {
		m, ok := ParseBlendMode(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, m.String())
	}

	_, ok := ParseBlendMode("color-dodge")
	assert.False(t, ok)
}

func TestSourceOverOpaqueReplaces(t *testing.T) {
	got := Blend(RGBA{R: 1, A: 1}, RGBA{B: 1, A: 1}, SourceOver)
	assert.InDelta(t, 1.0, got.R, 1e-9)
	assert.InDelta(t, 0.0, got.B, 1e-9)
	assert.InDelta(t, 1.0, got.A, 1e-9)
}

func TestSourceOverOntoTransparent(t *testing.T) {
	src := RGBA{R: 0.2, G: 0.4, B: 0.6, A: 0.5}
	got := Blend(src, Transparent, SourceOver)
	assert.InDelta(t, src.R, got.R, 1e-9)
	assert.InDelta(t, src.A, got.A, 1e-9)
}

func TestDestinationOutErases(t *testing.T) {
	dst := RGBA{R: 1, A: 1}
	got := Blend(RGBA{A: 1}, dst, DestinationOut)
	assert.InDelta(t, 0.0, got.A, 1e-9)

	got = Blend(RGBA{A: 0.5}, dst, DestinationOut)
	assert.InDelta(t, 0.5, got.A, 1e-9)
	assert.InDelta(t, 1.0, got.R, 1e-9, "color channels survive")
}

func TestMultiplyDarkens(t *testing.T) {
	src := RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1}
	dst := RGBA{R: 0.8, G: 0.4, B: 0.0, A: 1}
	got := Blend(src, dst, Multiply)
	assert.InDelta(t, 0.4, got.R, 1e-9)
	assert.InDelta(t, 0.2, got.G, 1e-9)
	assert.InDelta(t, 0.0, got.B, 1e-9)
}

func TestHexParsing(t *testing.T) {
	c := Hex("#ff0000")
	assert.InDelta(t, 1.0, c.R, 1e-9)
	assert.InDelta(t, 0.0, c.G, 1e-9)
	assert.InDelta(t, 1.0, c.A, 1e-9)

	c = Hex("0f8")
	assert.InDelta(t, 0.0, c.R, 1e-9)
	assert.InDelta(t, 1.0, c.G, 1e-9)

	assert.Equal(t, Black, Hex("not-a-color-at-all"))
}
