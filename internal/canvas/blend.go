package canvas

// BlendMode selects how a source color composites onto a destination
// pixel. Per-stroke blend modes apply only within a single layer
// surface; layers composite onto the canvas with SourceOver.
type BlendMode int

const (
	// SourceOver is the default alpha compositing mode.
	SourceOver BlendMode = iota
	// Multiply darkens by multiplying source and destination.
	Multiply
	// Screen lightens by inverting, multiplying and inverting again.
	Screen
	// Darken keeps the darker of source and destination.
	Darken
	// Lighten keeps the lighter of source and destination.
	Lighten
	// DestinationOut erases destination alpha where the source paints.
	DestinationOut
)

var blendNames = map[BlendMode]string{
	SourceOver:     "source-over",
	Multiply:       "multiply",
	Screen:         "screen",
	Darken:         "darken",
	Lighten:        "lighten",
	DestinationOut: "destination-out",
}

// String returns the wire name of the blend mode.
func (m BlendMode) String() string {
	if s, ok := blendNames[m]; ok {
		return s
	}
	return "source-over"
}

// ParseBlendMode maps a wire name to a BlendMode. The second return is
// false for unrecognized names.
func ParseBlendMode(s string) (BlendMode, bool) {
	for m, name := range blendNames {
		if name == s {
			return m, true
		}
	}
	return SourceOver, false
}

// Blend composites src onto dst using the given mode and returns the
// resulting pixel color.
func Blend(src, dst RGBA, mode BlendMode) RGBA {
	switch mode {
	case DestinationOut:
		return RGBA{
			R: dst.R,
			G: dst.G,
			B: dst.B,
			A: dst.A * (1 - src.A),
		}
	case Multiply:
		return separable(src, dst, func(cs, cb float64) float64 { return cs * cb })
	case Screen:
		return separable(src, dst, func(cs, cb float64) float64 { return cs + cb - cs*cb })
	case Darken:
		return separable(src, dst, minf)
	case Lighten:
		return separable(src, dst, maxf)
	default:
		return sourceOver(src, dst)
	}
}

// sourceOver blends source over destination using alpha compositing.
func sourceOver(src, dst RGBA) RGBA {
	srcA := src.A
	dstA := dst.A
	invSrcA := 1.0 - srcA

	outA := srcA + dstA*invSrcA
	if outA == 0 {
		return RGBA{}
	}

	return RGBA{
		R: (src.R*srcA + dst.R*dstA*invSrcA) / outA,
		G: (src.G*srcA + dst.G*dstA*invSrcA) / outA,
		B: (src.B*srcA + dst.B*dstA*invSrcA) / outA,
		A: outA,
	}
}

// separable applies a separable blend function per W3C compositing:
// the source color is mixed toward B(backdrop, source) by the backdrop
// alpha, then alpha-composited over the destination.
func separable(src, dst RGBA, b func(cs, cb float64) float64) RGBA {
	mixed := RGBA{
		R: (1-dst.A)*src.R + dst.A*b(src.R, dst.R),
		G: (1-dst.A)*src.G + dst.A*b(src.G, dst.G),
		B: (1-dst.A)*src.B + dst.A*b(src.B, dst.B),
		A: src.A,
	}
	return sourceOver(mixed, dst)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
