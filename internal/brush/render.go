package brush

import (
	"hash/fnv"
	"math"
	"math/rand"

	"layerboard/internal/canvas"
)

// Stroke rendering stamps antialiased dabs along smoothed segments.
// Interior points are connected by quadratic curves through the
// midpoints of consecutive raw points, so replayed strokes never show
// polyline faceting.
//
// Rendering is segment-at-a-time and deterministic: the pixels a
// segment produces depend only on the point sequence up to that
// segment and the segment index. Live incremental painting and a full
// replay of the recorded stroke therefore produce identical rasters,
// which is what makes history rebuilds sound.

// DrawDot renders a single-point stroke as one dab.
func DrawDot(s *canvas.Surface, pt canvas.Point, p Params) {
	dab(s, pt, p)
	if p.Spray != nil {
		spray(s, pt, 0, p)
	}
}

// DrawSegment renders the segment completed by the arrival of point
// index i (i >= 1). The first segment is a line from the start point
// to the first midpoint; later segments are quadratics from midpoint
// to midpoint through the preceding raw point.
func DrawSegment(s *canvas.Surface, pts []canvas.Point, i int, p Params) {
	if i < 1 || i >= len(pts) {
		return
	}
	if i == 1 {
		stampLine(s, pts[0], canvas.Mid(pts[0], pts[1]), p, true)
	} else {
		start := canvas.Mid(pts[i-2], pts[i-1])
		end := canvas.Mid(pts[i-1], pts[i])
		stampQuad(s, start, pts[i-1], end, p)
	}
	if p.Spray != nil {
		spray(s, pts[i], i, p)
	}
}

// DrawTail renders the final half-segment from the last midpoint to
// the last raw point. Called once when a stroke finalizes.
func DrawTail(s *canvas.Surface, pts []canvas.Point, p Params) {
	n := len(pts)
	if n < 2 {
		return
	}
	stampLine(s, canvas.Mid(pts[n-2], pts[n-1]), pts[n-1], p, false)
}

// DrawStroke replays a complete recorded stroke. It is the exact
// composition of the incremental calls made during live painting.
func DrawStroke(s *canvas.Surface, pts []canvas.Point, p Params) {
	if len(pts) == 0 {
		return
	}
	if len(pts) == 1 {
		DrawDot(s, pts[0], p)
		return
	}
	for i := 1; i < len(pts); i++ {
		DrawSegment(s, pts, i, p)
	}
	DrawTail(s, pts, p)
}

// spacing returns the dab spacing for a brush width. Dense enough for
// solid coverage, sparse enough to keep segments cheap.
func spacing(width float64) float64 {
	sp := width * 0.25
	if sp < 0.75 {
		sp = 0.75
	}
	return sp
}

// stampLine stamps dabs along a straight segment. The start point is
// stamped only when includeStart is set, so adjoining segments do not
// double-stamp their shared endpoint.
func stampLine(s *canvas.Surface, a, b canvas.Point, p Params, includeStart bool) {
	steps := int(math.Ceil(a.Distance(b) / spacing(p.Width)))
	if steps < 1 {
		steps = 1
	}
	for k := 0; k <= steps; k++ {
		if k == 0 && !includeStart {
			continue
		}
		dab(s, a.Lerp(b, float64(k)/float64(steps)), p)
	}
}

// stampQuad stamps dabs along a quadratic curve from a through control
// c to b. The curve start is always skipped; it was the previous
// segment's end.
func stampQuad(s *canvas.Surface, a, c, b canvas.Point, p Params) {
	// Control-polygon length is an upper bound on arc length.
	length := a.Distance(c) + c.Distance(b)
	steps := int(math.Ceil(length / spacing(p.Width)))
	if steps < 1 {
		steps = 1
	}
	for k := 1; k <= steps; k++ {
		t := float64(k) / float64(steps)
		dab(s, quadAt(a, c, b, t), p)
	}
}

func quadAt(a, c, b canvas.Point, t float64) canvas.Point {
	u := 1 - t
	return canvas.Point{
		X: u*u*a.X + 2*u*t*c.X + t*t*b.X,
		Y: u*u*a.Y + 2*u*t*c.Y + t*t*b.Y,
	}
}

// dab composites one antialiased brush stamp at the given center.
func dab(s *canvas.Surface, center canvas.Point, p Params) {
	half := p.Width / 2
	if half < 0.5 {
		half = 0.5
	}
	x0 := int(math.Floor(center.X - half - 1))
	x1 := int(math.Ceil(center.X + half + 1))
	y0 := int(math.Floor(center.Y - half - 1))
	y1 := int(math.Ceil(center.Y + half + 1))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - center.X
			dy := float64(y) + 0.5 - center.Y

			var dist float64
			if p.SquareCap {
				dist = math.Max(math.Abs(dx), math.Abs(dy))
			} else {
				dist = math.Sqrt(dx*dx + dy*dy)
			}
			cover := half + 0.5 - dist
			if cover <= 0 {
				continue
			}
			if cover > 1 {
				cover = 1
			}
			src := p.Color.WithAlpha(p.Alpha * cover)
			s.BlendPixel(x, y, src, p.Composite)
		}
	}
}

// spray emits the airbrush particles for one segment. The generator is
// seeded from the segment's anchor point and index, so a replay of the
// recorded stroke scatters the exact same particles as live painting.
func spray(s *canvas.Surface, at canvas.Point, index int, p Params) {
	sp := p.Spray
	if sp == nil || sp.Count <= 0 {
		return
	}
	rng := rand.New(rand.NewSource(spraySeed(at, index)))
	for i := 0; i < sp.Count; i++ {
		angle := rng.Float64() * 2 * math.Pi
		radius := math.Sqrt(rng.Float64()) * sp.Radius
		alpha := rng.Float64() * sp.MaxAlpha
		x := int(math.Floor(at.X + math.Cos(angle)*radius))
		y := int(math.Floor(at.Y + math.Sin(angle)*radius))
		s.BlendPixel(x, y, p.Color.WithAlpha(alpha), p.Composite)
	}
}

func spraySeed(at canvas.Point, index int) int64 {
	h := fnv.New64a()
	var buf [20]byte
	put64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	put64(0, math.Float64bits(at.X))
	put64(8, math.Float64bits(at.Y))
	buf[16] = byte(index)
	buf[17] = byte(index >> 8)
	buf[18] = byte(index >> 16)
	buf[19] = byte(index >> 24)
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}
