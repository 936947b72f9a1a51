package engine

import "layerboard/internal/canvas"

// Smooth computes one stabilized point from the trailing window of a
// raw sample buffer: a recency-weighted average of the last
// min(window, len) samples where the i-th of N selected samples
// carries weight (i+1)/N, normalized. The most recent sample weighs
// the most, so the output trails the pointer without lagging far
// behind it.
//
// A window of 0 bypasses smoothing and returns the latest raw sample.
// Smooth is a pure function of its inputs, so a recorded point
// sequence can be re-stabilized offline.
func Smooth(samples []canvas.Point, window int) canvas.Point {
	n := len(samples)
	if n == 0 {
		return canvas.Point{}
	}
	if window <= 0 {
		return samples[n-1]
	}
	k := window
	if k > n {
		k = n
	}
	sel := samples[n-k:]

	var sx, sy, wsum float64
	for i, p := range sel {
		w := float64(i + 1)
		sx += p.X * w
		sy += p.Y * w
		wsum += w
	}
	return canvas.Point{X: sx / wsum, Y: sy / wsum}
}
