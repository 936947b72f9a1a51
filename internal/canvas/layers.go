package canvas

import "fmt"

// MaxLayers bounds the layer stack. Each layer owns a full-size
// surface, so an unchecked remote layer index could allocate without
// limit; indices at or past the cap are dropped by callers.
const MaxLayers = 64

// Layer is an independently toggleable raster surface composited into
// the final canvas in sequence order.
type Layer struct {
	// ID is stable, assigned at creation, never reused.
	ID      int
	Name    string
	Visible bool
	Opacity float64
	Surface *Surface
}

// LayerStack owns the ordered set of layers and their compositing.
// Position in the sequence determines paint order: position 0 is
// painted first, the last layer is painted on top. Reordering
// operations mutate the sequence, never the stable IDs.
//
// The stack always holds at least one layer.
type LayerStack struct {
	width, height int
	layers        []*Layer
	current       int
	nextID        int
	composite     *Surface
}

// NewLayerStack creates a stack with a single "Background" layer.
func NewLayerStack(width, height int) *LayerStack {
	s := &LayerStack{
		width:     width,
		height:    height,
		composite: NewSurface(width, height),
	}
	s.addLayer("Background")
	return s
}

func (s *LayerStack) addLayer(name string) int {
	l := &Layer{
		ID:      s.nextID,
		Name:    name,
		Visible: true,
		Opacity: 1.0,
		Surface: NewSurface(s.width, s.height),
	}
	s.nextID++
	s.layers = append(s.layers, l)
	return len(s.layers) - 1
}

// AddLayer appends a new layer and returns its position index, or -1
// when the stack is at MaxLayers.
func (s *LayerStack) AddLayer(name string) int {
	if len(s.layers) >= MaxLayers {
		return -1
	}
	i := s.addLayer(name)
	s.Recompose()
	return i
}

// RemoveLayer removes the layer at the given position. It fails when
// the index is out of range or the layer is the last one remaining.
func (s *LayerStack) RemoveLayer(index int) bool {
	if index < 0 || index >= len(s.layers) || len(s.layers) == 1 {
		return false
	}
	s.layers = append(s.layers[:index], s.layers[index+1:]...)
	if index < s.current {
		s.current--
	}
	if s.current >= len(s.layers) {
		s.current = len(s.layers) - 1
	}
	s.Recompose()
	return true
}

// SetVisibility toggles a layer on or off in the composite.
func (s *LayerStack) SetVisibility(index int, visible bool) bool {
	if index < 0 || index >= len(s.layers) {
		return false
	}
	s.layers[index].Visible = visible
	s.Recompose()
	return true
}

// SetOpacity sets a layer's own opacity, clamped to [0, 1].
func (s *LayerStack) SetOpacity(index int, opacity float64) bool {
	if index < 0 || index >= len(s.layers) {
		return false
	}
	s.layers[index].Opacity = clamp01(opacity)
	s.Recompose()
	return true
}

// MoveUp swaps the layer with its successor, painting it later (on
// top). No-op at the top of the sequence. The selection follows the
// logical layer across the swap.
func (s *LayerStack) MoveUp(index int) bool {
	return s.swap(index, index+1)
}

// MoveDown swaps the layer with its predecessor, painting it earlier.
// No-op at the bottom of the sequence.
func (s *LayerStack) MoveDown(index int) bool {
	return s.swap(index, index-1)
}

func (s *LayerStack) swap(i, j int) bool {
	if i < 0 || i >= len(s.layers) || j < 0 || j >= len(s.layers) {
		return false
	}
	s.layers[i], s.layers[j] = s.layers[j], s.layers[i]
	switch s.current {
	case i:
		s.current = j
	case j:
		s.current = i
	}
	s.Recompose()
	return true
}

// Select makes the layer at index the target for local drawing.
func (s *LayerStack) Select(index int) bool {
	if index < 0 || index >= len(s.layers) {
		return false
	}
	s.current = index
	return true
}

// Current returns the position index of the selected layer.
func (s *LayerStack) Current() int { return s.current }

// Count returns the number of layers.
func (s *LayerStack) Count() int { return len(s.layers) }

// Layer returns the layer at the given position.
func (s *LayerStack) Layer(index int) (*Layer, bool) {
	if index < 0 || index >= len(s.layers) {
		return nil, false
	}
	return s.layers[index], true
}

// EnsureIndex extends the stack until index is in range, creating
// "Remote Layer N" layers. Referencing a layer a peer created before
// the local add arrived must never diverge the canvas. Indices at or
// past MaxLayers do not extend the stack.
func (s *LayerStack) EnsureIndex(index int) {
	if index >= MaxLayers {
		return
	}
	grew := false
	for index >= len(s.layers) {
		s.addLayer(fmt.Sprintf("Remote Layer %d", len(s.layers)))
		grew = true
	}
	if grew {
		s.Recompose()
	}
}

// Clear erases the surface of one layer, leaving every other layer
// untouched.
func (s *LayerStack) Clear(index int) bool {
	if index < 0 || index >= len(s.layers) {
		return false
	}
	s.layers[index].Surface.Clear()
	s.Recompose()
	return true
}

// ClearAll erases every layer surface. The layers themselves survive.
func (s *LayerStack) ClearAll() {
	for _, l := range s.layers {
		l.Surface.Clear()
	}
	s.Recompose()
}

// Composite returns the composited canvas. The returned surface is
// owned by the stack and rewritten on every recompose.
func (s *LayerStack) Composite() *Surface { return s.composite }

// Recompose rebuilds the composited canvas: it is cleared, then each
// visible layer is painted in sequence order at its own opacity with
// normal compositing. Per-stroke blend modes only ever apply within a
// layer's own surface, never across layers.
func (s *LayerStack) Recompose() {
	s.composite.Clear()
	for _, l := range s.layers {
		if !l.Visible {
			continue
		}
		for y := 0; y < s.height; y++ {
			for x := 0; x < s.width; x++ {
				c := l.Surface.GetPixel(x, y)
				if c.A == 0 {
					continue
				}
				c.A *= l.Opacity
				s.composite.BlendPixel(x, y, c, SourceOver)
			}
		}
	}
}
