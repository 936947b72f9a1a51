package canvas

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

// Surface is a rectangular raster pixel buffer. Pixels are stored as
// non-premultiplied RGBA, 4 bytes per pixel.
//
// Surfaces are not safe for concurrent mutation; all drawing is
// confined to one sequential execution context.
type Surface struct {
	width  int
	height int
	data   []uint8
}

// NewSurface creates a transparent surface with the given dimensions.
func NewSurface(width, height int) *Surface {
	return &Surface{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the surface.
func (s *Surface) Width() int { return s.width }

// Height returns the height of the surface.
func (s *Surface) Height() int { return s.height }

// Data returns the raw pixel data (RGBA format).
func (s *Surface) Data() []uint8 { return s.data }

// SetPixel sets the color of a single pixel. Out-of-bounds
// coordinates are ignored.
func (s *Surface) SetPixel(x, y int, c RGBA) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	i := (y*s.width + x) * 4
	s.data[i+0] = uint8(clamp255(c.R * 255))
	s.data[i+1] = uint8(clamp255(c.G * 255))
	s.data[i+2] = uint8(clamp255(c.B * 255))
	s.data[i+3] = uint8(clamp255(c.A * 255))
}

// GetPixel returns the color of a single pixel. Out-of-bounds
// coordinates read as transparent.
func (s *Surface) GetPixel(x, y int) RGBA {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return Transparent
	}
	i := (y*s.width + x) * 4
	return RGBA{
		R: float64(s.data[i+0]) / 255,
		G: float64(s.data[i+1]) / 255,
		B: float64(s.data[i+2]) / 255,
		A: float64(s.data[i+3]) / 255,
	}
}

// BlendPixel composites c onto the pixel at (x, y) using mode.
func (s *Surface) BlendPixel(x, y int, c RGBA, mode BlendMode) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	s.SetPixel(x, y, Blend(c, s.GetPixel(x, y), mode))
}

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	for i := range s.data {
		s.data[i] = 0
	}
}

// Fill sets every pixel to the given color.
func (s *Surface) Fill(c RGBA) {
	r := uint8(clamp255(c.R * 255))
	g := uint8(clamp255(c.G * 255))
	b := uint8(clamp255(c.B * 255))
	a := uint8(clamp255(c.A * 255))
	for i := 0; i < len(s.data); i += 4 {
		s.data[i+0] = r
		s.data[i+1] = g
		s.data[i+2] = b
		s.data[i+3] = a
	}
}

// Clone returns a deep copy of the surface.
func (s *Surface) Clone() *Surface {
	c := NewSurface(s.width, s.height)
	copy(c.data, s.data)
	return c
}

// Equal reports whether two surfaces hold identical pixels.
func (s *Surface) Equal(o *Surface) bool {
	if s.width != o.width || s.height != o.height {
		return false
	}
	for i := range s.data {
		if s.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// ToImage converts the surface to an image.NRGBA.
func (s *Surface) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.data)
	return img
}

// SavePNG writes the surface to a PNG file.
func (s *Surface) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, s.ToImage())
}

// At implements the image.Image interface.
func (s *Surface) At(x, y int) color.Color {
	return s.GetPixel(x, y).Color()
}

// Bounds implements the image.Image interface.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// ColorModel implements the image.Image interface.
func (s *Surface) ColorModel() color.Model {
	return color.NRGBAModel
}
