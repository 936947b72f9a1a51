// Package export renders the composited canvas to shareable files.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/jung-kurt/gofpdf"
	xdraw "golang.org/x/image/draw"

	"layerboard/internal/canvas"
)

// A4 landscape, 10mm margins.
const (
	pageWidthMM  = 297.0
	pageHeightMM = 210.0
	marginMM     = 10.0
)

// targetWidth is the pixel width the canvas is resampled to before
// embedding, roughly 150dpi across the printable page width.
const targetWidth = 1654

// PDF writes the composited canvas as a single landscape page,
// flattened onto white and scaled to fit inside the page margins.
func PDF(path string, c *canvas.Surface) error {
	img := Flatten(c).ToImage()

	scaled := rescale(img, targetWidth)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}

	p := gofpdf.New("L", "mm", "A4", "")
	p.AddPage()
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader("canvas", opts, &buf)

	w, h := fitPage(scaled.Bounds().Dx(), scaled.Bounds().Dy())
	x := (pageWidthMM - w) / 2
	y := (pageHeightMM - h) / 2
	p.ImageOptions("canvas", x, y, w, h, false, opts, 0, "")

	return p.OutputFileAndClose(path)
}

// PNG writes the composited canvas, flattened onto white, to path.
func PNG(path string, c *canvas.Surface) error {
	return Flatten(c).SavePNG(path)
}

// Flatten composites the canvas over an opaque white background.
func Flatten(c *canvas.Surface) *canvas.Surface {
	out := canvas.NewSurface(c.Width(), c.Height())
	out.Fill(canvas.White)
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			px := c.GetPixel(x, y)
			if px.A == 0 {
				continue
			}
			out.BlendPixel(x, y, px, canvas.SourceOver)
		}
	}
	return out
}

// rescale resamples the image to the given width, preserving aspect.
func rescale(img *image.NRGBA, width int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || b.Dx() >= width {
		return img
	}
	height := b.Dy() * width / b.Dx()
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// fitPage scales pixel dimensions into the printable area in mm.
func fitPage(pxW, pxH int) (w, h float64) {
	availW := pageWidthMM - 2*marginMM
	availH := pageHeightMM - 2*marginMM
	w = availW
	h = w * float64(pxH) / float64(pxW)
	if h > availH {
		h = availH
		w = h * float64(pxW) / float64(pxH)
	}
	return w, h
}
