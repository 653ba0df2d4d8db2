package imgutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var badgeColor = color.NRGBA{R: 94, G: 114, B: 228, A: 200}

// circleMask is an alpha mask for a filled circle, used with draw.DrawMask.
type circleMask struct {
	cx, cy, r float64
	bounds    image.Rectangle
}

func (m *circleMask) ColorModel() color.Model { return color.AlphaModel }
func (m *circleMask) Bounds() image.Rectangle { return m.bounds }

func (m *circleMask) At(x, y int) color.Color {
	dx := float64(x) + 0.5 - m.cx
	dy := float64(y) + 0.5 - m.cy
	if dx*dx+dy*dy <= m.r*m.r {
		return color.Alpha{A: 0xFF}
	}
	return color.Alpha{A: 0}
}

// WithSimilarityBadge composites a round similarity score badge onto the
// top-right corner of a thumbnail and returns the annotated copy. The
// score is rendered as an integer percentage. Input image is not modified.
func WithSimilarityBadge(img image.Image, similarity float64) image.Image {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	// 25px circle inset 5px from the top-right corner
	const size = 25
	x0 := b.Dx() - 30
	y0 := 5
	circle := image.Rect(x0, y0, x0+size, y0+size)

	mask := &circleMask{
		cx:     float64(x0) + size/2,
		cy:     float64(y0) + size/2,
		r:      size / 2,
		bounds: circle,
	}
	draw.DrawMask(out, circle, image.NewUniform(badgeColor), image.Point{}, mask, circle.Min, draw.Over)

	label := fmt.Sprintf("%d", int(similarity*100))

	face := basicfont.Face7x13
	width := font.MeasureString(face, label).Ceil()
	metrics := face.Metrics()
	textHeight := (metrics.Ascent - metrics.Descent).Ceil()

	d := font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.P(
			x0+(size-width)/2,
			y0+(size+textHeight)/2,
		),
	}
	d.DrawString(label)

	return out
}
