package imgutil

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderBG = color.NRGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}
	placeholderFG = color.NRGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xFF}
)

// Placeholder renders the flat gray tile shown when a thumbnail
// cannot be fetched after all retries.
func Placeholder(size int) image.Image {
	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(out, out.Bounds(), image.NewUniform(placeholderBG), image.Point{}, draw.Src)

	label := "no image"
	face := basicfont.Face7x13
	width := font.MeasureString(face, label).Ceil()

	d := font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(placeholderFG),
		Face: face,
		Dot:  fixed.P((size-width)/2, size/2),
	}
	d.DrawString(label)

	return out
}
