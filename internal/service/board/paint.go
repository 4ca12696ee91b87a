package board

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
)

// drawRoundedPanel fills rect with rounded corners one scanline at a time,
// so every pixel is composited exactly once even for translucent colours.
func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	radius = max(0, min(radius, rect.Dx()/2, rect.Dy()/2))
	fill := image.NewUniform(clr)
	h := rect.Dy()
	for i := 0; i < h; i++ {
		inset := cornerInset(radius, i, h)
		span := image.Rect(rect.Min.X+inset, rect.Min.Y+i, rect.Max.X-inset, rect.Min.Y+i+1)
		if !span.Empty() {
			imagedraw.Draw(img, span, fill, image.Point{}, imagedraw.Over)
		}
	}
}

// cornerInset is how far row i of an h-tall panel is pulled in by a corner
// arc of the given radius.
func cornerInset(radius, i, h int) int {
	if radius == 0 {
		return 0
	}
	dy := radius - i
	if bottom := radius - (h - 1 - i); bottom > dy {
		dy = bottom
	}
	if dy <= 0 {
		return 0
	}
	r := float64(radius)
	y := float64(dy) - 0.5
	return radius - int(math.Round(math.Sqrt(max(r*r-y*y, 0))))
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				blendPixel(img, center.X+x, center.Y+y, clr)
			}
		}
	}
}

// blendPixel composites clr over one pixel. Both sides are alpha
// premultiplied, so "over" is src + dst*(1-srcA) per channel.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if img == nil || !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	inv := 0xffff - sa
	d := img.RGBAAt(x, y)
	over := func(src uint32, dst uint8) uint8 {
		return uint8((src + uint32(dst)*0x101*inv/0xffff) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: over(sr, d.R),
		G: over(sg, d.G),
		B: over(sb, d.B),
		A: over(sa, d.A),
	})
}
