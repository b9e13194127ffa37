package source

import (
	"image"
)

// Pattern is a software source generating a moving test pattern: a vertical
// gradient crossed by a bright bar that sweeps left to right.
type Pattern struct {
	*feed
}

func NewPattern(size image.Point, fps int) *Pattern {
	p := &Pattern{}
	p.feed = newFeed("pattern", size, fps, p.draw)
	return p
}

func (p *Pattern) draw(n int) (*image.RGBA, error) {
	return PatternFrame(p.size, n), nil
}

// PatternFrame renders frame n of the test pattern.
func PatternFrame(size image.Point, n int) *image.RGBA {
	img := acquireFrame(size)
	w, h := size.X, size.Y
	barW := w / 10
	if barW < 1 {
		barW = 1
	}
	barX := (n * 4) % w
	for y := 0; y < h; y++ {
		g := uint8(y * 255 / h)
		off := y * img.Stride
		for x := 0; x < w; x++ {
			i := off + x*4
			if x >= barX && x < barX+barW {
				img.Pix[i+0], img.Pix[i+1], img.Pix[i+2] = 255, 255, 255
			} else {
				img.Pix[i+0] = uint8((x + n) * 255 / (w + n))
				img.Pix[i+1] = g
				img.Pix[i+2] = uint8(n * 8)
			}
			img.Pix[i+3] = 255
		}
	}
	return img
}
