package source

import (
	"fmt"
	"image"
	"sync"
	"time"
)

var framePool sync.Pool // stores *image.RGBA

// acquireFrame returns a reusable RGBA image of the given size.
func acquireFrame(size image.Point) *image.RGBA {
	rect := image.Rectangle{Max: size}
	needed := size.X * size.Y * 4
	var img *image.RGBA
	if v := framePool.Get(); v != nil {
		img = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		return image.NewRGBA(rect)
	}
	img.Stride = size.X * 4
	img.Rect = rect
	img.Pix = img.Pix[:needed]
	return img
}

func recycleFrame(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	framePool.Put(img)
}

// RGBAFrame is a frame held in memory. Closing it returns the buffer to the
// frame pool.
type RGBAFrame struct {
	img    *image.RGBA
	time   time.Time
	closed bool
}

func NewRGBAFrame(img *image.RGBA, t time.Time) *RGBAFrame {
	return &RGBAFrame{
		img:  img,
		time: t,
	}
}

func (f *RGBAFrame) Width() int           { return f.img.Rect.Dx() }
func (f *RGBAFrame) Height() int          { return f.img.Rect.Dy() }
func (f *RGBAFrame) Timestamp() time.Time { return f.time }

// Image returns the frame's pixels. Not valid after Close.
func (f *RGBAFrame) Image() *image.RGBA { return f.img }

func (f *RGBAFrame) Scanline(y, x int, dst []byte) error {
	if len(dst)%4 != 0 {
		return fmt.Errorf("destination length %d is not a whole number of pixels", len(dst))
	}
	n := len(dst) / 4
	if y < 0 || y >= f.Height() || x < 0 || x+n > f.Width() {
		return fmt.Errorf("scanline (%d, %d)+%d outside of %dx%d frame", x, y, n, f.Width(), f.Height())
	}
	off := f.img.PixOffset(f.img.Rect.Min.X+x, f.img.Rect.Min.Y+y)
	copy(dst, f.img.Pix[off:off+n*4])
	return nil
}

func (f *RGBAFrame) Close() {
	if f.closed {
		panic("frame already closed")
	}
	f.closed = true
	recycleFrame(f.img)
	f.img = nil
}
