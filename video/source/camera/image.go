package camera

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// Image is a camera frame held in a pooled OpenCV Mat.
type Image struct {
	Mat    gocv.Mat
	Time   time.Time
	pool   *MatPool
	closed bool
}

func (i *Image) Width() int           { return i.Mat.Cols() }
func (i *Image) Height() int          { return i.Mat.Rows() }
func (i *Image) Timestamp() time.Time { return i.Time }

// Scanline converts pixels of row y from the Mat's BGR, BGRA or grayscale
// layout into RGBA.
func (i *Image) Scanline(y, x int, dst []byte) error {
	if len(dst)%4 != 0 {
		return fmt.Errorf("destination length %d is not a whole number of pixels", len(dst))
	}
	n := len(dst) / 4
	cols, rows := i.Mat.Cols(), i.Mat.Rows()
	if y < 0 || y >= rows || x < 0 || x+n > cols {
		return fmt.Errorf("scanline (%d, %d)+%d outside of %dx%d frame", x, y, n, cols, rows)
	}
	data, err := i.Mat.DataPtrUint8()
	if err != nil {
		return err
	}

	ch := i.Mat.Channels()
	src := data[(y*cols+x)*ch : (y*cols+x+n)*ch]
	switch ch {
	case 3:
		for p := 0; p < n; p++ {
			dst[p*4+0] = src[p*3+2]
			dst[p*4+1] = src[p*3+1]
			dst[p*4+2] = src[p*3+0]
			dst[p*4+3] = 255
		}
	case 4:
		for p := 0; p < n; p++ {
			dst[p*4+0] = src[p*4+2]
			dst[p*4+1] = src[p*4+1]
			dst[p*4+2] = src[p*4+0]
			dst[p*4+3] = src[p*4+3]
		}
	case 1:
		for p := 0; p < n; p++ {
			dst[p*4+0] = src[p]
			dst[p*4+1] = src[p]
			dst[p*4+2] = src[p]
			dst[p*4+3] = 255
		}
	default:
		return fmt.Errorf("unsupported channel count %d", ch)
	}
	return nil
}

// Close returns the Mat to its pool.
func (i *Image) Close() {
	if i.closed {
		panic("image already closed")
	}
	i.closed = true
	if i.pool != nil {
		i.pool.ReleaseMat(i.Mat)
	} else {
		i.Mat.Close()
	}
}
