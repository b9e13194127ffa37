package video

import (
	"image"
	"time"
)

// Frame is one incoming raster from a Source. A Frame is owned by whoever
// received it and must be closed exactly once, after which none of its
// methods may be called.
type Frame interface {
	// Width and Height are the display dimensions of the frame.
	Width() int
	Height() int

	// Timestamp is the capture time.
	Timestamp() time.Time

	// Scanline copies pixels [x, x+len(dst)/4) of row y into dst as RGBA.
	Scanline(y, x int, dst []byte) error

	// Close releases the underlying buffer.
	Close()
}

// Stopper is anything that can be told to stop producing frames.
type Stopper interface {
	Stop()
}

// Source defines a stream of frames, such as a camera.
type Source interface {
	Stopper

	// Frames starts a new sequence of frames. The channel is closed once Stop
	// is called. Calling Frames after Stop starts a fresh sequence.
	Frames() <-chan Frame

	// Size returns the size of the capture source.
	Size() image.Point
}
