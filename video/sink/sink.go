package sink

import (
	"image"
)

// Sink defines a destination for a stream of images, such as a video file.
type Sink interface {
	// Put inserts an image to the sink. The sink must not hold a reference to
	// the image after Put returns.
	Put(img *image.RGBA) error

	// Close finalizes the Sink.
	Close() error
}

type SinkProducer interface {
	New(path string, size image.Point, fps int) (Sink, error)
}
