package source

import (
	"image"

	"github.com/vova616/screenshot"
)

// Screen is a source grabbing a rectangle of the screen.
type Screen struct {
	*feed
	rect image.Rectangle
}

// NewScreen captures rect, or the whole screen when rect is empty.
func NewScreen(rect image.Rectangle, fps int) (*Screen, error) {
	if rect.Empty() {
		r, err := screenshot.ScreenRect()
		if err != nil {
			return nil, err
		}
		rect = r
	}
	s := &Screen{rect: rect}
	s.feed = newFeed("screen", rect.Size(), fps, s.capture)
	return s, nil
}

func (s *Screen) capture(int) (*image.RGBA, error) {
	return screenshot.CaptureRect(s.rect)
}
