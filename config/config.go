package config

import (
	"fmt"
	"image"
)

type Config struct {
	// Source selects the frame source: "camera:<device>", "screen",
	// "pattern" or "stills:<dir>".
	Source string

	// Capture size for software sources. Camera sources use the camera's size.
	Width  int
	Height int

	// CaptureFPS is the target rate of incoming frames.
	CaptureFPS int
	// FrameRate is the playback rate of the loop, 1-60.
	FrameRate int

	// Screen capture rectangle. Whole screen if empty.
	ScreenX, ScreenY, ScreenW, ScreenH int

	ExportDir   string
	ExportLoops int
	// If set, exports are allowed before slicing completes.
	ExportForce bool
}

func Default() *Config {
	return &Config{
		Source:      "camera:0",
		Width:       640,
		Height:      480,
		CaptureFPS:  30,
		FrameRate:   30,
		ExportDir:   "/tmp/timespy/",
		ExportLoops: 3,
	}
}

// Validate rejects values the pipeline can't run with.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid capture size %dx%d", c.Width, c.Height)
	}
	if c.FrameRate < 1 || c.FrameRate > 60 {
		return fmt.Errorf("frame rate %d outside of 1-60", c.FrameRate)
	}
	if c.CaptureFPS < 1 {
		return fmt.Errorf("invalid capture rate %d", c.CaptureFPS)
	}
	if c.ExportLoops < 1 {
		return fmt.Errorf("invalid export loop count %d", c.ExportLoops)
	}
	if c.ExportDir == "" {
		return fmt.Errorf("missing export directory")
	}
	return nil
}

func (c *Config) Size() image.Point {
	return image.Point{X: c.Width, Y: c.Height}
}

func (c *Config) ScreenRect() image.Rectangle {
	return image.Rect(c.ScreenX, c.ScreenY, c.ScreenX+c.ScreenW, c.ScreenY+c.ScreenH)
}
