package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"timespy/config"
	"timespy/video"
	"timespy/video/source"
	"timespy/video/source/camera"
)

// openSource picks the frame source named by the config. A camera that can't
// be opened falls back to the software test pattern.
func openSource(c *config.Config) (video.Source, error) {
	kind, arg := c.Source, ""
	if i := strings.IndexByte(c.Source, ':'); i >= 0 {
		kind, arg = c.Source[:i], c.Source[i+1:]
	}

	switch kind {
	case "camera":
		if arg == "" {
			arg = "0"
		}
		cam, err := camera.OpenVideoCapture(arg, c.CaptureFPS)
		if err == nil {
			return cam, nil
		}
		log.Warnf("Camera unavailable (%v), falling back to test pattern", err)
		return source.NewPattern(c.Size(), c.CaptureFPS), nil
	case "screen":
		return source.NewScreen(c.ScreenRect(), c.CaptureFPS)
	case "pattern":
		return source.NewPattern(c.Size(), c.CaptureFPS), nil
	case "stills":
		return source.NewStills(arg, c.Size(), c.CaptureFPS)
	}
	return nil, fmt.Errorf("unknown source %q", c.Source)
}
