package sink

import (
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"

	"timespy/util"
)

type FFmpegOptions struct {
	Size image.Point
	FPS  int

	// Preset and CRF tune libx264. Defaults are used when empty.
	Preset string
	CRF    int
}

// Args returns the ffmpeg command line for writing to path.
func (o FFmpegOptions) Args(path string) []string {
	preset := o.Preset
	if preset == "" {
		preset = "veryfast"
	}
	crf := o.CRF
	if crf == 0 {
		crf = 23
	}
	return []string{
		"-y",
		// Configure ffmpeg to read raw frames from the pipe.
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", o.Size.X, o.Size.Y),
		"-framerate", fmt.Sprintf("%d", o.FPS),
		"-i", "-", // Read from stdin.
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		// yuv420p needs even dimensions.
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-pix_fmt", "yuv420p",
		// Enable fast-start so videos can be displayed in the browser without
		// full download.
		"-movflags", "+faststart",
		path,
	}
}

type FFmpegSink struct {
	opts  FFmpegOptions
	b     chan []byte
	werr  chan error
	close chan chan error
}

func NewFFmpegSink(path string, o FFmpegOptions) (*FFmpegSink, error) {
	bin, err := util.LocateFFmpeg()
	if err != nil {
		return nil, err
	}

	c := exec.Command(bin, o.Args(path)...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	pipe, err := c.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("error getting stdin: %w", err)
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("error starting ffmpeg: %w", err)
	}

	f := &FFmpegSink{
		opts:  o,
		b:     make(chan []byte),
		werr:  make(chan error),
		close: make(chan chan error),
	}
	go f.loop(c, pipe)
	return f, nil
}

func (f *FFmpegSink) loop(c *exec.Cmd, pipe io.WriteCloser) {
	var werr error
	var closer chan error
loop:
	for {
		select {
		case closer = <-f.close:
			pipe.Close()
			break loop
		case b := <-f.b:
			if werr == nil {
				if _, err := pipe.Write(b); err != nil {
					log.Errorf("Error writing to ffmpeg pipe: %v", err)
					werr = err
				}
			}
			f.werr <- werr
		}
	}

	log.Debug("Waiting for ffmpeg shutdown.")
	err := c.Wait()
	log.Debugf("ffmpeg exit with status %v", err)
	if werr != nil {
		err = werr
	}
	closer <- err // Signal close is completed.
}

func (f *FFmpegSink) Put(img *image.RGBA) error {
	if img.Rect.Size() != f.opts.Size {
		return fmt.Errorf("frame size %v does not match sink size %v", img.Rect.Size(), f.opts.Size)
	}
	f.b <- packRGBA(img)
	return <-f.werr
}

func (f *FFmpegSink) Close() error {
	c := make(chan error)
	f.close <- c
	return <-c
}

// packRGBA returns the pixels of img without stride padding.
func packRGBA(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 {
		return img.Pix[:w*h*4]
	}
	b := make([]byte, 0, w*h*4)
	for y := 0; y < h; y++ {
		off := y * img.Stride
		b = append(b, img.Pix[off:off+w*4]...)
	}
	return b
}

// FFmpegProducer creates an FFmpegSink per export. Size and FPS of Options
// are overridden by each export.
type FFmpegProducer struct {
	Options FFmpegOptions
}

func (p *FFmpegProducer) New(path string, size image.Point, fps int) (Sink, error) {
	o := p.Options
	o.Size = size
	o.FPS = fps
	return NewFFmpegSink(path, o)
}
