package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"timespy/video/sink"
)

var ErrNotComplete = errors.New("slicing not complete")

// Previewer makes a preview clip of a video in the background. The returned
// channel is closed once done; nil means the work was dropped.
type Previewer interface {
	Process(src, dst string) <-chan bool
}

// ExportListener is notified of finished exports.
type ExportListener interface {
	Exported(r *ExportRecord)
}

// Exporter encodes the filled bank as a ping-pong loop.
type Exporter struct {
	Session    *Session
	Filesystem *Filesystem
	Sinks      sink.SinkProducer

	// Thumbs writes a poster image. May be nil.
	Thumbs func(path string, img image.Image) error
	// Previews makes the preview clip. May be nil.
	Previews Previewer

	// Loops is the number of ping-pong periods written. Defaults to 1.
	Loops int
	// Force allows exporting before slicing is complete.
	Force bool

	Listeners []ExportListener

	l sync.Mutex
}

// Export writes the bank to a new export record.
func (e *Exporter) Export(ctx context.Context) (*ExportRecord, error) {
	e.l.Lock()
	defer e.l.Unlock()

	if !e.Force && e.Session.Slicer.State() != Complete {
		return nil, ErrNotComplete
	}

	frames, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r := e.Filesystem.NewRecord(start)
	fps := e.Session.Renderer.FPS()
	if err := e.encode(ctx, r.VideoPath, frames, fps); err != nil {
		os.Remove(r.VideoPath)
		return nil, fmt.Errorf("export %v: %w", r.Identifier, err)
	}
	exportSeconds.Observe(time.Since(start).Seconds())
	r.HaveVideo = true
	log.WithField("id", r.Identifier).Infof("Exported loop to %v in %v", r.VideoPath, time.Since(start))

	if e.Thumbs != nil {
		if err := e.Thumbs(r.ThumbPath, frames[0]); err != nil {
			log.Errorf("Failed to write poster for %v: %v", r.Identifier, err)
		} else {
			r.HaveThumb = true
		}
	}
	e.Filesystem.Updated()

	if e.Previews != nil {
		if c := e.Previews.Process(r.VideoPath, r.PreviewPath); c != nil {
			go func() {
				<-c
				e.Filesystem.Updated()
			}()
		}
	}

	for _, l := range e.Listeners {
		go l.Exported(r)
	}
	return r, nil
}

// ExportWhenComplete waits for the current fill to complete, then exports it.
// A capture restarted while waiting is waited on as well; ctx bounds the wait.
func (e *Exporter) ExportWhenComplete(ctx context.Context) (*ExportRecord, error) {
	slicer := e.Session.Slicer
	for {
		done := slicer.Done()
		if slicer.State() == Idle {
			return nil, ErrNotInitialized
		}
		if err := done.Wait(ctx); err != nil {
			return nil, err
		}
		r, err := e.Export(ctx)
		if errors.Is(err, ErrNotComplete) {
			// Restarted between completion and export.
			continue
		}
		return r, err
	}
}

func (e *Exporter) snapshot() ([]*image.RGBA, error) {
	bank := e.Session.Bank
	n := bank.Count()
	if n == 0 {
		return nil, ErrNotInitialized
	}
	frames := make([]*image.RGBA, n)
	for i := range frames {
		img, err := bank.Snapshot(i)
		if err != nil {
			return nil, err
		}
		frames[i] = img
	}
	return frames, nil
}

func (e *Exporter) encode(ctx context.Context, path string, frames []*image.RGBA, fps int) error {
	s, err := e.Sinks.New(path, frames[0].Rect.Size(), fps)
	if err != nil {
		return err
	}

	loops := e.Loops
	if loops < 1 {
		loops = 1
	}
	order := PingPongOrder(len(frames))
	for n := 0; n < loops; n++ {
		for _, i := range order {
			if err := ctx.Err(); err != nil {
				s.Close()
				return err
			}
			if err := s.Put(frames[i]); err != nil {
				s.Close()
				return err
			}
		}
	}
	return s.Close()
}
