package source

import (
	"image"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"timespy/video"
)

// grabFunc produces frame n of a software source.
type grabFunc func(n int) (*image.RGBA, error)

// feed runs a software source as an explicit ticker task. Each tick grabs one
// frame and hands it to the consumer if the consumer is ready; otherwise the
// frame is released.
type feed struct {
	name   string
	size   image.Point
	period time.Duration
	grab   grabFunc

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func newFeed(name string, size image.Point, fps int, grab grabFunc) *feed {
	if fps < 1 {
		fps = AssumedInputFPS
	}
	return &feed{
		name:   name,
		size:   size,
		period: time.Second / time.Duration(fps),
		grab:   grab,
	}
}

func (f *feed) Size() image.Point { return f.size }

func (f *feed) Frames() <-chan video.Frame {
	f.Stop()

	c := make(chan video.Frame)
	stop := make(chan struct{})
	done := make(chan struct{})

	f.mu.Lock()
	f.stop, f.done = stop, done
	f.mu.Unlock()

	go f.loop(c, stop, done)
	return c
}

func (f *feed) loop(c chan video.Frame, stop, done chan struct{}) {
	defer close(done)
	defer close(c)

	t := time.NewTicker(f.period)
	defer t.Stop()

	log.Infof("Source %v started", f.name)
	n := 0
	for {
		select {
		case <-stop:
			log.Infof("Source %v stopped", f.name)
			return
		case now := <-t.C:
			img, err := f.grab(n)
			n++
			if err != nil {
				log.Errorf("Source %v failed to grab frame: %v", f.name, err)
				continue
			}
			frame := NewRGBAFrame(img, now)
			select {
			case c <- frame:
			default:
				// Consumer busy; never queue.
				frame.Close()
			}
		}
	}
}

func (f *feed) Stop() {
	f.mu.Lock()
	stop, done := f.stop, f.done
	f.stop, f.done = nil, nil
	f.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
