package camera

import (
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"timespy/video"
	"timespy/video/source"
)

// VideoCapture is a camera source backed by OpenCV.
type VideoCapture struct {
	Device string

	cap      *gocv.VideoCapture
	pool     *MatPool
	size     image.Point
	throttle *source.Throttle

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// OpenVideoCapture opens a camera by device index ("0") or URI, keeping
// roughly targetFPS frames per second.
func OpenVideoCapture(device string, targetFPS int) (*VideoCapture, error) {
	var dev interface{} = device
	if id, err := strconv.Atoi(device); err == nil {
		dev = id
	}
	cap, err := gocv.OpenVideoCapture(dev)
	if err != nil {
		return nil, fmt.Errorf("failed to open video capture %v: %w", device, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("video capture %v not opened", device)
	}

	v := &VideoCapture{
		Device:   device,
		cap:      cap,
		pool:     NewMatPool(),
		throttle: source.NewThrottle(targetFPS),
	}
	if err := v.readSize(); err != nil {
		v.Close()
		return nil, err
	}
	log.Infof("Opened camera %v at %dx%d, keeping 1 of every %d frames", device, v.size.X, v.size.Y, v.throttle.Every())
	return v, nil
}

// readSize learns the capture size by reading a test frame.
func (v *VideoCapture) readSize() error {
	m := gocv.NewMat()
	defer m.Close()
	if ok := v.cap.Read(&m); !ok || m.Empty() {
		return fmt.Errorf("failed to read test frame from %v", v.Device)
	}
	v.size = image.Point{X: m.Cols(), Y: m.Rows()}
	return nil
}

func (v *VideoCapture) Size() image.Point { return v.size }

func (v *VideoCapture) Frames() <-chan video.Frame {
	v.Stop()

	c := make(chan video.Frame)
	stop := make(chan struct{})
	done := make(chan struct{})

	v.mu.Lock()
	v.stop, v.done = stop, done
	v.mu.Unlock()

	go v.loop(c, stop, done)
	return c
}

func (v *VideoCapture) loop(c chan video.Frame, stop, done chan struct{}) {
	defer close(done)
	defer close(c)
	for {
		select {
		case <-stop:
			return
		default:
		}

		m, err := v.pool.NewMat()
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if ok := v.cap.Read(&m); !ok || m.Empty() {
			v.pool.ReleaseMat(m)
			// TODO reconnect after repeated read failures.
			log.Warnf("Read failure from %v", v.Device)
			time.Sleep(time.Millisecond)
			continue
		}
		if !v.throttle.Keep() {
			v.pool.ReleaseMat(m)
			continue
		}

		img := &Image{
			Mat:  m,
			Time: time.Now(),
			pool: v.pool,
		}
		select {
		case c <- img:
		default:
			// Consumer busy; never queue.
			img.Close()
		}
	}
}

func (v *VideoCapture) Stop() {
	v.mu.Lock()
	stop, done := v.stop, v.done
	v.stop, v.done = nil, nil
	v.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Close stops capture and releases the camera.
func (v *VideoCapture) Close() {
	v.Stop()
	v.cap.Close()
	v.pool.Close()
}
