package video

import (
	"errors"
	"image"
	"sync"
	"time"
)

// fakeFrame is a frame whose pixel at (x, y) is {id, y, x, 255}, truncated to
// bytes, so tests can tell which frame and row a surface row came from.
type fakeFrame struct {
	id            byte
	width, height int

	// failRow makes Scanline fail for that row. -1 disables.
	failRow int
	// block, if set, is waited on before Scanline copies.
	block chan struct{}
	// entered is closed on the first Scanline call.
	entered chan struct{}
	once    sync.Once

	mu     sync.Mutex
	closed int
}

func newFakeFrame(id byte, width, height int) *fakeFrame {
	return &fakeFrame{
		id:      id,
		width:   width,
		height:  height,
		failRow: -1,
		entered: make(chan struct{}),
	}
}

func (f *fakeFrame) Width() int           { return f.width }
func (f *fakeFrame) Height() int          { return f.height }
func (f *fakeFrame) Timestamp() time.Time { return time.Time{} }

func (f *fakeFrame) Scanline(y, x int, dst []byte) error {
	f.once.Do(func() { close(f.entered) })
	if f.block != nil {
		<-f.block
	}
	if y == f.failRow {
		return errors.New("draw failed")
	}
	for p := 0; p < len(dst)/4; p++ {
		dst[p*4+0] = f.id
		dst[p*4+1] = byte(y)
		dst[p*4+2] = byte(x + p)
		dst[p*4+3] = 255
	}
	return nil
}

func (f *fakeFrame) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeFrame) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type presented struct {
	mu      sync.Mutex
	shown   []int
	cleared int
}

func (p *presented) Present(index int, img image.Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, index)
}

func (p *presented) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
}

func (p *presented) indices() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.shown...)
}

type stopCounter struct {
	mu    sync.Mutex
	stops int
}

func (s *stopCounter) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *stopCounter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// waitFor polls cond until it holds or timeout passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
