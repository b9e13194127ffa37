package video

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultFPS is the default playback rate of a Renderer.
const DefaultFPS = 30

var ErrFrameRate = errors.New("frame rate must be within 1-60")

// Renderer plays the bank back as a ping-pong loop: 0, 1, ..., N-1, N-2, ...,
// 1, 0, 1, ... with one surface shown per tick. It runs on its own ticker,
// independent of the slicer, and only changes which surface is visible.
type Renderer struct {
	bank *Bank

	mu        sync.Mutex
	index     int
	direction int
	fps       int
	ticks     uint64

	// restart is set while SetFrameRate waits for the old ticker to exit.
	// Stop clears it so the ticker is not brought back.
	restart bool

	stop chan struct{}
	done chan struct{}
}

func NewRenderer(bank *Bank) *Renderer {
	return &Renderer{
		bank:      bank,
		direction: 1,
		fps:       DefaultFPS,
	}
}

// Start begins playback. It is a no-op when already rendering and refuses to
// start before the bank is initialized.
func (r *Renderer) Start() error {
	if !r.bank.Initialized() {
		log.Warn("Refusing to start rendering, canvas bank not initialized")
		return ErrNotInitialized
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return nil
	}
	r.startLocked()
	log.Infof("Rendering started at %d fps", r.fps)
	return nil
}

func (r *Renderer) startLocked() {
	stop := make(chan struct{})
	done := make(chan struct{})
	r.stop, r.done = stop, done
	go r.loop(time.Second/time.Duration(r.fps), stop, done)
}

func (r *Renderer) loop(period time.Duration, stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			r.tick()
		}
	}
}

// tick shows the current surface and advances the index, reversing direction
// at either end. The presenter runs without r.mu held.
func (r *Renderer) tick() {
	r.mu.Lock()
	index := r.index
	r.mu.Unlock()

	if err := r.bank.Show(index); err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	renderTicks.Inc()
	if r.index != index {
		// Reset while showing.
		return
	}

	last := r.bank.Count() - 1
	if last < 0 {
		// Cleaned up while showing.
		return
	}
	r.index += r.direction
	if r.index >= last {
		r.index = last
		r.direction = -1
	} else if r.index <= 0 {
		r.index = 0
		r.direction = 1
	}
}

// Stop cancels playback and waits for the ticker to exit. Safe to call when
// not rendering.
func (r *Renderer) Stop() {
	r.mu.Lock()
	r.restart = false
	done := r.stopLocked()
	r.mu.Unlock()
	if done != nil {
		<-done
		log.Info("Rendering stopped")
	}
}

func (r *Renderer) stopLocked() chan struct{} {
	if r.stop == nil {
		return nil
	}
	close(r.stop)
	done := r.done
	r.stop, r.done = nil, nil
	return done
}

// SetFrameRate changes the playback rate, restarting the ticker if rendering.
func (r *Renderer) SetFrameRate(fps int) error {
	if fps < 1 || fps > 60 {
		return fmt.Errorf("%d: %w", fps, ErrFrameRate)
	}

	r.mu.Lock()
	if r.fps == fps {
		r.mu.Unlock()
		return nil
	}
	r.fps = fps
	done := r.stopLocked()
	if done == nil {
		r.mu.Unlock()
		return nil
	}
	r.restart = true
	r.mu.Unlock()

	// The loop takes r.mu in tick, so wait for it outside the lock.
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.restart && r.stop == nil {
		r.startLocked()
	}
	r.restart = false
	log.Infof("Rendering frame rate changed to %d fps", fps)
	return nil
}

// Reset rewinds playback to the first surface.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = 0
	r.direction = 1
}

// RendererStatus is a snapshot of playback state.
type RendererStatus struct {
	Index     int
	Direction int
	Rendering bool
	FPS       int
	Ticks     uint64
}

func (r *Renderer) Status() RendererStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RendererStatus{
		Index:     r.index,
		Direction: r.direction,
		Rendering: r.stop != nil,
		FPS:       r.fps,
		Ticks:     r.ticks,
	}
}

// FPS returns the current playback rate.
func (r *Renderer) FPS() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fps
}

// PingPongOrder returns one period of the playback order for n surfaces.
func PingPongOrder(n int) []int {
	if n <= 1 {
		return make([]int, n)
	}
	order := make([]int, 0, 2*n-2)
	for i := 0; i < n; i++ {
		order = append(order, i)
	}
	for i := n - 2; i > 0; i-- {
		order = append(order, i)
	}
	return order
}
