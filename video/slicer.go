package video

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"timespy/util"
)

var (
	ErrBusy       = errors.New("previous frame still processing")
	ErrNotFilling = errors.New("slicer is not filling")
)

// SliceState is the state of a Slicer.
type SliceState int

const (
	Idle SliceState = iota
	Filling
	Complete
)

func (s SliceState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Filling:
		return "filling"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// SourceRow returns the row of an incoming frame of the given height that is
// written into surface index. Surfaces are spread evenly over the frame.
func SourceRow(index, count, height int) int {
	return index * height / count
}

// StatusListener is notified when slicing state changes.
type StatusListener interface {
	SlicingComplete(s SlicerStatus)
}

// Slicer distributes rows of incoming frames over the surfaces of a Bank.
//
// Each incoming frame contributes one row to every surface, at the same target
// row, and the target row advances by one per frame. After as many frames as
// the bank is tall, surface k holds the rows taken from source position
// SourceRow(k) of every frame, so row r of each surface was captured at a
// different time.
type Slicer struct {
	bank *Bank

	// Stopper is told to stop once every row has been written. May be nil.
	Stopper   Stopper
	Listeners []StatusListener

	busy int32

	mu       sync.Mutex
	state    SliceState
	row      int
	height   int
	frames   uint64
	dropped  uint64
	failures uint64
	done     *util.Event

	// fill counts Resets so a frame that straddles one is discarded.
	fill uint64
}

func NewSlicer(bank *Bank) *Slicer {
	return &Slicer{
		bank: bank,
		done: util.NewEvent(),
	}
}

// Reset initializes the bank with the given capture size and starts filling
// from the top row.
func (s *Slicer) Reset(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bank.Initialize(width, height); err != nil {
		s.state = Idle
		return err
	}
	s.state = Filling
	s.row = 0
	s.height = height
	s.frames, s.dropped, s.failures = 0, 0, 0
	s.fill++
	s.done = util.NewEvent()
	sliceProgress.Set(0)
	return nil
}

// ProcessFrame writes one row of frame into every surface. The frame is always
// closed. A frame arriving while another is being processed is dropped.
func (s *Slicer) ProcessFrame(frame Frame) error {
	defer frame.Close()

	if !atomic.CompareAndSwapInt32(&s.busy, 0, 1) {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		framesDropped.Inc()
		return ErrBusy
	}
	defer atomic.StoreInt32(&s.busy, 0)

	s.mu.Lock()
	if s.state != Filling {
		s.mu.Unlock()
		return ErrNotFilling
	}
	row, height, fill := s.row, s.height, s.fill
	s.mu.Unlock()

	var failed uint64
	for k := 0; k < SurfaceCount; k++ {
		src := SourceRow(k, SurfaceCount, height)
		if err := s.bank.WriteRow(k, frame, src, row); err != nil {
			// Logged by the bank; the remaining surfaces are still written.
			failed++
		}
	}

	s.mu.Lock()
	if s.fill != fill {
		// Reset while writing. The new fill overwrites this row later.
		s.mu.Unlock()
		log.Debugf("Discarding frame for row %d of a replaced fill", row)
		return ErrNotFilling
	}
	framesProcessed.Inc()
	rowFailures.Add(float64(failed))
	s.frames++
	s.failures += failed
	s.row++
	completed := false
	if s.row >= s.height {
		s.row = 0
		s.state = Complete
		completed = true
	}
	sliceProgress.Set(s.progress())
	status := s.statusLocked()
	done := s.done
	s.mu.Unlock()

	if completed {
		s.complete(status, done)
	}
	return nil
}

func (s *Slicer) complete(status SlicerStatus, done *util.Event) {
	log.WithFields(log.Fields{
		"frames":   status.Frames,
		"dropped":  status.Dropped,
		"failures": status.Failures,
	}).Info("Slicing complete")

	if s.Stopper != nil {
		s.Stopper.Stop()
	}
	done.Notify()

	for _, l := range s.Listeners {
		go l.SlicingComplete(status)
	}
}

// Run feeds frames from c into the slicer until c is closed, ctx is done, or
// slicing is complete. Frames still in c afterwards are closed.
func (s *Slicer) Run(ctx context.Context, c <-chan Frame) {
	defer func() {
		// Drain so the producer can't leak buffers.
		go func() {
			for f := range c {
				f.Close()
			}
		}()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-c:
			if !ok {
				return
			}
			if err := s.ProcessFrame(f); err != nil && !errors.Is(err, ErrBusy) {
				log.Debugf("Frame not processed: %v", err)
			}
			if s.State() == Complete {
				return
			}
		}
	}
}

// Done returns the event notified when the current fill completes.
func (s *Slicer) Done() *util.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Slicer) State() SliceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SlicerStatus is a snapshot of slicing progress.
type SlicerStatus struct {
	State    string
	Row      int
	Height   int
	Frames   uint64
	Dropped  uint64
	Failures uint64
	Progress float64
}

func (s *Slicer) Status() SlicerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Slicer) statusLocked() SlicerStatus {
	return SlicerStatus{
		State:    s.state.String(),
		Row:      s.row,
		Height:   s.height,
		Frames:   s.frames,
		Dropped:  s.dropped,
		Failures: s.failures,
		Progress: s.progress(),
	}
}

func (s *Slicer) progress() float64 {
	switch {
	case s.state == Complete:
		return 1
	case s.height == 0:
		return 0
	}
	return float64(s.row) / float64(s.height)
}
