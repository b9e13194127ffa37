package video

import (
	"context"
	"errors"
	"image"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrNoSource = errors.New("no capture source")

// Session ties a Source to the bank, slicer and renderer. Starting a source
// (re)creates the bank at the source's size, restarts playback and slices the
// source's frames in the background.
type Session struct {
	Bank     *Bank
	Slicer   *Slicer
	Renderer *Renderer

	mu     sync.Mutex
	src    Source
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession creates a session whose bank presents to p, which may be nil.
func NewSession(p Presenter) *Session {
	bank := NewBank(p)
	return &Session{
		Bank:     bank,
		Slicer:   NewSlicer(bank),
		Renderer: NewRenderer(bank),
	}
}

// Start begins a new capture from src, replacing any previous source.
func (s *Session) Start(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCaptureLocked()
	s.Renderer.Stop()

	size := src.Size()
	if err := s.Slicer.Reset(size.X, size.Y); err != nil {
		return err
	}
	s.src = src
	s.Slicer.Stopper = src

	s.Renderer.Reset()
	if err := s.Renderer.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	frames := src.Frames()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Slicer.Run(ctx, frames)
	}()
	log.Infof("Capture started at %dx%d", size.X, size.Y)
	return nil
}

// Restart captures again from the current source.
func (s *Session) Restart() error {
	s.mu.Lock()
	src := s.src
	s.mu.Unlock()
	if src == nil {
		return ErrNoSource
	}
	return s.Start(src)
}

// StopCapture detaches the source. The bank and playback are kept.
func (s *Session) StopCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCaptureLocked()
}

func (s *Session) stopCaptureLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.src != nil {
		s.src.Stop()
	}
	s.wg.Wait()
}

// Close stops capture and playback and releases the bank.
func (s *Session) Close() {
	s.StopCapture()
	s.Renderer.Stop()
	s.Bank.Cleanup()
}

// SessionStatus is a combined snapshot of a session.
type SessionStatus struct {
	Source   image.Point
	Bank     BankStatus
	Slicer   SlicerStatus
	Renderer RendererStatus
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	var size image.Point
	if s.src != nil {
		size = s.src.Size()
	}
	s.mu.Unlock()
	return SessionStatus{
		Source:   size,
		Bank:     s.Bank.Status(),
		Slicer:   s.Slicer.Status(),
		Renderer: s.Renderer.Status(),
	}
}
