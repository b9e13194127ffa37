package util

import (
	"context"
	"sync"
)

// Event is a one-shot broadcast. Once notified it stays notified, and every
// current and future waiter is released.
type Event struct {
	once sync.Once
	c    chan struct{}
}

func NewEvent() *Event {
	return &Event{c: make(chan struct{})}
}

func (e *Event) Notify() {
	e.once.Do(func() { close(e.c) })
}

// Done is closed on Notify, for use in select.
func (e *Event) Done() <-chan struct{} {
	return e.c
}

// Wait blocks until Notify or until ctx is done.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Event) HasBeenNotified() bool {
	select {
	case <-e.c:
		return true
	default:
		return false
	}
}
