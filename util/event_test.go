package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventWaitReturnsAfterNotify(t *testing.T) {
	e := NewEvent()
	if e.HasBeenNotified() {
		t.Fatal("new event already notified")
	}

	done := make(chan bool)
	go func() {
		if err := e.Wait(context.Background()); err != nil {
			t.Errorf("Wait: %v", err)
		}
		done <- true
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Notify")
	case <-time.After(20 * time.Millisecond):
	}

	e.Notify()
	e.Notify() // Second notify is a no-op.

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Notify")
	}
	if !e.HasBeenNotified() {
		t.Error("HasBeenNotified = false after Notify")
	}
}

func TestEventWaitAfterNotifyReturnsImmediately(t *testing.T) {
	e := NewEvent()
	e.Notify()
	if err := e.Wait(context.Background()); err != nil {
		t.Errorf("Wait: %v", err)
	}
	select {
	case <-e.Done():
	default:
		t.Error("Done() not closed after Notify")
	}
}

func TestEventWaitHonoursContext(t *testing.T) {
	e := NewEvent()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want DeadlineExceeded", err)
	}
	if e.HasBeenNotified() {
		t.Error("timed out wait notified the event")
	}
}

func TestLocateFFmpegFromEnv(t *testing.T) {
	t.Setenv("FFMPEG", "/nonexistent/ffmpeg")
	if _, err := LocateFFmpeg(); err == nil {
		t.Error("expected error for missing FFMPEG binary")
	}
}
