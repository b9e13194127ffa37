package notify

import (
	"errors"
	"sync"
	"testing"

	"timespy/video"
)

type recorder struct {
	mu  sync.Mutex
	got []*Notification
	err error
}

func (r *recorder) Notify(n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func TestSlicingCompleteReachesAllListeners(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("unreachable")}
	n := &Notifier{Listeners: []NotifyListener{a, b}}

	n.SlicingComplete(video.SlicerStatus{State: "complete", Frames: 480})

	for i, r := range []*recorder{a, b} {
		if len(r.got) != 1 {
			t.Fatalf("listener %d got %d notifications, want 1", i, len(r.got))
		}
		if r.got[0].Kind != KindSlicingComplete || r.got[0].Slicer.Frames != 480 {
			t.Errorf("listener %d got %+v", i, r.got[0])
		}
	}
	if last := n.Last(); last == nil || last.Kind != KindSlicingComplete {
		t.Errorf("Last() = %+v", last)
	}
}

func TestExported(t *testing.T) {
	r := &recorder{}
	n := &Notifier{Listeners: []NotifyListener{r}}
	n.Exported(&video.ExportRecord{Identifier: "20261019-101010-abcdef12"})
	if len(r.got) != 1 || r.got[0].Identifier != "20261019-101010-abcdef12" {
		t.Errorf("got %+v", r.got)
	}
}
