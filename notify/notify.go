package notify

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"

	"timespy/video"
)

const (
	KindSlicingComplete = "slicing_complete"
	KindExported        = "exported"
)

// Notification is sent to all NotifyListeners registered with Notifier.
type Notification struct {
	Kind       string
	Time       time.Time
	Identifier string              `json:",omitempty"`
	Slicer     *video.SlicerStatus `json:",omitempty"`
}

type NotifyListener interface {
	Notify(n *Notification) error
}

// Notifier turns pipeline events into notifications.
type Notifier struct {
	Listeners []NotifyListener

	last *Notification
	l    sync.Mutex
}

// SlicingComplete is invoked when every row of the bank has been written.
func (n *Notifier) SlicingComplete(s video.SlicerStatus) {
	n.send(&Notification{
		Kind:   KindSlicingComplete,
		Time:   time.Now(),
		Slicer: &s,
	})
}

// Exported is invoked when a loop export finished.
func (n *Notifier) Exported(r *video.ExportRecord) {
	n.send(&Notification{
		Kind:       KindExported,
		Time:       time.Now(),
		Identifier: r.Identifier,
	})
}

// Last returns the most recent notification, or nil.
func (n *Notifier) Last() *Notification {
	n.l.Lock()
	defer n.l.Unlock()
	return n.last
}

func (n *Notifier) send(notification *Notification) {
	n.l.Lock()
	n.last = notification
	n.l.Unlock()

	log.Debugf("Sending notification: %v", spew.Sdump(notification))
	var wg sync.WaitGroup
	for _, l := range n.Listeners {
		wg.Add(1)
		go func(l NotifyListener) {
			defer wg.Done()
			if err := l.Notify(notification); err != nil {
				log.Errorf("Failed to send notification: %v", err)
			}
		}(l)
	}
	wg.Wait()
}
