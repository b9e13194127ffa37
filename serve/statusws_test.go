package serve

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"timespy/notify"
)

func dialStatus(t *testing.T, m *StatusUpdater) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ws.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for m.clientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("status client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) StatusEvent {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev StatusEvent
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestStatusUpdaterPushesNotificationKind(t *testing.T) {
	m := NewStatusUpdater()
	ws := dialStatus(t, m)

	when := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := m.Notify(&notify.Notification{Kind: notify.KindExported, Time: when, Identifier: "loop-1"}); err != nil {
		t.Fatal(err)
	}
	ev := readEvent(t, ws)
	if ev.Kind != notify.KindExported || ev.Identifier != "loop-1" || !ev.Time.Equal(when) {
		t.Errorf("event = %+v", ev)
	}

	m.FilesystemUpdated()
	if ev := readEvent(t, ws); ev.Kind != KindExportsChanged || ev.Identifier != "" {
		t.Errorf("filesystem event = %+v", ev)
	}
}

func TestStatusUpdaterDropsOldestWhenBehind(t *testing.T) {
	m := NewStatusUpdater()
	c := m.add()
	defer m.remove(c)

	for i := 0; i < clientBacklog+3; i++ {
		m.Notify(&notify.Notification{Kind: notify.KindSlicingComplete, Identifier: string(rune('a' + i))})
	}
	if len(c) != clientBacklog {
		t.Fatalf("backlog = %d, want %d", len(c), clientBacklog)
	}
	if ev := <-c; ev.Identifier != "d" {
		t.Errorf("oldest kept = %q, want %q", ev.Identifier, "d")
	}
}

func TestStatusUpdaterRemovesClosedClient(t *testing.T) {
	m := NewStatusUpdater()
	ws := dialStatus(t, m)
	ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for m.clientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed client still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
