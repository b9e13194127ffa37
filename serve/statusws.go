package serve

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"timespy/notify"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second

	// Events a client may fall behind by before the oldest are dropped.
	clientBacklog = 8
)

// KindExportsChanged is pushed when files in the export directory changed.
const KindExportsChanged = "exports_changed"

// StatusEvent is the JSON message pushed to websocket clients. Clients are
// expected to refetch /status or /exports as the kind suggests.
type StatusEvent struct {
	Kind       string
	Time       time.Time
	Identifier string `json:",omitempty"`
}

// StatusUpdater pushes session and export events to websocket clients.
type StatusUpdater struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[chan StatusEvent]struct{}
}

func NewStatusUpdater() *StatusUpdater {
	return &StatusUpdater{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[chan StatusEvent]struct{}),
	}
}

func (m *StatusUpdater) FilesystemUpdated() {
	m.broadcast(StatusEvent{Kind: KindExportsChanged, Time: time.Now()})
}

func (m *StatusUpdater) Notify(n *notify.Notification) error {
	m.broadcast(StatusEvent{Kind: n.Kind, Time: n.Time, Identifier: n.Identifier})
	return nil
}

// broadcast never blocks: a client whose backlog is full loses its oldest
// pending event.
func (m *StatusUpdater) broadcast(ev StatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.clients {
		for {
			select {
			case c <- ev:
			default:
				select {
				case <-c:
				default:
				}
				continue
			}
			break
		}
	}
}

func (m *StatusUpdater) add() chan StatusEvent {
	c := make(chan StatusEvent, clientBacklog)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c] = struct{}{}
	return c
}

func (m *StatusUpdater) remove(c chan StatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, c)
}

func (m *StatusUpdater) clientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *StatusUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for status stream: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *StatusUpdater) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("Status client connected")

	events := m.add()
	defer func() {
		m.remove(events)
		ws.Close()
		clog.Info("Status client disconnected")
	}()

	// Reads are only needed to process control frames; closed tells the
	// writer the peer went away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(ev); err != nil {
				clog.Debugf("Status write failed: %v", err)
				return
			}
		case <-ping.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
