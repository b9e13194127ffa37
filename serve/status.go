package serve

import (
	"encoding/json"
	"net/http"

	"timespy/notify"
	"timespy/video"
)

type ExportEntry struct {
	ID        string
	Timestamp int64

	HaveVideo   bool
	HaveThumb   bool
	HavePreview bool

	DurationSec int
	Size        int64
}

type StatusResponse struct {
	Session video.SessionStatus
	Last    *notify.Notification `json:",omitempty"`
}

type ExportsResponse struct {
	Items []*ExportEntry

	ItemsTotalSize int64
	ItemsCount     int
}

func toExportEntry(r *video.ExportRecord) *ExportEntry {
	return &ExportEntry{
		ID:          r.Identifier,
		Timestamp:   r.Time.Unix(),
		HaveVideo:   r.HaveVideo,
		HaveThumb:   r.HaveThumb,
		HavePreview: r.HavePreview,
		DurationSec: r.DurationSec,
		Size:        r.Size,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}

// StatusServer serves a JSON snapshot of the session.
type StatusServer struct {
	Session  *video.Session
	Notifier *notify.Notifier
}

func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := &StatusResponse{
		Session: s.Session.Status(),
	}
	if s.Notifier != nil {
		resp.Last = s.Notifier.Last()
	}
	writeJSON(w, resp)
}

// ExportsServer lists exported loops, newest first.
type ExportsServer struct {
	FS *video.Filesystem
}

func (s *ExportsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := &ExportsResponse{}
	for _, rec := range s.FS.GetRecords() {
		resp.Items = append(resp.Items, toExportEntry(rec))
		resp.ItemsTotalSize += rec.Size
	}
	resp.ItemsCount = len(resp.Items)
	writeJSON(w, resp)
}
