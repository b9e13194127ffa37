package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"timespy/video"
)

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// CaptureServer restarts or stops capture.
type CaptureServer struct {
	Session *video.Session
}

func (s *CaptureServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	switch action := r.Form.Get("action"); action {
	case "restart":
		if err := s.Session.Restart(); err != nil {
			log.Errorf("Failed to restart capture: %v", err)
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	case "stop":
		s.Session.StopCapture()
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusBadRequest)
		return
	}
	fmt.Fprintln(w, "ok")
}

// FrameRateServer changes the playback rate.
type FrameRateServer struct {
	Renderer *video.Renderer
}

func (s *FrameRateServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	fps, err := strconv.Atoi(r.Form.Get("fps"))
	if err != nil {
		http.Error(w, "invalid fps", http.StatusBadRequest)
		return
	}
	if err := s.Renderer.SetFrameRate(fps); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fmt.Fprintln(w, "ok")
}

// ExportServer triggers an export of the current loop. With wait=1 the request
// blocks until slicing completes, up to WaitTimeout.
type ExportServer struct {
	Exporter    *video.Exporter
	WaitTimeout time.Duration
}

func (s *ExportServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var rec *video.ExportRecord
	var err error
	if wait, _ := strconv.ParseBool(r.Form.Get("wait")); wait {
		timeout := s.WaitTimeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		rec, err = s.Exporter.ExportWhenComplete(ctx)
	} else {
		rec, err = s.Exporter.Export(r.Context())
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "slicing did not complete in time", http.StatusGatewayTimeout)
		return
	case errors.Is(err, video.ErrNotComplete), errors.Is(err, video.ErrNotInitialized):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.Errorf("Export failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toExportEntry(rec))
}
