package serve

import (
	"fmt"
	"net/http"
	"os"

	"timespy/video"
)

type FileServer struct {
	FS          *video.Filesystem
	PathFunc    func(r *video.ExportRecord) string
	ContentType string
}

func NewVideoServer(fs *video.Filesystem) *FileServer {
	return &FileServer{
		FS: fs,
		PathFunc: func(r *video.ExportRecord) string {
			return r.VideoPath
		},
		ContentType: "video/mp4",
	}
}

func NewThumbServer(fs *video.Filesystem) *FileServer {
	return &FileServer{
		FS: fs,
		PathFunc: func(r *video.ExportRecord) string {
			return r.ThumbPath
		},
		ContentType: "image/jpeg",
	}
}

func NewPreviewServer(fs *video.Filesystem) *FileServer {
	return &FileServer{
		FS: fs,
		PathFunc: func(r *video.ExportRecord) string {
			return r.PreviewPath
		},
		ContentType: "video/mp4",
	}
}

func (s *FileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := r.Form.Get("id")
	vr := s.FS.GetRecordByID(id)
	if vr == nil {
		http.Error(w, fmt.Sprintf("No record found for id %v", id), http.StatusNotFound)
		return
	}

	path := s.PathFunc(vr)
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", s.ContentType)
	// ServeContent handles range requests, which browsers need for seeking.
	http.ServeContent(w, r, path, info.ModTime(), f)
}
