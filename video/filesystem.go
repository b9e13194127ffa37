package video

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pillash/mp4util"
	log "github.com/sirupsen/logrus"
)

const (
	ExtVideo   = "_video.mp4"
	ExtThumb   = "_thumb.jpg"
	ExtPreview = "_preview.mp4"

	// FileTimeLayout defines the time prefix of record identifiers.
	// See https://golang.org/src/time/format.go.
	FileTimeLayout = "20060102-150405"

	idSuffixLen = 8
)

// ExportRecord is one exported loop and its derived files.
type ExportRecord struct {
	Identifier string
	Time       time.Time

	VideoPath   string
	ThumbPath   string
	PreviewPath string

	HaveVideo   bool
	HaveThumb   bool
	HavePreview bool

	DurationSec int
	Size        int64

	fs *Filesystem
}

// FilesystemListener is notified when the set of records changes.
type FilesystemListener interface {
	FilesystemUpdated()
}

// Filesystem manages the export directory.
type Filesystem struct {
	BasePath  string
	Listeners []FilesystemListener

	records []*ExportRecord
	l       sync.Mutex
}

func NewFilesystem(path string) (*Filesystem, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	f := &Filesystem{
		BasePath: path,
	}
	if err := f.Refresh(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewRecord allocates paths for a new export made at t. Nothing is written.
func (f *Filesystem) NewRecord(t time.Time) *ExportRecord {
	id := t.UTC().Format(FileTimeLayout) + "-" + uuid.New().String()[:idSuffixLen]
	return f.record(id, t)
}

func (f *Filesystem) record(id string, t time.Time) *ExportRecord {
	base := filepath.Join(f.BasePath, id)
	return &ExportRecord{
		Identifier:  id,
		Time:        t,
		VideoPath:   base + ExtVideo,
		ThumbPath:   base + ExtThumb,
		PreviewPath: base + ExtPreview,
		fs:          f,
	}
}

func parseIdentifier(name string) (string, time.Time, bool) {
	i := strings.IndexByte(name, '_')
	if i < 0 {
		return "", time.Time{}, false
	}
	id := name[:i]
	if len(id) != len(FileTimeLayout)+1+idSuffixLen {
		return "", time.Time{}, false
	}
	t, err := time.Parse(FileTimeLayout, id[:len(FileTimeLayout)])
	if err != nil {
		return "", time.Time{}, false
	}
	return id, t, true
}

// Refresh rescans the export directory.
func (f *Filesystem) Refresh() error {
	m := make(map[string]*ExportRecord)

	files, err := os.ReadDir(f.BasePath)
	if err != nil {
		return err
	}

	for _, file := range files {
		b := file.Name()
		id, t, ok := parseIdentifier(b)
		if !ok {
			continue
		}

		v := m[id]
		if v == nil {
			v = f.record(id, t)
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		switch {
		case strings.HasSuffix(b, ExtVideo):
			v.HaveVideo = true
			if d, err := mp4util.Duration(v.VideoPath); err == nil {
				v.DurationSec = d
			}
		case strings.HasSuffix(b, ExtThumb):
			v.HaveThumb = true
		case strings.HasSuffix(b, ExtPreview):
			v.HavePreview = true
		default:
			continue
		}
		v.Size += info.Size()

		m[id] = v
	}

	records := make([]*ExportRecord, 0, len(m))
	for _, v := range m {
		records = append(records, v)
	}
	// Newest first.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Identifier > records[j].Identifier
	})

	f.l.Lock()
	f.records = records
	f.l.Unlock()
	return nil
}

// Updated rescans the directory and notifies listeners.
func (f *Filesystem) Updated() {
	if err := f.Refresh(); err != nil {
		log.Errorf("Failed to refresh exports in %v: %v", f.BasePath, err)
	}
	for _, l := range f.Listeners {
		l.FilesystemUpdated()
	}
}

func (f *Filesystem) GetRecords() []*ExportRecord {
	f.l.Lock()
	defer f.l.Unlock()
	return append([]*ExportRecord(nil), f.records...)
}

func (f *Filesystem) GetRecordByID(id string) *ExportRecord {
	f.l.Lock()
	defer f.l.Unlock()
	for _, r := range f.records {
		if r.Identifier == id {
			return r
		}
	}
	return nil
}

// Delete removes all files of the record.
func (r *ExportRecord) Delete() error {
	var errs []string
	for _, p := range []string{r.VideoPath, r.ThumbPath, r.PreviewPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err.Error())
		}
	}
	log.Infof("Deleted export %v", r.Identifier)
	r.fs.Updated()
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete %v: %s", r.Identifier, strings.Join(errs, "; "))
	}
	return nil
}
