package serve

import (
	"fmt"
	"image"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// MJPEG multi-streaming, based on implementation by saljam:
// https://github.com/saljam/mjpeg/blob/master/stream.go

const boundaryWord = "MJPEGBOUNDARY"
const headerf = "\r\n" +
	"--" + boundaryWord + "\r\n" +
	"Content-Type: image/jpeg\r\n" +
	"Content-Length: %d\r\n" +
	"X-Timestamp: 0.000000\r\n" +
	"\r\n"

type MJPEGServer struct {
	m map[string]*MJPEGStream

	lock sync.Mutex
}

func NewMJPEGServer() *MJPEGServer {
	return &MJPEGServer{
		m: make(map[string]*MJPEGStream),
	}
}

func (s *MJPEGServer) NewStream(name string) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.m[name]; ok {
		log.Panicf("A stream named %v already exists", name)
	}

	ms := &MJPEGStream{
		name:   name,
		m:      make(map[chan []byte]bool),
		parent: s,
	}

	s.m[name] = ms
	return ms
}

func (s *MJPEGServer) getStream(name string) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.m[name]
}

// ServeHTTP implements http.Handler interface, serving MJPEG.
func (s *MJPEGServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := r.Form.Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	stream := s.getStream(name)
	if stream == nil {
		http.Error(w, "unknown stream", http.StatusNotFound)
		return
	}

	clog := log.WithField("addr", r.RemoteAddr)
	clog.Infof("MJPEG stream connected to %v", name)
	w.Header().Add("Content-Type", "multipart/x-mixed-replace;boundary="+boundaryWord)

	c := stream.add()
	defer stream.remove(c)

	for {
		select {
		case <-r.Context().Done():
			clog.Infof("MJPEG stream disconnected from %v", name)
			return
		case b := <-c:
			if _, err := w.Write(b); err != nil {
				clog.Infof("MJPEG stream disconnected from %v", name)
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

type MJPEGStream struct {
	name string
	m    map[chan []byte]bool
	last []byte

	parent *MJPEGServer
	lock   sync.Mutex
}

func (s *MJPEGStream) add() chan []byte {
	c := make(chan []byte, 1)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.m[c] = true
	// New viewers see the current image right away, even if paused.
	if s.last != nil {
		c <- s.last
	}
	return c
}

func (s *MJPEGStream) remove(c chan []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.m, c)
}

func (s *MJPEGStream) empty() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.m) == 0
}

// Put encodes img and sends it to all connected viewers.
func (s *MJPEGStream) Put(img image.Image) {
	if s.empty() {
		// Nobody is listening; don't bother encoding.
		s.lock.Lock()
		s.last = nil
		s.lock.Unlock()
		return
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		log.Errorf("Error converting image for MJPEG stream %v: %v", s.name, err)
		return
	}
	defer mat.Close()

	jpeg, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		log.Errorf("Error encoding to JPG for MJPEG stream %v: %v", s.name, err)
		return
	}
	defer jpeg.Close()

	b := jpeg.GetBytes()
	header := fmt.Sprintf(headerf, len(b))
	frame := make([]byte, 0, len(header)+len(b))
	frame = append(frame, header...)
	frame = append(frame, b...)

	s.lock.Lock()
	defer s.lock.Unlock()
	s.last = frame
	for c := range s.m {
		select {
		case c <- frame:
		default:
			// Skip listeners not ready for next frame.
		}
	}
}

func (s *MJPEGStream) Close() {
	s.parent.lock.Lock()
	defer s.parent.lock.Unlock()
	delete(s.parent.m, s.name)
}

// Presenter adapts a stream to show the bank's visible surface.
type Presenter struct {
	Stream *MJPEGStream
}

func (p *Presenter) Present(index int, img image.Image) {
	p.Stream.Put(img)
}

func (p *Presenter) Clear() {}
