package camera

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// MaxPoolMats bounds the Mats a pool hands out. Reaching it means frames
// aren't being closed.
const MaxPoolMats = 64

var ErrPoolExhausted = errors.New("too many MatPool allocations, perhaps a frame isn't being closed")

type matRequest struct {
	m   gocv.Mat
	err error
}

// MatPool recycles Mats between camera reads so a steady capture does not
// allocate.
type MatPool struct {
	new   chan chan matRequest
	free  chan gocv.Mat
	close chan bool

	allocated int
	available []gocv.Mat
}

func NewMatPool() *MatPool {
	p := &MatPool{
		new:   make(chan chan matRequest),
		free:  make(chan gocv.Mat),
		close: make(chan bool),
	}
	go p.loop()
	return p
}

func (p *MatPool) loop() {
	closed := false
	for {
		select {
		case <-p.close:
			closed = true
			for _, m := range p.available {
				m.Close()
				p.allocated--
			}
			p.available = nil
		case m := <-p.free:
			if closed {
				m.Close()
				p.allocated--
			} else {
				p.available = append(p.available, m)
			}
		case r := <-p.new:
			if len(p.available) > 0 {
				var m gocv.Mat
				m, p.available = p.available[0], p.available[1:]
				r <- matRequest{m: m}
				continue
			}
			if p.allocated >= MaxPoolMats {
				log.Errorf("MatPool exhausted with %d Mats allocated", p.allocated)
				r <- matRequest{err: ErrPoolExhausted}
				continue
			}
			p.allocated++
			r <- matRequest{m: gocv.NewMat()}
		}
	}
}

func (p *MatPool) NewMat() (gocv.Mat, error) {
	r := make(chan matRequest)
	p.new <- r
	res := <-r
	return res.m, res.err
}

func (p *MatPool) ReleaseMat(m gocv.Mat) {
	p.free <- m
}

// Close frees pooled Mats. Mats released afterwards are freed immediately.
func (p *MatPool) Close() {
	p.close <- true
}
