package display

import (
	"image"
	"sync"

	"github.com/gdamore/tcell"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// upperHalf draws the top pixel in the foreground and the bottom pixel in the
// background, giving two pixel rows per terminal cell.
const upperHalf = '▀'

// Terminal shows the visible surface on the local terminal. Drawing happens on
// its own goroutine; when it falls behind, only the latest image is kept.
type Terminal struct {
	screen tcell.Screen

	img  chan image.Image // nil clears
	stop chan struct{}
	done chan struct{}

	interrupt chan struct{}
	once      sync.Once
	closeOnce sync.Once
}

// NewTerminal takes over the controlling terminal.
func NewTerminal() (*Terminal, error) {
	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return newTerminal(screen)
}

func newTerminal(screen tcell.Screen) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.Clear()
	t := &Terminal{
		screen:    screen,
		img:       make(chan image.Image, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		interrupt: make(chan struct{}),
	}
	go t.pollLoop()
	go t.drawLoop()
	return t, nil
}

// Interrupted is closed when the user presses Ctrl-C or Esc. tcell swallows
// the signal, so this replaces SIGINT while the terminal is in use.
func (t *Terminal) Interrupted() <-chan struct{} {
	return t.interrupt
}

func (t *Terminal) Present(index int, img image.Image) {
	t.put(img)
}

func (t *Terminal) Clear() {
	t.put(nil)
}

func (t *Terminal) put(img image.Image) {
	for {
		select {
		case t.img <- img:
			return
		default:
		}
		// Replace the stale image.
		select {
		case <-t.img:
		default:
		}
	}
}

func (t *Terminal) pollLoop() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyCtrlC, tcell.KeyEscape:
				t.once.Do(func() { close(t.interrupt) })
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *Terminal) drawLoop() {
	defer close(t.done)
	for {
		select {
		case <-t.stop:
			return
		case img := <-t.img:
			t.draw(img)
		}
	}
}

func (t *Terminal) draw(img image.Image) {
	if img == nil {
		t.screen.Clear()
		t.screen.Show()
		return
	}
	cols, rows := t.screen.Size()
	if cols <= 0 || rows <= 0 {
		return
	}
	px := fit(img, image.Pt(cols, rows*2))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top := px.RGBAAt(x, 2*y)
			bottom := px.RGBAAt(x, 2*y+1)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			t.screen.SetContent(x, y, upperHalf, nil, style)
		}
	}
	t.screen.Show()
}

// fit scales img to exactly size.
func fit(img image.Image, size image.Point) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Rect.Size() == size {
		return rgba
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Close stops drawing and restores the terminal.
func (t *Terminal) Close() {
	t.closeOnce.Do(func() {
		close(t.stop)
		<-t.done
		t.screen.Fini()
		log.Debug("Terminal display closed")
	})
}
