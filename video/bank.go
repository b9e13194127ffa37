package video

import (
	"errors"
	"fmt"
	"image"
	"sync"

	log "github.com/sirupsen/logrus"
)

// SurfaceCount is the number of surfaces in a Bank.
const SurfaceCount = 30

var (
	ErrNotInitialized = errors.New("bank not initialized")
	ErrOutOfRange     = errors.New("index out of range")
)

// Presenter receives the surface that becomes visible. It is how a Bank is
// attached to an actual display, such as an MJPEG stream.
type Presenter interface {
	Present(index int, img image.Image)
	Clear()
}

// Presenters shows the visible surface on several displays at once.
type Presenters []Presenter

func (ps Presenters) Present(index int, img image.Image) {
	for _, p := range ps {
		p.Present(index, img)
	}
}

func (ps Presenters) Clear() {
	for _, p := range ps {
		p.Clear()
	}
}

// Surface is one drawable RGBA raster of the bank.
type Surface struct {
	index   int
	img     *image.RGBA
	visible bool
	toggles int

	// Guards img pixels.
	mu sync.Mutex
}

func newSurface(index, width, height int) *Surface {
	return &Surface{
		index: index,
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Copy returns a copy of the surface's pixels.
func (s *Surface) Copy() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := image.NewRGBA(s.img.Rect)
	copy(c.Pix, s.img.Pix)
	return c
}

// Bank owns SurfaceCount equally sized surfaces, at most one of which is
// visible at a time.
//
// Writes and visibility changes use separate locks: the slicer only writes
// pixels and the renderer only toggles visibility, so the two never contend.
type Bank struct {
	presenter Presenter

	// Guards surfaces, width and height.
	mu       sync.RWMutex
	surfaces []*Surface
	width    int
	height   int

	// Guards visible and the surfaces' visibility flags.
	vis     sync.Mutex
	visible int
}

// NewBank creates an uninitialized bank. The presenter may be nil.
func NewBank(p Presenter) *Bank {
	return &Bank{
		presenter: p,
		visible:   -1,
	}
}

// Initialize discards any existing surfaces and allocates new ones of the
// given size.
func (b *Bank) Initialize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid bank size %dx%d", width, height)
	}
	b.Cleanup()

	surfaces := make([]*Surface, SurfaceCount)
	for i := range surfaces {
		surfaces[i] = newSurface(i, width, height)
	}

	b.mu.Lock()
	b.surfaces = surfaces
	b.width = width
	b.height = height
	b.mu.Unlock()

	log.Infof("Canvas bank initialized with %d surfaces of %dx%d", SurfaceCount, width, height)
	return nil
}

// Initialized reports whether the bank has surfaces.
func (b *Bank) Initialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.surfaces != nil
}

// Count returns the number of surfaces, or zero when uninitialized.
func (b *Bank) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.surfaces)
}

// Size returns the dimensions shared by all surfaces.
func (b *Bank) Size() image.Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return image.Point{X: b.width, Y: b.height}
}

// WriteRow copies the full-width row sourceRow of frame into row targetRow of
// surface index.
func (b *Bank) WriteRow(index int, frame Frame, sourceRow, targetRow int) error {
	return b.WriteRowSpan(index, frame, sourceRow, targetRow, 0, -1)
}

// WriteRowSpan copies width pixels starting at startX of row sourceRow in
// frame into row targetRow of surface index. A negative width means the rest
// of the row.
func (b *Bank) WriteRowSpan(index int, frame Frame, sourceRow, targetRow, startX, width int) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	clog := log.WithFields(log.Fields{
		"surface":   index,
		"sourceRow": sourceRow,
		"targetRow": targetRow,
	})

	if b.surfaces == nil {
		clog.Warn("Row write on uninitialized canvas bank")
		return ErrNotInitialized
	}
	if index < 0 || index >= len(b.surfaces) {
		clog.Warn("Row write to invalid surface")
		return fmt.Errorf("surface %d: %w", index, ErrOutOfRange)
	}
	if targetRow < 0 || targetRow >= b.height {
		clog.Warnf("Target row outside of surface height %d", b.height)
		return fmt.Errorf("target row %d: %w", targetRow, ErrOutOfRange)
	}
	if sourceRow < 0 || sourceRow >= frame.Height() {
		clog.Warnf("Source row outside of frame height %d", frame.Height())
		return fmt.Errorf("source row %d: %w", sourceRow, ErrOutOfRange)
	}
	if width < 0 {
		width = b.width - startX
	}
	if startX < 0 || width <= 0 || startX+width > b.width || startX+width > frame.Width() {
		clog.Warnf("Span [%d, %d) outside of surface width %d / frame width %d", startX, startX+width, b.width, frame.Width())
		return fmt.Errorf("span [%d, %d): %w", startX, startX+width, ErrOutOfRange)
	}

	s := b.surfaces[index]
	s.mu.Lock()
	defer s.mu.Unlock()

	off := s.img.PixOffset(startX, targetRow)
	if err := frame.Scanline(sourceRow, startX, s.img.Pix[off:off+width*4]); err != nil {
		clog.WithFields(log.Fields{
			"frameSize":   fmt.Sprintf("%dx%d", frame.Width(), frame.Height()),
			"surfaceSize": fmt.Sprintf("%dx%d", b.width, b.height),
		}).Errorf("Failed to copy scanline: %v", err)
		return err
	}
	return nil
}

// Show makes surface index the only visible surface. The presenter is called
// after the bank's locks are released.
func (b *Bank) Show(index int) error {
	img, changed, err := b.show(index)
	if err != nil || !changed {
		return err
	}
	// A later Show or HideAll may have won the race to the presenter.
	if b.presenter != nil && b.Visible() == index {
		b.presenter.Present(index, img)
	}
	return nil
}

// show flips visibility. It reports whether anything changed and, when there
// is a presenter, returns a copy of the newly visible surface.
func (b *Bank) show(index int) (*image.RGBA, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.surfaces == nil {
		log.Warnf("Cannot show surface %d, canvas bank not initialized", index)
		return nil, false, ErrNotInitialized
	}
	if index < 0 || index >= len(b.surfaces) {
		log.Warnf("Cannot show surface %d, out of range", index)
		return nil, false, fmt.Errorf("surface %d: %w", index, ErrOutOfRange)
	}

	b.vis.Lock()
	defer b.vis.Unlock()
	if b.visible == index {
		return nil, false, nil
	}
	if b.visible >= 0 {
		b.surfaces[b.visible].setVisible(false)
	}
	s := b.surfaces[index]
	s.setVisible(true)
	b.visible = index
	if b.presenter == nil {
		return nil, true, nil
	}
	return s.Copy(), true, nil
}

// HideAll hides the visible surface, if any.
func (b *Bank) HideAll() {
	b.mu.RLock()
	b.vis.Lock()
	hidden := b.hideLocked()
	b.vis.Unlock()
	b.mu.RUnlock()

	if hidden && b.presenter != nil {
		b.presenter.Clear()
	}
}

func (b *Bank) hideLocked() bool {
	if b.visible < 0 {
		return false
	}
	if b.visible < len(b.surfaces) {
		b.surfaces[b.visible].setVisible(false)
	}
	b.visible = -1
	return true
}

// Visible returns the index of the visible surface, or -1.
func (b *Bank) Visible() int {
	b.vis.Lock()
	defer b.vis.Unlock()
	return b.visible
}

// Snapshot returns a copy of surface index.
func (b *Bank) Snapshot(index int) (*image.RGBA, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.surfaces == nil {
		return nil, ErrNotInitialized
	}
	if index < 0 || index >= len(b.surfaces) {
		return nil, fmt.Errorf("surface %d: %w", index, ErrOutOfRange)
	}
	return b.surfaces[index].Copy(), nil
}

// Cleanup releases all surfaces. The bank must be initialized again before
// further use.
func (b *Bank) Cleanup() {
	if b.cleanup() && b.presenter != nil {
		b.presenter.Clear()
	}
}

// cleanup drops the surfaces and reports whether one was visible.
func (b *Bank) cleanup() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vis.Lock()
	hidden := b.hideLocked()
	b.vis.Unlock()

	if b.surfaces == nil {
		return false
	}
	b.surfaces = nil
	b.width, b.height = 0, 0
	log.Debug("Canvas bank released")
	return hidden
}

// BankStatus is a snapshot of the bank.
type BankStatus struct {
	Initialized bool
	Count       int
	Width       int
	Height      int
	Visible     int
}

func (b *Bank) Status() BankStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BankStatus{
		Initialized: b.surfaces != nil,
		Count:       len(b.surfaces),
		Width:       b.width,
		Height:      b.height,
		Visible:     b.Visible(),
	}
}

func (s *Surface) setVisible(v bool) {
	if s.visible != v {
		s.visible = v
		s.toggles++
	}
}
