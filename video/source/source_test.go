package source

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestThrottle(t *testing.T) {
	for _, tc := range []struct {
		target, every int
	}{
		{0, 1},
		{30, 1},
		{60, 1},
		{15, 2},
		{10, 3},
		{7, 4},
		{1, 30},
	} {
		th := NewThrottle(tc.target)
		if th.Every() != tc.every {
			t.Errorf("NewThrottle(%d).Every() = %d, want %d", tc.target, th.Every(), tc.every)
			continue
		}
		kept := 0
		for i := 0; i < 60; i++ {
			if th.Keep() {
				kept++
			}
		}
		if want := (60 + tc.every - 1) / tc.every; kept != want {
			t.Errorf("target %d kept %d of 60, want %d", tc.target, kept, want)
		}
	}
}

func TestRGBAFrameScanline(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.SetRGBA(1, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetRGBA(2, 2, color.RGBA{R: 40, G: 50, B: 60, A: 255})
	f := NewRGBAFrame(img, time.Unix(5, 0))

	if f.Width() != 4 || f.Height() != 3 || !f.Timestamp().Equal(time.Unix(5, 0)) {
		t.Fatalf("frame %dx%d at %v", f.Width(), f.Height(), f.Timestamp())
	}
	dst := make([]byte, 8)
	if err := f.Scanline(2, 1, dst); err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 20, 30, 255, 40, 50, 60, 255}
	if string(dst) != string(want) {
		t.Errorf("Scanline = %v, want %v", dst, want)
	}

	for _, tc := range []struct {
		name string
		y, x int
		n    int
	}{
		{"row below", 3, 0, 4},
		{"negative row", -1, 0, 4},
		{"too wide", 0, 1, 4},
		{"negative x", 0, -1, 1},
		{"partial pixel", 0, 0, -1},
	} {
		var buf []byte
		if tc.n < 0 {
			buf = make([]byte, 3)
		} else {
			buf = make([]byte, tc.n*4)
		}
		if err := f.Scanline(tc.y, tc.x, buf); err == nil {
			t.Errorf("%v: expected error", tc.name)
		}
	}
	f.Close()
}

func TestRGBAFrameSubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(2, 3, color.RGBA{R: 7, A: 255})
	sub := img.SubImage(image.Rect(1, 1, 4, 4)).(*image.RGBA)
	f := NewRGBAFrame(sub, time.Now())

	dst := make([]byte, 4)
	if err := f.Scanline(2, 1, dst); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 7 {
		t.Errorf("Scanline read %v, want the pixel at (2, 3) of the parent", dst)
	}
}

func TestRGBAFrameDoubleClosePanics(t *testing.T) {
	f := NewRGBAFrame(image.NewRGBA(image.Rect(0, 0, 1, 1)), time.Now())
	f.Close()
	defer func() {
		if recover() == nil {
			t.Error("second Close did not panic")
		}
	}()
	f.Close()
}

func TestAcquireFrameSize(t *testing.T) {
	recycleFrame(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	for _, size := range []image.Point{{X: 4, Y: 2}, {X: 20, Y: 20}} {
		img := acquireFrame(size)
		if img.Rect.Size() != size || len(img.Pix) != size.X*size.Y*4 || img.Stride != size.X*4 {
			t.Errorf("acquireFrame(%v) = %v stride %d len %d", size, img.Rect, img.Stride, len(img.Pix))
		}
	}
}

func TestPatternFrame(t *testing.T) {
	size := image.Point{X: 40, Y: 20}
	a := PatternFrame(size, 0)
	if a.Rect.Size() != size {
		t.Fatalf("size = %v", a.Rect.Size())
	}
	for i := 3; i < len(a.Pix); i += 4 {
		if a.Pix[i] != 255 {
			t.Fatal("pattern is not opaque")
		}
	}
	// The bar starts at the left edge.
	if c := a.RGBAAt(0, 10); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("bar pixel = %v", c)
	}
	// Rows differ so slices from different source rows are distinguishable.
	if a.RGBAAt(20, 0).G == a.RGBAAt(20, 19).G {
		t.Error("gradient does not vary by row")
	}
	aPix := append([]byte(nil), a.Pix...)
	b := PatternFrame(size, 5)
	if string(aPix) == string(b.Pix) {
		t.Error("pattern does not move")
	}
}

func TestFeedDeliversAndStops(t *testing.T) {
	p := NewPattern(image.Point{X: 8, Y: 4}, 100)
	c := p.Frames()

	select {
	case f, ok := <-c:
		if !ok {
			t.Fatal("channel closed early")
		}
		if f.Width() != 8 || f.Height() != 4 {
			t.Errorf("frame %dx%d", f.Width(), f.Height())
		}
		f.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	p.Stop()
	for f := range c {
		f.Close()
	}
	p.Stop()

	// A stopped feed can be started again.
	c = p.Frames()
	select {
	case f := <-c:
		f.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("no frame after restart")
	}
	p.Stop()
}

func TestFeedDropsWhenNotRead(t *testing.T) {
	p := NewPattern(image.Point{X: 2, Y: 2}, 200)
	c := p.Frames()
	// Nobody reads for a while; the feed must not block or queue.
	time.Sleep(50 * time.Millisecond)
	done := make(chan bool)
	go func() {
		p.Stop()
		done <- true
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an unread channel")
	}
	if _, ok := <-c; ok {
		t.Error("frames were queued")
	}
}

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// near compares colors allowing for rounding in the scaler.
func near(a, b color.RGBA) bool {
	d := func(x, y uint8) bool { return int(x)-int(y) < 3 && int(y)-int(x) < 3 }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

func TestStills(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), color.RGBA{G: 255, A: 255})
	writePNG(t, filepath.Join(dir, "a.png"), color.RGBA{R: 255, A: 255})
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	size := image.Point{X: 8, Y: 6}
	s, err := NewStills(dir, size, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.images) != 2 {
		t.Fatalf("loaded %d stills, want 2", len(s.images))
	}
	if s.Size() != size {
		t.Errorf("Size() = %v", s.Size())
	}

	for n, want := range []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{R: 255, A: 255},
	} {
		img, err := s.next(n)
		if err != nil {
			t.Fatal(err)
		}
		if img.Rect.Size() != size {
			t.Fatalf("still %d has size %v", n, img.Rect.Size())
		}
		if got := img.RGBAAt(4, 3); !near(got, want) {
			t.Errorf("still %d = %v, want %v", n, got, want)
		}
		recycleFrame(img)
	}
}

func TestStillsEmptyDir(t *testing.T) {
	if _, err := NewStills(t.TempDir(), image.Point{X: 2, Y: 2}, 30); err == nil {
		t.Error("expected error for a directory without images")
	}
}
