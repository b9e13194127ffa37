package video

import (
	"errors"
	"image"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestPingPongOrder(t *testing.T) {
	for _, tc := range []struct {
		n    int
		want []int
	}{
		{0, []int{}},
		{1, []int{0}},
		{2, []int{0, 1}},
		{4, []int{0, 1, 2, 3, 2, 1}},
	} {
		if got := PingPongOrder(tc.n); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("PingPongOrder(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
	if got := len(PingPongOrder(SurfaceCount)); got != 2*SurfaceCount-2 {
		t.Errorf("period of %d surfaces = %d frames", SurfaceCount, got)
	}
}

func TestTickSequence(t *testing.T) {
	p := &presented{}
	b := newTestBank(t, p, 2, 2)
	r := NewRenderer(b)

	var want []int
	for i := 0; i < SurfaceCount; i++ {
		want = append(want, i)
	}
	for i := SurfaceCount - 2; i >= 1; i-- {
		want = append(want, i)
	}
	want = append(want, 0, 1)

	for range want {
		r.tick()
	}
	if got := p.indices(); !reflect.DeepEqual(got, want) {
		t.Fatalf("shown %v\nwant %v", got, want)
	}
	if got := r.Status(); got.Ticks != uint64(len(want)) || got.Index != 2 || got.Direction != 1 {
		t.Errorf("Status() = %+v", got)
	}
}

func TestTickTurnsAtEnds(t *testing.T) {
	b := newTestBank(t, nil, 1, 1)
	r := NewRenderer(b)
	for i := 0; i < SurfaceCount-2; i++ {
		r.tick()
	}
	if st := r.Status(); st.Index != SurfaceCount-2 || st.Direction != 1 {
		t.Fatalf("before last: %+v", st)
	}
	r.tick()
	if st := r.Status(); st.Index != SurfaceCount-1 || st.Direction != -1 {
		t.Fatalf("at last: %+v", st)
	}
}

func TestTickUninitializedIsNoop(t *testing.T) {
	r := NewRenderer(NewBank(nil))
	r.tick()
	if st := r.Status(); st.Ticks != 0 || st.Index != 0 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestStartRefusesUninitializedBank(t *testing.T) {
	r := NewRenderer(NewBank(nil))
	if err := r.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Start() = %v, want ErrNotInitialized", err)
	}
	if r.Status().Rendering {
		t.Error("rendering without a bank")
	}
	r.Stop()
}

func TestStartStop(t *testing.T) {
	p := &presented{}
	b := newTestBank(t, p, 2, 2)
	r := NewRenderer(b)
	if err := r.SetFrameRate(60); err != nil {
		t.Fatal(err)
	}

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("second Start() = %v", err)
	}
	if !waitFor(2*time.Second, func() bool { return r.Status().Ticks >= 3 }) {
		t.Fatal("renderer did not advance")
	}
	r.Stop()
	if r.Status().Rendering {
		t.Error("still rendering after Stop")
	}

	ticks := r.Status().Ticks
	time.Sleep(50 * time.Millisecond)
	if got := r.Status().Ticks; got != ticks {
		t.Errorf("ticks advanced after Stop: %d -> %d", ticks, got)
	}
	if b.Visible() < 0 {
		t.Error("no surface visible after playback")
	}
	r.Stop()
}

func TestSetFrameRate(t *testing.T) {
	b := newTestBank(t, nil, 2, 2)
	r := NewRenderer(b)
	if r.FPS() != DefaultFPS {
		t.Fatalf("FPS() = %d, want %d", r.FPS(), DefaultFPS)
	}
	for _, fps := range []int{0, -1, 61} {
		if err := r.SetFrameRate(fps); !errors.Is(err, ErrFrameRate) {
			t.Errorf("SetFrameRate(%d) = %v, want ErrFrameRate", fps, err)
		}
	}
	if r.FPS() != DefaultFPS {
		t.Errorf("rejected rate changed FPS to %d", r.FPS())
	}

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()
	if err := r.SetFrameRate(60); err != nil {
		t.Fatal(err)
	}
	if st := r.Status(); st.FPS != 60 || !st.Rendering {
		t.Errorf("Status() after SetFrameRate = %+v", st)
	}
	start := r.Status().Ticks
	if !waitFor(2*time.Second, func() bool { return r.Status().Ticks > start }) {
		t.Error("renderer did not resume after frame rate change")
	}
}

func TestRendererReset(t *testing.T) {
	b := newTestBank(t, nil, 1, 1)
	r := NewRenderer(b)
	for i := 0; i < SurfaceCount+3; i++ {
		r.tick()
	}
	r.Reset()
	if st := r.Status(); st.Index != 0 || st.Direction != 1 {
		t.Errorf("Status() after Reset = %+v", st)
	}
}

func TestStopWinsOverConcurrentFrameRateChange(t *testing.T) {
	b := newTestBank(t, nil, 1, 1)
	for i := 0; i < 200; i++ {
		r := NewRenderer(b)
		if err := r.Start(); err != nil {
			t.Fatal(err)
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.SetFrameRate(10 + i%2)
		}()
		go func() {
			defer wg.Done()
			r.Stop()
		}()
		wg.Wait()
		if r.Status().Rendering {
			r.Stop()
			t.Fatalf("iteration %d: rendering after Stop", i)
		}
	}
}

// stalledPresenter blocks its first Present until release is closed.
type stalledPresenter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *stalledPresenter) Present(index int, img image.Image) {
	first := false
	p.once.Do(func() {
		first = true
		close(p.entered)
	})
	if first {
		<-p.release
	}
}

func (p *stalledPresenter) Clear() {}

func TestStalledPresenterDoesNotBlockBank(t *testing.T) {
	p := &stalledPresenter{entered: make(chan struct{}), release: make(chan struct{})}
	b := newTestBank(t, p, 2, 2)
	r := NewRenderer(b)

	ticked := make(chan bool)
	go func() {
		r.tick()
		ticked <- true
	}()
	<-p.entered

	returned := make(chan bool)
	go func() {
		b.Status()
		r.Status()
		r.SetFrameRate(20)
		b.Cleanup()
		returned <- true
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		close(p.release)
		t.Fatal("bank or renderer blocked behind a stalled presenter")
	}

	close(p.release)
	<-ticked
	if b.Initialized() || b.Visible() != -1 {
		t.Errorf("bank after Cleanup = %+v", b.Status())
	}
}
