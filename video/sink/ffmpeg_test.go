package sink

import (
	"image"
	"strings"
	"testing"
)

func TestFFmpegArgs(t *testing.T) {
	args := FFmpegOptions{Size: image.Point{X: 641, Y: 480}, FPS: 24}.Args("/tmp/out.mp4")
	cmd := strings.Join(args, " ")
	for _, want := range []string{
		"-f rawvideo -pixel_format rgba -video_size 641x480 -framerate 24 -i -",
		"-preset veryfast -crf 23",
		"-pix_fmt yuv420p",
		"-movflags +faststart",
	} {
		if !strings.Contains(cmd, want) {
			t.Errorf("args %q missing %q", cmd, want)
		}
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Errorf("output path not last: %v", args)
	}

	tuned := strings.Join(FFmpegOptions{Preset: "slow", CRF: 18}.Args("x"), " ")
	if !strings.Contains(tuned, "-preset slow -crf 18") {
		t.Errorf("tuning ignored: %q", tuned)
	}
}

func TestPackRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	if got := packRGBA(img); len(got) != len(img.Pix) {
		t.Errorf("packed %d bytes, want %d", len(got), len(img.Pix))
	}

	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	got := packRGBA(sub)
	if len(got) != 2*2*4 {
		t.Fatalf("packed %d bytes, want 16", len(got))
	}
	// Row 1 starts at byte 16, column 1 at +4.
	want := []byte{20, 21, 22, 23, 24, 25, 26, 27, 36, 37, 38, 39, 40, 41, 42, 43}
	if string(got) != string(want) {
		t.Errorf("packRGBA(sub) = %v, want %v", got, want)
	}
}
