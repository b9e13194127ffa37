package process

import (
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"

	"timespy/util"
)

const (
	ExtTemp = ".temp"
)

// PreviewProducer makes small preview clips of exported loops with ffmpeg,
// one at a time in the background.
type PreviewProducer struct {
	c     chan *workItem
	close chan chan bool
}

type workItem struct {
	src, dst string
	donec    chan bool
}

// PreviewArgs returns the ffmpeg command line converting src into a preview
// clip at dst.
func PreviewArgs(src, dst string) []string {
	return []string{
		"-y",
		// Configure input from source file.
		"-i", src,
		// Previews can be choppy to reduce size.
		"-r", "15",
		// Output format as libx264
		"-c:v", "libx264",
		// Resize to preview size, keeping dimensions even.
		"-vf", "scale=240:-2",
		// Fast, fairly low quality.
		"-preset", "fast",
		"-crf", "30",
		// Keep CPU usage down. Preview conversion doesn't need to be fast.
		"-threads", "1",
		// Allow playback on a wider range of devices.
		"-pix_fmt", "yuv420p",
		"-profile:v", "baseline",
		"-level", "3.0",
		// Explicit format.
		"-f", "mp4",
		dst + ExtTemp,
	}
}

func NewPreviewProducer() *PreviewProducer {
	f := &PreviewProducer{
		c:     make(chan *workItem, 100),
		close: make(chan chan bool, 1),
	}
	go func() {
		for {
			var w *workItem
			select {
			case cc := <-f.close:
				cc <- true
				return
			case w = <-f.c:
			}

			bin, err := util.LocateFFmpeg()
			if err != nil {
				log.Errorf("Failed to locate ffmpeg for preview of %v: %v", w.src, err)
				close(w.donec)
				continue
			}

			c := exec.Command(bin, PreviewArgs(w.src, w.dst)...)

			// Allows for debugging ffmpeg in shell.
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr

			if err := c.Start(); err != nil {
				log.Errorf("Failed to start preview conversion for %v: %v", w.src, err)
				close(w.donec)
				continue
			}

			wait := make(chan error)
			go func() {
				wait <- c.Wait()
			}()

			select {
			case cc := <-f.close:
				c.Process.Kill()
				<-wait
				close(w.donec)
				cc <- true
				return
			case err := <-wait:
				if err == nil {
					if err := os.Rename(w.dst+ExtTemp, w.dst); err != nil {
						log.Errorf("Error moving preview to its final destination: %v", err)
					} else {
						log.Infof("Preview conversion succeeded for %v", w.src)
					}
				} else {
					log.Errorf("Preview conversion failed for %v: %v", w.src, err)
				}
				close(w.donec)
			}
		}
	}()
	return f
}

// Process queues a preview conversion. The returned channel is closed when the
// conversion finishes. Returns nil if the backlog is full.
func (f *PreviewProducer) Process(src, dst string) <-chan bool {
	w := &workItem{
		src:   src,
		dst:   dst,
		donec: make(chan bool),
	}
	select {
	case f.c <- w:
	default:
		log.Warn("Preview processing dropped due to backlog")
		return nil
	}
	return w.donec
}

func (f *PreviewProducer) Close() {
	c := make(chan bool)
	f.close <- c
	<-c
}
