package source

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register decoders.
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// Stills is a software source replaying a directory of images in a loop, each
// scaled to the capture size.
type Stills struct {
	*feed
	images []*image.RGBA
}

func NewStills(dir string, size image.Point, fps int) (*Stills, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no images found in %v", dir)
	}

	s := &Stills{}
	for _, name := range names {
		img, err := loadScaled(filepath.Join(dir, name), size)
		if err != nil {
			log.Warnf("Skipping still %v: %v", name, err)
			continue
		}
		s.images = append(s.images, img)
	}
	if len(s.images) == 0 {
		return nil, fmt.Errorf("no readable images in %v", dir)
	}
	log.Infof("Loaded %d stills from %v", len(s.images), dir)

	s.feed = newFeed("stills", size, fps, s.next)
	return s, nil
}

func loadScaled(path string, size image.Point) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

func (s *Stills) next(n int) (*image.RGBA, error) {
	src := s.images[n%len(s.images)]
	img := acquireFrame(s.size)
	copy(img.Pix, src.Pix)
	return img, nil
}
