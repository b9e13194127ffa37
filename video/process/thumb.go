package process

import (
	"image"
	"os"

	"gocv.io/x/gocv"
)

// ThumbWidth is the width of poster thumbnails. Height keeps the aspect ratio.
const ThumbWidth = 320

// WriteThumb writes a JPEG poster of img to path.
func WriteThumb(path string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	sz := img.Bounds().Size()
	h := ThumbWidth * sz.Y / sz.X
	if h < 1 {
		h = 1
	}

	tmat := gocv.NewMat()
	defer tmat.Close()
	gocv.Resize(mat, &tmat, image.Point{X: ThumbWidth, Y: h}, 0, 0, gocv.InterpolationArea)

	jpeg, err := gocv.IMEncode(gocv.JPEGFileExt, tmat)
	if err != nil {
		return err
	}
	defer jpeg.Close()

	return os.WriteFile(path, jpeg.GetBytes(), 0644)
}
