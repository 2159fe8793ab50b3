// Package wisp enhances faint structures in grayscale microscopy stacks with
// unsharp masking, tiled contrast equalization and temporal smoothing.
package wisp

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// The tile grid for contrast equalization is fixed; only the clip limit is
// tunable.
const claheTileGrid = 8

// NormalizeTo8Bit linearly rescales a frame's min-max range to [0,255] and
// quantizes to 8-bit. A constant frame maps to all zeros rather than dividing
// by zero.
func NormalizeTo8Bit(frame gocv.Mat) gocv.Mat {
	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Normalize(frame, &normalized, 0, 255, gocv.NormMinMax)

	out := gocv.NewMat()
	normalized.ConvertTo(&out, gocv.MatTypeCV8U)
	return out
}

// EnhanceFrame transforms one grayscale frame of arbitrary bit depth into an
// 8-bit enhanced frame: min-max normalization, unsharp masking against a
// Gaussian background estimate, then clip-limited adaptive histogram
// equalization on an 8x8 tile grid.
//
// unsharpAmount controls enhancement strength; 0 leaves the frame unsharpened.
func EnhanceFrame(frame gocv.Mat, sigmaBackground, unsharpAmount, claheClipLimit float64) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("frame is empty")
	}
	if frame.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("expected grayscale frame, got %d channels", frame.Channels())
	}

	img := NormalizeTo8Bit(frame)
	defer img.Close()

	background := gocv.NewMat()
	defer background.Close()
	if err := gocv.GaussianBlur(img, &background, image.Point{}, sigmaBackground, sigmaBackground, gocv.BorderDefault); err != nil {
		return gocv.NewMat(), fmt.Errorf("estimating background: %w", err)
	}

	// sharpened = img*(1+amount) - background*amount, saturating to [0,255].
	sharpened := gocv.NewMat()
	defer sharpened.Close()
	gocv.AddWeighted(img, 1+unsharpAmount, background, -unsharpAmount, 0, &sharpened)

	clahe := gocv.NewCLAHEWithParams(claheClipLimit, image.Pt(claheTileGrid, claheTileGrid))
	defer clahe.Close()

	out := gocv.NewMat()
	clahe.Apply(sharpened, &out)
	return out, nil
}
