package wisp

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// SmoothTemporal reduces frame-to-frame noise by averaging a centered sliding
// window over the stack. The sequence is edge-replicated at both ends so every
// frame sees a full window; output length equals input length. Frames are
// accumulated in double precision and re-quantized to 8-bit.
func SmoothTemporal(frames []gocv.Mat, window int) ([]gocv.Mat, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to smooth")
	}
	if window < 1 {
		return nil, fmt.Errorf("window must be at least 1, got %d", window)
	}

	pad := window / 2
	out := make([]gocv.Mat, 0, len(frames))
	for i := range frames {
		acc := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frames[i].Rows(), frames[i].Cols(), gocv.MatTypeCV64F)

		for j := i - pad; j < i-pad+window; j++ {
			idx := j
			if idx < 0 {
				idx = 0
			}
			if idx >= len(frames) {
				idx = len(frames) - 1
			}

			f := gocv.NewMat()
			frames[idx].ConvertTo(&f, gocv.MatTypeCV64F)
			err := gocv.Add(acc, f, &acc)
			f.Close()
			if err != nil {
				acc.Close()
				closeMats(out)
				return nil, fmt.Errorf("accumulating frame %d: %w", i, err)
			}
		}

		acc.MultiplyFloat(1 / float32(window))
		smoothed := gocv.NewMat()
		acc.ConvertTo(&smoothed, gocv.MatTypeCV8U)
		acc.Close()
		out = append(out, smoothed)
	}
	return out, nil
}

// BlurStack applies a light Gaussian blur independently to each frame,
// removing residual tile artifacts left by the equalization step. A
// non-positive sigma returns unblurred clones.
func BlurStack(frames []gocv.Mat, sigma float64) ([]gocv.Mat, error) {
	out := make([]gocv.Mat, 0, len(frames))
	for i, f := range frames {
		if sigma <= 0 {
			out = append(out, f.Clone())
			continue
		}
		blurred := gocv.NewMat()
		if err := gocv.GaussianBlur(f, &blurred, image.Point{}, sigma, sigma, gocv.BorderDefault); err != nil {
			blurred.Close()
			closeMats(out)
			return nil, fmt.Errorf("blurring frame %d: %w", i, err)
		}
		out = append(out, blurred)
	}
	return out, nil
}

func closeMats(mats []gocv.Mat) {
	for i := range mats {
		if !mats[i].Empty() {
			mats[i].Close()
		}
	}
}
