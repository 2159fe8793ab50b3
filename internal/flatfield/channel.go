// Package flatfield removes spatially-varying illumination bias from
// microscopy images by dividing out a low-frequency background estimate.
package flatfield

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"
)

// backgroundFloor guards the background divisor against zero-intensity
// regions; minNormFactor guards the normalization division the same way.
const (
	backgroundFloor = 1e-10
	minNormFactor   = 1e-10
)

// CorrectChannel flat-field corrects a single 2-D channel: estimate the slow
// illumination gradient with a large-sigma Gaussian, divide it out, normalize
// by a high percentile and clip to [0,1].
//
// normFactor <= 0 means the factor is computed from this channel as the
// (100 - clipPercentile)-th percentile of the flattened values. A caller can
// supply a shared factor instead to preserve color balance across channels.
// The result is CV_64F with values in [0,1].
func CorrectChannel(ch gocv.Mat, sigma, clipPercentile, normFactor float64) (gocv.Mat, error) {
	flat, err := divideBackground(ch, sigma)
	if err != nil {
		return gocv.NewMat(), err
	}

	data, err := flat.DataPtrFloat64()
	if err != nil {
		flat.Close()
		return gocv.NewMat(), fmt.Errorf("accessing corrected values: %w", err)
	}

	if normFactor <= 0 {
		normFactor = Percentile(data, 100-clipPercentile)
	}

	// A degenerate factor would blow the result up; skip the division and
	// let clipping produce a saturated output instead.
	scale := normFactor > minNormFactor
	for i, v := range data {
		if scale {
			v /= normFactor
		}
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		data[i] = v
	}

	return flat, nil
}

// divideBackground performs the unnormalized part of the correction: cast to
// double precision, blur, clamp the background to a positive floor, divide.
func divideBackground(ch gocv.Mat, sigma float64) (gocv.Mat, error) {
	if ch.Empty() {
		return gocv.NewMat(), fmt.Errorf("channel is empty")
	}
	if ch.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("expected single channel, got %d", ch.Channels())
	}

	chF := gocv.NewMat()
	defer chF.Close()
	ch.ConvertTo(&chF, gocv.MatTypeCV64F)

	background := gocv.NewMat()
	defer background.Close()
	if err := gocv.GaussianBlur(chF, &background, image.Point{}, sigma, sigma, gocv.BorderDefault); err != nil {
		return gocv.NewMat(), fmt.Errorf("estimating background: %w", err)
	}

	bgData, err := background.DataPtrFloat64()
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("accessing background values: %w", err)
	}
	for i, v := range bgData {
		if v < backgroundFloor {
			bgData[i] = backgroundFloor
		}
	}

	flat := gocv.NewMat()
	if err := gocv.Divide(chF, background, &flat); err != nil {
		flat.Close()
		return gocv.NewMat(), fmt.Errorf("dividing by background: %w", err)
	}
	return flat, nil
}

// Percentile returns the p-th percentile of values, interpolating linearly
// between closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
