package flatfield

import (
	"fmt"

	"gocv.io/x/gocv"

	"microscopy-image-correction/internal/imgio"
)

// Layout describes where the channel axis of a decoded image sits.
type Layout int

const (
	// LayoutSingle is a plain 2-D single-channel image.
	LayoutSingle Layout = iota
	// LayoutChannelLast is an interleaved image with the channel axis last
	// (height, width, channel).
	LayoutChannelLast
	// LayoutChannelFirst is a planar image with one page per channel
	// (channel, height, width).
	LayoutChannelFirst
)

func (l Layout) String() string {
	switch l {
	case LayoutSingle:
		return "single"
	case LayoutChannelLast:
		return "channel-last"
	case LayoutChannelFirst:
		return "channel-first"
	}
	return "unknown"
}

// Shape is the channel-layout interpretation chosen for one image. Exactly
// one interpretation is used for all channels of that image.
type Shape struct {
	Layout   Layout
	Channels int

	// IsRGB marks images whose channels form one color image rather than
	// unrelated acquisition channels; it only gates whether color-balance
	// preservation applies, never how channels are iterated.
	IsRGB bool
}

// InferShape decides the channel layout of a decoded image from its container
// structure: page count, page dimensions and per-page channel count.
//
// One page with 3 or 4 interleaved channels is channel-last. Multiple
// single-channel pages are channel-first; 3-4 planes count as RGB-like only
// when the plane count is smaller than the trailing spatial axis. The
// heuristic is ambiguous for very small near-square images and is kept as is.
func InferShape(pages, rows, cols, channels int) (Shape, error) {
	switch {
	case pages == 1 && channels == 1:
		return Shape{Layout: LayoutSingle, Channels: 1}, nil
	case pages == 1 && (channels == 3 || channels == 4):
		return Shape{Layout: LayoutChannelLast, Channels: channels, IsRGB: true}, nil
	case pages > 1 && channels == 1:
		isRGB := (pages == 3 || pages == 4) && pages < cols
		return Shape{Layout: LayoutChannelFirst, Channels: pages, IsRGB: isRGB}, nil
	}
	return Shape{}, fmt.Errorf("unsupported image shape: %d page(s) of %dx%d with %d channel(s)",
		pages, rows, cols, channels)
}

// Options configures flat-field correction of a whole image.
type Options struct {
	// Sigma is the background-estimation Gaussian sigma.
	Sigma float64

	// ClipPercentile controls the normalization factor: the
	// (100 - ClipPercentile)-th percentile of the flattened values.
	ClipPercentile float64

	// PreserveColorBalance normalizes all channels of RGB-like images by one
	// shared factor so relative channel brightness survives correction.
	PreserveColorBalance bool
}

// CorrectImage applies CorrectChannel to every channel of a decoded image,
// preserving its layout. The returned pages mirror the input page structure
// (a channel-last image comes back as one re-merged multi-channel page) and
// hold CV_64F values in [0,1].
func CorrectImage(img imgio.Decoded, opts Options) ([]gocv.Mat, error) {
	if len(img.Pages) == 0 {
		return nil, fmt.Errorf("image has no pages")
	}
	first := img.Pages[0]
	shape, err := InferShape(len(img.Pages), first.Rows(), first.Cols(), first.Channels())
	if err != nil {
		return nil, err
	}

	channels := img.Pages
	if shape.Layout == LayoutChannelLast {
		channels = gocv.Split(first)
		defer closeMats(channels)
	}

	// Color-balance preservation pools the background-divided values of all
	// channels and derives one shared factor before the real correction pass.
	// The background math runs twice in that mode; this is an offline batch
	// tool and the duplication keeps CorrectChannel self-contained.
	sharedNorm := 0.0
	if opts.PreserveColorBalance && shape.IsRGB {
		sharedNorm, err = pooledNormFactor(channels, opts)
		if err != nil {
			return nil, err
		}
	}

	corrected := make([]gocv.Mat, 0, len(channels))
	for i, ch := range channels {
		out, err := CorrectChannel(ch, opts.Sigma, opts.ClipPercentile, sharedNorm)
		if err != nil {
			closeMats(corrected)
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		corrected = append(corrected, out)
	}

	if shape.Layout == LayoutChannelLast {
		merged := gocv.NewMat()
		gocv.Merge(corrected, &merged)
		closeMats(corrected)
		return []gocv.Mat{merged}, nil
	}
	return corrected, nil
}

// pooledNormFactor runs background division on every channel and computes the
// normalization percentile over all channels' values pooled together.
func pooledNormFactor(channels []gocv.Mat, opts Options) (float64, error) {
	var pooled []float64
	for i, ch := range channels {
		flat, err := divideBackground(ch, opts.Sigma)
		if err != nil {
			return 0, fmt.Errorf("channel %d: %w", i, err)
		}
		data, err := flat.DataPtrFloat64()
		if err != nil {
			flat.Close()
			return 0, fmt.Errorf("channel %d: accessing corrected values: %w", i, err)
		}
		pooled = append(pooled, data...)
		flat.Close()
	}
	return Percentile(pooled, 100-opts.ClipPercentile), nil
}

func closeMats(mats []gocv.Mat) {
	for i := range mats {
		if !mats[i].Empty() {
			mats[i].Close()
		}
	}
}
