// Image container loading and saving for both correction pipelines.
package imgio

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Decoded is a loaded multi-channel image: one page per plane for planar
// (channel-first) containers, or a single interleaved page otherwise.
type Decoded struct {
	// Pages holds the container pages in file order. Every page shares
	// spatial dimensions and element depth.
	Pages []gocv.Mat

	// Depth is the element depth of the source container, used to pick the
	// output dtype when the corrected image is written back.
	Depth gocv.MatType
}

// Close releases all page Mats.
func (d *Decoded) Close() {
	for i := range d.Pages {
		if !d.Pages[i].Empty() {
			d.Pages[i].Close()
		}
	}
	d.Pages = nil
}

// Loader handles image file operations for stacks and multi-channel images.
type Loader struct {
	logger *logrus.Logger
}

func NewLoader(logger *logrus.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadStack reads a multi-page grayscale stack, preserving the source bit
// depth. All frames must share dimensions and type.
func (l *Loader) LoadStack(path string) ([]gocv.Mat, error) {
	if !isSupportedImageFormat(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}

	frames := gocv.IMReadMulti_(path, gocv.IMReadUnchanged)
	if len(frames) == 0 {
		return nil, fmt.Errorf("failed to load stack: %s", path)
	}

	if err := validateStack(frames); err != nil {
		closeMats(frames)
		return nil, fmt.Errorf("invalid stack %s: %w", path, err)
	}

	l.logger.WithFields(logrus.Fields{
		"path":   path,
		"frames": len(frames),
		"width":  frames[0].Cols(),
		"height": frames[0].Rows(),
		"type":   frames[0].Type(),
	}).Info("Stack loaded")

	return frames, nil
}

// WriteStack writes frames as one multi-page container.
func (l *Loader) WriteStack(path string, frames []gocv.Mat) error {
	if len(frames) == 0 {
		return fmt.Errorf("cannot write empty stack")
	}
	if !gocv.IMWriteMulti(path, frames) {
		return fmt.Errorf("failed to write stack: %s", path)
	}

	l.logger.WithFields(logrus.Fields{
		"path":   path,
		"frames": len(frames),
	}).Info("Stack saved")

	return nil
}

// LoadImage reads a single- or multi-channel image, preserving bit depth.
// Planar containers come back as one page per channel; interleaved color
// images as a single multi-channel page.
func (l *Loader) LoadImage(path string) (Decoded, error) {
	if !isSupportedImageFormat(path) {
		return Decoded{}, fmt.Errorf("unsupported image format: %s", path)
	}

	pages := gocv.IMReadMulti_(path, gocv.IMReadUnchanged)
	if len(pages) == 0 {
		return Decoded{}, fmt.Errorf("failed to load image: %s", path)
	}

	if err := validateStack(pages); err != nil {
		closeMats(pages)
		return Decoded{}, fmt.Errorf("invalid image %s: %w", path, err)
	}

	dec := Decoded{Pages: pages, Depth: Depth(pages[0].Type())}

	l.logger.WithFields(logrus.Fields{
		"path":     path,
		"pages":    len(pages),
		"width":    pages[0].Cols(),
		"height":   pages[0].Rows(),
		"channels": pages[0].Channels(),
	}).Debug("Image loaded")

	return dec, nil
}

// WriteCorrected rescales float pages in [0,1] back to the source depth and
// writes them. uint16 sources scale by 65535, uint8 by 255, anything else is
// written as unscaled 32-bit float.
func (l *Loader) WriteCorrected(path string, pages []gocv.Mat, depth gocv.MatType) error {
	if len(pages) == 0 {
		return fmt.Errorf("cannot write empty image")
	}

	out := make([]gocv.Mat, 0, len(pages))
	defer func() { closeMats(out) }()
	for _, page := range pages {
		out = append(out, RescaleToDepth(page, depth))
	}

	var ok bool
	if len(out) == 1 {
		ok = gocv.IMWrite(path, out[0])
	} else {
		ok = gocv.IMWriteMulti(path, out)
	}
	if !ok {
		return fmt.Errorf("failed to write image: %s", path)
	}

	l.logger.WithFields(logrus.Fields{
		"path":  path,
		"pages": len(out),
	}).Debug("Corrected image saved")

	return nil
}

// RescaleToDepth converts a float page in [0,1] to the output type matching
// the source element depth.
func RescaleToDepth(page gocv.Mat, depth gocv.MatType) gocv.Mat {
	dst := gocv.NewMat()
	channels := page.Channels()
	switch depth {
	case gocv.MatTypeCV16U:
		page.ConvertToWithParams(&dst, typeWithChannels(gocv.MatTypeCV16U, channels), 65535, 0)
	case gocv.MatTypeCV8U:
		page.ConvertToWithParams(&dst, typeWithChannels(gocv.MatTypeCV8U, channels), 255, 0)
	default:
		page.ConvertTo(&dst, typeWithChannels(gocv.MatTypeCV32F, channels))
	}
	return dst
}

// Depth strips the channel count from a Mat type, leaving the element depth.
func Depth(t gocv.MatType) gocv.MatType {
	return t & 7
}

func typeWithChannels(depth gocv.MatType, channels int) gocv.MatType {
	return gocv.MatType(int(depth) | ((channels - 1) << 3))
}

func validateStack(frames []gocv.Mat) error {
	first := frames[0]
	if first.Empty() || first.Cols() <= 0 || first.Rows() <= 0 {
		return fmt.Errorf("empty first frame")
	}
	for i, f := range frames[1:] {
		if f.Cols() != first.Cols() || f.Rows() != first.Rows() {
			return fmt.Errorf("frame %d dimensions %dx%d differ from %dx%d",
				i+1, f.Cols(), f.Rows(), first.Cols(), first.Rows())
		}
		if f.Type() != first.Type() {
			return fmt.Errorf("frame %d type %v differs from %v", i+1, f.Type(), first.Type())
		}
	}
	return nil
}

func closeMats(mats []gocv.Mat) {
	for i := range mats {
		if !mats[i].Empty() {
			mats[i].Close()
		}
	}
}

func isSupportedImageFormat(path string) bool {
	ext := strings.ToLower(fileExtension(path))
	for _, format := range []string{".tif", ".tiff", ".png", ".jpg", ".jpeg", ".bmp"} {
		if ext == format {
			return true
		}
	}
	return false
}

func fileExtension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}
