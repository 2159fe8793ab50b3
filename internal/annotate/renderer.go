// Package annotate renders the side-by-side comparison video of a wisp-reveal
// run: original and processed frames concatenated horizontally, overlaid with
// a timestamp and a physical scale bar.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"microscopy-image-correction/internal/config"
	"microscopy-image-correction/internal/wisp"
)

const (
	videoCodec = "mp4v"

	textMargin           = 10
	scaleBarMarginRight  = 20
	scaleBarMarginBottom = 30
	scaleBarLabelOffset  = 20
)

// Renderer writes annotated comparison videos. The annotation font is loaded
// once at construction and degrades to a built-in face when the configured
// asset cannot be read.
type Renderer struct {
	cfg    config.Annotation
	face   font.Face
	logger *logrus.Logger
}

func NewRenderer(cfg config.Annotation, logger *logrus.Logger) *Renderer {
	return &Renderer{
		cfg:    cfg,
		face:   loadFace(cfg.FontPath, cfg.FontSize, logger),
		logger: logger,
	}
}

// RenderVideo writes one non-color video frame per stack frame: the min-max
// normalized original next to the processed frame, with the timestamp
// "Time: {t} s" top-left and the scale bar near the bottom-right corner.
// The frame rate is the reciprocal of the configured per-frame interval.
func (r *Renderer) RenderVideo(path string, original, processed []gocv.Mat) error {
	if len(original) == 0 {
		return fmt.Errorf("no frames to render")
	}
	if len(original) != len(processed) {
		return fmt.Errorf("frame count mismatch: %d original, %d processed", len(original), len(processed))
	}

	width := original[0].Cols()
	height := original[0].Rows()
	fps := int(1 / r.cfg.TimePerFrame)

	writer, err := gocv.VideoWriterFile(path, videoCodec, float64(fps), 2*width, height, false)
	if err != nil {
		return fmt.Errorf("opening video writer: %w", err)
	}
	defer writer.Close()

	barLength := int(r.cfg.ScaleBarMicrons / r.cfg.PixelSize)
	for i := range original {
		frame, err := r.composeFrame(original[i], processed[i], i, barLength)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		err = writer.Write(frame)
		frame.Close()
		if err != nil {
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"path":   path,
		"frames": len(original),
		"fps":    fps,
	}).Info("Comparison video saved")

	return nil
}

func (r *Renderer) composeFrame(original, processed gocv.Mat, idx, barLength int) (gocv.Mat, error) {
	origNorm := wisp.NormalizeTo8Bit(original)
	defer origNorm.Close()

	combined := gocv.NewMat()
	defer combined.Close()
	gocv.Hconcat(origNorm, processed, &combined)

	img, err := combined.ToImage()
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("converting frame: %w", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return gocv.NewMat(), fmt.Errorf("expected grayscale frame, got %T", img)
	}

	r.annotate(gray, idx, barLength)

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("converting annotated frame: %w", err)
	}
	return mat, nil
}

func (r *Renderer) annotate(img *image.Gray, idx, barLength int) {
	white := image.NewUniform(color.Gray{Y: 255})
	drawer := &font.Drawer{Dst: img, Src: white, Face: r.face}
	ascent := r.face.Metrics().Ascent.Ceil()

	timestamp := fmt.Sprintf("Time: %.2f s", float64(idx)*r.cfg.TimePerFrame)
	drawer.Dot = fixed.P(textMargin, textMargin+ascent)
	drawer.DrawString(timestamp)

	bar := ScaleBarRect(img.Bounds().Dx(), img.Bounds().Dy(), barLength, r.cfg.ScaleBarHeight)
	draw.Draw(img, bar, white, image.Point{}, draw.Src)

	label := fmt.Sprintf("%g µm", r.cfg.ScaleBarMicrons)
	drawer.Dot = fixed.P(bar.Min.X, bar.Min.Y-scaleBarLabelOffset+ascent)
	drawer.DrawString(label)
}

// ScaleBarRect places a bar of the given pixel length and height at a fixed
// margin from the bottom-right corner of a frame.
func ScaleBarRect(frameWidth, frameHeight, length, height int) image.Rectangle {
	x := frameWidth - length - scaleBarMarginRight
	y := frameHeight - scaleBarMarginBottom
	return image.Rect(x, y, x+length, y+height)
}
