package wisp

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"microscopy-image-correction/internal/config"
	"microscopy-image-correction/internal/imgio"
)

// Pipeline runs the full wisp-reveal enhancement over one image stack:
// per-frame enhancement, temporal smoothing, final blur, output stack write.
// Rendering and preview are presentation layers driven by the caller from the
// returned Result.
type Pipeline struct {
	cfg    config.Wisp
	loader *imgio.Loader
	logger *logrus.Logger
}

func NewPipeline(cfg config.Wisp, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		loader: imgio.NewLoader(logger),
		logger: logger,
	}
}

// Result holds the frames of a completed run. Close releases them.
type Result struct {
	Original  []gocv.Mat
	Processed []gocv.Mat
}

// Run loads the input stack, processes it and writes the 8-bit output stack.
// Errors are fatal to the run; this is a single-input tool.
func (p *Pipeline) Run() (*Result, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	frames, err := p.loader.LoadStack(p.cfg.InputFile)
	if err != nil {
		return nil, err
	}

	processed, err := p.ProcessStack(frames)
	if err != nil {
		closeMats(frames)
		return nil, err
	}

	if p.cfg.OutputStack != "" {
		if err := p.loader.WriteStack(p.cfg.OutputStack, processed); err != nil {
			closeMats(frames)
			closeMats(processed)
			return nil, err
		}
	}

	return &Result{Original: frames, Processed: processed}, nil
}

// ProcessStack applies the numeric pipeline to already-loaded frames and
// returns the final 8-bit stack, one output frame per input frame.
func (p *Pipeline) ProcessStack(frames []gocv.Mat) ([]gocv.Mat, error) {
	enhanced := make([]gocv.Mat, 0, len(frames))
	for i, frame := range frames {
		e, err := EnhanceFrame(frame, p.cfg.SigmaBackground, p.cfg.UnsharpAmount, p.cfg.CLAHEClipLimit)
		if err != nil {
			closeMats(enhanced)
			return nil, fmt.Errorf("enhancing frame %d: %w", i, err)
		}
		enhanced = append(enhanced, e)
	}
	p.logger.WithField("frames", len(enhanced)).Debug("Frames enhanced")

	smoothed, err := SmoothTemporal(enhanced, p.cfg.TemporalWindow)
	closeMats(enhanced)
	if err != nil {
		return nil, err
	}

	final, err := BlurStack(smoothed, p.cfg.FinalBlurSigma)
	closeMats(smoothed)
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"frames": len(final),
		"window": p.cfg.TemporalWindow,
	}).Info("Stack processed")

	return final, nil
}

// Close releases all frames held by the result.
func (r *Result) Close() {
	closeMats(r.Original)
	closeMats(r.Processed)
	r.Original = nil
	r.Processed = nil
}
