// Package config provides configuration loading for both correction pipelines.
// Every recognized option has a named field; there is no process-wide mutable state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Wisp holds the configuration for the wisp-reveal stack enhancement pipeline.
type Wisp struct {
	// InputFile is the multi-page image stack to process
	InputFile string `yaml:"inputFile"`

	// OutputStack is where the processed 8-bit stack is written
	OutputStack string `yaml:"outputStack"`

	// OutputMovie is where the annotated side-by-side comparison video is written
	OutputMovie string `yaml:"outputMovie"`

	// SigmaBackground is the Gaussian sigma used to estimate the unsharp-mask background
	SigmaBackground float64 `yaml:"sigmaBackground"`

	// UnsharpAmount controls enhancement strength; 0 disables unsharp masking
	UnsharpAmount float64 `yaml:"unsharpAmount"`

	// CLAHEClipLimit bounds per-tile contrast amplification
	CLAHEClipLimit float64 `yaml:"claheClipLimit"`

	// FinalBlurSigma is the small Gaussian sigma applied after temporal smoothing
	FinalBlurSigma float64 `yaml:"finalBlurSigma"`

	// TemporalWindow is the sliding-window size for cross-frame averaging
	TemporalWindow int `yaml:"temporalWindow"`

	// Annotation configures the comparison video overlay
	Annotation Annotation `yaml:"annotation"`
}

// Annotation configures the timestamp and scale-bar overlay of the comparison video.
type Annotation struct {
	// TimePerFrame is the acquisition interval in seconds; the video frame
	// rate is derived as its reciprocal
	TimePerFrame float64 `yaml:"timePerFrame"`

	// PixelSize is the physical size of one pixel in microns
	PixelSize float64 `yaml:"pixelSize"`

	// ScaleBarMicrons is the physical length of the scale bar
	ScaleBarMicrons float64 `yaml:"scaleBarMicrons"`

	// ScaleBarHeight is the scale-bar thickness in pixels
	ScaleBarHeight int `yaml:"scaleBarHeight"`

	// FontPath points at a TTF font asset; a built-in face is used when it
	// cannot be loaded
	FontPath string `yaml:"fontPath"`

	// FontSize is the annotation text size in points
	FontSize float64 `yaml:"fontSize"`
}

// FlatField holds the configuration for the flat-field batch correction pipeline.
type FlatField struct {
	// InputDir is the directory scanned for images
	InputDir string `yaml:"inputDir"`

	// OutputDir receives corrected images; empty means a "corrected"
	// subdirectory of InputDir
	OutputDir string `yaml:"outputDir"`

	// Pattern is the filename glob matched inside InputDir
	Pattern string `yaml:"pattern"`

	// BlurSigma is the background-estimation Gaussian sigma; much larger than
	// feature size so only the slow illumination gradient is captured
	BlurSigma float64 `yaml:"blurSigma"`

	// ClipPercentile keeps the top fraction of values as controlled overflow:
	// the normalization factor is the (100 - ClipPercentile)-th percentile
	ClipPercentile float64 `yaml:"clipPercentile"`

	// PreserveColorBalance computes one shared normalization factor across the
	// channels of RGB-like images instead of one per channel
	PreserveColorBalance bool `yaml:"preserveColorBalance"`
}

// DefaultWisp returns the wisp-reveal configuration with default parameters.
func DefaultWisp() Wisp {
	return Wisp{
		SigmaBackground: 2.0,
		UnsharpAmount:   1.5,
		CLAHEClipLimit:  1.5,
		FinalBlurSigma:  0.3,
		TemporalWindow:  3,
		Annotation: Annotation{
			TimePerFrame:    0.05868,
			PixelSize:       0.1625,
			ScaleBarMicrons: 10,
			ScaleBarHeight:  5,
			FontSize:        16,
		},
	}
}

// DefaultFlatField returns the flat-field configuration with default parameters.
func DefaultFlatField() FlatField {
	return FlatField{
		Pattern:        "*.tif",
		BlurSigma:      100,
		ClipPercentile: 0.1,
	}
}

// LoadWisp loads a wisp-reveal configuration from a YAML file. A missing file
// yields the defaults.
func LoadWisp(path string) (Wisp, error) {
	cfg := DefaultWisp()
	if err := loadInto(path, &cfg); err != nil {
		return Wisp{}, err
	}
	return cfg, nil
}

// LoadFlatField loads a flat-field configuration from a YAML file. A missing
// file yields the defaults.
func LoadFlatField(path string) (FlatField, error) {
	cfg := DefaultFlatField()
	if err := loadInto(path, &cfg); err != nil {
		return FlatField{}, err
	}
	return cfg, nil
}

func loadInto(path string, cfg interface{}) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

// Validate checks the wisp-reveal parameters that must be positive for the
// pipeline to be meaningful.
func (c Wisp) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.TemporalWindow < 1 {
		return fmt.Errorf("temporal window must be at least 1, got %d", c.TemporalWindow)
	}
	if c.SigmaBackground <= 0 {
		return fmt.Errorf("background sigma must be positive, got %g", c.SigmaBackground)
	}
	if c.Annotation.TimePerFrame <= 0 {
		return fmt.Errorf("time per frame must be positive, got %g", c.Annotation.TimePerFrame)
	}
	if c.Annotation.PixelSize <= 0 {
		return fmt.Errorf("pixel size must be positive, got %g", c.Annotation.PixelSize)
	}
	return nil
}

// Validate checks the flat-field parameters.
func (c FlatField) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input directory is required")
	}
	if c.BlurSigma <= 0 {
		return fmt.Errorf("blur sigma must be positive, got %g", c.BlurSigma)
	}
	if c.ClipPercentile < 0 || c.ClipPercentile >= 100 {
		return fmt.Errorf("clip percentile must be in [0,100), got %g", c.ClipPercentile)
	}
	return nil
}
