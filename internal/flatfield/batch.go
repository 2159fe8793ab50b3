package flatfield

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"microscopy-image-correction/internal/config"
	"microscopy-image-correction/internal/imgio"
)

// FileResult records the outcome of correcting one file.
type FileResult struct {
	File   string
	Output string
	Err    error
}

func (r FileResult) Failed() bool {
	return r.Err != nil
}

// Report collects per-file results for a whole batch run.
type Report struct {
	Results []FileResult
}

// Succeeded returns the number of files corrected and written.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if !res.Failed() {
			n++
		}
	}
	return n
}

// Failed returns the number of files that errored.
func (r Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Processor corrects every matching file in a directory. A failure on one
// file is recorded and logged, never fatal to the batch.
type Processor struct {
	cfg    config.FlatField
	loader *imgio.Loader
	logger *logrus.Logger
}

func NewProcessor(cfg config.FlatField, logger *logrus.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		loader: imgio.NewLoader(logger),
		logger: logger,
	}
}

// Run globs the input directory, corrects each file and writes the result as
// {stem}_corrected{suffix} into the output directory (created if absent).
func (p *Processor) Run() (Report, error) {
	outDir := p.cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Join(p.cfg.InputDir, "corrected")
	}

	files, err := filepath.Glob(filepath.Join(p.cfg.InputDir, p.cfg.Pattern))
	if err != nil {
		return Report{}, fmt.Errorf("invalid file pattern %q: %w", p.cfg.Pattern, err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		p.logger.WithFields(logrus.Fields{
			"dir":     p.cfg.InputDir,
			"pattern": p.cfg.Pattern,
		}).Warn("No files matched")
		return Report{}, nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return Report{}, fmt.Errorf("creating output directory: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"files":     len(files),
		"blurSigma": p.cfg.BlurSigma,
		"outputDir": outDir,
	}).Info("Starting flat-field batch")

	var report Report
	for _, file := range files {
		output := filepath.Join(outDir, outputName(file))
		if err := p.processFile(file, output); err != nil {
			p.logger.WithFields(logrus.Fields{
				"file":  filepath.Base(file),
				"error": err.Error(),
			}).Error("Correction failed")
			report.Results = append(report.Results, FileResult{File: file, Err: err})
			continue
		}
		p.logger.WithField("file", filepath.Base(file)).Info("Corrected")
		report.Results = append(report.Results, FileResult{File: file, Output: output})
	}
	return report, nil
}

func (p *Processor) processFile(path, output string) error {
	dec, err := p.loader.LoadImage(path)
	if err != nil {
		return err
	}
	defer dec.Close()

	pages, err := CorrectImage(dec, Options{
		Sigma:                p.cfg.BlurSigma,
		ClipPercentile:       p.cfg.ClipPercentile,
		PreserveColorBalance: p.cfg.PreserveColorBalance,
	})
	if err != nil {
		return err
	}
	defer closeMats(pages)

	return p.loader.WriteCorrected(output, pages, dec.Depth)
}

func outputName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_corrected" + ext
}
