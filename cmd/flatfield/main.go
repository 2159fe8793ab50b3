// Flat-field: batch-correct uneven illumination in a directory of microscopy
// images by dividing each channel by its blurred background estimate.
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"microscopy-image-correction/internal/config"
	"microscopy-image-correction/internal/flatfield"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	inputDir := flag.String("input", "", "Directory containing images to correct")
	outputDir := flag.String("output", "", "Output directory (default: <input>/corrected)")
	pattern := flag.String("pattern", "", "Filename glob pattern (default: *.tif)")
	blurSigma := flag.Float64("sigma", 0, "Background blur sigma; larger means gentler correction")
	preserveBalance := flag.Bool("preserve-color-balance", false, "Share one normalization factor across RGB channels")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	logger := initLogger(*debugMode)

	cfg, err := config.LoadFlatField(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *pattern != "" {
		cfg.Pattern = *pattern
	}
	if *blurSigma > 0 {
		cfg.BlurSigma = *blurSigma
	}
	if *preserveBalance {
		cfg.PreserveColorBalance = true
	}

	if err := cfg.Validate(); err != nil {
		flag.Usage()
		logger.WithError(err).Fatal("Invalid configuration")
	}

	processor := flatfield.NewProcessor(cfg, logger)
	report, err := processor.Run()
	if err != nil {
		logger.WithError(err).Fatal("Batch failed")
	}

	logger.WithFields(logrus.Fields{
		"corrected": report.Succeeded(),
		"failed":    report.Failed(),
	}).Info("Batch finished")
}

// initLogger initializes the logger with the appropriate level and format.
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
