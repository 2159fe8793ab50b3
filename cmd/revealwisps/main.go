// Wisp-reveal: enhance faint structures in a grayscale microscopy stack and
// render an annotated side-by-side comparison movie.
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"microscopy-image-correction/internal/annotate"
	"microscopy-image-correction/internal/config"
	"microscopy-image-correction/internal/preview"
	"microscopy-image-correction/internal/wisp"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	inputFile := flag.String("input", "", "Input image stack")
	outputStack := flag.String("output-stack", "", "Processed 8-bit stack output path")
	outputMovie := flag.String("output-movie", "", "Annotated comparison video output path")
	showPreview := flag.Bool("preview", false, "Show a before/after window for the middle frame")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	logger := initLogger(*debugMode)

	cfg, err := config.LoadWisp(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *inputFile != "" {
		cfg.InputFile = *inputFile
	}
	if *outputStack != "" {
		cfg.OutputStack = *outputStack
	}
	if *outputMovie != "" {
		cfg.OutputMovie = *outputMovie
	}

	pipeline := wisp.NewPipeline(cfg, logger)
	result, err := pipeline.Run()
	if err != nil {
		logger.WithError(err).Fatal("Processing failed")
	}
	defer result.Close()

	if cfg.OutputMovie != "" {
		renderer := annotate.NewRenderer(cfg.Annotation, logger)
		if err := renderer.RenderVideo(cfg.OutputMovie, result.Original, result.Processed); err != nil {
			logger.WithError(err).Fatal("Rendering failed")
		}
	}

	if *showPreview {
		mid := len(result.Processed) / 2
		if err := preview.Show(result.Original[mid], result.Processed[mid]); err != nil {
			logger.WithError(err).Warn("Preview unavailable")
		}
	}
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
