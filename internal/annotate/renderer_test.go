package annotate

import (
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"microscopy-image-correction/internal/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestScaleBarRect(t *testing.T) {
	tests := []struct {
		name           string
		frameW, frameH int
		length, height int
		want           image.Rectangle
	}{
		{"typical", 200, 100, 50, 5, image.Rect(130, 70, 180, 75)},
		{"full width frame", 640, 480, 61, 5, image.Rect(559, 450, 620, 455)},
		{"tiny frame", 64, 32, 10, 5, image.Rect(34, 2, 44, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleBarRect(tt.frameW, tt.frameH, tt.length, tt.height)
			if got != tt.want {
				t.Errorf("ScaleBarRect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFaceFallback(t *testing.T) {
	logger := quietLogger()

	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing file", "/nonexistent/font.ttf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face := loadFace(tt.path, 16, logger)
			if face == nil {
				t.Fatal("expected a usable fallback face")
			}
		})
	}
}

func TestLoadFaceUnparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.ttf")
	if err := os.WriteFile(path, []byte("definitely not a font"), 0644); err != nil {
		t.Fatal(err)
	}
	if face := loadFace(path, 16, quietLogger()); face == nil {
		t.Fatal("expected a usable fallback face")
	}
}

func TestAnnotateDrawsOverlay(t *testing.T) {
	cfg := config.DefaultWisp().Annotation
	r := NewRenderer(cfg, quietLogger())

	img := image.NewGray(image.Rect(0, 0, 128, 64))
	r.annotate(img, 3, 20)

	bar := ScaleBarRect(128, 64, 20, cfg.ScaleBarHeight)
	if img.GrayAt(bar.Min.X+1, bar.Min.Y+1).Y != 255 {
		t.Error("scale bar not drawn")
	}

	// The timestamp must have lit at least one pixel near the top-left.
	found := false
	for y := 0; y < 40 && !found; y++ {
		for x := 0; x < 128 && !found; x++ {
			if img.GrayAt(x, y).Y == 255 {
				found = true
			}
		}
	}
	if !found {
		t.Error("timestamp text not drawn")
	}
}
