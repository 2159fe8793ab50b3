package imgio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDepth(t *testing.T) {
	tests := []struct {
		in   gocv.MatType
		want gocv.MatType
	}{
		{gocv.MatTypeCV8U, gocv.MatTypeCV8U},
		{gocv.MatTypeCV8UC3, gocv.MatTypeCV8U},
		{gocv.MatTypeCV16U, gocv.MatTypeCV16U},
		{gocv.MatTypeCV16UC4, gocv.MatTypeCV16U},
		{gocv.MatTypeCV64F, gocv.MatTypeCV64F},
	}
	for _, tt := range tests {
		if got := Depth(tt.in); got != tt.want {
			t.Errorf("Depth(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRescaleToDepthRoundTrip(t *testing.T) {
	page := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 0, 0, 0), 8, 8, gocv.MatTypeCV64F)
	defer page.Close()

	t.Run("uint16", func(t *testing.T) {
		out := RescaleToDepth(page, gocv.MatTypeCV16U)
		defer out.Close()
		if out.Type() != gocv.MatTypeCV16U {
			t.Fatalf("got type %v, want CV_16U", out.Type())
		}
		data, err := out.DataPtrUint16()
		if err != nil {
			t.Fatal(err)
		}
		for _, v := range data {
			if v != 65535 {
				t.Fatalf("got %d, want 65535", v)
			}
		}
	})

	t.Run("uint8", func(t *testing.T) {
		out := RescaleToDepth(page, gocv.MatTypeCV8U)
		defer out.Close()
		if out.Type() != gocv.MatTypeCV8U {
			t.Fatalf("got type %v, want CV_8U", out.Type())
		}
		if v := out.GetUCharAt(0, 0); v != 255 {
			t.Fatalf("got %d, want 255", v)
		}
	})

	t.Run("other depths stay unscaled float", func(t *testing.T) {
		out := RescaleToDepth(page, gocv.MatTypeCV32F)
		defer out.Close()
		if out.Type() != gocv.MatTypeCV32F {
			t.Fatalf("got type %v, want CV_32F", out.Type())
		}
		if v := out.GetFloatAt(0, 0); v != 1 {
			t.Fatalf("got %v, want 1", v)
		}
	})
}

func TestStackRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.tif")
	loader := NewLoader(quietLogger())

	frames := make([]gocv.Mat, 3)
	for i := range frames {
		frames[i] = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(50*(i+1)), 0, 0, 0), 16, 16, gocv.MatTypeCV8U)
		defer frames[i].Close()
	}

	if err := loader.WriteStack(path, frames); err != nil {
		t.Fatalf("WriteStack failed: %v", err)
	}

	loaded, err := loader.LoadStack(path)
	if err != nil {
		t.Fatalf("LoadStack failed: %v", err)
	}
	defer closeMats(loaded)

	if len(loaded) != 3 {
		t.Fatalf("got %d frames, want 3", len(loaded))
	}
	for i, f := range loaded {
		if f.Rows() != 16 || f.Cols() != 16 {
			t.Errorf("frame %d is %dx%d, want 16x16", i, f.Rows(), f.Cols())
		}
		if got, want := f.GetUCharAt(4, 4), uint8(50*(i+1)); got != want {
			t.Errorf("frame %d value %d, want %d", i, got, want)
		}
	}
}

func TestLoadStackRejectsUnsupportedFormat(t *testing.T) {
	loader := NewLoader(quietLogger())
	if _, err := loader.LoadStack("stack.exr"); err == nil {
		t.Fatal("expected unsupported-format error")
	}
}

func TestLoadImageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.tif")
	if err := os.WriteFile(path, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(quietLogger())
	if _, err := loader.LoadImage(path); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestWriteCorrectedEmpty(t *testing.T) {
	loader := NewLoader(quietLogger())
	if err := loader.WriteCorrected("out.tif", nil, gocv.MatTypeCV8U); err == nil {
		t.Fatal("expected error for empty page list")
	}
}
