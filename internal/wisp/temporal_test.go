package wisp

import (
	"testing"

	"gocv.io/x/gocv"
)

func constantFrames(values []float64) []gocv.Mat {
	frames := make([]gocv.Mat, len(values))
	for i, v := range values {
		frames[i] = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, 0, 0, 0), 4, 4, gocv.MatTypeCV8U)
	}
	return frames
}

func TestSmoothTemporalWindow3(t *testing.T) {
	frames := constantFrames([]float64{10, 20, 30, 40})
	defer closeMats(frames)

	out, err := SmoothTemporal(frames, 3)
	if err != nil {
		t.Fatalf("SmoothTemporal failed: %v", err)
	}
	defer closeMats(out)

	if len(out) != len(frames) {
		t.Fatalf("got %d frames, want %d", len(out), len(frames))
	}

	// Edge replication: index 0 averages [10,10,20], the last [30,40,40].
	want := []uint8{13, 20, 30, 37}
	for i, w := range want {
		if got := out[i].GetUCharAt(0, 0); got != w {
			t.Errorf("frame %d = %d, want %d", i, got, w)
		}
	}
}

func TestSmoothTemporalEvenWindow(t *testing.T) {
	frames := constantFrames([]float64{10, 20, 40, 80})
	defer closeMats(frames)

	out, err := SmoothTemporal(frames, 2)
	if err != nil {
		t.Fatalf("SmoothTemporal failed: %v", err)
	}
	defer closeMats(out)

	// pad = 1, so index i averages frames [i-1, i].
	want := []uint8{10, 15, 30, 60}
	for i, w := range want {
		if got := out[i].GetUCharAt(0, 0); got != w {
			t.Errorf("frame %d = %d, want %d", i, got, w)
		}
	}
}

func TestSmoothTemporalWindow1Identity(t *testing.T) {
	frames := constantFrames([]float64{7, 99, 42})
	defer closeMats(frames)

	out, err := SmoothTemporal(frames, 1)
	if err != nil {
		t.Fatalf("SmoothTemporal failed: %v", err)
	}
	defer closeMats(out)

	for i, f := range frames {
		if got, want := out[i].GetUCharAt(0, 0), f.GetUCharAt(0, 0); got != want {
			t.Errorf("frame %d = %d, want %d", i, got, want)
		}
	}
}

func TestSmoothTemporalValidation(t *testing.T) {
	if _, err := SmoothTemporal(nil, 3); err == nil {
		t.Error("expected error for empty stack")
	}

	frames := constantFrames([]float64{1})
	defer closeMats(frames)
	if _, err := SmoothTemporal(frames, 0); err == nil {
		t.Error("expected error for zero window")
	}
}

func TestBlurStackPreservesShape(t *testing.T) {
	frames := constantFrames([]float64{50, 60})
	defer closeMats(frames)

	out, err := BlurStack(frames, 0.3)
	if err != nil {
		t.Fatalf("BlurStack failed: %v", err)
	}
	defer closeMats(out)

	if len(out) != 2 {
		t.Fatalf("got %d frames, want 2", len(out))
	}
	for i, f := range out {
		if f.Rows() != 4 || f.Cols() != 4 || f.Type() != gocv.MatTypeCV8U {
			t.Errorf("frame %d: got %dx%d type %v", i, f.Rows(), f.Cols(), f.Type())
		}
		// Blurring a constant frame changes nothing.
		if got, want := f.GetUCharAt(1, 1), frames[i].GetUCharAt(1, 1); got != want {
			t.Errorf("frame %d = %d, want %d", i, got, want)
		}
	}
}

func TestBlurStackZeroSigma(t *testing.T) {
	frames := constantFrames([]float64{90})
	defer closeMats(frames)

	out, err := BlurStack(frames, 0)
	if err != nil {
		t.Fatalf("BlurStack failed: %v", err)
	}
	defer closeMats(out)

	if got := out[0].GetUCharAt(2, 2); got != 90 {
		t.Errorf("got %d, want unchanged 90", got)
	}
}
