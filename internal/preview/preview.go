// Package preview shows a before/after frame pair in a window after a
// wisp-reveal run. Presentation only; the numeric pipelines never depend on it.
package preview

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"gocv.io/x/gocv"

	"microscopy-image-correction/internal/wisp"
)

// Show opens a window with the original frame (min-max normalized) next to
// the processed frame and blocks until the window is closed.
func Show(original, processed gocv.Mat) error {
	origNorm := wisp.NormalizeTo8Bit(original)
	defer origNorm.Close()

	origImg, err := origNorm.ToImage()
	if err != nil {
		return fmt.Errorf("converting original frame: %w", err)
	}
	procImg, err := processed.ToImage()
	if err != nil {
		return fmt.Errorf("converting processed frame: %w", err)
	}

	left := canvas.NewImageFromImage(origImg)
	left.FillMode = canvas.ImageFillContain
	right := canvas.NewImageFromImage(procImg)
	right.FillMode = canvas.ImageFillContain

	previewApp := app.New()
	window := previewApp.NewWindow("Wisp Reveal - Sample Frame")
	window.SetContent(container.NewGridWithColumns(2,
		container.NewBorder(nil, widget.NewLabel("Original Frame"), nil, nil, left),
		container.NewBorder(nil, widget.NewLabel("Final Processed Frame"), nil, nil, right),
	))
	window.Resize(fyne.NewSize(1200, 600))
	window.ShowAndRun()

	return nil
}
