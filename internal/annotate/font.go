package annotate

import (
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// loadFace loads a TTF font asset for annotation text. Any failure degrades
// to the built-in fixed face with a warning; a missing font never aborts a
// render.
func loadFace(path string, size float64, logger *logrus.Logger) font.Face {
	if path == "" {
		return basicfont.Face7x13
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"font":  path,
			"error": err.Error(),
		}).Warn("Font not found, using default face")
		return basicfont.Face7x13
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"font":  path,
			"error": err.Error(),
		}).Warn("Font not parseable, using default face")
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"font":  path,
			"error": err.Error(),
		}).Warn("Font face creation failed, using default face")
		return basicfont.Face7x13
	}
	return face
}
