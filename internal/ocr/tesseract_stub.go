//go:build !tesseract

package ocr

import apperrors "github.com/GriffinCanCode/autotranslator/internal/errors"

// NewTesseract is unavailable unless built with -tags tesseract.
func NewTesseract([]string) (Extractor, error) {
	return nil, apperrors.New(apperrors.ConfigInvalid, "built without tesseract support (use -tags tesseract)")
}
