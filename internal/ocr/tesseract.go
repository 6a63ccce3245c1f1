//go:build tesseract

package ocr

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/autotranslator/internal/errors"
)

// Tesseract runs recognition in-process through libtesseract.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a local engine for the given tesseract language codes
// (e.g. "eng", "spa", "jpn"). Empty means tesseract's default.
func NewTesseract(langs []string) (Extractor, error) {
	client := gosseract.NewClient()
	if len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			client.Close()
			return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "tesseract languages %s", strings.Join(langs, "+"))
		}
	}
	return &Tesseract{client: client}, nil
}

// Extract implements Extractor.
func (t *Tesseract) Extract(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", apperrors.Wrap(err, apperrors.OCRInvalidImage, "tesseract set image")
	}
	text, err := t.client.Text()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.OCRExtractFailed, "tesseract")
	}
	return Clean(text), nil
}

// Close releases the tesseract handle.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
