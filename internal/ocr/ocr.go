// Package ocr turns captured images into plain text.
package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	apperrors "github.com/GriffinCanCode/autotranslator/internal/errors"
)

// Extractor recognizes text in an image. Empty text is a valid result.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (string, error)
}

// TextService is a remote recognizer that accepts encoded images.
type TextService interface {
	ExtractText(ctx context.Context, imageData []byte, format string) (string, error)
}

// Engine kinds accepted by configuration.
const (
	EngineRemote    = "remote"
	EngineTesseract = "tesseract"
)

var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// EncodePNG encodes img for transport.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, apperrors.Wrap(err, apperrors.OCRInvalidImage, "encode png")
	}
	return buf.Bytes(), nil
}

// Remote sends PNG-encoded frames to a TextService.
type Remote struct {
	svc TextService
}

// NewRemote creates an extractor backed by svc.
func NewRemote(svc TextService) *Remote {
	return &Remote{svc: svc}
}

// Extract implements Extractor.
func (r *Remote) Extract(ctx context.Context, img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", apperrors.New(apperrors.OCRInvalidImage, "empty image")
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return r.svc.ExtractText(ctx, data, "png")
}

// Clean normalizes recognizer output: CRLF to LF, trailing spaces trimmed per line.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
