package capture

import (
	"image"

	"github.com/nfnt/resize"
)

// Capture limits
const (
	BytesPerPixel = 4 // RGBA_8888
	MaxWidth      = 1080
	MaxHeight     = 1920
)

// Frame is a raw RGBA_8888 buffer. RowStride may exceed Width*PixelStride
// when the producer pads rows for alignment.
type Frame struct {
	Width       int
	Height      int
	PixelStride int
	RowStride   int
	Pix         []byte
}

// Valid reports whether the geometry is consistent with the buffer.
func (f *Frame) Valid() bool {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return false
	}
	if f.PixelStride != BytesPerPixel {
		return false
	}
	rowBytes := f.Width * f.PixelStride
	if f.RowStride < rowBytes {
		return false
	}
	return len(f.Pix) >= f.RowStride*(f.Height-1)+rowBytes
}

// Decode copies the visible pixels of f into a tightly packed image,
// dropping row padding. Returns nil when the frame is malformed.
func Decode(f *Frame) *image.RGBA {
	if !f.Valid() {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	rowBytes := f.Width * BytesPerPixel
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.RowStride : y*f.RowStride+rowBytes]
		copy(img.Pix[y*img.Stride:], src)
	}
	return img
}

// FromImage wraps an RGBA image as a frame without copying.
func FromImage(img *image.RGBA) *Frame {
	b := img.Bounds()
	return &Frame{
		Width:       b.Dx(),
		Height:      b.Dy(),
		PixelStride: BytesPerPixel,
		RowStride:   img.Stride,
		Pix:         img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
	}
}

// Downscale shrinks img to fit within maxW x maxH keeping its aspect ratio.
// Images that already fit are returned unchanged.
func Downscale(img image.Image, maxW, maxH int) image.Image {
	if maxW <= 0 || maxH <= 0 {
		return img
	}
	return resize.Thumbnail(uint(maxW), uint(maxH), img, resize.Bilinear)
}
