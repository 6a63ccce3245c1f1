package capture

import (
	"context"
	"fmt"

	"github.com/kbinani/screenshot"

	apperrors "github.com/GriffinCanCode/autotranslator/internal/errors"
)

// DisplaySource captures a local display.
type DisplaySource struct {
	index int
}

// NewDisplaySource creates a source for display index.
func NewDisplaySource(index int) (*DisplaySource, error) {
	if n := screenshot.NumActiveDisplays(); index < 0 || index >= n {
		return nil, apperrors.Newf(apperrors.CaptureFailed, "display %d not available (%d active)", index, n)
	}
	return &DisplaySource{index: index}, nil
}

// Name implements Source.
func (d *DisplaySource) Name() string { return fmt.Sprintf("display:%d", d.index) }

// Grab implements Source.
func (d *DisplaySource) Grab(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(screenshot.GetDisplayBounds(d.index))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CaptureFailed, "capture display").
			WithMetadata("display", fmt.Sprint(d.index))
	}
	return FromImage(img), nil
}

// Close implements Source.
func (d *DisplaySource) Close() error { return nil }
