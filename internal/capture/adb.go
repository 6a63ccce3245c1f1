package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"os/exec"

	apperrors "github.com/GriffinCanCode/autotranslator/internal/errors"
)

// screencap raw header: width, height, format (u32 LE each), plus a
// colorspace word on newer devices.
const (
	screencapHeaderLegacy = 12
	screencapHeader       = 16
	screencapFormatRGBA   = 1
	screencapMaxSide      = 1 << 15
)

// ADBSource captures an Android device over adb exec-out screencap.
type ADBSource struct {
	adb    string
	serial string
}

// NewADBSource creates a source using the adb binary at path (default "adb").
func NewADBSource(path, serial string) *ADBSource {
	if path == "" {
		path = "adb"
	}
	return &ADBSource{adb: path, serial: serial}
}

// Name implements Source.
func (a *ADBSource) Name() string {
	if a.serial == "" {
		return "adb"
	}
	return "adb:" + a.serial
}

func (a *ADBSource) args() []string {
	var args []string
	if a.serial != "" {
		args = append(args, "-s", a.serial)
	}
	return append(args, "exec-out", "screencap")
}

// Grab implements Source.
func (a *ADBSource) Grab(ctx context.Context) (*Frame, error) {
	cmd := exec.CommandContext(ctx, a.adb, a.args()...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("screencap failed", "error", err, "stderr", stderr.String())
		return nil, apperrors.Wrap(err, apperrors.CaptureFailed, "adb screencap").
			WithMetadata("stderr", stderr.String())
	}
	return parseScreencap(stdout.Bytes())
}

// Close implements Source.
func (a *ADBSource) Close() error { return nil }

// parseScreencap reads the raw screencap format into a frame.
func parseScreencap(data []byte) (*Frame, error) {
	if len(data) < screencapHeaderLegacy {
		return nil, apperrors.Newf(apperrors.DecodeFailed, "screencap output too short (%d bytes)", len(data))
	}
	w := int(binary.LittleEndian.Uint32(data[0:4]))
	h := int(binary.LittleEndian.Uint32(data[4:8]))
	format := binary.LittleEndian.Uint32(data[8:12])
	if format != screencapFormatRGBA {
		return nil, apperrors.Newf(apperrors.DecodeFailed, "unsupported screencap pixel format %d", format)
	}

	if w <= 0 || h <= 0 || w > screencapMaxSide || h > screencapMaxSide {
		return nil, apperrors.Newf(apperrors.DecodeFailed, "screencap reported %dx%d", w, h)
	}

	body := w * h * BytesPerPixel
	header := screencapHeaderLegacy
	if len(data)-screencapHeader >= body {
		header = screencapHeader
	}
	if len(data)-header < body {
		return nil, apperrors.Newf(apperrors.DecodeFailed, "screencap %dx%d truncated (%d bytes)", w, h, len(data))
	}

	return &Frame{
		Width:       w,
		Height:      h,
		PixelStride: BytesPerPixel,
		RowStride:   w * BytesPerPixel,
		Pix:         data[header : header+body],
	}, nil
}
