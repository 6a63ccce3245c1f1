package lang

import (
	"context"

	"github.com/abadojack/whatlanggo"
)

// LocalDetector identifies languages in-process with trigram statistics.
// Unreliable detections report Undetermined rather than a guess.
type LocalDetector struct{}

// NewLocalDetector creates an in-process detector.
func NewLocalDetector() *LocalDetector { return &LocalDetector{} }

// Identify implements Detector.
func (d *LocalDetector) Identify(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return Undetermined, nil
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return Undetermined, nil
	}
	return code, nil
}

// Close implements Detector.
func (d *LocalDetector) Close() error { return nil }
