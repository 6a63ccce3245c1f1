package pipeline

// Outcome is how a single tick ended.
type Outcome int

const (
	Translated Outcome = iota
	Busy
	CaptureFailed
	DecodeFailed
	SimilarFrame
	ExtractFailed
	Unchanged
	DetectFailed
	NoTranslation
	TranslateFailed
	Cancelled
)

func (o Outcome) String() string {
	return [...]string{
		"translated",
		"busy",
		"capture_failed",
		"decode_failed",
		"similar_frame",
		"extract_failed",
		"unchanged",
		"detect_failed",
		"no_translation",
		"translate_failed",
		"cancelled",
	}[o]
}
