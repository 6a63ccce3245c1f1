package pb

// OCRRequest carries an encoded image for text extraction.
type OCRRequest struct {
	ImageData []byte `json:"image_data"`
	Format    string `json:"format"` // "png" or "jpeg"
	Script    string `json:"script,omitempty"`
}

// BoundingBox is a recognized text block in image coordinates.
type BoundingBox struct {
	X1         int32   `json:"x1"`
	Y1         int32   `json:"y1"`
	X2         int32   `json:"x2"`
	Y2         int32   `json:"y2"`
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
}

// OCRResponse is the recognized plain text plus optional block geometry.
type OCRResponse struct {
	Text  string         `json:"text"`
	Boxes []*BoundingBox `json:"boxes,omitempty"`
}

// IdentifyLanguageRequest asks for the language of a text snippet.
type IdentifyLanguageRequest struct {
	Text string `json:"text"`
}

// IdentifyLanguageResponse holds a BCP-47 tag, "und" when undetermined.
type IdentifyLanguageResponse struct {
	LanguageTag string  `json:"language_tag"`
	Confidence  float32 `json:"confidence"`
}

// OpenTranslatorRequest creates a translator handle for a language pair.
type OpenTranslatorRequest struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// OpenTranslatorResponse returns the server-side handle id.
type OpenTranslatorResponse struct {
	TranslatorID string `json:"translator_id"`
}

// TranslateRequest translates text with an open handle.
type TranslateRequest struct {
	TranslatorID string `json:"translator_id"`
	Text         string `json:"text"`
}

// TranslateResponse carries the translated text.
type TranslateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// CloseTranslatorRequest releases a handle.
type CloseTranslatorRequest struct {
	TranslatorID string `json:"translator_id"`
}

// CloseTranslatorResponse is empty.
type CloseTranslatorResponse struct{}

// DownloadModelRequest asks the server to fetch a model ahead of use.
type DownloadModelRequest struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	RequireWifi    bool   `json:"require_wifi,omitempty"`
}

// DownloadModelResponse reports whether the model was already present.
type DownloadModelResponse struct {
	AlreadyPresent bool `json:"already_present"`
}
