// Package lang maps detected language tags onto the fixed set of translation sources.
package lang

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	// Undetermined is the tag detectors return when they cannot decide.
	Undetermined = "und"
	// English is the fixed translation target.
	English = "en"
)

// supported maps a detected base tag to the translation source identifier.
var supported = map[string]string{
	"es": "es",
	"fr": "fr",
	"de": "de",
	"zh": "zh",
	"ja": "ja",
	"ko": "ko",
	"hi": "hi",
	"ar": "ar",
	"pt": "pt",
	"ru": "ru",
	"it": "it",
	"th": "th",
	"vi": "vi",
}

// Detector identifies the language of a text snippet.
type Detector interface {
	// Identify returns a BCP-47 tag, or Undetermined.
	Identify(ctx context.Context, text string) (string, error)
	Close() error
}

// Normalize reduces a tag to its base language ("zh-Hant-TW" -> "zh").
// Unparseable input yields Undetermined.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.EqualFold(tag, Undetermined) {
		return Undetermined
	}
	t, err := language.Parse(tag)
	if err != nil {
		return Undetermined
	}
	base, conf := t.Base()
	if conf == language.No {
		return Undetermined
	}
	return base.String()
}

// Lookup returns the translation source for a detected tag.
// Undetermined, English and tags outside the table report false.
func Lookup(tag string) (string, bool) {
	base := Normalize(tag)
	if base == Undetermined || base == English {
		return "", false
	}
	src, ok := supported[base]
	return src, ok
}

// Supported lists the translation sources in stable order.
func Supported() []string {
	out := make([]string, 0, len(supported))
	for _, v := range supported {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Name returns the English display name of a language code, for overlay labels.
// Empty input yields "".
func Name(code string) string {
	if code == "" {
		return ""
	}
	t, err := language.Parse(code)
	if err != nil {
		return code
	}
	if n := display.English.Languages().Name(t); n != "" {
		return n
	}
	return code
}
