package overlay

import (
	"time"

	"github.com/GriffinCanCode/autotranslator/internal/lang"
	"github.com/GriffinCanCode/autotranslator/internal/translate"
)

// Position is the overlay's top-left corner in screen pixels.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Message types.
type Message struct {
	Type    string `json:"type"`
	TraceID string `json:"trace_id,omitempty"`
}

// TranslationMessage carries the current overlay text.
type TranslationMessage struct {
	Type       string    `json:"type"`
	Display    string    `json:"display"`
	Text       string    `json:"text"`
	Original   string    `json:"original"`
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	SourceName string    `json:"source_name,omitempty"`
	TargetName string    `json:"target_name,omitempty"`
	At         time.Time `json:"at,omitzero"`
}

// PositionMessage reports where the overlay sits.
type PositionMessage struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// MoveMessage is sent by clients: "move" sets an absolute position, "drag" offsets the current one.
type MoveMessage struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	DX   int    `json:"dx"`
	DY   int    `json:"dy"`
}

// ErrorMessage reports a rejected client message.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func translationMessage(r translate.Result) TranslationMessage {
	return TranslationMessage{
		Type:       "translation",
		Display:    r.Display(),
		Text:       r.Text,
		Original:   r.Original,
		Source:     r.Source,
		Target:     r.Target,
		SourceName: lang.Name(r.Source),
		TargetName: lang.Name(r.Target),
		At:         r.At,
	}
}

func positionMessage(p Position) PositionMessage {
	return PositionMessage{Type: "position", X: p.X, Y: p.Y}
}
