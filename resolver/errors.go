package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"strokeorder/strokes"
)

// Kind classifica il motivo del fallimento di un tentativo
type Kind string

const (
	KindSourceUnavailable Kind = "source_unavailable"
	KindTimeout           Kind = "timeout"
	KindNetworkFailure    Kind = "network_failure"
	KindMalformed         Kind = "malformed_stroke_data"
	KindUndecodable       Kind = "undecodable_stroke"
	KindNotFound          Kind = "character_not_found"
	KindUnknown           Kind = "unknown"
)

// Classify riconduce un errore alla tassonomia
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, strokes.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, strokes.ErrSourceUnavailable):
		return KindSourceUnavailable
	case errors.Is(err, strokes.ErrNetworkFailure):
		return KindNetworkFailure
	case errors.Is(err, strokes.ErrCharacterNotFound):
		return KindNotFound
	case errors.Is(err, strokes.ErrUndecodableStroke):
		return KindUndecodable
	case errors.Is(err, strokes.ErrMalformedStrokeData):
		return KindMalformed
	default:
		return KindUnknown
	}
}

// Attempt registra un tentativo fallito su una sorgente
type Attempt struct {
	Source   strokes.Source `json:"source"`
	Kind     Kind           `json:"kind"`
	Err      error          `json:"-"`
	Message  string         `json:"error"`
	Duration time.Duration  `json:"duration"`
}

// ExhaustedError viene restituito quando tutte le sorgenti hanno fallito
type ExhaustedError struct {
	Character string
	Attempts  []Attempt
}

// Error implementa error
func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Source, a.Kind))
	}
	return fmt.Sprintf("%s per %q (%s)", strokes.ErrNoStrokeDataAvailable, e.Character, strings.Join(parts, ", "))
}

// Is permette errors.Is(err, strokes.ErrNoStrokeDataAvailable)
func (e *ExhaustedError) Is(target error) bool {
	return target == strokes.ErrNoStrokeDataAvailable
}
