// Package sources contiene le sorgenti dei dati dei tratti usate dal resolver:
// la libreria esterna (opzionale), la tabella locale e l'endpoint remoto.
package sources

import (
	"context"

	"strokeorder/strokes"
)

// Source definisce l'interface comune delle sorgenti
type Source interface {
	// Kind restituisce il tipo di sorgente
	Kind() strokes.Source

	// Fetch recupera i tratti del carattere.
	// Gli errori avvolgono le sentinelle di strokes (ErrTimeout, ErrNetworkFailure, ...).
	Fetch(ctx context.Context, character string) (*strokes.CharacterStrokeSet, error)
}

// StrokeOrderJSON è il formato dei dati dei tratti scambiato con il backend
// e con la libreria esterna
type StrokeOrderJSON struct {
	Strokes []string       `json:"strokes"`
	Medians [][][2]float64 `json:"medians,omitempty"`
}
