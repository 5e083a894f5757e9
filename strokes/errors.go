package strokes

import "errors"

// Tassonomia degli errori della pipeline dei tratti.
// Tutti gli errori dei vari package li avvolgono con %w, quindi vanno
// confrontati con errors.Is.
var (
	// ErrSourceUnavailable la libreria esterna non è presente o non si è caricata
	ErrSourceUnavailable = errors.New("sorgente non disponibile")

	// ErrTimeout un tentativo ha superato il tempo massimo
	ErrTimeout = errors.New("timeout")

	// ErrNetworkFailure errore di rete o risposta HTTP inattesa
	ErrNetworkFailure = errors.New("errore di rete")

	// ErrMalformedStrokeData dati dei tratti non validi
	ErrMalformedStrokeData = errors.New("dati dei tratti non validi")

	// ErrUndecodableStroke path SVG da cui non si ricavano almeno due punti
	ErrUndecodableStroke = errors.New("tratto non decodificabile")

	// ErrCharacterNotFound carattere sconosciuto alla sorgente
	ErrCharacterNotFound = errors.New("carattere non trovato")

	// ErrNoStrokeDataAvailable tutte le sorgenti hanno fallito
	ErrNoStrokeDataAvailable = errors.New("nessun dato sui tratti disponibile")

	// ErrIndexOutOfRange indice di tratto fuori intervallo (uso errato del sequencer)
	ErrIndexOutOfRange = errors.New("indice del tratto fuori intervallo")
)
