package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"strokeorder/strokes"
	"strokeorder/svgpath"
)

// libraryBaseline è la linea di base del box 1024 della libreria (asse y verso l'alto)
const libraryBaseline = 900

// DefaultLibraryTimeout tempo massimo per probe e caricamento della libreria
const DefaultLibraryTimeout = 5 * time.Second

// LibraryCharacter sono i dati nativi restituiti dalla libreria
type LibraryCharacter = StrokeOrderJSON

// Library è la capacità opzionale fornita dalla libreria di animazione esterna
type Library interface {
	Load(ctx context.Context, character string) (*LibraryCharacter, error)
}

// Prober verifica se la libreria è disponibile e ne restituisce l'handle
type Prober interface {
	Probe(ctx context.Context) (Library, error)
}

// ProberFunc adatta una funzione all'interface Prober
type ProberFunc func(ctx context.Context) (Library, error)

// Probe implementa Prober
func (f ProberFunc) Probe(ctx context.Context) (Library, error) {
	return f(ctx)
}

// StaticProber restituisce sempre la stessa libreria (nil = assente)
func StaticProber(lib Library) Prober {
	return ProberFunc(func(ctx context.Context) (Library, error) {
		if lib == nil {
			return nil, strokes.ErrSourceUnavailable
		}
		return lib, nil
	})
}

// LibrarySource usa la libreria esterna condivisa
type LibrarySource struct {
	prober  Prober
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	library Library // handle condiviso dopo un probe riuscito
}

type loadResult struct {
	data *LibraryCharacter
	err  error
}

type probeResult struct {
	library Library
	err     error
}

func init() {
	Register("library", func(deps Deps) (Source, error) {
		return NewLibrarySource(deps.Prober, deps.LibraryTimeout, deps.logger()), nil
	})
}

// NewLibrarySource crea la sorgente libreria
func NewLibrarySource(prober Prober, timeout time.Duration, logger *zap.Logger) *LibrarySource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibrarySource{
		prober:  prober,
		timeout: orDefault(timeout, DefaultLibraryTimeout),
		logger:  logger,
	}
}

// Kind implementa Source
func (ls *LibrarySource) Kind() strokes.Source {
	return strokes.SourceLibrary
}

// Fetch implementa Source: probe (se serve) e caricamento entro il timeout
func (ls *LibrarySource) Fetch(ctx context.Context, character string) (*strokes.CharacterStrokeSet, error) {
	if ls.prober == nil {
		return nil, fmt.Errorf("%w: libreria non configurata", strokes.ErrSourceUnavailable)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, ls.timeout)
	defer cancel()

	lib, err := ls.handle(attemptCtx)
	if err != nil {
		if attemptCtx.Err() != nil {
			return nil, contextError(ctx, attemptCtx)
		}
		return nil, err
	}

	// La libreria potrebbe ignorare il contesto: il caricamento gira a parte
	done := make(chan loadResult, 1)
	go func() {
		data, err := lib.Load(attemptCtx, character)
		done <- loadResult{data: data, err: err}
	}()

	var res loadResult
	select {
	case res = <-done:
	case <-attemptCtx.Done():
		return nil, contextError(ctx, attemptCtx)
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", strokes.ErrTimeout, res.err)
		}
		return nil, fmt.Errorf("caricamento libreria: %w", res.err)
	}
	if res.data == nil {
		return nil, fmt.Errorf("%w: la libreria non ha restituito dati", strokes.ErrMalformedStrokeData)
	}

	list, err := wrapLibraryData(res.data)
	if err != nil {
		return nil, err
	}
	return strokes.NewCharacterStrokeSet(character, list, strokes.SourceLibrary)
}

// handle restituisce l'handle condiviso, eseguendo il probe se non c'è ancora
func (ls *LibrarySource) handle(ctx context.Context) (Library, error) {
	ls.mu.Lock()
	lib := ls.library
	ls.mu.Unlock()
	if lib != nil {
		return lib, nil
	}

	done := make(chan probeResult, 1)
	go func() {
		l, err := ls.prober.Probe(ctx)
		done <- probeResult{library: l, err: err}
	}()

	var probed Library
	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, strokes.ErrTimeout) || errors.Is(res.err, strokes.ErrSourceUnavailable) {
				return nil, res.err
			}
			return nil, fmt.Errorf("%w: %w", strokes.ErrSourceUnavailable, res.err)
		}
		if res.library == nil {
			return nil, fmt.Errorf("%w: probe senza handle", strokes.ErrSourceUnavailable)
		}
		probed = res.library
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ls.mu.Lock()
	if ls.library == nil {
		ls.library = probed
		ls.logger.Info("📚 Libreria esterna disponibile")
	}
	lib = ls.library
	ls.mu.Unlock()

	return lib, nil
}

// wrapLibraryData converte i dati nativi nel modello dei tratti.
// Se il path di un tratto non è decodificabile (curve) si usa la sua mediana.
// Le coordinate passano dal box con asse y verso l'alto a quello con origine in alto a sinistra.
func wrapLibraryData(data *LibraryCharacter) ([]strokes.Stroke, error) {
	if len(data.Strokes) == 0 {
		return nil, fmt.Errorf("%w: nessun tratto dalla libreria", strokes.ErrMalformedStrokeData)
	}

	list := make([]strokes.Stroke, 0, len(data.Strokes))
	for i, path := range data.Strokes {
		stroke := strokes.Stroke{Index: i}

		points, err := svgpath.Decode(path)
		switch {
		case err == nil:
			stroke.Points = points
		case i < len(data.Medians) && len(data.Medians[i]) >= 2:
			stroke = strokes.StrokeFromPoints(i, data.Medians[i])
		default:
			return nil, fmt.Errorf("%w: tratto %d: %w", strokes.ErrMalformedStrokeData, i, err)
		}

		for j := range stroke.Points {
			stroke.Points[j].Y = libraryBaseline - stroke.Points[j].Y
		}
		list = append(list, stroke)
	}

	return list, nil
}

// contextError distingue la cancellazione del chiamante dal timeout del tentativo
func contextError(parent, attempt context.Context) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	return fmt.Errorf("%w: %w", strokes.ErrTimeout, attempt.Err())
}
