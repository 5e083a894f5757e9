// Package writer collega resolver, sequencer e renderer in una singola
// istanza: un carattere alla volta, con cancellazione delle richieste superate.
package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"strokeorder/animator"
	"strokeorder/render"
	"strokeorder/strokes"
)

var (
	// ErrStale la richiesta è stata superata da una più recente
	ErrStale = errors.New("richiesta superata da una più recente")

	// ErrNoAnimation nessun carattere animabile caricato (vuoto o in fallback)
	ErrNoAnimation = errors.New("nessuna animazione caricata")

	// ErrClosed l'istanza è stata chiusa
	ErrClosed = errors.New("istanza chiusa")
)

// Resolver risolve i tratti di un carattere
type Resolver interface {
	Resolve(ctx context.Context, character string) (*strokes.CharacterStrokeSet, error)
}

// Options configura un'istanza
type Options struct {
	Render    render.Options
	Animation animator.Options
	AutoStart bool // Avvia l'animazione appena i tratti sono caricati
	Logger    *zap.Logger
}

// EventType tipo di notifica dell'istanza
type EventType string

const (
	EventLoaded    EventType = "loaded"
	EventFallback  EventType = "fallback"
	EventAnimation EventType = "animation"
)

// Event notifica un cambiamento dell'istanza
type Event struct {
	Type       EventType            `json:"type"`
	Generation uint64               `json:"generation"`
	Character  string               `json:"character"`
	Source     strokes.Source       `json:"source"`
	Animation  *animator.Event      `json:"animation,omitempty"`
	Fallback   *render.FallbackView `json:"fallback,omitempty"`
}

// View è ciò che l'istanza mostra in questo momento
type View struct {
	Generation uint64                      `json:"generation"`
	Character  string                      `json:"character"`
	Set        *strokes.CharacterStrokeSet `json:"-"`
	Fallback   *render.FallbackView        `json:"fallback,omitempty"`
}

// Source restituisce la provenienza dei dati mostrati
func (v View) Source() strokes.Source {
	if v.Set != nil {
		return v.Set.Source()
	}
	return strokes.SourceFallback
}

// Instance è una vista renderizzata. Non condivide stato con altre istanze.
type Instance struct {
	resolver Resolver
	opts     Options
	logger   *zap.Logger

	generation atomic.Uint64

	mu          sync.Mutex
	cancel      context.CancelFunc
	seq         *animator.Sequencer
	unsubscribe func()
	view        View
	closed      bool

	listenerMu sync.Mutex
	listeners  map[int]func(Event)
	nextID     int
}

// New crea un'istanza vuota
func New(resolver Resolver, opts Options) *Instance {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Animation.Logger == nil {
		opts.Animation.Logger = logger
	}
	return &Instance{
		resolver:  resolver,
		opts:      opts,
		logger:    logger,
		listeners: make(map[int]func(Event)),
	}
}

// Subscribe registra un osservatore degli eventi dell'istanza
func (in *Instance) Subscribe(fn func(Event)) (unsubscribe func()) {
	in.listenerMu.Lock()
	defer in.listenerMu.Unlock()

	id := in.nextID
	in.nextID++
	in.listeners[id] = fn

	return func() {
		in.listenerMu.Lock()
		defer in.listenerMu.Unlock()
		delete(in.listeners, id)
	}
}

// Request carica un nuovo carattere. La richiesta precedente ancora in corso
// viene annullata e la sua animazione fermata; se il suo risultato arriva
// comunque dopo, viene scartato.
//
// Se nessuna sorgente ha i tratti l'istanza passa alla vista di fallback e
// Request non restituisce errore: il fallback è uno stato valido.
func (in *Instance) Request(ctx context.Context, character string) (View, error) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return View{}, ErrClosed
	}

	gen := in.generation.Add(1)
	if in.cancel != nil {
		in.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	in.cancel = cancel
	seq, unsubscribe := in.detachLocked()
	in.view = View{Generation: gen, Character: character}
	in.mu.Unlock()

	closeSequencer(seq, unsubscribe)

	set, err := in.resolver.Resolve(reqCtx, character)

	in.mu.Lock()
	if in.closed || in.generation.Load() != gen {
		in.mu.Unlock()
		cancel()
		in.logger.Debug("Risultato scartato, richiesta superata",
			zap.String("character", character), zap.Uint64("generation", gen))
		return View{}, ErrStale
	}
	in.cancel = nil
	cancel()

	if err != nil && !isFallback(err) {
		in.mu.Unlock()
		return View{}, fmt.Errorf("errore caricamento %q: %w", character, err)
	}

	var events []Event
	seq = nil
	if err != nil {
		fallback := render.Fallback(character, err.Error(), in.opts.Render)
		in.view = View{Generation: gen, Character: character, Fallback: &fallback}
		events = append(events, Event{
			Type:       EventFallback,
			Generation: gen,
			Character:  character,
			Source:     strokes.SourceFallback,
			Fallback:   &fallback,
		})
		in.logger.Warn("⚠️  Tratti non disponibili, mostro il glifo",
			zap.String("character", character), zap.Error(err))
	} else {
		seq = animator.New(set, in.opts.Animation)
		in.seq = seq
		in.unsubscribe = seq.Subscribe(in.forward(gen, character, set.Source()))
		in.view = View{Generation: gen, Character: character, Set: set}
		events = append(events, Event{
			Type:       EventLoaded,
			Generation: gen,
			Character:  character,
			Source:     set.Source(),
		})
	}
	view := in.view
	in.mu.Unlock()

	in.emit(events)

	if seq != nil && in.opts.AutoStart {
		if err := seq.Play(); err != nil && !errors.Is(err, animator.ErrClosed) {
			in.logger.Warn("Avvio automatico fallito", zap.Error(err))
		}
	}
	return view, nil
}

// View restituisce la vista corrente
func (in *Instance) View() View {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.view
}

// Sequencer restituisce il sequencer corrente, nil se non c'è un'animazione
func (in *Instance) Sequencer() *animator.Sequencer {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.seq
}

// Play avvia o riprende l'animazione corrente
func (in *Instance) Play() error {
	seq, err := in.current()
	if err != nil {
		return err
	}
	return seq.Play()
}

// Pause mette in pausa l'animazione corrente
func (in *Instance) Pause() error {
	seq, err := in.current()
	if err != nil {
		return err
	}
	return seq.Pause()
}

// Reset riporta l'animazione corrente a Idle
func (in *Instance) Reset() error {
	seq, err := in.current()
	if err != nil {
		return err
	}
	seq.Reset()
	return nil
}

// StepToStroke mostra staticamente i tratti 0..i
func (in *Instance) StepToStroke(i int) error {
	seq, err := in.current()
	if err != nil {
		return err
	}
	return seq.StepToStroke(i)
}

// SVG disegna lo stato corrente: il frame dell'animazione o il glifo di fallback
func (in *Instance) SVG() string {
	in.mu.Lock()
	view, seq := in.view, in.seq
	in.mu.Unlock()

	switch {
	case view.Fallback != nil:
		return view.Fallback.SVG
	case seq != nil:
		return render.SVG(seq.Set(), seq.Frame(), in.opts.Render)
	default:
		return ""
	}
}

// Close annulla la richiesta in corso e ferma l'animazione
func (in *Instance) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	in.generation.Add(1)
	if in.cancel != nil {
		in.cancel()
		in.cancel = nil
	}
	seq, unsubscribe := in.detachLocked()
	in.mu.Unlock()

	closeSequencer(seq, unsubscribe)

	in.listenerMu.Lock()
	in.listeners = make(map[int]func(Event))
	in.listenerMu.Unlock()
}

func (in *Instance) current() (*animator.Sequencer, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil, ErrClosed
	}
	if in.seq == nil {
		return nil, ErrNoAnimation
	}
	return in.seq, nil
}

// forward inoltra gli eventi del sequencer finché la generazione è quella corrente.
// Non prende in.mu: il sequencer notifica anche dalla goroutine del chiamante.
func (in *Instance) forward(gen uint64, character string, source strokes.Source) func(animator.Event) {
	return func(ev animator.Event) {
		if in.generation.Load() != gen {
			return
		}
		in.emit([]Event{{
			Type:       EventAnimation,
			Generation: gen,
			Character:  character,
			Source:     source,
			Animation:  &ev,
		}})
	}
}

func (in *Instance) detachLocked() (*animator.Sequencer, func()) {
	seq, unsubscribe := in.seq, in.unsubscribe
	in.seq, in.unsubscribe = nil, nil
	return seq, unsubscribe
}

func (in *Instance) emit(events []Event) {
	in.listenerMu.Lock()
	listeners := make([]func(Event), 0, len(in.listeners))
	for _, fn := range in.listeners {
		listeners = append(listeners, fn)
	}
	in.listenerMu.Unlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

func closeSequencer(seq *animator.Sequencer, unsubscribe func()) {
	if unsubscribe != nil {
		unsubscribe()
	}
	if seq != nil {
		seq.Close()
	}
}

// isFallback indica gli errori per cui si mostra il glifo statico
func isFallback(err error) bool {
	return errors.Is(err, strokes.ErrNoStrokeDataAvailable) || errors.Is(err, strokes.ErrCharacterNotFound)
}
