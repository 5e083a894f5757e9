// Package animator riproduce i tratti di un carattere uno alla volta,
// con controlli play / pause / reset / step.
package animator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"strokeorder/strokes"
)

// Valori di default dell'animazione
const (
	DefaultStrokeDuration = 1000 * time.Millisecond
	DefaultDelay          = 300 * time.Millisecond
)

var (
	// ErrInvalidTransition comando non valido nello stato corrente
	ErrInvalidTransition = errors.New("transizione non valida")

	// ErrClosed il sequencer è stato chiuso
	ErrClosed = errors.New("sequencer chiuso")
)

// Phase è lo stato della macchina del sequencer
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePlaying   Phase = "playing"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
)

// State è lo stato osservabile dell'animazione
type State struct {
	Phase              Phase `json:"phase"`
	IsAnimating        bool  `json:"is_animating"`
	IsPaused           bool  `json:"is_paused"`
	CurrentStrokeIndex int   `json:"current_stroke_index"`
	TotalStrokes       int   `json:"total_strokes"`
}

// EventType tipo di notifica
type EventType string

const (
	EventStateChanged    EventType = "state"
	EventStrokeCompleted EventType = "stroke"
	EventCompleted       EventType = "completed"
)

// Event è la notifica inviata agli osservatori
type Event struct {
	Type   EventType `json:"type"`
	State  State     `json:"state"`
	Stroke int       `json:"stroke"` // Solo per EventStrokeCompleted
}

// Frame descrive cosa è visibile: i tratti 0..Revealed-1 completi,
// il tratto Revealed disegnato per la frazione Partial.
type Frame struct {
	Revealed int     `json:"revealed"`
	Partial  float64 `json:"partial"`
}

// Options configura il sequencer
type Options struct {
	StrokeDuration      time.Duration    // Durata di un tratto (0 = DefaultStrokeDuration / Speed)
	Speed               float64          // Moltiplicatore di velocità (default: 1)
	DelayBetweenStrokes time.Duration    // Pausa tra un tratto e il successivo
	Clock               Clock            // Default: RealClock
	Cue                 func(stroke int) // Segnale audio/aptico a fine tratto, best-effort
	Logger              *zap.Logger
}

// DefaultOptions restituisce le opzioni di default
func DefaultOptions() Options {
	return Options{
		Speed:               1,
		DelayBetweenStrokes: DefaultDelay,
	}
}

// Sequencer anima un CharacterStrokeSet. Una sola riproduzione alla volta.
type Sequencer struct {
	set      *strokes.CharacterStrokeSet
	duration time.Duration
	delay    time.Duration
	clock    Clock
	cue      func(int)
	logger   *zap.Logger

	mu          sync.Mutex
	phase       Phase
	index       int
	progress    float64 // Frazione già disegnata del tratto corrente
	strokeStart time.Time
	strokeBase  float64
	inDelay     bool
	run         *playback
	closed      bool

	listenerMu sync.Mutex
	listeners  map[int]func(Event)
	nextID     int
}

// playback è la goroutine di riproduzione in corso
type playback struct {
	stop chan struct{}
	done chan struct{}
}

// New crea un sequencer nello stato Idle
func New(set *strokes.CharacterStrokeSet, opts Options) *Sequencer {
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}
	duration := opts.StrokeDuration
	if duration <= 0 {
		duration = time.Duration(float64(DefaultStrokeDuration) / speed)
	}
	delay := opts.DelayBetweenStrokes
	if delay < 0 {
		delay = 0
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sequencer{
		set:       set,
		duration:  duration,
		delay:     delay,
		clock:     clock,
		cue:       opts.Cue,
		logger:    logger,
		phase:     PhaseIdle,
		listeners: make(map[int]func(Event)),
	}
}

// Set restituisce i tratti animati
func (s *Sequencer) Set() *strokes.CharacterStrokeSet {
	return s.set
}

// StrokeDuration restituisce la durata effettiva di un tratto
func (s *Sequencer) StrokeDuration() time.Duration {
	return s.duration
}

// Subscribe registra un osservatore. Le notifiche arrivano fuori dal lock
// del sequencer, dalla goroutine che ha causato la transizione.
func (s *Sequencer) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

// State restituisce lo stato corrente
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Frame restituisce la porzione visibile in questo istante
func (s *Sequencer) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseIdle:
		return Frame{}
	case PhaseCompleted:
		return Frame{Revealed: s.set.Len()}
	case PhasePlaying:
		return Frame{Revealed: s.index, Partial: s.currentProgressLocked()}
	default:
		return Frame{Revealed: s.index, Partial: s.progress}
	}
}

// Play avvia o riprende l'animazione.
// Da Idle o Completed riparte dal primo tratto, da Paused riprende dal punto di pausa.
func (s *Sequencer) Play() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	switch s.phase {
	case PhasePlaying:
		s.mu.Unlock()
		return fmt.Errorf("%w: play durante la riproduzione", ErrInvalidTransition)
	case PhaseIdle, PhaseCompleted:
		s.index = 0
		s.progress = 0
	}

	s.phase = PhasePlaying
	s.inDelay = false
	s.strokeStart = s.clock.Now()
	s.strokeBase = s.progress
	run := &playback{stop: make(chan struct{}), done: make(chan struct{})}
	s.run = run
	events := []Event{s.eventLocked(EventStateChanged, 0)}
	s.mu.Unlock()

	s.emit(events)
	go s.loop(run)
	return nil
}

// Pause congela l'animazione sul tratto parzialmente disegnato
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	if s.phase != PhasePlaying {
		phase := s.phase
		s.mu.Unlock()
		return fmt.Errorf("%w: pause da %s", ErrInvalidTransition, phase)
	}

	if !s.inDelay {
		s.progress = s.currentProgressLocked()
	}
	s.inDelay = false
	s.phase = PhasePaused
	s.stopLocked()
	events := []Event{s.eventLocked(EventStateChanged, 0)}
	s.mu.Unlock()

	s.emit(events)
	return nil
}

// Reset cancella tutti i tratti disegnati e torna in Idle da qualsiasi stato
func (s *Sequencer) Reset() {
	s.mu.Lock()
	s.stopLocked()
	s.phase = PhaseIdle
	s.index = 0
	s.progress = 0
	s.inDelay = false
	events := []Event{s.eventLocked(EventStateChanged, 0)}
	s.mu.Unlock()

	s.emit(events)
}

// StepToStroke mostra staticamente i tratti 0..i, senza animazione.
// Restituisce ErrIndexOutOfRange se i non è in [0, TotalStrokes).
func (s *Sequencer) StepToStroke(i int) error {
	s.mu.Lock()
	total := s.set.Len()
	if i < 0 || i >= total {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d (tratti: %d)", strokes.ErrIndexOutOfRange, i, total)
	}

	s.stopLocked()
	s.index = i + 1
	s.progress = 0
	s.inDelay = false

	var events []Event
	if s.index == total {
		s.phase = PhaseCompleted
		events = []Event{s.eventLocked(EventStateChanged, 0), s.eventLocked(EventCompleted, 0)}
	} else {
		s.phase = PhasePaused
		events = []Event{s.eventLocked(EventStateChanged, 0)}
	}
	s.mu.Unlock()

	s.emit(events)
	return nil
}

// Close ferma i timer e attende la fine della goroutine di riproduzione.
// Dopo Close il sequencer non accetta più Play.
func (s *Sequencer) Close() {
	s.mu.Lock()
	s.closed = true
	run := s.run
	s.stopLocked()
	s.mu.Unlock()

	if run != nil {
		<-run.done
	}

	s.listenerMu.Lock()
	s.listeners = make(map[int]func(Event))
	s.listenerMu.Unlock()
}

// loop rivela un tratto alla volta finché non arriva alla fine o viene fermato
func (s *Sequencer) loop(run *playback) {
	defer close(run.done)

	for {
		s.mu.Lock()
		if stopped(run) {
			s.mu.Unlock()
			return
		}
		stroke := s.index
		remaining := time.Duration(float64(s.duration) * (1 - s.progress))
		s.strokeStart = s.clock.Now()
		s.strokeBase = s.progress
		s.mu.Unlock()

		if !s.wait(run, remaining) {
			return
		}

		s.mu.Lock()
		if stopped(run) {
			s.mu.Unlock()
			return
		}
		s.index++
		s.progress = 0
		events := []Event{s.eventLocked(EventStrokeCompleted, stroke)}

		finished := s.index >= s.set.Len()
		if finished {
			s.phase = PhaseCompleted
			s.run = nil
			events = append(events, s.eventLocked(EventStateChanged, 0), s.eventLocked(EventCompleted, 0))
		} else {
			s.inDelay = true
		}
		s.mu.Unlock()

		s.emit(events)
		s.fireCue(stroke)

		if finished {
			s.logger.Debug("Animazione completata", zap.String("character", s.set.Character()))
			return
		}

		if !s.wait(run, s.delay) {
			return
		}

		s.mu.Lock()
		s.inDelay = false
		s.mu.Unlock()
	}
}

// wait attende la durata indicata; false se la riproduzione è stata fermata
func (s *Sequencer) wait(run *playback, d time.Duration) bool {
	if d <= 0 {
		return !stopped(run)
	}

	timer := s.clock.NewTimer(d)
	select {
	case <-timer.C():
		return true
	case <-run.stop:
		timer.Stop()
		return false
	}
}

func (s *Sequencer) fireCue(stroke int) {
	if s.cue == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Warn("Segnale di fine tratto fallito", zap.Any("panic", r))
			}
		}()
		s.cue(stroke)
	}()
}

func (s *Sequencer) emit(events []Event) {
	s.listenerMu.Lock()
	listeners := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenerMu.Unlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

func (s *Sequencer) stopLocked() {
	if s.run != nil {
		close(s.run.stop)
		s.run = nil
	}
}

func (s *Sequencer) currentProgressLocked() float64 {
	if s.inDelay || s.duration <= 0 {
		return s.progress
	}
	elapsed := s.clock.Now().Sub(s.strokeStart)
	p := s.strokeBase + float64(elapsed)/float64(s.duration)
	switch {
	case p < 0:
		return 0
	case p >= 1:
		// Il tratto si chiude solo quando scatta il timer
		return 0.999
	default:
		return p
	}
}

func (s *Sequencer) stateLocked() State {
	return State{
		Phase:              s.phase,
		IsAnimating:        s.phase == PhasePlaying,
		IsPaused:           s.phase == PhasePaused,
		CurrentStrokeIndex: s.index,
		TotalStrokes:       s.set.Len(),
	}
}

func (s *Sequencer) eventLocked(kind EventType, stroke int) Event {
	return Event{Type: kind, State: s.stateLocked(), Stroke: stroke}
}

func stopped(run *playback) bool {
	select {
	case <-run.stop:
		return true
	default:
		return false
	}
}
