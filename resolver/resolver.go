// Package resolver prova le sorgenti dei tratti in ordine di priorità e
// restituisce il primo risultato valido.
package resolver

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"strokeorder/sources"
	"strokeorder/strokes"
)

// Resolver esegue la cascata libreria → locale → remoto
type Resolver struct {
	sources []sources.Source
	logger  *zap.Logger
}

// Result è l'esito di una risoluzione riuscita
type Result struct {
	RequestID string
	Set       *strokes.CharacterStrokeSet
	Attempts  []Attempt // Tentativi falliti prima del successo
}

// New crea un resolver con le sorgenti nell'ordine dato
func New(list []sources.Source, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		sources: append([]sources.Source(nil), list...),
		logger:  logger,
	}
}

// Sources restituisce l'ordine delle sorgenti
func (r *Resolver) Sources() []strokes.Source {
	kinds := make([]strokes.Source, len(r.sources))
	for i, s := range r.sources {
		kinds[i] = s.Kind()
	}
	return kinds
}

// Resolve restituisce i tratti del carattere dalla prima sorgente che riesce
func (r *Resolver) Resolve(ctx context.Context, character string) (*strokes.CharacterStrokeSet, error) {
	res, err := r.ResolveDetailed(ctx, character)
	if err != nil {
		return nil, err
	}
	return res.Set, nil
}

// ResolveDetailed come Resolve ma restituisce anche i tentativi falliti.
// Le sorgenti sono provate una alla volta: la successiva parte solo quando la
// precedente ha fallito. Gli errori delle singole sorgenti non interrompono il ciclo.
// La cancellazione del contesto invece sì, e viene restituita al chiamante.
func (r *Resolver) ResolveDetailed(ctx context.Context, character string) (*Result, error) {
	if utf8.RuneCountInString(character) != 1 {
		return nil, fmt.Errorf("%w: %q non è un singolo carattere", strokes.ErrCharacterNotFound, character)
	}

	requestID := uuid.New().String()
	log := r.logger.With(zap.String("request_id", requestID), zap.String("character", character))
	attempts := []Attempt{}

	for _, source := range r.sources {
		if err := ctx.Err(); err != nil {
			log.Debug("Risoluzione annullata", zap.Error(err))
			return nil, err
		}

		start := time.Now()
		set, err := source.Fetch(ctx, character)
		elapsed := time.Since(start)

		if err == nil {
			log.Info("✅ Tratti risolti",
				zap.Stringer("source", source.Kind()),
				zap.Int("strokes", set.Len()),
				zap.Duration("elapsed", elapsed))
			return &Result{RequestID: requestID, Set: set, Attempts: attempts}, nil
		}

		// Il chiamante ha cambiato carattere o chiuso la vista
		if ctx.Err() != nil {
			log.Debug("Risoluzione annullata durante il tentativo",
				zap.Stringer("source", source.Kind()), zap.Error(ctx.Err()))
			return nil, ctx.Err()
		}

		attempt := Attempt{
			Source:   source.Kind(),
			Kind:     Classify(err),
			Err:      err,
			Message:  err.Error(),
			Duration: elapsed,
		}
		attempts = append(attempts, attempt)

		log.Warn("⚠️  Sorgente fallita, provo la successiva",
			zap.Stringer("source", attempt.Source),
			zap.String("kind", string(attempt.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}

	exhausted := &ExhaustedError{Character: character, Attempts: attempts}
	log.Error("❌ Nessuna sorgente disponibile", zap.Int("attempts", len(attempts)))
	return nil, exhausted
}
