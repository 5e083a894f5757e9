package sources

import (
	"context"
	"fmt"

	"strokeorder/strokedata"
	"strokeorder/strokes"
	"strokeorder/svgpath"
)

// LocalLookup è la ricerca sincrona nella tabella locale iniettata dall'host
type LocalLookup func(character string) (*strokedata.Entry, bool)

// LocalSource legge dalla tabella locale
type LocalSource struct {
	lookup LocalLookup
}

func init() {
	Register("local", func(deps Deps) (Source, error) {
		return NewLocalSource(deps.Lookup), nil
	})
}

// NewLocalSource crea la sorgente locale
func NewLocalSource(lookup LocalLookup) *LocalSource {
	return &LocalSource{lookup: lookup}
}

// Kind implementa Source
func (ls *LocalSource) Kind() strokes.Source {
	return strokes.SourceLocal
}

// Fetch implementa Source
func (ls *LocalSource) Fetch(ctx context.Context, character string) (*strokes.CharacterStrokeSet, error) {
	if ls.lookup == nil {
		return nil, fmt.Errorf("%w: tabella locale non configurata", strokes.ErrSourceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, found := ls.lookup(character)
	if !found || entry == nil {
		return nil, fmt.Errorf("%w: %q non è nella tabella locale", strokes.ErrCharacterNotFound, character)
	}

	list, err := svgpath.DecodeStrokes(entry.Strokes)
	if err != nil {
		return nil, err
	}
	return strokes.NewCharacterStrokeSet(character, list, strokes.SourceLocal)
}
