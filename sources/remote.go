package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"strokeorder/strokes"
	"strokeorder/svgpath"
)

// DefaultRemoteTimeout tempo massimo per la GET al backend
const DefaultRemoteTimeout = 5 * time.Second

// CharacterPayload è la risposta di GET /api/characters/{carattere}
type CharacterPayload struct {
	Character   string          `json:"character,omitempty"`
	StrokeOrder json.RawMessage `json:"stroke_order_json"`
}

// RemoteSource interroga l'endpoint del backend
type RemoteSource struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func init() {
	Register("remote", func(deps Deps) (Source, error) {
		return NewRemoteSource(deps.RemoteURL, deps.client(), deps.RemoteTimeout), nil
	})
}

// NewRemoteSource crea la sorgente remota
func NewRemoteSource(baseURL string, client *http.Client, timeout time.Duration) *RemoteSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: orDefault(timeout, DefaultRemoteTimeout),
	}
}

// Kind implementa Source
func (rs *RemoteSource) Kind() strokes.Source {
	return strokes.SourceRemote
}

// Fetch implementa Source
func (rs *RemoteSource) Fetch(ctx context.Context, character string) (*strokes.CharacterStrokeSet, error) {
	if rs.baseURL == "" {
		return nil, fmt.Errorf("%w: URL del backend non configurato", strokes.ErrSourceUnavailable)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	payload := &CharacterPayload{}
	if err := getJSON(attemptCtx, rs.client, rs.CharacterURL(character), payload); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	order, err := ParseStrokeOrder(payload.StrokeOrder)
	if err != nil {
		return nil, err
	}

	list, err := svgpath.DecodeStrokes(order.Strokes)
	if err != nil {
		return nil, err
	}
	return strokes.NewCharacterStrokeSet(character, list, strokes.SourceRemote)
}

// CharacterURL restituisce l'URL dell'endpoint per il carattere
func (rs *RemoteSource) CharacterURL(character string) string {
	return rs.baseURL + "/api/characters/" + url.PathEscape(character)
}

// ParseStrokeOrder interpreta il campo stroke_order_json, che il backend può
// inviare come oggetto o come stringa contenente JSON
func ParseStrokeOrder(raw json.RawMessage) (*StrokeOrderJSON, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: stroke_order_json mancante", strokes.ErrMalformedStrokeData)
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: stroke_order_json: %w", strokes.ErrMalformedStrokeData, err)
		}
		raw = []byte(inner)
	}

	order := &StrokeOrderJSON{}
	if err := json.Unmarshal(raw, order); err != nil {
		return nil, fmt.Errorf("%w: stroke_order_json: %w", strokes.ErrMalformedStrokeData, err)
	}
	if len(order.Strokes) == 0 {
		return nil, fmt.Errorf("%w: stroke_order_json.strokes mancante", strokes.ErrMalformedStrokeData)
	}

	return order, nil
}
