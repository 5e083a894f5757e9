package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	json "github.com/goccy/go-json"

	"strokeorder/strokes"
)

// maxPayloadSize limita la dimensione delle risposte lette
const maxPayloadSize = 4 << 20

// getJSON esegue una GET e decodifica il corpo in out.
// 404 → ErrCharacterNotFound, altri status → ErrNetworkFailure,
// corpo non valido → ErrMalformedStrokeData.
func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: richiesta non valida: %w", strokes.ErrNetworkFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", strokes.ErrCharacterNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d da %s", strokes.ErrNetworkFailure, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: JSON non valido: %w", strokes.ErrMalformedStrokeData, err)
	}

	return nil
}

// headOK verifica che l'host risponda a una HEAD
func headOK(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", strokes.ErrSourceUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", strokes.ErrSourceUnavailable, resp.StatusCode)
	}
	return nil
}

// classifyTransportError distingue il timeout dagli altri errori di rete.
// La cancellazione del chiamante viene restituita così com'è.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", strokes.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", strokes.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", strokes.ErrNetworkFailure, err)
}
