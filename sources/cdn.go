package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"strokeorder/strokes"
)

// DefaultCDNURL è la base dei dati pubblicati da hanzi-writer-data
const DefaultCDNURL = "https://cdn.jsdelivr.net/npm/hanzi-writer-data@2.0"

// CDNLibrary carica i dati nativi della libreria da un CDN ({base}/{carattere}.json)
type CDNLibrary struct {
	baseURL string
	client  *http.Client
}

// NewCDNLibrary crea la libreria CDN
func NewCDNLibrary(baseURL string, client *http.Client) *CDNLibrary {
	if baseURL == "" {
		baseURL = DefaultCDNURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &CDNLibrary{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Load implementa Library
func (cl *CDNLibrary) Load(ctx context.Context, character string) (*LibraryCharacter, error) {
	data := &LibraryCharacter{}
	if err := getJSON(ctx, cl.client, cl.characterURL(character), data); err != nil {
		return nil, err
	}
	if len(data.Strokes) == 0 {
		return nil, fmt.Errorf("%w: payload CDN senza tratti", strokes.ErrMalformedStrokeData)
	}
	return data, nil
}

// Probe implementa Prober: il CDN è presente se risponde alla base URL
func (cl *CDNLibrary) Probe(ctx context.Context) (Library, error) {
	if err := headOK(ctx, cl.client, cl.baseURL+"/"); err != nil {
		return nil, err
	}
	return cl, nil
}

func (cl *CDNLibrary) characterURL(character string) string {
	return cl.baseURL + "/" + url.PathEscape(character) + ".json"
}
