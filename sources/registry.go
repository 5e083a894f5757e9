package sources

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Deps raccoglie le dipendenze iniettate nelle sorgenti
type Deps struct {
	Prober         Prober        // Capacità libreria esterna (nil = assente)
	Lookup         LocalLookup   // Tabella locale (nil = assente)
	RemoteURL      string        // Base URL del backend
	HTTPClient     *http.Client  // Client HTTP (default: http.DefaultClient)
	LibraryTimeout time.Duration // Timeout libreria (default: 5s)
	RemoteTimeout  time.Duration // Timeout backend (default: 5s)
	Logger         *zap.Logger
}

// Factory crea una sorgente a partire dalle dipendenze
type Factory func(deps Deps) (Source, error)

// DefaultOrder è l'ordine di priorità delle sorgenti
var DefaultOrder = []string{"library", "local", "remote"}

var (
	registry     = make(map[string]Factory)
	registryLock sync.RWMutex
)

// Register registra una factory con un nome.
// Chiamato dai file delle singole sorgenti nel loro init()
func Register(name string, factory Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[strings.ToLower(name)] = factory
}

// IsRegistered verifica se una sorgente è registrata
func IsRegistered(name string) bool {
	registryLock.RLock()
	defer registryLock.RUnlock()

	_, exists := registry[strings.ToLower(name)]
	return exists
}

// Available restituisce i nomi delle sorgenti registrate
func Available() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build crea le sorgenti nell'ordine indicato
func Build(names []string, deps Deps) ([]Source, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}

	registryLock.RLock()
	defer registryLock.RUnlock()

	result := make([]Source, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			return nil, fmt.Errorf("sorgente %q ripetuta", name)
		}
		seen[key] = true

		factory, exists := registry[key]
		if !exists {
			return nil, fmt.Errorf("sorgente %q non registrata", name)
		}
		source, err := factory(deps)
		if err != nil {
			return nil, fmt.Errorf("errore creazione sorgente %s: %w", key, err)
		}
		result = append(result, source)
	}

	return result, nil
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d Deps) client() *http.Client {
	if d.HTTPClient == nil {
		return http.DefaultClient
	}
	return d.HTTPClient
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
