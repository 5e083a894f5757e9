// Package strokedata mantiene la tabella locale dei tratti per carattere,
// caricata da file YAML o JSON.
package strokedata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Entry contiene i dati grezzi di un carattere
type Entry struct {
	Strokes []string       `json:"strokes" yaml:"strokes"`
	Medians [][][2]float64 `json:"medians,omitempty" yaml:"medians,omitempty"`
	Radical string         `json:"radical,omitempty" yaml:"radical,omitempty"`
	Pinyin  []string       `json:"pinyin,omitempty" yaml:"pinyin,omitempty"`
}

// Dataset rappresenta il contenuto di un file di dati
type Dataset struct {
	Version    string            `json:"version" yaml:"version"`
	Characters map[string]*Entry `json:"characters" yaml:"characters"`
}

// Stats riassume lo stato della tabella
type Stats struct {
	Characters int       `json:"characters"`
	Files      []string  `json:"files"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// Table è la tabella carattere → tratti, sicura per l'uso concorrente
type Table struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	files    []string
	loadedAt time.Time
}

// NewTable crea una tabella vuota
func NewTable() *Table {
	return &Table{
		entries: make(map[string]*Entry),
	}
}

// LoadFile legge un file .yaml, .yml o .json
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("errore lettura file: %w", err)
	}

	dataset := &Dataset{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, dataset); err != nil {
			return nil, fmt.Errorf("errore parsing YAML %s: %w", filepath.Base(path), err)
		}
	case ".json":
		if err := json.Unmarshal(data, dataset); err != nil {
			return nil, fmt.Errorf("errore parsing JSON %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("formato file non supportato: %s", filepath.Base(path))
	}

	if dataset.Characters == nil {
		dataset.Characters = make(map[string]*Entry)
	}
	for char, entry := range dataset.Characters {
		if entry == nil || len(entry.Strokes) == 0 {
			return nil, fmt.Errorf("carattere %q senza tratti in %s", char, filepath.Base(path))
		}
	}

	return dataset, nil
}

// Load carica i file indicati e sostituisce il contenuto della tabella.
// In caso di errore la tabella resta invariata.
func (t *Table) Load(paths ...string) error {
	entries := make(map[string]*Entry)

	for _, path := range paths {
		dataset, err := LoadFile(path)
		if err != nil {
			return err
		}
		// I file successivi sovrascrivono i precedenti
		for char, entry := range dataset.Characters {
			entries[char] = entry
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = entries
	t.files = append([]string(nil), paths...)
	t.loadedAt = time.Now()
	return nil
}

// Reload ricarica gli stessi file del caricamento precedente
func (t *Table) Reload() error {
	t.mu.RLock()
	files := append([]string(nil), t.files...)
	t.mu.RUnlock()

	if len(files) == 0 {
		return fmt.Errorf("nessun file da ricaricare")
	}
	return t.Load(files...)
}

// Put aggiunge o sostituisce un carattere
func (t *Table) Put(character string, entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[character] = cloneEntry(&entry)
}

// Lookup restituisce una copia dei dati del carattere
func (t *Table) Lookup(character string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, exists := t.entries[character]
	if !exists {
		return nil, false
	}
	return cloneEntry(entry), true
}

// Characters restituisce i caratteri presenti in ordine
func (t *Table) Characters() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	chars := make([]string, 0, len(t.entries))
	for char := range t.entries {
		chars = append(chars, char)
	}
	sort.Strings(chars)
	return chars
}

// Files restituisce i file caricati
func (t *Table) Files() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]string(nil), t.files...)
}

// Stats restituisce un riassunto della tabella
func (t *Table) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Stats{
		Characters: len(t.entries),
		Files:      append([]string(nil), t.files...),
		LoadedAt:   t.loadedAt,
	}
}

func cloneEntry(e *Entry) *Entry {
	out := &Entry{
		Strokes: append([]string(nil), e.Strokes...),
		Radical: e.Radical,
		Pinyin:  append([]string(nil), e.Pinyin...),
	}
	if e.Medians != nil {
		out.Medians = make([][][2]float64, len(e.Medians))
		for i, m := range e.Medians {
			out.Medians[i] = append([][2]float64(nil), m...)
		}
	}
	return out
}
