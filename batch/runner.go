// Package batch verifica un elenco di caratteri contro la cascata delle
// sorgenti e produce un riassunto JSON.
package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"strokeorder/resolver"
)

// DefaultConcurrency numero di caratteri risolti in parallelo
const DefaultConcurrency = 4

// DetailedResolver risolve un carattere restituendo anche i tentativi falliti
type DetailedResolver interface {
	ResolveDetailed(ctx context.Context, character string) (*resolver.Result, error)
}

// Runner esegue il controllo di un dataset
type Runner struct {
	resolver    DetailedResolver
	concurrency int
	out         io.Writer
}

// CharacterResult esito per un singolo carattere
type CharacterResult struct {
	Character string             `json:"character"`
	Success   bool               `json:"success"`
	Source    string             `json:"source,omitempty"`
	Strokes   int                `json:"strokes,omitempty"`
	Attempts  []resolver.Attempt `json:"attempts,omitempty"`
	Error     string             `json:"error,omitempty"`
	Duration  string             `json:"duration"`
}

// Summary riassunto del controllo
type Summary struct {
	Total    int            `json:"total"`
	Resolved int            `json:"resolved"`
	Failed   int            `json:"failed"`
	BySource map[string]int `json:"by_source"`
	Duration string         `json:"duration"`
}

// Report è il risultato completo, nell'ordine dei caratteri in ingresso
type Report struct {
	CheckedAt string            `json:"checked_at"`
	Summary   Summary           `json:"summary"`
	Results   []CharacterResult `json:"results"`
}

// NewRunner crea un runner. Concurrency <= 0 usa DefaultConcurrency;
// out nil disattiva l'output di avanzamento.
func NewRunner(r DetailedResolver, concurrency int, out io.Writer) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{resolver: r, concurrency: concurrency, out: out}
}

// Run risolve tutti i caratteri. Il fallimento di un carattere non ferma gli altri;
// la cancellazione del contesto sì.
func (br *Runner) Run(ctx context.Context, characters []string) (*Report, error) {
	startTime := time.Now()
	results := make([]CharacterResult, len(characters))

	fmt.Fprintf(br.out, "\n📁 Controllo di %d caratteri\n", len(characters))
	fmt.Fprintln(br.out, strings.Repeat("─", 50))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(br.concurrency)

	for i, character := range characters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = br.check(gctx, character)
			if ctxErr := gctx.Err(); ctxErr != nil && !results[i].Success {
				return ctxErr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("controllo interrotto: %w", err)
	}

	report := &Report{
		CheckedAt: startTime.Format(time.RFC3339),
		Summary: Summary{
			Total:    len(characters),
			BySource: make(map[string]int),
		},
		Results: results,
	}
	for _, res := range results {
		if res.Success {
			report.Summary.Resolved++
			report.Summary.BySource[res.Source]++
			fmt.Fprintf(br.out, "   ✅ %s  %d tratti (%s)\n", res.Character, res.Strokes, res.Source)
		} else {
			report.Summary.Failed++
			fmt.Fprintf(br.out, "   ❌ %s  %s\n", res.Character, res.Error)
		}
	}
	report.Summary.Duration = time.Since(startTime).String()

	br.printSummary(report.Summary)
	return report, nil
}

func (br *Runner) check(ctx context.Context, character string) CharacterResult {
	start := time.Now()
	res, err := br.resolver.ResolveDetailed(ctx, character)

	result := CharacterResult{
		Character: character,
		Duration:  time.Since(start).String(),
	}
	if err != nil {
		result.Error = err.Error()
		var exhausted *resolver.ExhaustedError
		if errors.As(err, &exhausted) {
			result.Attempts = exhausted.Attempts
		}
		return result
	}

	result.Success = true
	result.Source = res.Set.Source().String()
	result.Strokes = res.Set.Len()
	result.Attempts = res.Attempts
	return result
}

func (br *Runner) printSummary(s Summary) {
	sources := make([]string, 0, len(s.BySource))
	for name := range s.BySource {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	fmt.Fprintln(br.out)
	fmt.Fprintln(br.out, strings.Repeat("═", 50))
	fmt.Fprintln(br.out, "📊 RIASSUNTO CONTROLLO")
	fmt.Fprintln(br.out, strings.Repeat("═", 50))
	fmt.Fprintf(br.out, "   Caratteri:        %d\n", s.Total)
	fmt.Fprintf(br.out, "   Risolti:          %d/%d\n", s.Resolved, s.Total)
	for _, name := range sources {
		fmt.Fprintf(br.out, "     - %-14s %d\n", name+":", s.BySource[name])
	}
	fmt.Fprintf(br.out, "   Durata:           %s\n", s.Duration)
	fmt.Fprintln(br.out, strings.Repeat("═", 50))
}

// ReadCharacters legge i caratteri da un file di testo: ogni carattere non
// spazio è un elemento, le righe che iniziano con # sono commenti.
// I duplicati vengono ignorati mantenendo il primo.
func ReadCharacters(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("impossibile leggere %s: %w", path, err)
	}
	defer f.Close()

	return ParseCharacters(f)
}

// ParseCharacters come ReadCharacters ma da un reader
func ParseCharacters(r io.Reader) ([]string, error) {
	var characters []string
	seen := make(map[rune]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, c := range line {
			if unicode.IsSpace(c) || unicode.IsPunct(c) || seen[c] {
				continue
			}
			seen[c] = true
			characters = append(characters, string(c))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("errore lettura caratteri: %w", err)
	}
	return characters, nil
}

// SaveJSON salva il report come JSON indentato
func SaveJSON(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("errore serializzazione report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("errore creazione directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Failed restituisce i caratteri senza tratti disponibili
func (r *Report) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res.Character)
		}
	}
	return out
}
