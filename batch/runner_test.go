package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strokeorder/resolver"
	"strokeorder/sources"
	"strokeorder/strokedata"
)

func newResolver() *resolver.Resolver {
	table := strokedata.NewTable()
	table.Put("一", strokedata.Entry{Strokes: []string{"M 100 512 L 924 512"}})
	table.Put("二", strokedata.Entry{Strokes: []string{"M 200 300 L 800 300", "M 100 700 L 900 700"}})

	return resolver.New([]sources.Source{
		sources.NewLibrarySource(nil, time.Second, nil),
		sources.NewLocalSource(table.Lookup),
		sources.NewRemoteSource("", nil, 0),
	}, nil)
}

func TestRunMixedResults(t *testing.T) {
	var out bytes.Buffer
	report, err := NewRunner(newResolver(), 2, &out).Run(context.Background(), []string{"一", "水", "二"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 2, report.Summary.Resolved)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, map[string]int{"local": 2}, report.Summary.BySource)
	assert.Equal(t, []string{"水"}, report.Failed())

	// L'ordine dei risultati segue l'ingresso
	require.Len(t, report.Results, 3)
	assert.Equal(t, "一", report.Results[0].Character)
	assert.Equal(t, 2, report.Results[2].Strokes)
	assert.Len(t, report.Results[0].Attempts, 1, "la libreria fallisce prima del locale")

	failed := report.Results[1]
	assert.False(t, failed.Success)
	require.Len(t, failed.Attempts, 3)
	assert.Equal(t, resolver.KindNotFound, failed.Attempts[1].Kind)

	assert.Contains(t, out.String(), "RIASSUNTO CONTROLLO")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(newResolver(), 0, nil).Run(ctx, []string{"一", "二"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCharacters(t *testing.T) {
	input := "# lezione 1\n一 二 三\n\n三，十\n# fine\n"
	chars, err := ParseCharacters(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"一", "二", "三", "十"}, chars)
}

func TestSaveJSON(t *testing.T) {
	report, err := NewRunner(newResolver(), 1, nil).Run(context.Background(), []string{"一"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, SaveJSON(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Summary.Resolved)
	assert.Equal(t, "local", decoded.Results[0].Source)
}
