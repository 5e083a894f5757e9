package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strokeorder/batch"
)

// writeConfig prepara una configurazione con il solo dataset locale
func writeConfig(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	data := "characters:\n  一:\n    strokes: [\"M 100 512 L 924 512\"]\n  二:\n    strokes: [\"M 200 300 L 800 300\", \"M 100 700 L 900 700\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chars.yaml"), []byte(data), 0644))

	conf := "data:\n  files: [chars.yaml]\n  watch: false\nsources:\n  order: [local]\n  library_enabled: false\nlogging:\n  level: error\n"
	path = filepath.Join(dir, "strokeorder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0644))
	return dir, path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// ============================================
// CLI
// ============================================

func TestResolveCommand(t *testing.T) {
	_, conf := writeConfig(t)

	out, err := execute(t, "resolve", "二", "-c", conf)
	require.NoError(t, err)
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "2 tratti")

	_, err = execute(t, "resolve", "水", "-c", conf)
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	dir, conf := writeConfig(t)

	svgPath := filepath.Join(dir, "yi.svg")
	_, err := execute(t, "render", "一", "-o", svgPath, "-c", conf)
	require.NoError(t, err)
	svg, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.Contains(t, string(svg), `class="stroke"`)

	// Senza tratti il file contiene il glifo di fallback
	fallbackPath := filepath.Join(dir, "shui.svg")
	_, err = execute(t, "render", "水", "-o", fallbackPath, "-c", conf)
	require.NoError(t, err)
	fallback, err := os.ReadFile(fallbackPath)
	require.NoError(t, err)
	assert.Contains(t, string(fallback), "stroke-unavailable")

	pdfPath := filepath.Join(dir, "er.pdf")
	_, err = execute(t, "render", "二", "-o", pdfPath, "-c", conf)
	require.NoError(t, err)
	pdf, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	_, err = execute(t, "render", "一", "-o", filepath.Join(dir, "yi.gif"), "-c", conf)
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	dir, conf := writeConfig(t)
	list := filepath.Join(dir, "lezione.txt")
	require.NoError(t, os.WriteFile(list, []byte("一 二 水\n"), 0644))
	report := filepath.Join(dir, "report.json")

	_, err := execute(t, "check", list, "-o", report, "-c", conf)
	assert.Error(t, err, "水 non ha tratti")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var decoded batch.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Summary.Resolved)
	assert.Equal(t, 1, decoded.Summary.Failed)
}
