package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strokeorder/animator"
	"strokeorder/render"
	"strokeorder/strokes"
)

var (
	renderOutput string
	renderStep   int
)

// renderCmd disegna un carattere su file: SVG, PNG o scheda PDF
var renderCmd = &cobra.Command{
	Use:   "render <carattere>",
	Short: "Disegna un carattere (svg, png o pdf in base all'estensione)",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "File di output (.svg, .png, .pdf)")
	renderCmd.Flags().IntVar(&renderStep, "step", 0, "Tratti da mostrare (0 = tutti)")
	renderCmd.MarkFlagRequired("output")
}

func runRender(cmd *cobra.Command, args []string) error {
	character := args[0]
	ext := strings.ToLower(filepath.Ext(renderOutput))
	if ext != ".svg" && ext != ".png" && ext != ".pdf" {
		return fmt.Errorf("estensione non supportata: %q", ext)
	}

	cascade, err := buildResolver(loadTable())
	if err != nil {
		return err
	}
	opts := cfg.RenderOptions()

	set, err := cascade.Resolve(cmd.Context(), character)
	fallback := errors.Is(err, strokes.ErrNoStrokeDataAvailable) || errors.Is(err, strokes.ErrCharacterNotFound)
	if err != nil && !fallback {
		return err
	}
	if fallback && ext == ".pdf" {
		return fmt.Errorf("scheda non disponibile: %w", err)
	}
	if fallback {
		logger.Warn("⚠️  Tratti non disponibili, disegno il glifo", zap.String("character", character), zap.Error(err))
	}

	f, err := os.Create(renderOutput)
	if err != nil {
		return fmt.Errorf("errore creazione file: %w", err)
	}
	defer f.Close()

	switch {
	case ext == ".svg" && fallback:
		_, err = f.WriteString(render.Fallback(character, "tratti non disponibili", opts).SVG)
	case ext == ".svg":
		_, err = f.WriteString(render.SVGStep(set, renderStep, opts))
	case ext == ".png" && fallback:
		err = render.FallbackPNG(f, character, opts)
	case ext == ".png":
		frame := animator.Frame{Revealed: set.Len()}
		if renderStep > 0 && renderStep < set.Len() {
			frame.Revealed = renderStep
		}
		err = render.PNG(f, set, frame, opts)
	default:
		err = render.Worksheet(f, set, opts)
	}
	if err != nil {
		return err
	}

	source := strokes.SourceFallback
	if set != nil {
		source = set.Source()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s salvato in %s (sorgente: %s)\n", character, renderOutput, source)
	return nil
}
