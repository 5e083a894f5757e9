package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"strokeorder/resolver"
	"strokeorder/svgpath"
)

// resolveCmd mostra da quale sorgente arrivano i tratti di un carattere
var resolveCmd = &cobra.Command{
	Use:   "resolve <carattere>",
	Short: "Risolve i tratti di un carattere e mostra i tentativi",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cascade, err := buildResolver(loadTable())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res, err := cascade.ResolveDetailed(cmd.Context(), args[0])
	if err != nil {
		var exhausted *resolver.ExhaustedError
		if errors.As(err, &exhausted) {
			for _, a := range exhausted.Attempts {
				fmt.Fprintf(out, "   ❌ %-8s %s (%v)\n", a.Source, a.Kind, a.Duration)
			}
		}
		return err
	}

	for _, a := range res.Attempts {
		fmt.Fprintf(out, "   ❌ %-8s %s (%v)\n", a.Source, a.Kind, a.Duration)
	}
	fmt.Fprintf(out, "   ✅ %-8s %d tratti\n", res.Set.Source(), res.Set.Len())
	for _, stroke := range res.Set.Strokes() {
		fmt.Fprintf(out, "      %2d  %s\n", stroke.Index+1, svgpath.EncodeStroke(stroke))
	}
	return nil
}
