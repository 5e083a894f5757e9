package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strokeorder/batch"
)

var (
	checkOutput      string
	checkConcurrency int
)

// checkCmd verifica un elenco di caratteri contro la cascata
var checkCmd = &cobra.Command{
	Use:   "check <file-caratteri>",
	Short: "Verifica quali caratteri hanno l'ordine dei tratti",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Salva il report JSON")
	checkCmd.Flags().IntVarP(&checkConcurrency, "concurrency", "j", batch.DefaultConcurrency, "Caratteri risolti in parallelo")
}

func runCheck(cmd *cobra.Command, args []string) error {
	characters, err := batch.ReadCharacters(args[0])
	if err != nil {
		return err
	}

	cascade, err := buildResolver(loadTable())
	if err != nil {
		return err
	}

	report, err := batch.NewRunner(cascade, checkConcurrency, cmd.OutOrStdout()).Run(cmd.Context(), characters)
	if err != nil {
		return err
	}

	if checkOutput != "" {
		if err := batch.SaveJSON(checkOutput, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "💾 Report salvato in %s\n", checkOutput)
	}

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d caratteri senza ordine dei tratti", len(failed))
	}
	return nil
}
