package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strokeorder/config"
	"strokeorder/logging"
	"strokeorder/resolver"
	"strokeorder/sources"
	"strokeorder/strokedata"
)

var (
	// Flag globali
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd è il comando base
var rootCmd = &cobra.Command{
	Use:   "strokeorder",
	Short: "Ordine dei tratti dei caratteri cinesi",
	Long: `strokeorder risolve l'ordine dei tratti di un carattere cinese provando
in sequenza la libreria esterna, il dataset locale e il backend remoto.
Se nessuna sorgente risponde mostra il glifo statico con un indicatore.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Development)
		if err != nil {
			return fmt.Errorf("errore inizializzazione logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "strokeorder.yaml", "File di configurazione")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log di debug")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadTable carica il dataset locale. I file mancanti vengono segnalati ma
// non bloccano: la cascata passerà alle altre sorgenti.
func loadTable() *strokedata.Table {
	table := strokedata.NewTable()
	if len(cfg.Data.Files) == 0 {
		return table
	}
	if err := table.Load(cfg.Data.Files...); err != nil {
		logger.Warn("⚠️  Dataset locale non caricato", zap.Strings("files", cfg.Data.Files), zap.Error(err))
		return table
	}
	logger.Sugar().Infof("📚 Dataset locale: %d caratteri", table.Stats().Characters)
	return table
}

// buildResolver costruisce la cascata nell'ordine configurato
func buildResolver(table *strokedata.Table) (*resolver.Resolver, error) {
	client := &http.Client{}
	deps := sources.Deps{
		Lookup:         table.Lookup,
		RemoteURL:      cfg.Sources.RemoteURL,
		HTTPClient:     client,
		LibraryTimeout: cfg.LibraryTimeout(),
		RemoteTimeout:  cfg.RemoteTimeout(),
		Logger:         logger,
	}
	if cfg.Sources.LibraryEnabled {
		deps.Prober = sources.NewCDNLibrary(cfg.Sources.LibraryURL, client)
	}

	list, err := sources.Build(cfg.Sources.Order, deps)
	if err != nil {
		return nil, err
	}
	return resolver.New(list, logger), nil
}
