package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strokeorder/api"
)

var servePort int

// serveCmd avvia il server HTTP/WebSocket
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Avvia il server API e WebSocket",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Porta (default: da configurazione)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	table := loadTable()
	cascade, err := buildResolver(table)
	if err != nil {
		return err
	}
	logger.Info("Cascata delle sorgenti", zap.Stringers("order", cascade.Sources()))

	server := api.NewServer(api.ServerConfig{
		Port:        cfg.Server.Port,
		Table:       table,
		Resolver:    cascade,
		Render:      cfg.RenderOptions(),
		Animation:   cfg.AnimatorOptions(),
		AutoStart:   cfg.Animation.AutoStart,
		EnableCORS:  true,
		CORSOrigins: cfg.Server.CORSOrigins,
		Debug:       cfg.Server.Debug,
		Logger:      logger,
	})

	if cfg.Data.Watch && len(table.Files()) > 0 {
		if _, err := server.StartWatcher(nil, 0); err != nil {
			logger.Warn("⚠️  Watcher non avviato", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("🛑 Arresto del server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
