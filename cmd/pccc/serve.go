package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/pccc/internal/classify"
	"github.com/gyeh/pccc/internal/exitcode"
	"github.com/gyeh/pccc/internal/logging"
	"github.com/gyeh/pccc/internal/server"
)

var maxRecords int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve classification over HTTP",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.ListenAddr, "addr", ":8080", "Listen address")
	f.IntVar(&maxRecords, "max-records", server.DefaultMaxRecords, "Maximum records per classify request")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

	h, err := server.NewHandler(log, classify.Options{Workers: cfg.Workers, ChunkSize: cfg.ChunkSize}, maxRecords)
	if err != nil {
		log.Error().Err(err).Msg("build engines")
		os.Exit(exitcode.ValidationError)
	}
	e := server.New(log, h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
		os.Exit(exitcode.UsageError)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		os.Exit(exitcode.UsageError)
	}
	log.Info().Msg("server stopped")
	return nil
}
