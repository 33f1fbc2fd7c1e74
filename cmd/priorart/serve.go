package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/priorart-engine/internal/httpapi"
	"github.com/joelkehle/priorart-engine/internal/report"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prior-art and assessment HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = current.cfg.Server.Addr
	}

	svc, err := current.service()
	if err != nil {
		return err
	}
	deps := httpapi.Deps{
		Searcher: current.engine(),
		Assessor: svc,
		PDF:      report.NewChromiumPDFRenderer(current.cfg.Report.PDFOptions()),
		Gatherer: current.registry,
		Logger:   current.log.Named("http"),
		Version:  version,
	}
	if current.store != nil {
		deps.Searches = current.store
		deps.DB = current.store
	}

	if current.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		current.log.Info("server_start", zap.String("addr", addr), zap.String("version", version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	current.log.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), current.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
