package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/internal/server"
	catalogueservices "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := server.ConfigFromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg server.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogue, err := catalogueservices.LoadDefault()
	if err != nil {
		return err
	}
	findings, err := catalogue.Lint(ctx)
	if err != nil {
		return err
	}
	for _, f := range findings {
		logger.Debug("catalogue lint", "rule", f.Rule, "severity", f.Severity, "subject", f.Subject, "message", f.Message)
	}
	if catalogueservices.HasErrors(findings) {
		return errors.New("catalogue has lint errors; run ruletool lint")
	}

	stores, err := server.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	h, err := server.NewHandler(server.HandlerOptions{
		Config:    cfg,
		Catalogue: catalogue,
		Stores:    stores,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend, "authz_mode", cfg.AuthzMode, "catalogue_version", catalogue.Version())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
