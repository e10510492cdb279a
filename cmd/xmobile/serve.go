package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-mobile/internal/api"
	"github.com/creamcroissant/xboard-mobile/internal/bootstrap"
	"github.com/creamcroissant/xboard-mobile/internal/job"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mobile API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, closeLog := newLogger(cfg)
	defer closeLog()
	logger.Info("starting xmobile", "version", Version, "commit", Commit, "built", BuildTime)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := job.NewScheduler(logger)
	if spec := cfg.Jobs.PanelProbe; spec != "" {
		if _, err := scheduler.Register(spec, job.NewPanelProbeJob(a.panel, logger)); err != nil {
			return err
		}
	}
	scheduler.Start()

	router := api.NewRouter(
		logger,
		a.services,
		cfg.Metrics,
		api.WithHTTPConfig(cfg.HTTP),
		api.WithRateLimit(cfg.RateLimit, a.infra.RateLimiter),
		api.WithReadiness(a.store.Ping),
	)

	server := bootstrap.NewHTTPServer(cfg.HTTP, router)

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "prefix", api.MobilePrefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
