package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/creamcroissant/xboard-mobile/internal/api"
	"github.com/creamcroissant/xboard-mobile/internal/bootstrap"
	"github.com/creamcroissant/xboard-mobile/internal/catalog"
	"github.com/creamcroissant/xboard-mobile/internal/config"
	"github.com/creamcroissant/xboard-mobile/internal/migrations"
	"github.com/creamcroissant/xboard-mobile/internal/panel"
	"github.com/creamcroissant/xboard-mobile/internal/repository/sqlite"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/subscription"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
	"github.com/creamcroissant/xboard-mobile/internal/support/logging"
)

// app holds everything the serve and maintenance commands share.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	store  *sqlite.Store
	infra  *bootstrap.Infrastructure
	i18n   *i18n.Manager

	// panel retries with backoff; background jobs and CLI use it.
	panel *panel.Client
	// requestPanel fails fast so handlers stay inside their lookup budget.
	requestPanel *panel.Client

	services api.Services
	devAuth  service.DevAuthService

	closers []func() error
}

func newLogger(cfg *config.Config) (*slog.Logger, func() error) {
	logger, closer := logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		File: logging.FileOptions{
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	return logger, closer.Close
}

// buildApp opens the database, applies migrations and wires the services.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	if err := migrations.Up(db); err != nil {
		_ = a.Close()
		return nil, err
	}

	infra, err := bootstrap.BuildInfrastructure(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.infra = infra
	a.closers = append(a.closers, infra.Close)

	a.i18n, err = i18n.NewManager(
		i18n.WithLogger(logger),
		i18n.WithDefaultLang(cfg.Mobile.DefaultLanguage),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	labels, err := catalog.LoadLabels(cfg.Mobile.DefaultLanguage, cfg.Servers.CategoriesFile)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.panel = panel.New(panel.Options{
		BaseURL:   cfg.Panel.BaseURL,
		APIKey:    cfg.Panel.APIKey,
		SecretKey: cfg.Panel.SecretKey,
		Timeout:   cfg.Panel.Timeout,
		RateLimit: cfg.Panel.RateLimit,
		Burst:     cfg.Panel.Burst,
		Retry:     cfg.Panel.Retry,
		Logger:    logger,
	})
	a.requestPanel = a.panel.WithoutRetry()
	if !a.panel.Configured() {
		logger.Warn("panel api not configured, falling back to stored subscription data")
	}

	fetcher := subscription.NewFetcher(subscription.FetchOptions{
		ConnectTimeout: cfg.Fetch.ConnectTimeout,
		Timeout:        cfg.Fetch.Timeout,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
	})
	passthrough := subscription.NewFetcher(subscription.FetchOptions{
		ConnectTimeout: cfg.Passthrough.ConnectTimeout,
		Timeout:        cfg.Passthrough.Timeout,
		MaxBodyBytes:   cfg.Passthrough.MaxBodyBytes,
	})

	a.store = sqlite.NewStore(db)

	resolver := service.NewSubscriptionResolver(a.store.Subscriptions(), a.requestPanel, passthrough, service.ResolverOptions{
		PublicBaseURL:        cfg.Mobile.PublicBaseURL,
		LookupTimeout:        cfg.Panel.LookupTimeout,
		PassthroughUserAgent: cfg.Passthrough.UserAgent,
		Logger:               logger,
	})
	a.devAuth = service.NewDevAuthService(a.store.Users(), infra.Token, service.DevAuthOptions{
		Enabled:    cfg.Dev.Enabled,
		TelegramID: cfg.Dev.TelegramID,
		TTL:        cfg.Dev.TokenTTL,
		Logger:     logger,
	})

	a.services = api.Services{
		Auth:      service.NewAuthService(a.store.Users(), infra.Token),
		Resolver:  resolver,
		VPNConfig: service.NewVPNConfigService(resolver, fetcher, a.requestPanel, cfg.Fetch.UserAgent, logger),
		Catalog: service.NewCatalogService(a.store.ServerSquads(), a.store.PromoGroups(), a.requestPanel, service.CatalogOptions{
			ExpandedFallback: cfg.Servers.ExpandedFallback,
			FanoutLimit:      cfg.Servers.FanoutLimit,
			LookupTimeout:    cfg.Panel.LookupTimeout,
			Labels:           labels,
			Logger:           logger,
		}),
		Tariffs: service.NewTariffService(a.store.Tariffs(), a.store.PromoGroups(), a.store.Subscriptions(), service.TariffOptions{
			AvailablePeriods: cfg.Pricing.AvailablePeriods,
			Prices:           service.NewPriceFormatter(cfg.Pricing.Locale, cfg.Pricing.CurrencySymbol),
			Translator:       a.i18n,
			DefaultLanguage:  cfg.Mobile.DefaultLanguage,
			Logger:           logger,
		}),
		DevAuth: a.devAuth,
		I18n:    a.i18n,
	}
	if a.devAuth.Enabled() {
		logger.Warn("dev auth endpoint enabled, do not run this in production", "telegram_id", cfg.Dev.TelegramID)
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
