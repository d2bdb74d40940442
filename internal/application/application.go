package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/friendcircle/internal/analytics"
	"github.com/eugenenazirov/friendcircle/internal/api"
	"github.com/eugenenazirov/friendcircle/internal/bootstrap"
	"github.com/eugenenazirov/friendcircle/internal/config"
	"github.com/eugenenazirov/friendcircle/internal/secrets"
)

// App encapsulates the initialized handles and the HTTP server.
type App struct {
	loader  *bootstrap.Loader
	handles *bootstrap.Handles
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// Option configures New and Bootstrap.
type Option func(*options)

type options struct {
	sdk     bootstrap.SDK
	secrets secrets.Manager
}

// WithSDK replaces the production SDK, primarily for tests.
func WithSDK(sdk bootstrap.SDK) Option {
	return func(o *options) {
		o.sdk = sdk
	}
}

// WithSecretManager replaces the manager built from cfg.Secrets.
func WithSecretManager(m secrets.Manager) Option {
	return func(o *options) {
		o.secrets = m
	}
}

// Bootstrap resolves the backend record from cfg and the secret store, then
// initializes the handles. Errors from the loader are returned unwrapped so
// callers can match *bootstrap.ConfigurationError and
// *bootstrap.InitializationError.
func Bootstrap(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*bootstrap.Loader, *bootstrap.Handles, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	record := cfg.Firebase
	manager := o.secrets
	if manager == nil {
		m, err := secrets.NewManager(cfg.Secrets)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create secret manager: %w", err)
		}
		manager = m
	}
	applied, err := secrets.Apply(ctx, manager, &record)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("backend fields resolved from secret store",
			zap.String("provider", cfg.Secrets.Provider),
			zap.Strings("fields", applied),
		)
	}

	sdk := o.sdk
	if sdk == nil {
		sdk = bootstrap.NewSDK(analyticsSettings(cfg), logger)
	}

	loader := bootstrap.NewLoader(sdk, logger.Named("bootstrap"),
		bootstrap.WithAllowPlaceholders(cfg.AllowPlaceholders()),
	)
	handles, err := loader.Initialize(ctx, record)
	if err != nil {
		return nil, nil, err
	}
	return loader, handles, nil
}

// New initializes the handles and builds the HTTP server from the provided
// configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	loader, handles, err := Bootstrap(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(handles.App, handles.Analytics)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		loader:  loader,
		handles: handles,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, apiRouter),
	}, nil
}

func analyticsSettings(cfg config.Config) analytics.Settings {
	return analytics.Settings{
		ServiceName: cfg.Analytics.ServiceName,
		Provider: analytics.ProviderConfig{
			Endpoint:       cfg.Analytics.OTLPEndpoint,
			Insecure:       cfg.Analytics.OTLPInsecure,
			ExportInterval: cfg.Analytics.ExportInterval,
		},
		DisableCollection: !cfg.Analytics.CollectionEnabled,
	}
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handles returns the initialized app and analytics handles.
func (a *App) Handles() *bootstrap.Handles {
	return a.handles
}

// Router returns the API handler served by the server.
func (a *App) Router() http.Handler {
	return a.router
}

// Shutdown stops the HTTP server, then releases the handles. The server is
// closed forcibly if it does not drain before ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := a.server.Close(); closeErr != nil {
			errs = append(errs, fmt.Errorf("close server: %w", closeErr))
		}
	}
	if err := a.loader.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("release handles: %w", err))
	}
	return errors.Join(errs...)
}
