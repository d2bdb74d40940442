package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"github.com/eugenenazirov/friendcircle/internal/analytics"
	"github.com/eugenenazirov/friendcircle/internal/backend"
)

// SDK is the external collaborator the loader drives: one constructor for the
// application handle and one for the telemetry handle derived from it.
type SDK interface {
	CreateApp(ctx context.Context, cfg backend.Config) (*backend.App, error)
	CreateTelemetry(ctx context.Context, app *backend.App) (*analytics.Analytics, error)
}

// CloudSDK is the production SDK backed by the backend and analytics packages.
type CloudSDK struct {
	appOptions []backend.AppOption
	settings   analytics.Settings
	logger     *zap.Logger
}

// NewSDK returns the production SDK. settings configure every telemetry
// handle it creates.
func NewSDK(settings analytics.Settings, logger *zap.Logger, appOptions ...backend.AppOption) *CloudSDK {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudSDK{
		appOptions: appOptions,
		settings:   settings,
		logger:     logger,
	}
}

// CreateApp implements SDK.
func (s *CloudSDK) CreateApp(ctx context.Context, cfg backend.Config) (*backend.App, error) {
	return backend.NewApp(ctx, cfg, s.appOptions...)
}

// CreateTelemetry implements SDK.
func (s *CloudSDK) CreateTelemetry(ctx context.Context, app *backend.App) (*analytics.Analytics, error) {
	return analytics.New(ctx, app, s.settings, analytics.WithLogger(s.logger.Named("analytics")))
}
