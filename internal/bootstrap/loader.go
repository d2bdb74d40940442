package bootstrap

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eugenenazirov/friendcircle/internal/analytics"
	"github.com/eugenenazirov/friendcircle/internal/backend"
)

// Handles is the initialized pair owned by the composition root.
type Handles struct {
	App       *backend.App
	Analytics *analytics.Analytics
}

type state int

const (
	stateUninitialized state = iota
	stateInitialized
	stateShutdown
)

// Option configures a Loader.
type Option func(*Loader)

// WithAllowPlaceholders downgrades placeholder values from a configuration
// error to a logged warning. Intended for local development only.
func WithAllowPlaceholders(allow bool) Option {
	return func(l *Loader) {
		l.allowPlaceholders = allow
	}
}

// Loader constructs the application and telemetry handles exactly once.
// A failed Initialize leaves it uninitialized; a successful one makes every
// later Initialize fail with ErrAlreadyInitialized.
type Loader struct {
	sdk               SDK
	logger            *zap.Logger
	validate          *validator.Validate
	allowPlaceholders bool

	mu      sync.Mutex
	state   state
	handles *Handles
}

// NewLoader returns a Loader that drives sdk.
func NewLoader(sdk SDK, logger *zap.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		sdk:      sdk,
		logger:   logger,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize validates cfg, then creates the app and the telemetry handle
// scoped to it. Validation failures return *ConfigurationError before the SDK
// is called; SDK failures return *InitializationError.
func (l *Loader) Initialize(ctx context.Context, cfg backend.Config) (*Handles, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateInitialized:
		return nil, ErrAlreadyInitialized
	case stateShutdown:
		return nil, ErrShutdown
	}

	if err := l.check(cfg); err != nil {
		l.logger.Error("backend configuration rejected",
			zap.Strings("fields", err.FieldNames()),
			zap.Error(err),
		)
		return nil, err
	}

	app, err := l.sdk.CreateApp(ctx, cfg)
	if err == nil && app == nil {
		err = errors.New("sdk returned no app")
	}
	if err != nil {
		l.logger.Error("app initialization failed", zap.Error(err))
		return nil, &InitializationError{Stage: StageApp, Err: err}
	}

	telemetry, err := l.sdk.CreateTelemetry(ctx, app)
	if err == nil && telemetry == nil {
		err = errors.New("sdk returned no telemetry handle")
	}
	if err != nil {
		l.logger.Error("telemetry initialization failed", zap.Error(err))
		if delErr := app.Delete(ctx); delErr != nil {
			l.logger.Warn("releasing app after failed telemetry init", zap.Error(delErr))
		}
		return nil, &InitializationError{Stage: StageTelemetry, Err: err}
	}

	l.handles = &Handles{App: app, Analytics: telemetry}
	l.state = stateInitialized

	opts := app.Options()
	l.logger.Info("backend initialized",
		zap.String("app", app.Name()),
		zap.String("project_id", opts.ProjectID),
		zap.String("app_id", opts.AppID),
		zap.String("platform", opts.Platform()),
		zap.String("instance_id", app.InstanceID()),
		zap.String("analytics_session", telemetry.SessionID()),
	)

	return l.handles, nil
}

// check runs the fail-fast validation and returns nil when cfg is usable.
func (l *Loader) check(cfg backend.Config) *ConfigurationError {
	fields := missingFields(l.validate, cfg)

	for _, fe := range placeholderFields(cfg) {
		if l.allowPlaceholders {
			l.logger.Warn("backend configuration holds a placeholder value", zap.String("field", fe.Field))
			continue
		}
		fields = append(fields, fe)
	}

	if len(fields) == 0 {
		return nil
	}
	return &ConfigurationError{Fields: fields}
}

// Handles returns the initialized pair.
func (l *Loader) Handles() (*Handles, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateInitialized:
		return l.handles, nil
	case stateShutdown:
		return nil, ErrShutdown
	default:
		return nil, ErrNotInitialized
	}
}

// Shutdown tears down the telemetry handle, then the app. The loader cannot
// be initialized again afterwards. Repeated calls return nil.
func (l *Loader) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.state
	l.state = stateShutdown
	if prev != stateInitialized {
		return nil
	}

	h := l.handles
	l.handles = nil

	var errs []error
	if err := h.Analytics.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := h.App.Delete(ctx); err != nil && !errors.Is(err, backend.ErrAppDeleted) {
		errs = append(errs, err)
	}
	l.logger.Info("backend handles released", zap.String("app", h.App.Name()))
	return errors.Join(errs...)
}
