package analytics

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.uber.org/zap"

	"github.com/eugenenazirov/friendcircle/internal/backend"
)

const instrumentationName = "github.com/eugenenazirov/friendcircle/analytics"

// RecordEmitter is the part of an OpenTelemetry logger the handle needs.
type RecordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// Settings configures a new Analytics handle.
type Settings struct {
	// ServiceName is reported as service.name; defaults to the project ID.
	ServiceName string
	// Provider selects where telemetry is exported.
	Provider ProviderConfig
	// DisableCollection starts the handle with collection turned off.
	DisableCollection bool
}

// Option configures New.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	emitter RecordEmitter
	clock   func() time.Time
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecordEmitter replaces the provider-backed logger, primarily for tests.
func WithRecordEmitter(e RecordEmitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// Analytics is the telemetry handle for one App. It is safe for concurrent use.
type Analytics struct {
	app       *backend.App
	sessionID string
	providers *Providers
	emitter   RecordEmitter
	logger    *zap.Logger
	clock     func() time.Time

	events  metric.Int64Counter
	dropped metric.Int64Counter

	enabled atomic.Bool

	mu         sync.RWMutex
	closed     bool
	userID     string
	properties map[string]string
}

// New creates the telemetry handle scoped to app and registers it for
// teardown when app is deleted.
func New(ctx context.Context, app *backend.App, settings Settings, opts ...Option) (*Analytics, error) {
	if app == nil {
		return nil, ErrNoApp
	}
	if app.Deleted() {
		return nil, backend.ErrAppDeleted
	}
	appOpts := app.Options()
	if appOpts.MeasurementID == "" {
		return nil, ErrMissingMeasurementID
	}

	o := options{
		logger: zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	serviceName := settings.ServiceName
	if serviceName == "" {
		serviceName = appOpts.ProjectID
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceInstanceIDKey.String(app.InstanceID()),
		attribute.String("app.name", app.Name()),
		attribute.String("app.id", appOpts.AppID),
		attribute.String("app.project_id", appOpts.ProjectID),
		attribute.String("app.measurement_id", appOpts.MeasurementID),
	)

	providers, err := NewProviders(ctx, settings.Provider, res)
	if err != nil {
		return nil, err
	}

	meter := providers.MeterProvider.Meter(instrumentationName)
	events, err := meter.Int64Counter("analytics.events",
		metric.WithDescription("Analytics events logged"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	dropped, err := meter.Int64Counter("analytics.events.dropped",
		metric.WithDescription("Analytics events dropped while collection was disabled"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("create dropped counter: %w", err)
	}

	emitter := o.emitter
	if emitter == nil {
		emitter = providers.LoggerProvider.Logger(instrumentationName)
	}

	a := &Analytics{
		app:        app,
		sessionID:  uuid.NewString(),
		providers:  providers,
		emitter:    emitter,
		logger:     o.logger,
		clock:      o.clock,
		events:     events,
		dropped:    dropped,
		properties: make(map[string]string),
	}
	a.enabled.Store(!settings.DisableCollection)

	if err := app.OnDelete(a.Shutdown); err != nil {
		_ = providers.Shutdown(ctx)
		return nil, err
	}

	a.logger.Debug("analytics initialized",
		zap.String("app", app.Name()),
		zap.String("measurement_id", appOpts.MeasurementID),
		zap.String("session_id", a.sessionID),
		zap.Bool("collection_enabled", a.enabled.Load()),
	)
	return a, nil
}

// App returns the App this handle is scoped to.
func (a *Analytics) App() *backend.App {
	return a.app
}

// SessionID identifies the analytics session of this handle.
func (a *Analytics) SessionID() string {
	return a.sessionID
}

// Providers exposes the underlying OpenTelemetry providers.
func (a *Analytics) Providers() *Providers {
	return a.providers
}

// CollectionEnabled reports whether events are currently recorded.
func (a *Analytics) CollectionEnabled() bool {
	return a.enabled.Load()
}

// SetCollectionEnabled turns event collection on or off. Events logged while
// collection is off are counted as dropped and discarded.
func (a *Analytics) SetCollectionEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.logger.Info("analytics collection changed", zap.Bool("enabled", enabled))
}

// SetUserID associates subsequent events with id. An empty id clears it.
func (a *Analytics) SetUserID(id string) error {
	if len(id) > maxUserIDLength {
		return fmt.Errorf("%w: user ID longer than %d characters", ErrInvalidUserProperty, maxUserIDLength)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.userID = id
	return nil
}

// SetUserProperty attaches a property to subsequent events. An empty value
// removes the property.
func (a *Analytics) SetUserProperty(name, value string) error {
	if err := validateName(name, maxUserPropertyName); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUserProperty, err)
	}
	if len(value) > maxUserPropertyValue {
		return fmt.Errorf("%w: %s value longer than %d characters", ErrInvalidUserProperty, name, maxUserPropertyValue)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if value == "" {
		delete(a.properties, name)
		return nil
	}
	a.properties[name] = value
	return nil
}

// UserProperties returns a copy of the current user properties.
func (a *Analytics) UserProperties() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.properties)
}

// LogEvent records a named event with optional parameters. Parameter values
// must be strings, integers, float64 or bools.
func (a *Analytics) LogEvent(ctx context.Context, name string, params map[string]any) error {
	if err := validateName(name, maxEventNameLength); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEventName, err)
	}
	attrs, err := paramAttributes(params)
	if err != nil {
		return err
	}

	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	userID := a.userID
	props := maps.Clone(a.properties)
	a.mu.RUnlock()

	eventAttr := metric.WithAttributes(attribute.String("event.name", name))
	if !a.enabled.Load() {
		a.dropped.Add(ctx, 1, eventAttr)
		a.logger.Debug("analytics event dropped", zap.String("event", name))
		return nil
	}

	var rec otellog.Record
	rec.SetTimestamp(a.clock())
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(name))
	rec.AddAttributes(
		otellog.String("event.name", name),
		otellog.String("session.id", a.sessionID),
		otellog.String("app.measurement_id", a.app.Options().MeasurementID),
	)
	if userID != "" {
		rec.AddAttributes(otellog.String("user.id", userID))
	}
	for k, v := range props {
		rec.AddAttributes(otellog.String(propertyAttributePrefix+k, v))
	}
	rec.AddAttributes(attrs...)

	a.emitter.Emit(ctx, rec)
	a.events.Add(ctx, 1, eventAttr)
	return nil
}

// Shutdown flushes and stops the telemetry providers. It is idempotent and
// is also invoked when the owning App is deleted.
func (a *Analytics) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.logger.Debug("analytics shutting down", zap.String("session_id", a.sessionID))
	return a.providers.Shutdown(ctx)
}
