package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultAppName is the name given to an App created without WithName.
const DefaultAppName = "[DEFAULT]"

// App is an initialized handle scoping all further calls to one backend
// project. It is safe for concurrent use.
type App struct {
	name       string
	options    Config
	instanceID string
	createdAt  time.Time

	mu       sync.Mutex
	deleted  bool
	cleanups []func(context.Context) error
}

// AppOption configures NewApp.
type AppOption func(*appSettings)

type appSettings struct {
	name  string
	clock func() time.Time
}

// WithName overrides the app name.
func WithName(name string) AppOption {
	return func(s *appSettings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) AppOption {
	return func(s *appSettings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewApp validates cfg against the backend's identifier rules and returns a
// handle bound to it. The returned error wraps an *OptionError when a field
// is malformed.
func NewApp(ctx context.Context, cfg Config, opts ...AppOption) (*App, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings := appSettings{
		name: DefaultAppName,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	if err := CheckOptions(cfg); err != nil {
		return nil, err
	}

	return &App{
		name:       settings.name,
		options:    cfg,
		instanceID: uuid.NewString(),
		createdAt:  settings.clock(),
	}, nil
}

// Name returns the app name.
func (a *App) Name() string {
	return a.name
}

// Options returns a copy of the record the app was created from.
func (a *App) Options() Config {
	return a.options
}

// InstanceID identifies this process-local instance of the app.
func (a *App) InstanceID() string {
	return a.instanceID
}

// CreatedAt reports when the app was created.
func (a *App) CreatedAt() time.Time {
	return a.createdAt
}

// Deleted reports whether Delete has been called.
func (a *App) Deleted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deleted
}

// OnDelete registers fn to run when the app is deleted. Services scoped to
// the app use it to release their resources. Hooks run in reverse
// registration order.
func (a *App) OnDelete(fn func(context.Context) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.deleted {
		return ErrAppDeleted
	}
	a.cleanups = append(a.cleanups, fn)
	return nil
}

// Delete releases the app and every service registered through OnDelete.
// Calling it again returns ErrAppDeleted.
func (a *App) Delete(ctx context.Context) error {
	a.mu.Lock()
	if a.deleted {
		a.mu.Unlock()
		return ErrAppDeleted
	}
	a.deleted = true
	cleanups := a.cleanups
	a.cleanups = nil
	a.mu.Unlock()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
