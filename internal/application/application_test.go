package application

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/friendcircle/internal/analytics"
	"github.com/eugenenazirov/friendcircle/internal/backend"
	"github.com/eugenenazirov/friendcircle/internal/bootstrap"
	"github.com/eugenenazirov/friendcircle/internal/config"
	"github.com/eugenenazirov/friendcircle/internal/secrets"
)

type staticSecrets map[string]string

func (s staticSecrets) GetSecret(_ context.Context, key string) (string, error) {
	if v, ok := s[key]; ok {
		return v, nil
	}
	return "", secrets.ErrNotFound
}

type failingSDK struct{}

func (failingSDK) CreateApp(context.Context, backend.Config) (*backend.App, error) {
	return nil, errors.New("backend unreachable")
}

func (failingSDK) CreateTelemetry(context.Context, *backend.App) (*analytics.Analytics, error) {
	return nil, errors.New("unreachable")
}

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	logger := zaptest.NewLogger(t)

	app, err := New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = app.loader.Shutdown(context.Background()) })

	handles := app.Handles()
	if handles == nil || handles.App == nil || handles.Analytics == nil {
		t.Fatalf("expected both handles, got %+v", handles)
	}
	if handles.Analytics.App() != handles.App {
		t.Fatalf("analytics must be scoped to the created app")
	}
	if handles.Analytics.CollectionEnabled() {
		t.Fatalf("expected collection disabled from config")
	}
	if app.server == nil || app.router == nil || app.handler == nil {
		t.Fatalf("expected server, router, and handler to be initialized")
	}
	if app.Server() != app.server || app.Router() != app.router {
		t.Fatalf("accessors did not return underlying instances")
	}

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/app", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /api/app, got %d", rec.Code)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsConfigurationError(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Firebase.APIKey = ""

	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	var cfgErr *bootstrap.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if names := cfgErr.FieldNames(); len(names) != 1 || names[0] != backend.FieldAPIKey {
		t.Fatalf("unexpected fields: %v", names)
	}
}

func TestNewReturnsInitializationError(t *testing.T) {
	_, err := New(context.Background(), baseTestConfig(":0"), zaptest.NewLogger(t), WithSDK(failingSDK{}))

	var initErr *bootstrap.InitializationError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitializationError, got %v", err)
	}
	if initErr.Stage != bootstrap.StageApp {
		t.Fatalf("unexpected stage %q", initErr.Stage)
	}
}

func TestBootstrapAppliesSecrets(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Firebase.APIKey = ""

	loader, handles, err := Bootstrap(context.Background(), cfg, zaptest.NewLogger(t),
		WithSecretManager(staticSecrets{backend.FieldAPIKey: "AIza-from-vault"}),
	)
	if err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	t.Cleanup(func() { _ = loader.Shutdown(context.Background()) })

	if got := handles.App.Options().APIKey; got != "AIza-from-vault" {
		t.Fatalf("expected secret-store API key, got %q", got)
	}
}

func TestBootstrapPlaceholdersFollowEnvironment(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Firebase.APIKey = "YOUR_API_KEY_HERE"

	_, _, err := Bootstrap(context.Background(), cfg, zaptest.NewLogger(t))
	if !errors.Is(err, bootstrap.ErrPlaceholderValue) {
		t.Fatalf("expected placeholder rejection in production, got %v", err)
	}

	cfg.Env = config.EnvDevelopment
	loader, _, err := Bootstrap(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("expected placeholders to be tolerated in development: %v", err)
	}
	_ = loader.Shutdown(context.Background())
}

func TestBootstrapUnknownSecretProvider(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Secrets.Provider = "gcp"

	if _, _, err := Bootstrap(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for unknown secret provider")
	}
}

func TestShutdownReleasesHandles(t *testing.T) {
	app, err := New(context.Background(), baseTestConfig(":0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	handles := app.Handles()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	if !handles.App.Deleted() {
		t.Fatalf("expected app to be deleted")
	}
	if err := handles.Analytics.LogEvent(ctx, "late_event", nil); !errors.Is(err, analytics.ErrClosed) {
		t.Fatalf("expected ErrClosed after shutdown, got %v", err)
	}
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown returned error: %v", err)
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Env: config.EnvProduction,
		Firebase: backend.Config{
			APIKey:            "AIzaSyD-test-key",
			AuthDomain:        "x.firebaseapp.com",
			ProjectID:         "x",
			StorageBucket:     "x.appspot.com",
			MessagingSenderID: "123",
			AppID:             "1:123:web:abc",
			MeasurementID:     "G-ABC",
		},
		Analytics: config.AnalyticsConfig{
			ExportInterval:    time.Second,
			CollectionEnabled: false,
		},
		Secrets:              secrets.Config{Provider: secrets.ProviderNone},
		Port:                 port,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
	}
}
