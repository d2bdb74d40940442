package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/friendcircle/internal/application"
	"github.com/eugenenazirov/friendcircle/internal/backend"
	"github.com/eugenenazirov/friendcircle/internal/config"
	"github.com/eugenenazirov/friendcircle/internal/secrets"
)

func newApplication(t *testing.T) *application.App {
	t.Helper()

	t.Setenv("FIREBASE_SECRET_API_KEY", "AIzaSyD-integration")
	cfg := config.Config{
		Env: config.EnvProduction,
		Firebase: backend.Config{
			AuthDomain:        "x.firebaseapp.com",
			ProjectID:         "x",
			StorageBucket:     "x.appspot.com",
			MessagingSenderID: "123",
			AppID:             "1:123:web:abc",
			MeasurementID:     "G-ABC",
		},
		Analytics: config.AnalyticsConfig{
			ExportInterval:    time.Second,
			CollectionEnabled: true,
		},
		Secrets:        secrets.Config{Provider: secrets.ProviderEnv},
		Port:           "0",
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}

	app, err := application.New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("application.New returned error: %v", err)
	}
	return app
}

func performRequest(t *testing.T, client *http.Client, method, target string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestIntegrationFlow(t *testing.T) {
	app := newApplication(t)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()
	client := srv.Client()

	resp := performRequest(t, client, http.MethodGet, srv.URL+"/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", resp.StatusCode)
	}

	resp = performRequest(t, client, http.MethodGet, srv.URL+"/api/app", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from app, got %d", resp.StatusCode)
	}
	var appInfo struct {
		ProjectID string `json:"projectId"`
		APIKey    string `json:"apiKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&appInfo); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if appInfo.ProjectID != "x" || appInfo.APIKey != "" {
		t.Fatalf("unexpected app info %+v", appInfo)
	}
	if got := app.Handles().App.Options().APIKey; got != "AIzaSyD-integration" {
		t.Fatalf("expected API key from secret store, got %q", got)
	}

	event, _ := json.Marshal(map[string]any{"name": "circle_created", "params": map[string]any{"members": 3}})
	resp = performRequest(t, client, http.MethodPost, srv.URL+"/api/events", event)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 from events, got %d", resp.StatusCode)
	}

	toggle, _ := json.Marshal(map[string]bool{"enabled": false})
	resp = performRequest(t, client, http.MethodPut, srv.URL+"/api/analytics/collection", toggle)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from collection toggle, got %d", resp.StatusCode)
	}

	resp = performRequest(t, client, http.MethodPost, srv.URL+"/api/events", event)
	var accepted struct {
		Recorded bool `json:"recorded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted || accepted.Recorded {
		t.Fatalf("expected event to be accepted but not recorded, got %d %+v", resp.StatusCode, accepted)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	resp = performRequest(t, client, http.MethodGet, srv.URL+"/api/health", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown, got %d", resp.StatusCode)
	}
}
