package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eugenenazirov/friendcircle/internal/bootstrap"
)

var scenarioEnv = map[string]string{
	"FIREBASE_API_KEY":             "AIzaSyD-test-key",
	"FIREBASE_AUTH_DOMAIN":         "x.firebaseapp.com",
	"FIREBASE_PROJECT_ID":          "x",
	"FIREBASE_STORAGE_BUCKET":      "x.appspot.com",
	"FIREBASE_MESSAGING_SENDER_ID": "123",
	"FIREBASE_APP_ID":              "1:123:web:abc",
	"FIREBASE_MEASUREMENT_ID":      "G-ABC",
}

func setScenarioEnv(t *testing.T, overrides map[string]string) {
	t.Helper()
	for _, key := range []string{"APP_ENV", "SECRETS_PROVIDER", "OTEL_EXPORTER_OTLP_ENDPOINT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	for k, v := range scenarioEnv {
		t.Setenv(k, v)
	}
	for k, v := range overrides {
		t.Setenv(k, v)
	}
}

func TestCheckPrintsRedactedSummary(t *testing.T) {
	setScenarioEnv(t, nil)

	var stdout, stderr bytes.Buffer
	code := run([]string{"check", "--log-level", "error"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr.String())
	}

	if strings.Contains(stdout.String(), scenarioEnv["FIREBASE_API_KEY"]) {
		t.Fatalf("summary leaked the API key: %s", stdout.String())
	}

	var summary checkSummary
	if err := json.Unmarshal(stdout.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.App != "[DEFAULT]" || summary.ProjectID != "x" || summary.Platform != "web" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.AnalyticsSession == "" || summary.InstanceID == "" {
		t.Fatalf("expected handle identifiers in summary: %+v", summary)
	}
}

func TestCheckExitCodes(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want int
	}{
		{"missing api key", map[string]string{"FIREBASE_API_KEY": ""}, nil, exitConfiguration},
		{"placeholder in production", map[string]string{"FIREBASE_MEASUREMENT_ID": "G-XXXXXXXXXX"}, nil, exitConfiguration},
		{"placeholder in development", map[string]string{"FIREBASE_API_KEY": "YOUR_API_KEY_HERE"}, []string{"--env", "development"}, exitOK},
		{"sdk rejects app id", map[string]string{"FIREBASE_APP_ID": "1:999:web:abc"}, nil, exitInitialization},
		{"bad log level", nil, []string{"--log-level", "loud"}, exitConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setScenarioEnv(t, tt.env)

			args := append([]string{"check"}, tt.args...)
			var stdout, stderr bytes.Buffer
			if got := run(args, &stdout, &stderr); got != tt.want {
				t.Fatalf("expected exit %d, got %d (stderr: %s)", tt.want, got, stderr.String())
			}
		})
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	setScenarioEnv(t, nil)

	var stdout, stderr bytes.Buffer
	if got := run([]string{"frobnicate"}, &stdout, &stderr); got != exitConfiguration {
		t.Fatalf("expected exit %d for unknown command, got %d", exitConfiguration, got)
	}

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if got := run([]string{"check", "--config", missing}, &stdout, &stderr); got != exitConfiguration {
		t.Fatalf("expected exit %d for missing config file, got %d", exitConfiguration, got)
	}
}

func TestCheckReadsYAMLConfig(t *testing.T) {
	setScenarioEnv(t, map[string]string{"FIREBASE_PROJECT_ID": ""})

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("firebase:\n  project_id: from-yaml\nlog_level: error\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if got := run([]string{"--config", path, "check"}, &stdout, &stderr); got != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", got, stderr.String())
	}
	var summary checkSummary
	if err := json.Unmarshal(stdout.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.ProjectID != "from-yaml" {
		t.Fatalf("expected YAML project id, got %q", summary.ProjectID)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(&bootstrap.ConfigurationError{}); got != exitConfiguration {
		t.Fatalf("expected %d, got %d", exitConfiguration, got)
	}
	if got := exitCode(&bootstrap.InitializationError{Stage: bootstrap.StageApp, Err: errors.New("x")}); got != exitInitialization {
		t.Fatalf("expected %d, got %d", exitInitialization, got)
	}
	if got := exitCode(errors.New("vault down")); got != exitInitialization {
		t.Fatalf("expected %d, got %d", exitInitialization, got)
	}
}
