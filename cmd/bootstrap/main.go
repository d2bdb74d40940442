package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/friendcircle/internal/application"
	"github.com/eugenenazirov/friendcircle/internal/bootstrap"
	"github.com/eugenenazirov/friendcircle/internal/config"
	"github.com/eugenenazirov/friendcircle/internal/logging"
)

const (
	exitOK             = 0
	exitInitialization = 1
	exitConfiguration  = 2
)

var signalNotify = signal.Notify

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("friendcircle", "Friend Circle backend bootstrap - validates configuration and initializes the app and analytics handles")
	kingpinApp.UsageWriter(stderr)
	kingpinApp.ErrorWriter(stderr)
	kingpinApp.Terminate(nil)

	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a .env file seeding the environment").String()
	env := kingpinApp.Flag("env", "Deployment environment (development allows placeholder values)").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	otlpEndpoint := kingpinApp.Flag("otlp-endpoint", "OTLP gRPC collector endpoint for analytics export").String()
	secretProvider := kingpinApp.Flag("secrets-provider", "Secret store for backend fields (none, env, vault, aws)").String()

	serveCmd := kingpinApp.Command("serve", "Initialize the backend and expose the HTTP API").Default()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	checkCmd := kingpinApp.Command("check", "Validate configuration, initialize the backend, print a summary and exit")

	command, err := kingpinApp.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "friendcircle: %v\n", err)
		return exitConfiguration
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
	}
	if *env != "" {
		overrides.Env = env
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *otlpEndpoint != "" {
		overrides.OTLPEndpoint = otlpEndpoint
	}

	if *secretProvider != "" {
		overrides.SecretProvider = secretProvider
	}

	if *port != "" {
		overrides.Port = port
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return exitConfiguration
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitConfiguration
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	switch command {
	case checkCmd.FullCommand():
		return check(ctx, cfg, logger, stdout)
	case serveCmd.FullCommand():
		return serve(ctx, cfg, logger)
	}
	return exitConfiguration
}

func check(ctx context.Context, cfg config.Config, logger *zap.Logger, stdout io.Writer) int {
	loader, handles, err := application.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("backend bootstrap failed", zap.Error(err))
		return exitCode(err)
	}
	defer func() {
		if err := loader.Shutdown(ctx); err != nil {
			logger.Warn("releasing handles failed", zap.Error(err))
		}
	}()

	opts := handles.App.Options().Redacted()
	summary := checkSummary{
		App:               handles.App.Name(),
		InstanceID:        handles.App.InstanceID(),
		Platform:          opts.Platform(),
		APIKey:            opts.APIKey,
		AuthDomain:        opts.AuthDomain,
		ProjectID:         opts.ProjectID,
		StorageBucket:     opts.StorageBucket,
		MessagingSenderID: opts.MessagingSenderID,
		AppID:             opts.AppID,
		MeasurementID:     opts.MeasurementID,
		AnalyticsSession:  handles.Analytics.SessionID(),
		CollectionEnabled: handles.Analytics.CollectionEnabled(),
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.Error("failed to write summary", zap.Error(err))
		return exitInitialization
	}
	return exitOK
}

// checkSummary is printed by the check command. The API key is redacted.
type checkSummary struct {
	App               string `json:"app"`
	InstanceID        string `json:"instanceId"`
	Platform          string `json:"platform"`
	APIKey            string `json:"apiKey"`
	AuthDomain        string `json:"authDomain"`
	ProjectID         string `json:"projectId"`
	StorageBucket     string `json:"storageBucket"`
	MessagingSenderID string `json:"messagingSenderId"`
	AppID             string `json:"appId"`
	MeasurementID     string `json:"measurementId"`
	AnalyticsSession  string `json:"analyticsSession"`
	CollectionEnabled bool   `json:"collectionEnabled"`
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) int {
	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return exitCode(err)
	}

	if err := app.Start(); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return exitInitialization
	}

	shutdown(app, cfg.ShutdownGracePeriod, logger)
	return exitOK
}

// exitCode maps bootstrap failures to process exit codes.
func exitCode(err error) int {
	var cfgErr *bootstrap.ConfigurationError
	if errors.As(err, &cfgErr) {
		return exitConfiguration
	}
	return exitInitialization
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdown(app shutdowner, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
