package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const defaultExportInterval = 10 * time.Second

// Providers holds the OpenTelemetry providers backing one Analytics handle.
type Providers struct {
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// ProviderConfig selects where telemetry is exported.
type ProviderConfig struct {
	// Endpoint is the OTLP gRPC collector, as host:port or URL. Empty keeps
	// telemetry in-process.
	Endpoint string
	// Insecure disables TLS even for https endpoints.
	Insecure bool
	// ExportInterval is the metric push period.
	ExportInterval time.Duration
	// Readers are attached to the MeterProvider in addition to the exporter.
	Readers []sdkmetric.Reader
}

// NewProviders builds a MeterProvider and LoggerProvider for res. Only host:port
// of the endpoint is used for the gRPC dial; https endpoints use TLS unless
// Insecure is set.
func NewProviders(ctx context.Context, cfg ProviderConfig, res *resource.Resource) (*Providers, error) {
	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range cfg.Readers {
		metricOpts = append(metricOpts, sdkmetric.WithReader(r))
	}
	logOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return newProviders(metricOpts, logOpts), nil
	}

	target, insecure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	insecure = insecure || cfg.Insecure

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}

	metricExpOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if insecure {
		metricExpOpts = append(metricExpOpts, otlpmetricgrpc.WithInsecure())
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricExpOpts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	metricOpts = append(metricOpts, sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(interval)),
	))

	logExpOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if insecure {
		logExpOpts = append(logExpOpts, otlploggrpc.WithInsecure())
	}
	logExp, err := otlploggrpc.New(ctx, logExpOpts...)
	if err != nil {
		_ = metricExp.Shutdown(ctx)
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	logOpts = append(logOpts, sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)))

	return newProviders(metricOpts, logOpts), nil
}

func newProviders(metricOpts []sdkmetric.Option, logOpts []sdklog.LoggerProviderOption) *Providers {
	mp := sdkmetric.NewMeterProvider(metricOpts...)
	lp := sdklog.NewLoggerProvider(logOpts...)

	return &Providers{
		MeterProvider:  mp,
		LoggerProvider: lp,
		Shutdown: func(ctx context.Context) error {
			// Logs first so the final batch is flushed before metrics stop.
			return errors.Join(lp.Shutdown(ctx), mp.Shutdown(ctx))
		},
	}
}

// parseEndpoint normalizes endpoint to host:port and reports whether the
// scheme implies plaintext.
func parseEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "https", nil
}
