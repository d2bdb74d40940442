// Package config loads runtime configuration from multiple sources (a .env
// file, environment variables, YAML files, CLI flags) with precedence: CLI
// flags > YAML config > Environment variables > Defaults. It carries the
// backend record together with telemetry, secret-store and HTTP settings.
package config
