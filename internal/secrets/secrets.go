// Package secrets resolves backend record fields from a secret store so that
// credentials such as the API key never live in config files.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eugenenazirov/friendcircle/internal/backend"
)

// Supported providers.
const (
	ProviderNone  = "none"
	ProviderEnv   = "env"
	ProviderVault = "vault"
	ProviderAWS   = "aws"
)

const (
	defaultEnvPrefix = "FIREBASE_SECRET_"
	defaultVaultPath = "secret/data/friendcircle"
	defaultAWSID     = "friendcircle/firebase"
	defaultTimeout   = 10 * time.Second
)

// ErrNotFound is returned when the store has no value for a key.
var ErrNotFound = errors.New("secret not found")

// Manager retrieves secrets by key.
type Manager interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

// Config selects and configures the secret provider.
type Config struct {
	Provider  string        `yaml:"provider"`
	EnvPrefix string        `yaml:"env_prefix"`
	Timeout   time.Duration `yaml:"-"`
	Vault     VaultConfig   `yaml:"vault"`
	AWS       AWSConfig     `yaml:"aws"`
}

// VaultConfig addresses a HashiCorp Vault secret.
type VaultConfig struct {
	Address string `yaml:"address"`
	Token   string `yaml:"-"`
	Path    string `yaml:"path"`
}

// AWSConfig addresses an AWS Secrets Manager secret holding a JSON object.
type AWSConfig struct {
	Region   string `yaml:"region"`
	SecretID string `yaml:"secret_id"`
}

// NewManager creates the manager for cfg.Provider. It returns a nil Manager
// for ProviderNone.
func NewManager(cfg Config) (Manager, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderEnv:
		return &EnvManager{Prefix: cfg.EnvPrefix}, nil
	case ProviderVault:
		return NewVaultManager(cfg.Vault, cfg.Timeout)
	case ProviderAWS:
		return NewAWSManager(cfg.AWS, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", cfg.Provider)
	}
}

// Apply overwrites every record field the store holds a value for and
// returns the names of the fields it set. Keys are the record field names
// (api_key, app_id, ...). Missing keys are skipped; any other store error
// aborts.
func Apply(ctx context.Context, m Manager, cfg *backend.Config) ([]string, error) {
	if m == nil {
		return nil, nil
	}

	var applied []string
	for _, f := range cfg.Fields() {
		value, err := m.GetSecret(ctx, f.Name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("load secret %s: %w", f.Name, err)
		}
		cfg.Set(f.Name, value)
		applied = append(applied, f.Name)
	}
	return applied, nil
}

// EnvManager reads secrets from environment variables named Prefix+KEY.
type EnvManager struct {
	Prefix string
}

// GetSecret implements Manager.
func (e *EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = defaultEnvPrefix
	}
	envKey := prefix + strings.ToUpper(key)
	value := strings.TrimSpace(os.Getenv(envKey))
	if value == "" {
		return "", fmt.Errorf("environment variable %s: %w", envKey, ErrNotFound)
	}
	return value, nil
}
