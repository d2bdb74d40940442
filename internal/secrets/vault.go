package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultManager retrieves secrets from one HashiCorp Vault path. Both KV v1
// and KV v2 (nested "data") layouts are understood. A successful read is
// reused for every key; a failed read is retried on the next call.
type VaultManager struct {
	client *api.Client
	path   string

	mu   sync.Mutex
	data map[string]any
}

// NewVaultManager creates a Vault-backed manager. When cfg.Token is empty the
// VAULT_TOKEN environment variable is used.
func NewVaultManager(cfg VaultConfig, timeout time.Duration) (*VaultManager, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client, err := api.NewClient(&api.Config{
		Address: cfg.Address,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	token := cfg.Token
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}
	if token != "" {
		client.SetToken(token)
	}

	path := cfg.Path
	if path == "" {
		path = defaultVaultPath
	}

	return &VaultManager{client: client, path: path}, nil
}

// GetSecret implements Manager.
func (v *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	data, err := v.load(ctx)
	if err != nil {
		return "", err
	}

	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %s in Vault path %s: %w", key, v.path, ErrNotFound)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key %s is not a string", key)
	}
	return s, nil
}

func (v *VaultManager) load(ctx context.Context) (map[string]any, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.data != nil {
		return v.data, nil
	}
	data, err := v.read(ctx)
	if err != nil {
		return nil, err
	}
	v.data = data
	return data, nil
}

func (v *VaultManager) read(ctx context.Context) (map[string]any, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path %s", v.path)
	}
	if nested, ok := secret.Data["data"].(map[string]any); ok {
		return nested, nil
	}
	return secret.Data, nil
}
