package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
)

// AWSManager retrieves secrets from one AWS Secrets Manager secret whose
// SecretString is a flat JSON object. The secret is fetched until one call
// succeeds and cached from then on.
type AWSManager struct {
	client   secretsmanageriface.SecretsManagerAPI
	secretID string
	timeout  time.Duration

	mu   sync.Mutex
	data map[string]string
}

// NewAWSManager creates a manager using the default AWS credential chain.
func NewAWSManager(cfg AWSConfig, timeout time.Duration) (*AWSManager, error) {
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewAWSManagerWithClient(secretsmanager.New(sess), cfg.SecretID, timeout), nil
}

// NewAWSManagerWithClient wraps an existing Secrets Manager client.
func NewAWSManagerWithClient(client secretsmanageriface.SecretsManagerAPI, secretID string, timeout time.Duration) *AWSManager {
	if secretID == "" {
		secretID = defaultAWSID
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &AWSManager{client: client, secretID: secretID, timeout: timeout}
}

// GetSecret implements Manager.
func (a *AWSManager) GetSecret(ctx context.Context, key string) (string, error) {
	data, err := a.load(ctx)
	if err != nil {
		return "", err
	}

	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %s in AWS secret %s: %w", key, a.secretID, ErrNotFound)
	}
	return value, nil
}

func (a *AWSManager) load(ctx context.Context) (map[string]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data != nil {
		return a.data, nil
	}
	data, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	a.data = data
	return data, nil
}

func (a *AWSManager) fetch(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret from AWS: %w", err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("AWS secret %s has no string value", a.secretID)
	}

	var data map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &data); err != nil {
		return nil, fmt.Errorf("failed to parse AWS secret JSON: %w", err)
	}
	return data, nil
}
