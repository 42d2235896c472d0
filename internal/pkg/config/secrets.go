// internal/pkg/config/secrets.go
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretSource resolves sensitive configuration values at startup.
type SecretSource interface {
	Fetch(ctx context.Context) (map[string]string, error)
}

// AWSSecretsManager reads a single JSON secret holding key/value pairs.
type AWSSecretsManager struct {
	client     *secretsmanager.Client
	secretName string
	logger     *slog.Logger
}

func NewAWSSecretsManager(region, secretName string, logger *slog.Logger) (*AWSSecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSecretsManager{
		client:     secretsmanager.NewFromConfig(cfg),
		secretName: secretName,
		logger:     logger,
	}, nil
}

func (sm *AWSSecretsManager) Fetch(ctx context.Context) (map[string]string, error) {
	sm.logger.Info("fetching secrets from AWS Secrets Manager",
		slog.String("secret_name", sm.secretName))

	out, err := sm.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(sm.secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret value: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}
	return values, nil
}

// ApplySecrets overlays secret-managed values onto the config. Called once
// during startup when AWS.UseSecrets is set.
func (c *Config) ApplySecrets(ctx context.Context, src SecretSource) error {
	values, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("resolving secrets: %w", err)
	}

	if v, ok := values["DB_PASSWORD"]; ok {
		c.Database.Password = v
	}
	if v, ok := values["REDIS_PASSWORD"]; ok {
		c.Redis.Password = v
	}
	return nil
}
