package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DBSecret is the JSON shape of an RDS-managed credentials secret
type DBSecret struct {
	Host     string   `json:"host"`
	Port     PortType `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Database string   `json:"dbname"`
}

// PortType accepts a port encoded as either a JSON number or string
type PortType int

func (p *PortType) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = PortType(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("port must be a string or integer, got: %s", string(data))
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("port string %q is not a valid integer: %w", s, err)
	}
	*p = PortType(n)
	return nil
}

// SecretGetter is the Secrets Manager call used to load credentials
type SecretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadConfigFromSecretsManager fetches database credentials using the
// default AWS credential chain. base supplies SSLMode and MaxConns.
func LoadConfigFromSecretsManager(ctx context.Context, secretName string, base *Config) (*Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return LoadConfigFromSecret(ctx, secretsmanager.NewFromConfig(awsCfg), secretName, base)
}

// LoadConfigFromSecret resolves secretName through client and merges it over base
func LoadConfigFromSecret(ctx context.Context, client SecretGetter, secretName string, base *Config) (*Config, error) {
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve secret %s: %w", secretName, err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", secretName)
	}

	var secret DBSecret
	if err := json.Unmarshal([]byte(*result.SecretString), &secret); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	cfg := &Config{
		Host:     secret.Host,
		Port:     strconv.Itoa(int(secret.Port)),
		User:     secret.Username,
		Password: secret.Password,
		Database: secret.Database,
	}
	if base != nil {
		cfg.SSLMode = base.SSLMode
		cfg.MaxConns = base.MaxConns
		if cfg.Database == "" {
			cfg.Database = base.Database
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	return cfg, nil
}
