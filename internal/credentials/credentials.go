// Package credentials resolves the PostgreSQL connection string from an
// explicit DSN, a local TOML secrets file or an AWS Secrets Manager secret.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
)

const (
	DefaultSecretName = "rds-secret"
	DefaultRegion     = "us-east-1"
	defaultPort       = 5432
)

var (
	// ErrIncompleteCredentials is returned when a secret lacks a required key.
	ErrIncompleteCredentials = errors.New("incomplete database credentials")
	// ErrNoCredentials is returned when no credential source is configured.
	ErrNoCredentials = errors.New("no database credentials configured")
)

// Source names where the DSN came from.
type Source string

const (
	SourceDSN     Source = "dsn"
	SourceFile    Source = "secrets-file"
	SourceSecrets Source = "secrets-manager"
)

// Options selects the credential sources. Empty fields are skipped, except
// that a secret name alone is enough to reach Secrets Manager.
type Options struct {
	DSN         string
	SecretsFile string
	SecretName  string
	Region      string
}

// SecretsClient is the part of the Secrets Manager API Resolve uses.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver resolves a DSN. NewClient is only called when the secret store is
// consulted.
type Resolver struct {
	Log       zerolog.Logger
	NewClient func(ctx context.Context, region string) (SecretsClient, error)
}

// NewResolver returns a Resolver backed by the default AWS credential chain.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{Log: log, NewClient: newAWSClient}
}

func newAWSClient(ctx context.Context, region string) (SecretsClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// Resolve applies the precedence DSN, secrets file, Secrets Manager and
// returns the first source that is configured. A configured source that
// fails is an error; later sources are not tried.
func (r *Resolver) Resolve(ctx context.Context, opts Options) (string, Source, error) {
	if opts.DSN != "" {
		return opts.DSN, SourceDSN, nil
	}
	if opts.SecretsFile != "" {
		dsn, err := FromFile(opts.SecretsFile)
		if err != nil {
			return "", "", err
		}
		r.Log.Debug().Str("file", opts.SecretsFile).Msg("credentials from secrets file")
		return dsn, SourceFile, nil
	}
	if opts.SecretName == "" {
		return "", "", ErrNoCredentials
	}

	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}
	client, err := r.NewClient(ctx, region)
	if err != nil {
		return "", "", err
	}
	dsn, err := FromSecretsManager(ctx, client, opts.SecretName)
	if err != nil {
		return "", "", err
	}
	r.Log.Debug().Str("secret", opts.SecretName).Str("region", region).Msg("credentials from secrets manager")
	return dsn, SourceSecrets, nil
}

type secretsFile struct {
	Postgres struct {
		User     string `toml:"user"`
		Password string `toml:"password"`
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		Database string `toml:"database"`
	} `toml:"postgres"`
}

// FromFile reads the [postgres] table of a TOML secrets file.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secrets file: %w", err)
	}
	var f secretsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("failed to parse secrets file: %w", err)
	}
	pg := f.Postgres
	var missing []string
	for _, kv := range [][2]string{
		{"user", pg.User},
		{"password", pg.Password},
		{"host", pg.Host},
		{"database", pg.Database},
	} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: secrets file missing %s", ErrIncompleteCredentials, strings.Join(missing, ", "))
	}
	port := pg.Port
	if port == 0 {
		port = defaultPort
	}
	return BuildDSN(pg.User, pg.Password, pg.Host, port, pg.Database), nil
}

// FromSecretsManager fetches secretName and builds a DSN from its JSON
// payload: username, password, host, db_name and an optional port.
func FromSecretsManager(ctx context.Context, client SecretsClient, secretName string) (string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", secretName, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("%w: secret %q has no string value", ErrIncompleteCredentials, secretName)
	}
	return parseSecret(*out.SecretString)
}

func parseSecret(s string) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return "", fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	var missing []string
	str := func(key string) string {
		v, ok := raw[key]
		if !ok || v == nil {
			missing = append(missing, key)
			return ""
		}
		return fmt.Sprint(v)
	}
	user, pass, host, dbName := str("username"), str("password"), str("host"), str("db_name")
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: secret missing %s", ErrIncompleteCredentials, strings.Join(missing, ", "))
	}

	port := defaultPort
	switch v := raw["port"].(type) {
	case float64:
		port = int(v)
	case string:
		p, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return "", fmt.Errorf("%w: invalid port %q", ErrIncompleteCredentials, v)
		}
		port = p
	}
	return BuildDSN(user, pass, host, port, dbName), nil
}

// BuildDSN formats a postgresql:// URL, escaping the user and password.
func BuildDSN(user, password, host string, port int, database string) string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + database,
	}
	return u.String()
}
