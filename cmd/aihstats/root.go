package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gyeh/aihstats/internal/config"
	"github.com/gyeh/aihstats/internal/credentials"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "aihstats",
	Short: "SUS hospital admission (AIH) statistics for the Federal District region",
	Long: "Loads AIH extracts into Postgres and reports aggregated hospital spending " +
		"by state, municipality, period and procedure group, as tables or a JSON API.",
	SilenceUsage: true,
}

func init() {
	// Environment from .env, when present, feeds the flag defaults below.
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("AIH_DB_URL"), "Postgres connection string (or set AIH_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&cfg.ConfigFile, "config", os.Getenv("AIH_CONFIG"), "YAML settings file")
	pf.StringVar(&cfg.SecretsFile, "secrets-file", os.Getenv("AIH_SECRETS_FILE"), "TOML secrets file with a [postgres] table")
	pf.StringVar(&cfg.SecretName, "secret-name", envOr("AIH_SECRET_NAME", credentials.DefaultSecretName), "AWS Secrets Manager secret holding the database credentials")
	pf.StringVar(&cfg.AWSRegion, "aws-region", envOr("AWS_REGION", credentials.DefaultRegion), "AWS region of the secret")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
