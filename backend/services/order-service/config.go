package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/database"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Env      string
	Port     string
	Postgres database.PostgresConfig

	KafkaBrokers     []string
	OrderEventsTopic string
	CommitQueueURL   string

	// CommitRatePerMinute caps POST /orders/commit per terminal; 0 disables.
	CommitRatePerMinute int
}

func LoadConfig(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8083"),
		Postgres: database.PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic:    getEnv("ORDER_EVENTS_TOPIC", "pos.order.committed"),
		CommitQueueURL:      os.Getenv("ORDER_COMMIT_QUEUE_URL"),
		CommitRatePerMinute: getEnvInt("COMMIT_RATE_PER_MINUTE", 600),
	}

	// Override DB credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if err := applyDBSecret(context.Background(), cfg, getEnv("DB_SECRET_NAME", "order/DB_CREDENTIALS")); err != nil {
			logger.Warn("Secrets Manager override failed, using environment", zap.Error(err))
		}
	}

	if cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.DB == "" || cfg.Postgres.Host == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}

func applyDBSecret(ctx context.Context, cfg *Config, secretName string) error {
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return err
	}
	m, err := awspkg.GetSecretMap(ctx, awspkg.NewSecretsClient(awsCfg), secretName)
	if err != nil {
		return err
	}

	override := func(dst *string, key string) {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Postgres.User, "POSTGRES_USER")
	override(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	override(&cfg.Postgres.DB, "POSTGRES_DB")
	override(&cfg.Postgres.Host, "POSTGRES_HOST")
	override(&cfg.Postgres.Port, "POSTGRES_PORT")
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
