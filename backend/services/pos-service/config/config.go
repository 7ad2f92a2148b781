package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

type Config struct {
	Env        string
	Port       string
	TerminalID string
	CashierID  string

	Store    string
	DataDir  string
	RedisURL string

	OrderServiceURL string
	HealthURL       string
	CommitTimeout   time.Duration

	ProbeInterval     time.Duration
	SyncDebounce      time.Duration
	SyncInterval      time.Duration
	SyncRate          float64
	SyncMaxRejections int

	SNSTopicArn string
}

// Load reads .env when present, then the environment.
func Load() Config {
	_ = godotenv.Load()

	orderURL := strings.TrimRight(getEnv("ORDER_SERVICE_URL", "http://localhost:8083"), "/")
	hostname, _ := os.Hostname()

	return Config{
		Env:        getEnv("POS_ENV", "development"),
		Port:       getEnv("PORT", "8095"),
		TerminalID: getEnv("TERMINAL_ID", hostname),
		CashierID:  getEnv("CASHIER_ID", "pos-terminal"),

		Store:    strings.ToLower(getEnv("POS_STORE", StoreFile)),
		DataDir:  getEnv("POS_DATA_DIR", "./data"),
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		OrderServiceURL: orderURL,
		HealthURL:       getEnv("HEALTH_URL", orderURL+"/health"),
		CommitTimeout:   getDuration("COMMIT_TIMEOUT", 10*time.Second),

		ProbeInterval:     getDuration("PROBE_INTERVAL", 5*time.Second),
		SyncDebounce:      getDuration("SYNC_DEBOUNCE", time.Second),
		SyncInterval:      getDuration("SYNC_INTERVAL", time.Minute),
		SyncRate:          getFloat("SYNC_RATE", 5),
		SyncMaxRejections: getInt("SYNC_MAX_REJECTIONS", 3),

		SNSTopicArn: os.Getenv("POS_SNS_TOPIC_ARN"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultVal
}
