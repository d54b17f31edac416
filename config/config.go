package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenPath string
	Version    string

	DBType      string
	PostgresDSN string
	SqlitePath  string

	JWTSecret string
	JWTTTL    time.Duration

	FinnhubAPIKey string
	SourcesFile   string
	SyncWorkers   int
	Symbols       []string

	BrokerNetwork string
	BrokerHost    string
	AMQPURL       string

	RedisHost string
	RedisPort string
}

var AppConfig *Config

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warnf("No .env file loaded: %v", err)
	}

	AppConfig = &Config{
		ListenPath:    getEnv("LISTEN_PATH", ":8000"),
		Version:       getEnv("APP_VERSION", "1.0.0"),
		DBType:        getEnv("DB_TYPE", "SQLITE"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		SqlitePath:    getEnv("SQLITE_PATH", "istock.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        getDuration("JWT_TTL", 24*time.Hour),
		FinnhubAPIKey: os.Getenv("FINNHUB_API_KEY"),
		SourcesFile:   getEnv("SOURCES_FILE", "sources.yaml"),
		SyncWorkers:   getInt("SYNC_WORKERS", 2),
		Symbols:       getList("SYNC_SYMBOLS", []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA"}),
		BrokerNetwork: getEnv("MESSAGE_BROKER_NETWORK", "tcp"),
		BrokerHost:    os.Getenv("MESSAGE_BROKER_HOST"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
	}
	return AppConfig
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warnf("Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("Invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
