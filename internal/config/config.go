package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port              string
	AllowedOrigin     string
	BackendBaseURL    string
	BackendOrigin     string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	AuthSecret        string
	TaxPollSeconds    int
	SessionTTLMinutes int
	DefaultTaxPercent float64
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	poll, err := strconv.Atoi(getEnv("TAX_POLL_SECONDS", "30"))
	if err != nil || poll < 1 {
		poll = 30
	}
	sessionTTL, err := strconv.Atoi(getEnv("SESSION_TTL_MINUTES", "720"))
	if err != nil || sessionTTL < 1 {
		sessionTTL = 720
	}
	defaultTax, err := strconv.ParseFloat(getEnv("DEFAULT_TAX_PERCENT", "18"), 64)
	if err != nil || defaultTax < 0 {
		defaultTax = 18
	}

	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		BackendBaseURL:    strings.TrimSpace(os.Getenv("BACKEND_BASE_URL")),
		BackendOrigin:     strings.TrimSpace(os.Getenv("BACKEND_ORIGIN")),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		AuthSecret:        strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		TaxPollSeconds:    poll,
		SessionTTLMinutes: sessionTTL,
		DefaultTaxPercent: defaultTax,
	}

	// The backend origin defaults to the API base; only overridden when
	// static assets live on a different host.
	if cfg.BackendOrigin == "" {
		cfg.BackendOrigin = cfg.BackendBaseURL
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
