package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-in-production-please-32ch"

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database (비어있으면 인메모리 저장소 사용)
	DatabaseURL string

	// Redis (비어있으면 프로세스 내부 게임 락 사용)
	RedisURL string

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// CORS / WebSocket origin
	CORSAllowedOrigins []string

	// Live game
	GameLockTTL      time.Duration
	GameLockRetries  int
	WSMessageTimeout time.Duration
	WSMessageBurst   int
	WSMessageRate    float64

	// REST API rate limit (분당 요청 수)
	APIRateLimit  int
	AuthRateLimit int
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "4000"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiration:      parseDuration(getEnv("JWT_EXPIRES_IN", "168h"), 7*24*time.Hour),
		CORSAllowedOrigins: parseList(getEnv("CORS_ORIGIN", "http://localhost:3000")),
		GameLockTTL:        parseDuration(getEnv("GAME_LOCK_TTL", "5s"), 5*time.Second),
		GameLockRetries:    parseInt(getEnv("GAME_LOCK_RETRIES", "50"), 50),
		WSMessageTimeout:   parseDuration(getEnv("WS_MESSAGE_TIMEOUT", "10s"), 10*time.Second),
		WSMessageBurst:     parseInt(getEnv("WS_MESSAGE_BURST", "20"), 20),
		WSMessageRate:      parseFloat(getEnv("WS_MESSAGE_RATE", "5"), 5),
		APIRateLimit:       parseInt(getEnv("API_RATE_LIMIT", "600"), 600),
		AuthRateLimit:      parseInt(getEnv("AUTH_RATE_LIMIT", "10"), 10),
	}

	if cfg.Env == "production" && cfg.JWTSecret == defaultJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
