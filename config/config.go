package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/Godfrey-cyber23/final-year-project-2025/pkg/constant"
)

type Config struct {
	Env  string
	Port string

	DBURL string

	SessionTokenSecret string
	ResetTokenSecret   string
	SessionExpiryMin   int
	ResetExpiryMin     int

	// Shared departmental secret lecturers must supply on login.
	DepartmentSecretKey string

	LoginMaxAttempts   int
	LockoutWindowMin   int
	LockoutDurationMin int

	// Base URL of the web client, used to build reset links.
	FrontendURL string

	RateLimitRPS   int
	RateLimitBurst int

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Env:                 getEnv("ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DBURL:               mustGetEnv("DB_URL"),
		SessionTokenSecret:  mustGetEnv("SESSION_TOKEN_SECRET"),
		ResetTokenSecret:    mustGetEnv("RESET_TOKEN_SECRET"),
		SessionExpiryMin:    getEnvAsInt("SESSION_TOKEN_EXPIRY", constant.DefaultSessionExpiryMin),
		ResetExpiryMin:      getEnvAsInt("RESET_TOKEN_EXPIRY", constant.DefaultResetExpiryMin),
		DepartmentSecretKey: mustGetEnv("DEPARTMENT_SECRET_KEY"),
		LoginMaxAttempts:    getEnvAsInt("LOGIN_MAX_ATTEMPTS", constant.DefaultLoginMaxAttempts),
		LockoutWindowMin:    getEnvAsInt("LOCKOUT_WINDOW_MIN", constant.DefaultLockoutWindowMin),
		LockoutDurationMin:  getEnvAsInt("LOCKOUT_DURATION_MIN", constant.DefaultLockoutDurationMin),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		RateLimitRPS:        getEnvAsInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst:      getEnvAsInt("RATE_LIMIT_BURST", 20),
		SMTPHost:            getEnv("EMAIL_HOST", "localhost"),
		SMTPPort:            getEnv("EMAIL_PORT", "587"),
		SMTPUser:            getEnv("EMAIL_USER", ""),
		SMTPPassword:        getEnv("EMAIL_PASS", ""),
		EmailFrom:           getEnv("EMAIL_FROM", "Exam Security System <no-reply@localhost>"),
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
