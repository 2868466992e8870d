// Package config centralises environment and runtime configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port   string
	DBPath string

	// Lookback bounds the open-entry search for rotation shifts.
	Lookback time.Duration
	// MinExitGap rejects exits punched too soon after their entry.
	MinExitGap time.Duration

	CORSOrigins []string
	LogLevel    logrus.Level
}

// Load reads .env when present, then the environment. Missing values fall
// back to development defaults; nothing here is secret.
func Load() *Config {
	// Best effort; production sets real env vars.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		DBPath:      getEnvOrDefault("DB_PATH", "./data/punch.db"),
		Lookback:    time.Duration(getEnvInt("LOOKBACK_HOURS", 72)) * time.Hour,
		MinExitGap:  time.Duration(getEnvInt("MIN_EXIT_GAP_MINUTES", 5)) * time.Minute,
		CORSOrigins: splitCSV(getEnvOrDefault("CORS_ORIGINS", "*")),
		LogLevel:    parseLevel(getEnvOrDefault("LOG_LEVEL", "info")),
	}
}

// NewLogger builds the process-wide structured logger.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(c.LogLevel)
	logger.SetOutput(os.Stdout)
	return logger
}

func getEnvOrDefault(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
