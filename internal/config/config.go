package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvFiles are loaded in order; variables already set in the environment win.
var DotEnvFiles = []string{".env", ".env.local"}

// Config represents application configuration loaded from environment variables.
type Config struct {
	DashboardDir string // Relative to the directory holding the koala binary
	Runner       string
	Script       string
	CSVPath      string
	FailFast     bool
	Port         string
	UserEmail    string
	LogFormat    string
	LogLevel     string
}

// LoadDotEnv loads the given env files if they exist.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		slog.Debug("loaded env file", "path", file)
	}
	return nil
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	return &Config{
		DashboardDir: getEnv("KOALA_DASHBOARD_DIR", "."),
		Runner:       getEnv("KOALA_RUNNER", "streamlit run"),
		Script:       getEnv("KOALA_SCRIPT", "koala_dashboard.py"),
		CSVPath:      getEnv("KOALA_CSV", defaultCSVPath()),
		FailFast:     getEnvBool("KOALA_FAIL_FAST", true),
		Port:         getEnv("FUNCTIONS_CUSTOMHANDLER_PORT", "8080"),
		UserEmail:    os.Getenv("USER_EMAIL"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

// defaultCSVPath is where the form responses export usually lands.
func defaultCSVPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Downloads", "Koala Guadalupe (Responses) - Form Responses 1.csv")
}
