package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is the process configuration
type Config struct {
	Port           int
	TurnSeconds    int
	AllowedOrigins []string
	LogLevel       string
	LogFile        string
	ChatHistory    int
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Port:           8080,
		TurnSeconds:    30,
		AllowedOrigins: []string{"http://localhost:5173"},
		LogLevel:       "info",
		ChatHistory:    100,
	}
}

// Load reads envFile if it exists, then overlays the process environment on the defaults.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Defaults()
	var err error
	if cfg.Port, err = getenvInt("PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.TurnSeconds, err = getenvInt("TURN_SECONDS", cfg.TurnSeconds); err != nil {
		return Config{}, err
	}
	if cfg.ChatHistory, err = getenvInt("CHAT_HISTORY", cfg.ChatHistory); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.LogFile = os.Getenv("LOG_FILE")

	return cfg, cfg.Validate()
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects values the server cannot run with
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TurnSeconds < 1 || c.TurnSeconds > 3600 {
		return fmt.Errorf("turn seconds %d out of range", c.TurnSeconds)
	}
	if c.ChatHistory < 1 {
		return fmt.Errorf("chat history %d must be positive", c.ChatHistory)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Addr is the listen address
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
