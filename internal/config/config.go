package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/principlequiz/backend/internal/llm"
)

type Config struct {
	Port        string
	CORSOrigins []string

	Database Database
	LLM      LLM

	// MaxCostUSD is the per-request estimated cost ceiling. Zero disables it.
	MaxCostUSD float64
	GroupSize  int
}

// Database describes how to reach Postgres. URL wins over the discrete
// fields when set.
type Database struct {
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the connection string passed to sql.Open. Both lib/pq and
// pgx accept the keyword/value form.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type LLM struct {
	Client      llm.Config
	Temperature float64
	MaxTokens   int
}

// Load reads .env from the working directory when present, then the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", llm.ProviderOpenAI))

	temperature, err := getFloat("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return nil, err
	}
	maxTokens, err := getInt("LLM_MAX_TOKENS", 4000)
	if err != nil {
		return nil, err
	}
	maxCost, err := getFloat("GENERATION_MAX_COST_USD", 0)
	if err != nil {
		return nil, err
	}
	groupSize, err := getInt("GENERATION_GROUP_SIZE", 5)
	if err != nil {
		return nil, err
	}
	if maxCost < 0 {
		return nil, fmt.Errorf("GENERATION_MAX_COST_USD must not be negative, got %v", maxCost)
	}
	if groupSize < 1 {
		return nil, fmt.Errorf("GENERATION_GROUP_SIZE must be at least 1, got %d", groupSize)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Database: Database{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "quiz_user"),
			Password: getEnv("DB_PASSWORD", "quiz_password"),
			Name:     getEnv("DB_NAME", "principle_quiz"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		LLM: LLM{
			Client: llm.Config{
				Provider: provider,
				APIKey:   apiKey(provider),
				BaseURL:  os.Getenv("OPENAI_BASE_URL"),
				Model:    os.Getenv("LLM_MODEL"),
			},
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
		MaxCostUSD: maxCost,
		GroupSize:  groupSize,
	}

	log.Printf("Config loaded: provider=%s db_driver=%s max_cost=$%.2f group_size=%d",
		provider, cfg.Database.Driver, cfg.MaxCostUSD, cfg.GroupSize)
	return cfg, nil
}

func apiKey(provider string) string {
	switch provider {
	case llm.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case llm.ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	case llm.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
