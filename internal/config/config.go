// Package config loads the service configuration from environment
// variables. There are no config files; everything is env-driven.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string

	StockfishPath string
	PoolCapacity  int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	VisionModel   string

	RedisURL    string
	DatabaseURL string

	CacheTTLSec   int
	DefaultLines  int
	MaxLines      int
	DefaultLocale string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:    ":8080",
		OpenAIBaseURL: "https://api.openai.com",
		OpenAIModel:   "gpt-4o",
		VisionModel:   "gpt-4o",
		CacheTTLSec:   3600,
		DefaultLines:  3,
		MaxLines:      5,
		DefaultLocale: "en",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	} else if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ListenAddr = ":" + v
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.TrimSpace(os.Getenv("ENGINE_POOL_CAPACITY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("ENGINE_POOL_CAPACITY %q: must be a positive integer", v)
		}
		cfg.PoolCapacity = n
	}

	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); v != "" {
		cfg.OpenAIBaseURL = strings.TrimSuffix(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		cfg.OpenAIModel = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_VISION_MODEL")); v != "" {
		cfg.VisionModel = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("CACHE_TTL_SEC")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("CACHE_TTL_SEC %q: must be a positive integer", v)
		}
		cfg.CacheTTLSec = n
	}
	if v := strings.TrimSpace(os.Getenv("ANALYSIS_DEFAULT_LINES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultLines = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ANALYSIS_MAX_LINES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxLines = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_LOCALE")); v != "" {
		cfg.DefaultLocale = strings.ToLower(v)
	}

	if cfg.DefaultLines > cfg.MaxLines {
		cfg.DefaultLines = cfg.MaxLines
	}
	return cfg, nil
}

// LLMEnabled reports whether language-model backed features should run.
func (c *AppConfig) LLMEnabled() bool { return c.OpenAIAPIKey != "" }
