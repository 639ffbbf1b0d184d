package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	EnginePath string
	EngineArgs []string
	EngineDir  string

	ListenAddr string

	RedisURL    string
	DatabaseURL string

	CatalogPath string

	Variant string

	CacheTTLSec     int
	QueueSize       int
	HistoryLimit    int
	AnalyzeDepth    int
	ReadyTimeoutSec int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:      ":8480",
		Variant:         "normal",
		CacheTTLSec:     3600,
		QueueSize:       64,
		HistoryLimit:    20,
		AnalyzeDepth:    21,
		ReadyTimeoutSec: 30,
	}

	cfg.EnginePath = strings.TrimSpace(os.Getenv("ENGINE_PATH"))
	cfg.EngineDir = strings.TrimSpace(os.Getenv("ENGINE_DIR"))

	if v := strings.TrimSpace(os.Getenv("ENGINE_ARGS")); v != "" {
		for _, p := range strings.Split(v, " ") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.EngineArgs = append(cfg.EngineArgs, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.CatalogPath = strings.TrimSpace(os.Getenv("PARAM_CATALOG_PATH"))

	if v := strings.TrimSpace(os.Getenv("ENGINE_VARIANT")); v != "" {
		cfg.Variant = v
	}

	if v := strings.TrimSpace(os.Getenv("CACHE_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("QUEUE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ANALYZE_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AnalyzeDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("READY_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReadyTimeoutSec = n
		}
	}

	if cfg.EnginePath == "" {
		return nil, errors.New("ENGINE_PATH is required")
	}

	return cfg, nil
}
