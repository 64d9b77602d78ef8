package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type SyncConfig struct {
	Addr        string
	DatabaseURL string
}

type ClientConfig struct {
	DataDir       string
	CatalogPath   string
	SyncBaseURL   string
	TickEvery     time.Duration
	SnapshotEvery time.Duration
	RemoteTimeout time.Duration
}

func LoadSyncFromEnv() (SyncConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MAGNATE_SYNC_ADDR", ":8080")
	}

	cfg := SyncConfig{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadClientFromEnv() ClientConfig {
	return ClientConfig{
		DataDir:       strings.TrimSpace(os.Getenv("MAGNATE_DATA_DIR")),
		CatalogPath:   strings.TrimSpace(os.Getenv("MAGNATE_CATALOG")),
		SyncBaseURL:   strings.TrimRight(envDefault("MAGNATE_SYNC_BASE_URL", "http://localhost:8080"), "/"),
		TickEvery:     envDurationDefault("MAGNATE_TICK_EVERY", time.Second),
		SnapshotEvery: envDurationDefault("MAGNATE_SNAPSHOT_EVERY", 5*time.Second),
		RemoteTimeout: envDurationDefault("MAGNATE_REMOTE_TIMEOUT", 10*time.Second),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
