package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"STORE_BACKEND", "ADMIN_IDS", "GLOBAL_REPUTATION_THRESHOLD", "DELEGATION_ENABLED",
		"BLOCK_INTERVAL", "GENESIS_TIME", "RESULT_CACHE_SIZE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.StoreBackend)
	}
	if !cfg.DelegationEnabled {
		t.Fatalf("expected delegation enabled by default")
	}
	if cfg.BlockInterval != 12*time.Second {
		t.Fatalf("unexpected block interval %s", cfg.BlockInterval)
	}
	if cfg.ResultCacheSize != 256 {
		t.Fatalf("unexpected cache size %d", cfg.ResultCacheSize)
	}
}

func TestLoadParsesGovernanceKeys(t *testing.T) {
	t.Setenv("STORE_BACKEND", "LevelDB")
	t.Setenv("ADMIN_IDS", " root , ops ,,")
	t.Setenv("GLOBAL_REPUTATION_THRESHOLD", "50")
	t.Setenv("DELEGATION_ENABLED", "off")
	t.Setenv("GENESIS_TIME", "2024-01-01T00:00:00Z")
	t.Setenv("BLOCK_INTERVAL", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StoreBackend != BackendLevelDB {
		t.Fatalf("expected leveldb backend, got %q", cfg.StoreBackend)
	}
	if len(cfg.Administrators) != 2 || cfg.Administrators[0] != "root" || cfg.Administrators[1] != "ops" {
		t.Fatalf("unexpected admins %#v", cfg.Administrators)
	}
	if cfg.GlobalReputationThreshold != 50 || cfg.DelegationEnabled {
		t.Fatalf("unexpected governance config %+v", cfg)
	}
	if !cfg.GenesisTime.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || cfg.BlockInterval != 2*time.Second {
		t.Fatalf("unexpected chain config %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unsupported backend error")
	}

	t.Setenv("STORE_BACKEND", "")
	t.Setenv("GLOBAL_REPUTATION_THRESHOLD", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected threshold parse error")
	}
}
