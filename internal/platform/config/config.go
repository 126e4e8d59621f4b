package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendLevelDB  = "leveldb"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	StoreBackend string
	LevelDBPath  string

	Administrators            []string
	GlobalReputationThreshold uint64
	DelegationEnabled         bool
	StrictOptions             bool
	CommitmentHash            string
	SignatureScheme           string
	ResultCacheSize           uint32

	GenesisTime   time.Time
	BlockInterval time.Duration

	ExecutionWebhookURL     string
	ExecutionWebhookTimeout time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

func Load() (Config, error) {
	backend := strings.ToLower(env("STORE_BACKEND", BackendMemory))
	switch backend {
	case BackendMemory, BackendPostgres, BackendLevelDB:
	default:
		return Config{}, fmt.Errorf("unsupported STORE_BACKEND %q", backend)
	}

	threshold, err := envUint("GLOBAL_REPUTATION_THRESHOLD", 0)
	if err != nil {
		return Config{}, err
	}
	cacheSize, err := envUint("RESULT_CACHE_SIZE", 256)
	if err != nil {
		return Config{}, err
	}
	if cacheSize > uint64(^uint32(0)) {
		return Config{}, fmt.Errorf("RESULT_CACHE_SIZE out of range: %d", cacheSize)
	}
	batchSize, err := envUint("OUTBOX_BATCH_SIZE", 100)
	if err != nil {
		return Config{}, err
	}

	genesis := time.Unix(0, 0).UTC()
	if raw := strings.TrimSpace(os.Getenv("GENESIS_TIME")); raw != "" {
		genesis, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse GENESIS_TIME: %w", err)
		}
	}
	interval, err := envDuration("BLOCK_INTERVAL", 12*time.Second)
	if err != nil {
		return Config{}, err
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("BLOCK_INTERVAL must be positive")
	}
	pollInterval, err := envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	webhookTimeout, err := envDuration("EXECUTION_WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServiceName:  env("SERVICE_NAME", "sealedgov"),
		HTTPPort:     env("HTTP_PORT", "8080"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		StoreBackend: backend,
		LevelDBPath:  env("LEVELDB_PATH", "data/governance.ldb"),

		Administrators:            envList("ADMIN_IDS"),
		GlobalReputationThreshold: threshold,
		DelegationEnabled:         envBool("DELEGATION_ENABLED", true),
		StrictOptions:             envBool("STRICT_OPTIONS", false),
		CommitmentHash:            env("COMMITMENT_HASH", "blake256"),
		SignatureScheme:           env("SIGNATURE_SCHEME", "none"),
		ResultCacheSize:           uint32(cacheSize),

		GenesisTime:   genesis,
		BlockInterval: interval,

		ExecutionWebhookURL:     os.Getenv("EXECUTION_WEBHOOK_URL"),
		ExecutionWebhookTimeout: webhookTimeout,

		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "json"),
		LogFile:   os.Getenv("LOG_FILE"),

		OutboxPollInterval: pollInterval,
		OutboxBatchSize:    int(batchSize),
	}, nil
}

func env(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envList(name string) []string {
	var items []string
	for _, value := range strings.Split(os.Getenv(name), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envUint(name string, fallback uint64) (uint64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, nil
}
