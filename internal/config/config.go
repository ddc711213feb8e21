package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Warehouse     WarehouseConfig
	Results       ResultsConfig
	Export        ExportConfig
	Artifact      ArtifactConfig
	SchemaCache   SchemaCacheConfig
	Batch         BatchConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type WarehouseConfig struct {
	Driver          string
	DSN             string
	FetchBatchRows  int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type ResultsConfig struct {
	TileCapacity      int
	MemoryBudgetBytes int64
	Refetch           bool
}

type ExportConfig struct {
	Delimiter string
	CRLF      bool
}

type ArtifactConfig struct {
	UploadEnabled    bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type SchemaCacheConfig struct {
	Path string
}

type BatchConfig struct {
	StatementTimeout time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("FROSTBENCH_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid FROSTBENCH_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "FROSTBENCH_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_WAREHOUSE_DRIVER", &cfg.Warehouse.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_WAREHOUSE_DSN", &cfg.Warehouse.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FROSTBENCH_WAREHOUSE_FETCH_BATCH_ROWS", &cfg.Warehouse.FetchBatchRows); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FROSTBENCH_WAREHOUSE_MAX_OPEN_CONNS", &cfg.Warehouse.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FROSTBENCH_WAREHOUSE_MAX_IDLE_CONNS", &cfg.Warehouse.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FROSTBENCH_WAREHOUSE_CONN_MAX_IDLE_TIME", &cfg.Warehouse.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FROSTBENCH_WAREHOUSE_CONN_MAX_LIFETIME", &cfg.Warehouse.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FROSTBENCH_RESULTS_TILE_CAPACITY", &cfg.Results.TileCapacity); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "FROSTBENCH_RESULTS_MEMORY_BUDGET_BYTES", &cfg.Results.MemoryBudgetBytes); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FROSTBENCH_RESULTS_REFETCH", &cfg.Results.Refetch); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_EXPORT_DELIMITER", &cfg.Export.Delimiter); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FROSTBENCH_EXPORT_CRLF", &cfg.Export.CRLF); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FROSTBENCH_ARTIFACT_UPLOAD_ENABLED", &cfg.Artifact.UploadEnabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_ARTIFACT_ENDPOINT", &cfg.Artifact.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_ARTIFACT_REGION", &cfg.Artifact.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_ARTIFACT_BUCKET", &cfg.Artifact.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_ARTIFACT_ACCESS_KEY", &cfg.Artifact.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_ARTIFACT_SECRET_KEY", &cfg.Artifact.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FROSTBENCH_ARTIFACT_USE_SSL", &cfg.Artifact.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_ARTIFACT_PREFIX", &cfg.Artifact.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FROSTBENCH_ARTIFACT_AUTO_CREATE_BUCKET", &cfg.Artifact.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FROSTBENCH_SCHEMA_CACHE_PATH", &cfg.SchemaCache.Path); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FROSTBENCH_BATCH_STATEMENT_TIMEOUT", &cfg.Batch.StatementTimeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FROSTBENCH_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "FROSTBENCH_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.Warehouse.Driver == "" {
		return Config{}, fmt.Errorf("warehouse driver is required")
	}
	if len(cfg.Export.Delimiter) != 1 {
		return Config{}, fmt.Errorf("export delimiter must be a single character, got %q", cfg.Export.Delimiter)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "frostbench"},
		Warehouse: WarehouseConfig{
			Driver:          "duckdb",
			DSN:             "",
			FetchBatchRows:  2000,
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Results: ResultsConfig{
			TileCapacity:      50_000,
			MemoryBudgetBytes: 256 << 20,
			Refetch:           true,
		},
		Export: ExportConfig{
			Delimiter: ",",
			CRLF:      false,
		},
		Artifact: ArtifactConfig{
			UploadEnabled:    false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "frostbench-exports",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		SchemaCache: SchemaCacheConfig{
			Path: defaultSchemaCachePath(),
		},
		Batch: BatchConfig{
			StatementTimeout: 5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Warehouse.Driver = "pgx"
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.Artifact.UseSSL = true
		cfg.Artifact.AutoCreateBucket = false
	}

	return cfg
}

func defaultSchemaCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "schema_cache.json"
	}
	return filepath.Join(home, ".frostbench", "schema_cache.json")
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
