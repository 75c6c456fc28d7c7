package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QCLEDGER_STORAGE_DRIVER", "QCLEDGER_SQLITE_PATH", "QCLEDGER_POSTGRES_DSN",
		"QCLEDGER_REDIS_URL", "QCLEDGER_REDIS_PREFIX", "QCLEDGER_BLOB_DRIVER",
		"QCLEDGER_BLOB_FS_ROOT", "QCLEDGER_BLOB_S3_BUCKET", "QCLEDGER_BLOB_S3_REGION",
		"QCLEDGER_BLOB_S3_ENDPOINT", "QCLEDGER_BLOB_S3_PATH_STYLE", "QCLEDGER_HISTORY_DEPTH",
		"QCLEDGER_LOG_LEVEL", "QCLEDGER_METRICS",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", cfg.Storage.Driver)
	}
	if cfg.HistoryDepth != DefaultHistoryDepth {
		t.Errorf("expected history depth %d, got %d", DefaultHistoryDepth, cfg.HistoryDepth)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blob.Driver != "fs" {
		t.Errorf("expected fs blob driver, got %s", cfg.Blob.Driver)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "qcledger.yaml")
	cfg := DefaultConfig()
	cfg.Storage.Driver = DriverPostgres
	cfg.Storage.PostgresDSN = "postgres://db/ledger"
	cfg.HistoryDepth = 5
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Storage.PostgresDSN != "postgres://db/ledger" || loaded.HistoryDepth != 5 {
		t.Fatalf("unexpected config %+v", loaded)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("QCLEDGER_STORAGE_DRIVER", "REDIS")
	t.Setenv("QCLEDGER_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("QCLEDGER_REDIS_PREFIX", "ledger:")
	t.Setenv("QCLEDGER_BLOB_DRIVER", "s3")
	t.Setenv("QCLEDGER_BLOB_S3_BUCKET", "backups")
	t.Setenv("QCLEDGER_BLOB_S3_PATH_STYLE", "TRUE")
	t.Setenv("QCLEDGER_HISTORY_DEPTH", "7")
	t.Setenv("QCLEDGER_LOG_LEVEL", "DEBUG")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != DriverRedis || cfg.Storage.RedisPrefix != "ledger:" {
		t.Errorf("storage overrides not applied: %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "s3" || cfg.Blob.S3.Bucket != "backups" || !cfg.Blob.S3.PathStyle {
		t.Errorf("blob overrides not applied: %+v", cfg.Blob)
	}
	if cfg.HistoryDepth != 7 || cfg.LogLevel != "debug" {
		t.Errorf("unexpected depth/level %d %s", cfg.HistoryDepth, cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("QCLEDGER_HISTORY_DEPTH", "many")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected history depth parse error")
	}
	t.Setenv("QCLEDGER_HISTORY_DEPTH", "0")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected non-positive depth error")
	}
	t.Setenv("QCLEDGER_HISTORY_DEPTH", "")
	t.Setenv("QCLEDGER_STORAGE_DRIVER", "mongo")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	t.Setenv("QCLEDGER_STORAGE_DRIVER", "redis")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected missing redis url error")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMetricsExporterSelection(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Metrics != MetricsExpvar {
		t.Errorf("expected expvar by default, got %s", cfg.Metrics)
	}

	t.Setenv("QCLEDGER_METRICS", "Prometheus")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Metrics != MetricsPrometheus {
		t.Errorf("expected prometheus from env, got %s", cfg.Metrics)
	}

	t.Setenv("QCLEDGER_METRICS", "statsd")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected unknown exporter rejected")
	}
}
