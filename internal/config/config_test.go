package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("AIRCORE_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("AIRCORE_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.DBBackend != DatabasePostgres {
		t.Fatalf("unexpected default db backend: %q", cfg.DBBackend)
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("AIRCORE_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("GRIMNIR_ENV", "staging")
	t.Setenv("ICECAST_URL", "http://legacy.example.com:8000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}

func TestLoadRejectsUnsupportedBackend(t *testing.T) {
	t.Setenv("AIRCORE_DB_DSN", "x")
	t.Setenv("AIRCORE_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported backend to fail")
	}
}

func TestLoadProductionRequiresIcecastPassword(t *testing.T) {
	t.Setenv("AIRCORE_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("AIRCORE_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail without an icecast source password")
	}

	t.Setenv("AIRCORE_ICECAST_SOURCE_PASSWORD", "s3cret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected production config load with password to succeed: %v", err)
	}
	if cfg.IcecastSourcePassword != "s3cret" {
		t.Fatalf("unexpected icecast password: %q", cfg.IcecastSourcePassword)
	}
}

func TestCallbackFrameMath(t *testing.T) {
	t.Setenv("AIRCORE_DB_DSN", "x")
	t.Setenv("AIRCORE_DEVICE_SAMPLE_RATE", "44100")
	t.Setenv("AIRCORE_CALLBACK_PERIOD_MS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.OutputFramesPerCallback(); got != 441 {
		t.Fatalf("expected 441 frames per callback, got %d", got)
	}
}
