package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Fetcher.RateDelay() != 2000*time.Millisecond {
		t.Errorf("RateDelay = %v, want 2s", cfg.Fetcher.RateDelay())
	}
	if cfg.Fetcher.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", cfg.Fetcher.RetryAttempts)
	}
	if cfg.Scheduler.Interval() != 5*time.Minute {
		t.Errorf("Interval = %v, want 5m", cfg.Scheduler.Interval())
	}
	if cfg.Promotion.Threshold != 10 {
		t.Errorf("Promotion.Threshold = %d, want 10", cfg.Promotion.Threshold)
	}
	if len(cfg.Fetcher.UserAgents) == 0 {
		t.Error("default user agent pool is empty")
	}
	if cfg.Queue.Workers <= 0 || cfg.Queue.MaxAttempts <= 0 {
		t.Errorf("queue defaults = %+v", cfg.Queue)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
database:
  dsn: postgres://file/db
fetcher:
  rateDelayMs: 1500
scheduler:
  intervalMinutes: 15
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(schedulerIntervalEnv, "30")

	cfg := Load()

	if cfg.Database.DSN != "postgres://file/db" {
		t.Errorf("DSN = %q, want the file value", cfg.Database.DSN)
	}
	if cfg.Fetcher.RateDelayMS != 1500 {
		t.Errorf("RateDelayMS = %d, want the file value 1500", cfg.Fetcher.RateDelayMS)
	}
	// Environment wins over the file.
	if cfg.Scheduler.IntervalMinutes != 30 {
		t.Errorf("IntervalMinutes = %d, want the env value 30", cfg.Scheduler.IntervalMinutes)
	}
	// Untouched settings keep their defaults.
	if cfg.Fetcher.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want the default 3", cfg.Fetcher.RetryAttempts)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, "/nonexistent/config.yaml")

	cfg := Load()
	if cfg.Fetcher.RateDelayMS != 2000 {
		t.Errorf("RateDelayMS = %d, want the default 2000", cfg.Fetcher.RateDelayMS)
	}
}
