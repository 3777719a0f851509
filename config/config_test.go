package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsWithoutEnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Errorf("port = %q", cfg.App.Port)
	}
	if cfg.Queue.AvgConsultationMinutes != 15 {
		t.Errorf("avg consultation = %d", cfg.Queue.AvgConsultationMinutes)
	}
	if cfg.Queue.LockTimeout != 5*time.Second {
		t.Errorf("lock timeout = %v", cfg.Queue.LockTimeout)
	}
	if cfg.Queue.SequenceBackend != SequenceBackendRedis {
		t.Errorf("sequence backend = %q", cfg.Queue.SequenceBackend)
	}
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	content := "APP_PORT=9090\nDB_DRIVER=sqlite\nQUEUE_AVG_CONSULTATION_MINUTES=20\nQUEUE_LOCK_TIMEOUT=750ms\nDB_OPERATION_TIMEOUT=bogus\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.App.Port != "9090" || cfg.DB.Driver != DriverSQLite {
		t.Errorf("unexpected app/db config: %+v %+v", cfg.App, cfg.DB)
	}
	if cfg.Queue.AvgConsultationMinutes != 20 {
		t.Errorf("avg consultation = %d", cfg.Queue.AvgConsultationMinutes)
	}
	if cfg.Queue.LockTimeout != 750*time.Millisecond {
		t.Errorf("lock timeout = %v", cfg.Queue.LockTimeout)
	}
	if cfg.DB.OperationTimeout != 5*time.Second {
		t.Errorf("invalid duration should fall back, got %v", cfg.DB.OperationTimeout)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	if loc := (AppConfig{Timezone: "Not/AZone"}).Location(); loc != time.UTC {
		t.Errorf("location = %v", loc)
	}
}
