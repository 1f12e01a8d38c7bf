package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"INVENTORY_SOURCE", "DATABASE_DRIVER", "TIMEZONE", "STALE_PROSPECT_DAYS", "DB_AUTO_MIGRATE"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.InventorySource != InventoryDatabase {
		t.Errorf("InventorySource = %q, want %q", cfg.InventorySource, InventoryDatabase)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("DatabaseDriver = %q", cfg.DatabaseDriver)
	}
	if cfg.StaleProspectDays != 7 {
		t.Errorf("StaleProspectDays = %d", cfg.StaleProspectDays)
	}
	if !cfg.DBAutoMigrate {
		t.Error("DBAutoMigrate should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INVENTORY_SOURCE", " Mongo ")
	t.Setenv("DASHBOARD_CACHE_TTL", "2m")
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg := Load()

	if cfg.InventorySource != InventoryMongo {
		t.Errorf("InventorySource = %q", cfg.InventorySource)
	}
	if cfg.DashboardCacheTTL != 2*time.Minute {
		t.Errorf("DashboardCacheTTL = %v", cfg.DashboardCacheTTL)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("invalid int should fall back, got %d", cfg.MaxRetries)
	}
	if cfg.DBAutoMigrate {
		t.Error("DBAutoMigrate should be false")
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus_Mons"}
	if cfg.Location() != time.UTC {
		t.Error("unknown zone should fall back to UTC")
	}
	cfg.Timezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Errorf("got %s", cfg.Location())
	}
}

func TestLoadDotEnvKeepsExistingEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "PIPELINE_TEST_A=from-file\nPIPELINE_TEST_B=\"quoted value\"\n# comment\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PIPELINE_TEST_A", "from-env")
	t.Setenv("PIPELINE_TEST_B", "")
	os.Unsetenv("PIPELINE_TEST_B")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("PIPELINE_TEST_A"); got != "from-env" {
		t.Errorf("existing env overridden: %q", got)
	}
	if got := os.Getenv("PIPELINE_TEST_B"); got != "quoted value" {
		t.Errorf("PIPELINE_TEST_B = %q", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
