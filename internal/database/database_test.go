package database

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"dualledger/internal/config"
)

func TestConfig_DSNAndMigrateURL(t *testing.T) {
	cfg := NewConfig(&config.Config{
		DBHost:     "db",
		DBPort:     "5432",
		DBUser:     "ledger",
		DBPassword: "p@ss word",
		DBName:     "dualledger",
		DBSSLMode:  "disable",
	})

	if cfg.Driver != DriverPostgres {
		t.Errorf("expected default driver postgres, got %q", cfg.Driver)
	}
	if !strings.Contains(cfg.DSN(), "host=db port=5432 user=ledger") {
		t.Errorf("unexpected DSN %q", cfg.DSN())
	}
	want := "postgres://ledger:p%40ss%20word@db:5432/dualledger?sslmode=disable"
	if got := cfg.MigrateURL(); got != want {
		t.Errorf("MigrateURL() = %q, want %q", got, want)
	}
}

func TestNewManager_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	m, err := NewManager(&Config{Driver: DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if err := m.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	for _, table := range []string{"tags", "transactions", "transaction_tags", "budgets", "goals",
		"goal_installments", "exchange_rate_samples", "fixed_expenses", "fixed_expense_tags", "audit_logs"} {
		if !m.DB().Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}

	if _, err := m.Migrator(); err == nil {
		t.Error("expected versioned migrations to be refused for sqlite")
	}
}

func TestNewManager_Rejects(t *testing.T) {
	if _, err := NewManager(&Config{Driver: "mysql"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if _, err := NewManager(&Config{Driver: DriverSQLite}); err == nil {
		t.Error("expected error for sqlite without path")
	}
}

func TestEmbeddedMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
	for v := range downs {
		if !ups[v] {
			t.Errorf("migration %s has no up file", v)
		}
	}
}
