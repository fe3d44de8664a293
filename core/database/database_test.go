package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_init.up.sql", "000002_seed.up.sql", "000003_index.up.sql"}
	got := selectApplied(files, 1, 3)
	want := []string{"000002_seed.up.sql", "000003_index.up.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("selectApplied = %v, want %v", got, want)
	}
	if got := selectApplied(files, 3, 3); len(got) != 0 {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}

func TestListMigrationFilesUpOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got := listMigrationFiles(dir)
	want := []string{"000001_a.up.sql", "000002_b.up.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("listMigrationFiles = %v, want %v", got, want)
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Name: "hookbot", Driver: "PQ"}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Driver != DriverPQ || cfg.Port != "5432" || cfg.MaxConnections != 10 || cfg.MigrationsDir != "migrations" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	bad := Config{Name: "hookbot", Driver: "mysql"}
	if err := bad.Normalize(); err == nil {
		t.Fatal("expected driver error")
	}
}

func TestConfigURLEscapesPassword(t *testing.T) {
	cfg := Config{User: "bot", Password: "p@ss word", Host: "db", Port: "5432", Name: "hookbot", SSLMode: "disable"}
	u := cfg.URL()
	if !strings.HasPrefix(u, "postgres://bot:p%40ss%20word@db:5432/hookbot?") || !strings.Contains(u, "sslmode=disable") {
		t.Fatalf("URL = %s", u)
	}
}

func TestErrorCode(t *testing.T) {
	pqErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	if !IsUniqueViolation(pqErr) {
		t.Fatalf("expected unique violation from lib/pq error")
	}
	pgxErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "40001"})
	if got := ErrorCode(pgxErr); got != "40001" {
		t.Fatalf("ErrorCode(pgx) = %q", got)
	}
	if got := ErrorCode(errors.New("plain")); got != "" {
		t.Fatalf("ErrorCode(plain) = %q", got)
	}
}
