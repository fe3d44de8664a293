package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/hookbot/core/config"
	coredatabase "github.com/m3rciful/hookbot/core/database"
)

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return sqlx.NewDb(db, "postgres"), mock
}

func TestRunStepsInOrder(t *testing.T) {
	db, _ := mockDB(t)
	defer db.Close()
	var steps []string

	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{AutoMigrate: true},
		LoggerInit: func(*coreconfig.Config) error { steps = append(steps, "logger"); return nil },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			steps = append(steps, "connect")
			return db, nil
		},
		Migrate: func(coredatabase.Config) error { steps = append(steps, "migrate"); return nil },
		Seeders: []Seeder{SeederFunc(func(_ context.Context, got *sqlx.DB) error {
			if got != db {
				t.Errorf("seeder got a different db")
			}
			steps = append(steps, "seed")
			return nil
		})},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.DB != db {
		t.Fatal("expected connected db in result")
	}
	want := []string{"logger", "connect", "migrate", "seed"}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v", steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("steps = %v", steps)
		}
	}
}

func TestRunSkipsMigrateWhenDisabled(t *testing.T) {
	db, _ := mockDB(t)
	defer db.Close()
	migrated := false
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect:    func(coredatabase.Config) (*sqlx.DB, error) { return db, nil },
		Migrate:    func(coredatabase.Config) error { migrated = true; return nil },
	})
	if err != nil || migrated {
		t.Fatalf("err = %v, migrated = %v", err, migrated)
	}
}

func TestRunClosesDBOnSeederFailure(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectClose()
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect:    func(coredatabase.Config) (*sqlx.DB, error) { return db, nil },
		Seeders:    []Seeder{SeederFunc(func(context.Context, *sqlx.DB) error { return boom })},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected seeder error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected db close: %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
