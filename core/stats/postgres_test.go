package stats

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var sessionColumns = []string{"id", "client_id", "session_start", "last_visit"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresStoreCreatesSession(t *testing.T) {
	store, mock := newMockStore(t)
	tr := NewTracker(store, time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(lockClientSQL)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM stats\s+WHERE client_id = \$1 AND last_visit > \$2`).
		WithArgs(int64(7), t0.Add(-time.Hour)).
		WillReturnRows(sqlmock.NewRows(sessionColumns))
	mock.ExpectQuery(`INSERT INTO stats`).
		WithArgs(int64(7), t0).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(int64(1), int64(7), t0, t0))
	mock.ExpectCommit()

	if err := tr.RecordVisit(context.Background(), 7, t0); err != nil {
		t.Fatalf("RecordVisit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreExtendsSession(t *testing.T) {
	store, mock := newMockStore(t)
	tr := NewTracker(store, time.Hour)
	t1 := t0.Add(4 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(lockClientSQL)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM stats`).
		WithArgs(int64(7), t1.Add(-time.Hour)).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(int64(3), int64(7), t0, t0))
	mock.ExpectExec(regexp.QuoteMeta(touchSQL)).
		WithArgs(int64(3), t1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := tr.RecordVisit(context.Background(), 7, t1); err != nil {
		t.Fatalf("RecordVisit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)
	tr := NewTracker(store, time.Hour)
	cause := errors.New("deadlock detected")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(lockClientSQL)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM stats`).
		WillReturnRows(sqlmock.NewRows(sessionColumns))
	mock.ExpectQuery(`INSERT INTO stats`).
		WillReturnError(cause)
	mock.ExpectRollback()

	err := tr.RecordVisit(context.Background(), 7, t0)
	if !errors.Is(err, ErrStore) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreBeginFailure(t *testing.T) {
	store, mock := newMockStore(t)
	tr := NewTracker(store, time.Hour)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	if err := tr.RecordVisit(context.Background(), 7, t0); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestLockClientSQLUsesNamespacedKey(t *testing.T) {
	if !strings.Contains(lockClientSQL, "pg_advisory_xact_lock(hashtext('hookbot.stats'), ") {
		t.Fatalf("client lock must use the two-key namespaced form: %s", lockClientSQL)
	}
}
