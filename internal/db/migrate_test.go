package db

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return conn, mock
}

func TestCurrentVersion_Success(t *testing.T) {
	conn, mock := newMockDB(t)
	defer conn.Close()

	mock.ExpectQuery(`SELECT version, dirty FROM schema_migrations LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(1), false))

	version, dirty, err := CurrentVersion(context.Background(), conn)
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("got version=%d dirty=%v, want 1 false", version, dirty)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCurrentVersion_NoRows(t *testing.T) {
	conn, mock := newMockDB(t)
	defer conn.Close()

	mock.ExpectQuery(`SELECT version, dirty FROM schema_migrations LIMIT 1`).
		WillReturnError(sql.ErrNoRows)

	if _, _, err := CurrentVersion(context.Background(), conn); !errors.Is(err, ErrNoVersion) {
		t.Errorf("expected ErrNoVersion, got %v", err)
	}
}

func TestCurrentVersion_QueryError(t *testing.T) {
	conn, mock := newMockDB(t)
	defer conn.Close()

	mock.ExpectQuery(`SELECT version, dirty FROM schema_migrations LIMIT 1`).
		WillReturnError(errors.New("relation does not exist"))

	_, _, err := CurrentVersion(context.Background(), conn)
	if err == nil || errors.Is(err, ErrNoVersion) {
		t.Errorf("expected wrapped query error, got %v", err)
	}
}

func TestEmbeddedMigrationsConstrainStatus(t *testing.T) {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		t.Fatalf("iofs.New failed: %v", err)
	}
	defer source.Close()

	first, err := source.First()
	if err != nil {
		t.Fatalf("First failed: %v", err)
	}
	r, _, err := source.ReadUp(first)
	if err != nil {
		t.Fatalf("ReadUp failed: %v", err)
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(body)
	for _, want := range []string{
		"check (status in ('PROCESSING', 'COMPLETED', 'FAILED'))",
		"unique (story_id, scene_number)",
		"check (scene_number > 0)",
	} {
		if !strings.Contains(sqlText, want) {
			t.Errorf("migration missing %q", want)
		}
	}
	if _, _, err := source.ReadDown(first); err != nil {
		t.Errorf("expected down migration for version %d: %v", first, err)
	}
}
