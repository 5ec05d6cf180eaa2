package credentials

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shortshive/internal/sqlinline"
)

// fakeSQL answers QueryRow with a fixed row and records what it was asked.
type fakeSQL struct {
	values  []any
	err     error
	queries []string
	args    [][]any
}

func (f *fakeSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (f *fakeSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	return fakeRow{values: f.values, err: f.err}
}

func (f *fakeSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d dest for %d values", len(dest), len(r.values))
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		case *bool:
			*d = v.(bool)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

func TestLookup(t *testing.T) {
	rotatedAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(&fakeSQL{values: []any{" abc123 ", rotatedAt}})

	key, ok, err := store.Lookup(context.Background(), ProviderGemini)
	if err != nil || !ok {
		t.Fatalf("Lookup = %+v, %v, %v", key, ok, err)
	}
	if key.Token != "abc123" || !key.UpdatedAt.Equal(rotatedAt) {
		t.Fatalf("unexpected key %+v", key)
	}
}

func TestLookupMissing(t *testing.T) {
	store := NewStore(&fakeSQL{err: pgx.ErrNoRows})
	key, ok, err := store.Lookup(context.Background(), ProviderGemini)
	if err != nil || ok || key.Token != "" {
		t.Fatalf("expected no key, got %+v, %v, %v", key, ok, err)
	}
}

func TestLookupSurfacesErrors(t *testing.T) {
	store := NewStore(&fakeSQL{err: errors.New("connection reset")})
	if _, _, err := store.Lookup(context.Background(), ProviderGemini); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResolvePrefersConfiguredKey(t *testing.T) {
	db := &fakeSQL{values: []any{"stored", time.Now()}}
	store := NewStore(db)

	key, err := store.Resolve(context.Background(), ProviderGemini, " env-key ")
	if err != nil || key != "env-key" {
		t.Fatalf("expected env-key, got %q, %v", key, err)
	}
	if len(db.queries) != 0 {
		t.Fatalf("configured key should not hit the database")
	}

	key, err = store.Resolve(context.Background(), ProviderOpenRouter, "")
	if err != nil || key != "stored" {
		t.Fatalf("expected stored fallback, got %q, %v", key, err)
	}
	if db.args[0][0] != ProviderOpenRouter {
		t.Fatalf("looked up wrong provider: %v", db.args[0])
	}

	var nilStore *Store
	if key, err := nilStore.Resolve(context.Background(), ProviderGemini, ""); key != "" || err != nil {
		t.Fatalf("nil store should resolve to nothing, got %q, %v", key, err)
	}
}

func TestSetToken(t *testing.T) {
	db := &fakeSQL{values: []any{true}}
	store := NewStore(db)

	rotated, err := store.SetToken(context.Background(), ProviderGemini, " secret ", "cli")
	if err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if !rotated {
		t.Fatalf("expected rotated=true")
	}
	if db.queries[0] != sqlinline.QUpsertIntegrationToken {
		t.Fatalf("unexpected query")
	}
	args := db.args[0]
	if args[0] != ProviderGemini || args[1] != "secret" || string(args[2].([]byte)) != `{"source":"cli"}` {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestSetTokenValidates(t *testing.T) {
	db := &fakeSQL{}
	store := NewStore(db)
	if _, err := store.SetToken(context.Background(), ProviderGemini, " ", "cli"); err == nil {
		t.Fatalf("expected error for blank token")
	}
	if _, err := store.SetToken(context.Background(), "", "k", "cli"); err == nil {
		t.Fatalf("expected error for blank provider")
	}
	if len(db.queries) != 0 {
		t.Fatalf("invalid input should not reach the database")
	}
}
