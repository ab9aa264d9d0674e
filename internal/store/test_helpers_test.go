package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"stake-arena/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var testSchemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func openStore(t *testing.T) (*Store, context.Context, func()) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.TestPostgresDSN
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	if !testSchemaNamePattern.MatchString(schema) {
		t.Fatalf("invalid schema name %q", schema)
	}
	ctx := context.Background()
	base, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	if _, err := base.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		base.Close()
		t.Fatalf("create schema: %v", err)
	}
	base.Close()

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	st, err := New(dsn + sep + "search_path=" + url.QueryEscape(schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ddl, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000001_init.up.sql"))
	if err != nil {
		st.Close()
		t.Fatalf("read migration: %v", err)
	}
	if _, err := st.Pool.Exec(ctx, string(ddl)); err != nil {
		st.Close()
		t.Fatalf("apply schema: %v", err)
	}

	cleanup := func() {
		st.Close()
		base, err := pgxpool.New(context.Background(), dsn)
		if err == nil {
			_, _ = base.Exec(context.Background(), "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
			base.Close()
		}
	}
	return st, ctx, cleanup
}

func mustCredit(t *testing.T, st *Store, ctx context.Context, accountID, asset string, amount int64) {
	t.Helper()
	if _, err := st.Credit(ctx, EntryParams{AccountID: accountID, Asset: asset, Amount: amount, EntryType: "manual"}); err != nil {
		t.Fatalf("credit %s: %v", accountID, err)
	}
}
