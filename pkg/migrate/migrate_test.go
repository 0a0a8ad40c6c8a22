package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "migrate.db")
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations should validate: %v", err)
	}
}

func TestRunEmbeddedCreatesCartSnapshots(t *testing.T) {
	sqlDB := openSQLite(t)
	ctx := context.Background()

	if err := RunEmbedded(ctx, sqlDB, "sqlite", "up"); err != nil {
		t.Fatalf("goose up: %v", err)
	}

	if _, err := sqlDB.ExecContext(ctx,
		`INSERT INTO cart_snapshots (session_id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		"session-1", `{"version":1,"items":[]}`,
	); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}

	if err := RunEmbedded(ctx, sqlDB, "sqlite", "down"); err != nil {
		t.Fatalf("goose down: %v", err)
	}
	if _, err := sqlDB.ExecContext(ctx, `SELECT 1 FROM cart_snapshots`); err == nil {
		t.Fatal("expected cart_snapshots to be dropped")
	}
}

func TestDialect(t *testing.T) {
	cases := map[string]string{
		"":         "postgres",
		"postgres": "postgres",
		"SQLite":   "sqlite3",
		"sqlite3":  "sqlite3",
	}
	for in, want := range cases {
		got, err := Dialect(in)
		if err != nil {
			t.Fatalf("Dialect(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Dialect(%q) = %q want %q", in, got, want)
		}
	}
	if _, err := Dialect("oracle"); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Cart Index!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("unexpected path %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}
