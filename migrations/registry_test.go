package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func TestFor_ResolvesEachDialect(t *testing.T) {
	for _, dialect := range []string{DialectPostgres, DialectSQLite, " SQLite "} {
		fsys, err := For(dialect)
		if err != nil {
			t.Fatalf("for %q: %v", dialect, err)
		}
		matches, err := fs.Glob(fsys, "*.up.sql")
		if err != nil {
			t.Fatalf("glob %q: %v", dialect, err)
		}
		if len(matches) != len(Schema) {
			t.Fatalf("expected %d up migrations for %q, got %v", len(Schema), dialect, matches)
		}
	}
}

func TestFor_SQLiteUsesItsOwnFiles(t *testing.T) {
	postgres, err := For(DialectPostgres)
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	sqlite, err := For(DialectSQLite)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	name := Schema[0] + ".up.sql"
	pgSQL, _ := fs.ReadFile(postgres, name)
	liteSQL, _ := fs.ReadFile(sqlite, name)
	if string(pgSQL) == string(liteSQL) {
		t.Fatalf("expected dialect specific SQL for %s", name)
	}
}

func TestFor_RejectsUnknownDialect(t *testing.T) {
	if _, err := For("mysql"); err == nil || !strings.Contains(err.Error(), "unsupported dialect") {
		t.Fatalf("expected unsupported dialect error, got %v", err)
	}
}

func TestFor_RequiresDownMigrations(t *testing.T) {
	source := fstest.MapFS{
		"data/sql/migrations/" + Schema[0] + ".up.sql":   {Data: []byte("SELECT 1;")},
		"data/sql/migrations/" + Schema[0] + ".down.sql": {Data: []byte("SELECT 1;")},
		"data/sql/migrations/" + Schema[1] + ".up.sql":   {Data: []byte("SELECT 1;")},
	}
	_, err := For(DialectPostgres, source)
	if err == nil || !strings.Contains(err.Error(), Schema[1]+".down.sql") {
		t.Fatalf("expected missing down migration error, got %v", err)
	}
}

func TestMigrationPairs_HaveContent(t *testing.T) {
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		fsys, err := For(dialect)
		if err != nil {
			t.Fatalf("for %s: %v", dialect, err)
		}
		for _, name := range Schema {
			for _, suffix := range []string{".up.sql", ".down.sql"} {
				content, err := fs.ReadFile(fsys, name+suffix)
				if err != nil {
					t.Fatalf("read %s %s%s: %v", dialect, name, suffix, err)
				}
				if strings.TrimSpace(string(content)) == "" {
					t.Fatalf("expected %s %s%s to have SQL content", dialect, name, suffix)
				}
			}
		}
	}
}

func TestSQLiteCredentialsMigration_EnforcesOneActiveVersion(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-credentials?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := For(DialectSQLite)
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()
	if err := execSQLMigration(ctx, db, sqliteMigrations, "20261019000001_admin_client_credentials.up.sql"); err != nil {
		t.Fatalf("apply credentials migration up: %v", err)
	}

	insert := `INSERT INTO admin_client_credentials (id, profile, version, access_token, refresh_token, status) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, insert, "c1", "default", 1, "a1", "r1", "active"); err != nil {
		t.Fatalf("insert first active: %v", err)
	}
	if _, err := db.ExecContext(ctx, insert, "c2", "default", 2, "a2", "r2", "active"); err == nil {
		t.Fatalf("expected second active version to violate the partial unique index")
	}
	if _, err := db.ExecContext(ctx, insert, "c3", "default", 2, "a2", "r2", "rotated"); err != nil {
		t.Fatalf("expected inactive version to be accepted: %v", err)
	}
	if _, err := db.ExecContext(ctx, insert, "c4", "default", 2, "a3", "r3", "revoked"); err == nil {
		t.Fatalf("expected duplicate profile version to fail")
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "20261019000001_admin_client_credentials.down.sql"); err != nil {
		t.Fatalf("apply credentials migration down: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"admin_client_credentials",
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected admin_client_credentials to be dropped")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
