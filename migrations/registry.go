// Package migrations resolves the embedded schema for the SQL credential
// store. Postgres files live at data/sql/migrations and sqlite files in its
// sqlite/ subdirectory.
package migrations

import (
	"fmt"
	"io/fs"
	"strings"

	adminclient "github.com/goliatone/go-admin-client"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	rootPath = "data/sql/migrations"
)

// Schema lists the migrations every dialect must carry, in apply order.
var Schema = []string{
	"20261019000001_admin_client_credentials",
	"20261019000002_admin_client_rate_limit_states",
}

// For returns the migration filesystem for dialect. The embedded files are
// used unless source is given. Each Schema entry must have both an up and
// a down file.
func For(dialect string, source ...fs.FS) (fs.FS, error) {
	root := adminclient.GetMigrationsFS()
	if len(source) > 0 && source[0] != nil {
		root = source[0]
	}
	base, err := fs.Sub(root, rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: %s: %w", rootPath, err)
	}

	var fsys fs.FS
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case DialectPostgres:
		fsys = base
	case DialectSQLite:
		if fsys, err = fs.Sub(base, "sqlite"); err != nil {
			return nil, fmt.Errorf("migrations: sqlite: %w", err)
		}
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	if err := checkSchema(fsys); err != nil {
		return nil, fmt.Errorf("migrations: %s: %w", dialect, err)
	}
	return fsys, nil
}

func checkSchema(fsys fs.FS) error {
	for _, name := range Schema {
		for _, suffix := range []string{".up.sql", ".down.sql"} {
			if _, err := fs.Stat(fsys, name+suffix); err != nil {
				return fmt.Errorf("missing %s%s", name, suffix)
			}
		}
	}
	return nil
}
