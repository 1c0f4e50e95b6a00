package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Opens a database given either a local file path or a libsql:// url and
// applies the given schema to it. Schemas are expected to use
// `CREATE TABLE IF NOT EXISTS ...` so reopening an existing database is a
// no-op.
func OpenDB(schema, target string) (*sql.DB, error) {
	if target == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}

	var db *sql.DB
	var err error

	if strings.HasPrefix(target, "libsql://") || strings.HasPrefix(target, "https://") {
		db, err = sql.Open("libsql", target)
		if err != nil {
			return nil, err
		}
	} else {
		_, statErr := os.Stat(target)
		if os.IsNotExist(statErr) && target != ":memory:" {
			f, err := os.Create(target)
			if err != nil {
				return nil, err
			}
			f.Close()
		}

		db, err = sql.Open("sqlite", target)
		if err != nil {
			return nil, err
		}
		// see this stackoverflow post for information on why the following
		// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			return nil, err
		}
	}

	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}
