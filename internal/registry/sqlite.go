package registry

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"livecanvas/internal/logging"
)

// SQLiteRegistry serves lookups from the scanner's element database. The
// scanner owns the schema and all writes; this side only ever reads.
//
//	CREATE TABLE elements (tag TEXT PRIMARY KEY, symbol TEXT, kind TEXT, path TEXT);
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLiteRegistry opens the element database read-only.
func OpenSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open element database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("element database unreachable: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

// Resolve implements Registry.
func (r *SQLiteRegistry) Resolve(tag string) (Origin, bool) {
	var o Origin
	var kind string
	row := r.db.QueryRow(`SELECT symbol, kind, COALESCE(path, '') FROM elements WHERE tag = ?`, tag)
	if err := row.Scan(&o.Symbol, &kind, &o.Path); err != nil {
		if err != sql.ErrNoRows {
			logging.Get(logging.CategoryRegistry).Error("lookup %q: %v", tag, err)
		}
		return Origin{}, false
	}
	o.Kind = OriginKind(kind)
	return o, true
}

// Close releases the database handle.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}
