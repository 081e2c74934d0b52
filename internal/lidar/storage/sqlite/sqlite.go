package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/lidar-classify/internal/lidar/storage/sqlstore"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Dialect is the SQLite flavour of the point store SQL.
var Dialect = sqlstore.Dialect{
	Name:         "sqlite",
	IndexCatalog: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name IN (?, ?, ?, ?)",
}

// pragmas are applied to every pooled connection. Durability is traded for
// load speed: a crashed ingest is rerun from scratch anyway.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(OFF)",
	"temp_store(MEMORY)",
}

// DSN builds a modernc.org/sqlite data source name for path with the store
// pragmas attached.
func DSN(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema migrations.
func Open(path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}

	s := sqlstore.New(db, Dialect, func() (*migrate.Migrate, error) {
		return newMigrate(db)
	})
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store %s: %w", path, err)
	}
	monitoring.Logf("[store] opened sqlite point store %s", path)
	return s, nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
