// Package postgres is the PostgreSQL point store engine, for stores too
// large for a single SQLite file or shared between ingest hosts.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib" // registers pgx as a database/sql driver

	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/lidar/storage/sqlstore"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
)

const driverName = "pgx"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Dialect is the PostgreSQL flavour of the point store SQL.
var Dialect = sqlstore.Dialect{
	Name:               "postgres",
	DollarPlaceholders: true,
	IndexCatalog:       "SELECT COUNT(*) FROM pg_indexes WHERE schemaname = current_schema() AND indexname IN (?, ?, ?, ?)",
}

var errNoDSN = errors.New("postgres: empty DSN")

// Open connects to dsn and applies the schema migrations.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	if dsn == "" {
		return nil, errNoDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := sqlstore.New(db, Dialect, func() (*migrate.Migrate, error) {
		return newMigrate(db)
	}).WithInserter(copyInsert)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres store: %w", err)
	}
	monitoring.Logf("[store] opened postgres point store")
	return s, nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// copyInsert streams a batch through COPY FROM STDIN on the native pgx
// connection. COPY is atomic per call and assigns ids in row order.
func copyInsert(ctx context.Context, db *sql.DB, recs []pointstore.Record) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		pc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("postgres: unexpected driver connection %T", driverConn)
		}
		rows := make([][]any, len(recs))
		for i := range recs {
			rows[i] = sqlstore.PointValues(recs[i])
		}
		n, err := pc.Conn().CopyFrom(ctx, pgx.Identifier{"points"}, sqlstore.PointColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy %d points: %w", len(recs), err)
		}
		if n != int64(len(recs)) {
			return fmt.Errorf("copy points: wrote %d of %d", n, len(recs))
		}
		return nil
	})
}
