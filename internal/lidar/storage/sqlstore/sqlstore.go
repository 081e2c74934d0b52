// Package sqlstore implements pointstore.Backend over database/sql. The
// sqlite and postgres packages supply the connection, the schema
// migrations and a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// Dialect captures the differences between engines.
type Dialect struct {
	Name string
	// DollarPlaceholders selects $1, $2, ... instead of ?.
	DollarPlaceholders bool
	// IndexCatalog counts rows whose index name is one of the bound
	// parameters.
	IndexCatalog string
}

// Inserter bulk-inserts records. Engines with a faster path than
// prepared statements supply one.
type Inserter func(ctx context.Context, db *sql.DB, recs []pointstore.Record) error

// Store is a pointstore.Backend backed by a SQL database.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	migrator func() (*migrate.Migrate, error)
	insert   Inserter
}

// New returns a Store. migrator builds a migrate instance over db; it is
// invoked for Migrate and Reset.
func New(db *sql.DB, dialect Dialect, migrator func() (*migrate.Migrate, error)) *Store {
	s := &Store{db: db, dialect: dialect, migrator: migrator}
	s.insert = s.insertPrepared
	return s
}

// WithInserter overrides the bulk insert path.
func (s *Store) WithInserter(fn Inserter) *Store {
	if fn != nil {
		s.insert = fn
	}
	return s
}

var _ pointstore.Backend = (*Store)(nil)

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// indexNames are the indexes created by BuildIndexes.
var indexNames = []string{"idx_points_hash10", "idx_points_hash5", "idx_points_hash1", "idx_points_z"}

// PointColumns lists the points table columns written per record, in
// insert order.
var PointColumns = []string{
	"filename", "hash10", "hash5", "hash1", "num_returns", "return_number",
	"x", "y", "z", "intensity", "flag_byte", "raw_classification",
	"scan_angle_rank", "user_data", "pt_src_id", "gps_time",
}

var selectPoint = "SELECT " + strings.Join(PointColumns, ", ") + " FROM points"

// PointValues flattens r in PointColumns order.
func PointValues(r pointstore.Record) []any {
	return []any{
		r.Filename, string(r.Keys.K10), string(r.Keys.K5), string(r.Keys.K1),
		int64(r.NumReturns), int64(r.ReturnNumber),
		int64(r.X), int64(r.Y), int64(r.Z), int64(r.Intensity), int64(r.FlagByte),
		int64(r.Classification), int64(r.ScanAngleRank), int64(r.UserData),
		int64(r.PointSourceID), r.GPSTime,
	}
}

// rebind rewrites ? placeholders for the dialect.
func (s *Store) rebind(q string) string {
	if !s.dialect.DollarPlaceholders {
		return q
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func hashColumn(res cellhash.Resolution) (string, error) {
	switch res {
	case cellhash.Res10:
		return "hash10", nil
	case cellhash.Res5:
		return "hash5", nil
	case cellhash.Res1:
		return "hash1", nil
	}
	return "", fmt.Errorf("sqlstore: unsupported resolution %d", int(res))
}

// Migrate applies every pending up migration.
func (s *Store) Migrate() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Reset runs every down migration then every up migration.
func (s *Store) Reset(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	// Closing m would close the shared *sql.DB.
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// InsertBatch inserts recs in one transaction.
func (s *Store) InsertBatch(ctx context.Context, recs []pointstore.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return s.insert(ctx, s.db, recs)
}

func (s *Store) insertPrepared(ctx context.Context, db *sql.DB, recs []pointstore.Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	ph := strings.TrimSuffix(strings.Repeat("?, ", len(PointColumns)), ", ")
	q := s.rebind("INSERT INTO points (" + strings.Join(PointColumns, ", ") + ") VALUES (" + ph + ")")
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range recs {
		if _, err := stmt.ExecContext(ctx, PointValues(recs[i])...); err != nil {
			return fmt.Errorf("insert point %d of %s: %w", i, recs[i].Filename, err)
		}
	}
	return tx.Commit()
}

func (s *Store) PutSource(ctx context.Context, src pointstore.SourceFile) error {
	q := s.rebind(`INSERT INTO source_files (
		filename, run_id, point_count,
		scale_x, scale_y, scale_z, offset_x, offset_y, offset_z, ingested_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		src.Filename, src.RunID, src.PointCount,
		src.Scale.X, src.Scale.Y, src.Scale.Z,
		src.Offset.X, src.Offset.Y, src.Offset.Z,
		src.IngestedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert source file %s: %w", src.Filename, err)
	}
	return nil
}

func (s *Store) Sources(ctx context.Context) ([]pointstore.SourceFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		filename, run_id, point_count,
		scale_x, scale_y, scale_z, offset_x, offset_y, offset_z, ingested_at
	FROM source_files ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}
	defer rows.Close()

	var out []pointstore.SourceFile
	for rows.Next() {
		var (
			src pointstore.SourceFile
			ns  int64
		)
		if err := rows.Scan(
			&src.Filename, &src.RunID, &src.PointCount,
			&src.Scale.X, &src.Scale.Y, &src.Scale.Z,
			&src.Offset.X, &src.Offset.Y, &src.Offset.Z, &ns,
		); err != nil {
			return nil, fmt.Errorf("scan source file: %w", err)
		}
		src.IngestedAt = time.Unix(0, ns).UTC()
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Store) BuildIndexes(ctx context.Context) error {
	cols := []string{"hash10", "hash5", "hash1", "z"}
	for i, col := range cols {
		q := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON points (%s)", indexNames[i], col)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create index %s: %w", indexNames[i], err)
		}
	}
	return nil
}

func (s *Store) Indexed(ctx context.Context) (bool, error) {
	args := make([]any, len(indexNames))
	for i, n := range indexNames {
		args[i] = n
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(s.dialect.IndexCatalog), args...).Scan(&n); err != nil {
		return false, fmt.Errorf("inspect %s index catalog: %w", s.dialect.Name, err)
	}
	return n == len(indexNames), nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) MinZPerCell(ctx context.Context, res cellhash.Resolution, singleReturnOnly bool) (map[cellhash.Key]int32, error) {
	col, err := hashColumn(res)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + col + ", MIN(z) FROM points"
	if singleReturnOnly {
		q += " WHERE return_number = num_returns"
	}
	q += " GROUP BY " + col

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("min z per %s cell: %w", res, err)
	}
	defer rows.Close()

	out := make(map[cellhash.Key]int32)
	for rows.Next() {
		var (
			k string
			z int64
		)
		if err := rows.Scan(&k, &z); err != nil {
			return nil, fmt.Errorf("scan min z: %w", err)
		}
		out[cellhash.Key(k)] = int32(z)
	}
	return out, rows.Err()
}

func (s *Store) RecordsAtZ(ctx context.Context, res cellhash.Resolution, key cellhash.Key, z int32) ([]pointstore.Record, error) {
	col, err := hashColumn(res)
	if err != nil {
		return nil, err
	}
	return s.queryRecords(ctx, selectPoint+" WHERE "+col+" = ? AND z = ? ORDER BY id", string(key), int64(z))
}

func (s *Store) RecordsInCell(ctx context.Context, res cellhash.Resolution, key cellhash.Key, singleReturnOnly bool) ([]pointstore.Record, error) {
	col, err := hashColumn(res)
	if err != nil {
		return nil, err
	}
	q := selectPoint + " WHERE " + col + " = ?"
	if singleReturnOnly {
		q += " AND return_number = num_returns"
	}
	return s.queryRecords(ctx, q+" ORDER BY id", string(key))
}

func (s *Store) RecordsBelow(ctx context.Context, res cellhash.Resolution, key cellhash.Key, zUpper float64) ([]pointstore.Record, error) {
	col, err := hashColumn(res)
	if err != nil {
		return nil, err
	}
	q := selectPoint + " WHERE " + col + " = ? AND z < CAST(? AS DOUBLE PRECISION) ORDER BY id"
	return s.queryRecords(ctx, q, string(key), zUpper)
}

func (s *Store) ParentCellMap(ctx context.Context, fine, coarse cellhash.Resolution) (map[cellhash.Key]cellhash.Key, error) {
	fc, err := hashColumn(fine)
	if err != nil {
		return nil, err
	}
	cc, err := hashColumn(coarse)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT "+fc+", "+cc+" FROM points")
	if err != nil {
		return nil, fmt.Errorf("map %s cells to %s: %w", fine, coarse, err)
	}
	defer rows.Close()

	out := make(map[cellhash.Key]cellhash.Key)
	for rows.Next() {
		var f, c string
		if err := rows.Scan(&f, &c); err != nil {
			return nil, fmt.Errorf("scan cell pair: %w", err)
		}
		out[cellhash.Key(f)] = cellhash.Key(c)
	}
	return out, rows.Err()
}

func (s *Store) queryRecords(ctx context.Context, q string, args ...any) ([]pointstore.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var out []pointstore.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (pointstore.Record, error) {
	var (
		r                                 pointstore.Record
		k10, k5, k1                       string
		nr, rn, x, y, z, inten, flag, cls int64
		sar, ud, src                      int64
	)
	if err := rows.Scan(
		&r.Filename, &k10, &k5, &k1, &nr, &rn,
		&x, &y, &z, &inten, &flag, &cls, &sar, &ud, &src, &r.GPSTime,
	); err != nil {
		return r, fmt.Errorf("scan point: %w", err)
	}
	r.Keys = cellhash.CellKeys{K10: cellhash.Key(k10), K5: cellhash.Key(k5), K1: cellhash.Key(k1)}
	r.NumReturns = uint8(nr)
	r.ReturnNumber = uint8(rn)
	r.X, r.Y, r.Z = int32(x), int32(y), int32(z)
	r.Intensity = uint16(inten)
	r.FlagByte = uint8(flag)
	r.Classification = uint8(cls)
	r.ScanAngleRank = int8(sar)
	r.UserData = uint8(ud)
	r.PointSourceID = uint16(src)
	return r, nil
}
