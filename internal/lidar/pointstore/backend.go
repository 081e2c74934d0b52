package pointstore

import (
	"context"
	"errors"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
)

var (
	// ErrNotIndexed is returned by queries issued before Seal.
	ErrNotIndexed = errors.New("pointstore: indexes not built; ingestion has not completed")
	// ErrSealed is returned by writes issued after Seal.
	ErrSealed = errors.New("pointstore: store is sealed and read-only")
	// ErrScaleMismatch is returned when an input file's scale differs from
	// the files already ingested.
	ErrScaleMismatch = errors.New("pointstore: input scale differs from ingested files")
	// ErrNoOpenFile is returned by Append outside BeginFile/EndFile.
	ErrNoOpenFile = errors.New("pointstore: no input file open")
	// ErrEmpty is returned by Scale when nothing has been ingested.
	ErrEmpty = errors.New("pointstore: no input files ingested")
)

// Query is the read-only surface the classifiers use. Record slices are
// returned in storage order.
type Query interface {
	// MinZPerCell returns the minimum raw Z of every cell at res. With
	// singleReturnOnly only last/only returns participate, and cells with
	// no such return are absent from the result.
	MinZPerCell(ctx context.Context, res cellhash.Resolution, singleReturnOnly bool) (map[cellhash.Key]int32, error)

	// RecordsAtZ returns the records of cell key with raw Z equal to z.
	RecordsAtZ(ctx context.Context, res cellhash.Resolution, key cellhash.Key, z int32) ([]Record, error)

	// RecordsInCell returns the records of cell key.
	RecordsInCell(ctx context.Context, res cellhash.Resolution, key cellhash.Key, singleReturnOnly bool) ([]Record, error)

	// RecordsBelow returns the records of cell key with raw Z strictly
	// below zUpper, regardless of return number.
	RecordsBelow(ctx context.Context, res cellhash.Resolution, key cellhash.Key, zUpper float64) ([]Record, error)

	// ParentCellMap maps every occupied cell at fine to the cell at coarse
	// containing it, derived from keys stored side by side on each record.
	ParentCellMap(ctx context.Context, fine, coarse cellhash.Resolution) (map[cellhash.Key]cellhash.Key, error)
}

// Backend stores records. Implementations need not enforce the load/query
// phase ordering; Store does.
type Backend interface {
	Query

	// Reset discards every record, source and index.
	Reset(ctx context.Context) error
	// InsertBatch appends records in one transaction.
	InsertBatch(ctx context.Context, recs []Record) error
	// PutSource records an ingested input file.
	PutSource(ctx context.Context, src SourceFile) error
	// Sources lists ingested input files in ingestion order.
	Sources(ctx context.Context) ([]SourceFile, error)
	// BuildIndexes creates the cell key and Z indexes.
	BuildIndexes(ctx context.Context) error
	// Indexed reports whether BuildIndexes has completed.
	Indexed(ctx context.Context) (bool, error)
	// Close releases the backend's resources.
	Close() error
}
