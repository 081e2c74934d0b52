package pointstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
	"github.com/banshee-data/lidar-classify/internal/timeutil"
)

// DefaultBatchSize is the number of records inserted per transaction.
const DefaultBatchSize = 10000

// Store enforces the ingest-then-query phase barrier over a Backend.
type Store struct {
	backend   Backend
	batchSize int
	clock     timeutil.Clock
	sealed    atomic.Bool

	mu      sync.Mutex // guards the loading-phase fields below
	scale   *cellhash.Scale
	current *SourceFile
	pending []Record
	total   int64
}

// Option configures a Store.
type Option func(*Store)

// WithBatchSize sets the number of records buffered per insert.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithClock sets the clock that stamps SourceFile.IngestedAt.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// New wraps backend in a Store in the loading phase.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, batchSize: DefaultBatchSize, clock: timeutil.RealClock{}}
	for _, o := range opts {
		o(s)
	}
	s.pending = make([]Record, 0, s.batchSize)
	return s
}

// Open wraps backend, starting in the sealed phase if its indexes already
// exist. This is how a classification run attaches to a store populated by
// an earlier ingest run.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := New(backend, opts...)
	indexed, err := backend.Indexed(ctx)
	if err != nil {
		return nil, fmt.Errorf("check store indexes: %w", err)
	}
	sources, err := backend.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ingested sources: %w", err)
	}
	if len(sources) > 0 {
		sc := sources[0].Scale
		s.scale = &sc
	}
	s.sealed.Store(indexed)
	return s, nil
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend { return s.backend }

// Sealed reports whether indexes have been built.
func (s *Store) Sealed() bool { return s.sealed.Load() }

// Reset empties the store and returns it to the loading phase.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	s.scale = nil
	s.current = nil
	s.pending = s.pending[:0]
	s.total = 0
	s.sealed.Store(false)
	return nil
}

// BeginFile opens an input file for appending. Every file must share the
// scale of the first one ingested.
func (s *Store) BeginFile(ctx context.Context, filename, runID string, scale cellhash.Scale, offset las.Vec3) error {
	if s.sealed.Load() {
		return ErrSealed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return fmt.Errorf("pointstore: %s still open while beginning %s", s.current.Filename, filename)
	}
	if s.scale != nil && *s.scale != scale {
		return fmt.Errorf("%w: %s has %+v, store has %+v", ErrScaleMismatch, filename, scale, *s.scale)
	}
	if s.scale == nil {
		sc := scale
		s.scale = &sc
	}
	s.current = &SourceFile{Filename: filename, RunID: runID, Scale: scale, Offset: offset}
	return nil
}

// Append computes the cell keys of p and buffers the record. It never
// rejects or deduplicates a point.
func (s *Store) Append(ctx context.Context, p Point) error {
	if s.sealed.Load() {
		return ErrSealed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoOpenFile
	}
	s.pending = append(s.pending, Record{
		Filename: s.current.Filename,
		Keys:     cellhash.Keys(p.X, p.Y, s.current.Scale),
		Point:    p,
	})
	s.current.PointCount++
	if len(s.pending) >= s.batchSize {
		return s.flushLocked(ctx)
	}
	return nil
}

// EndFile flushes the open file's remaining records and registers it as a
// source.
func (s *Store) EndFile(ctx context.Context) (SourceFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return SourceFile{}, ErrNoOpenFile
	}
	if err := s.flushLocked(ctx); err != nil {
		return SourceFile{}, err
	}
	src := *s.current
	src.IngestedAt = s.clock.Now().UTC()
	if err := s.backend.PutSource(ctx, src); err != nil {
		return SourceFile{}, fmt.Errorf("register source %s: %w", src.Filename, err)
	}
	s.current = nil
	return src, nil
}

func (s *Store) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.backend.InsertBatch(ctx, s.pending); err != nil {
		return fmt.Errorf("insert batch of %d records: %w", len(s.pending), err)
	}
	s.total += int64(len(s.pending))
	s.pending = s.pending[:0]
	return nil
}

// Seal flushes buffered records and builds the indexes. No query is
// answered before Seal returns successfully.
func (s *Store) Seal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed.Load() {
		return nil
	}
	if s.current != nil {
		return fmt.Errorf("pointstore: cannot seal while %s is open", s.current.Filename)
	}
	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	if err := s.backend.BuildIndexes(ctx); err != nil {
		return fmt.Errorf("build indexes: %w", err)
	}
	s.sealed.Store(true)
	return nil
}

// Appended returns the number of records flushed to the backend so far.
func (s *Store) Appended() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Scale returns the common scale of the ingested files.
func (s *Store) Scale() (cellhash.Scale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scale == nil {
		return cellhash.Scale{}, ErrEmpty
	}
	return *s.scale, nil
}

// Sources lists the ingested input files.
func (s *Store) Sources(ctx context.Context) ([]SourceFile, error) {
	return s.backend.Sources(ctx)
}

// Close closes the backend.
func (s *Store) Close() error { return s.backend.Close() }

func (s *Store) readable() error {
	if !s.sealed.Load() {
		return ErrNotIndexed
	}
	return nil
}

func checkResolution(res cellhash.Resolution) error {
	if !res.Valid() {
		return fmt.Errorf("pointstore: unsupported resolution %d", int(res))
	}
	return nil
}

// MinZPerCell implements Query.
func (s *Store) MinZPerCell(ctx context.Context, res cellhash.Resolution, singleReturnOnly bool) (map[cellhash.Key]int32, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if err := checkResolution(res); err != nil {
		return nil, err
	}
	return s.backend.MinZPerCell(ctx, res, singleReturnOnly)
}

// RecordsAtZ implements Query.
func (s *Store) RecordsAtZ(ctx context.Context, res cellhash.Resolution, key cellhash.Key, z int32) ([]Record, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if err := checkResolution(res); err != nil {
		return nil, err
	}
	return s.backend.RecordsAtZ(ctx, res, key, z)
}

// RecordsInCell implements Query.
func (s *Store) RecordsInCell(ctx context.Context, res cellhash.Resolution, key cellhash.Key, singleReturnOnly bool) ([]Record, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if err := checkResolution(res); err != nil {
		return nil, err
	}
	return s.backend.RecordsInCell(ctx, res, key, singleReturnOnly)
}

// RecordsBelow implements Query.
func (s *Store) RecordsBelow(ctx context.Context, res cellhash.Resolution, key cellhash.Key, zUpper float64) ([]Record, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if err := checkResolution(res); err != nil {
		return nil, err
	}
	return s.backend.RecordsBelow(ctx, res, key, zUpper)
}

// ParentCellMap implements Query.
func (s *Store) ParentCellMap(ctx context.Context, fine, coarse cellhash.Resolution) (map[cellhash.Key]cellhash.Key, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if err := checkResolution(fine); err != nil {
		return nil, err
	}
	if err := checkResolution(coarse); err != nil {
		return nil, err
	}
	if fine > coarse {
		return nil, fmt.Errorf("pointstore: %s is not finer than %s", fine, coarse)
	}
	return s.backend.ParentCellMap(ctx, fine, coarse)
}
