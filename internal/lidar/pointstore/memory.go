package pointstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
)

// MemoryBackend keeps every record in a single arena slice. Indexes are
// per-resolution maps from cell key to arena positions, so storage order is
// arena order.
type MemoryBackend struct {
	mu      sync.RWMutex
	arena   []Record
	sources []SourceFile

	indexed bool
	cells   map[cellhash.Resolution]map[cellhash.Key][]int
	// byZ holds each cell's arena positions sorted by (Z, position).
	byZ map[cellhash.Resolution]map[cellhash.Key][]int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

var _ Backend = (*MemoryBackend)(nil)

func (m *MemoryBackend) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arena = nil
	m.sources = nil
	m.indexed = false
	m.cells = nil
	m.byZ = nil
	return nil
}

func (m *MemoryBackend) InsertBatch(ctx context.Context, recs []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arena = append(m.arena, recs...)
	// New rows invalidate any previous index.
	m.indexed = false
	return nil
}

func (m *MemoryBackend) PutSource(ctx context.Context, src SourceFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, src)
	return nil
}

func (m *MemoryBackend) Sources(ctx context.Context) ([]SourceFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.sources), nil
}

func (m *MemoryBackend) BuildIndexes(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cells := make(map[cellhash.Resolution]map[cellhash.Key][]int, len(cellhash.Resolutions))
	byZ := make(map[cellhash.Resolution]map[cellhash.Key][]int, len(cellhash.Resolutions))
	for _, res := range cellhash.Resolutions {
		idx := make(map[cellhash.Key][]int)
		for i := range m.arena {
			k := m.arena[i].Keys.At(res)
			idx[k] = append(idx[k], i)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		zidx := make(map[cellhash.Key][]int, len(idx))
		for k, pos := range idx {
			sorted := slices.Clone(pos)
			sort.SliceStable(sorted, func(a, b int) bool {
				return m.arena[sorted[a]].Z < m.arena[sorted[b]].Z
			})
			zidx[k] = sorted
		}
		cells[res] = idx
		byZ[res] = zidx
	}
	m.cells = cells
	m.byZ = byZ
	m.indexed = true
	return nil
}

func (m *MemoryBackend) Indexed(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed, nil
}

func (m *MemoryBackend) Close() error { return nil }

// Len returns the number of stored records.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.arena)
}

func (m *MemoryBackend) cellIndex(res cellhash.Resolution) (map[cellhash.Key][]int, error) {
	if !m.indexed {
		return nil, ErrNotIndexed
	}
	return m.cells[res], nil
}

func (m *MemoryBackend) MinZPerCell(ctx context.Context, res cellhash.Resolution, singleReturnOnly bool) (map[cellhash.Key]int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, err := m.cellIndex(res)
	if err != nil {
		return nil, err
	}
	out := make(map[cellhash.Key]int32, len(idx))
	for k, pos := range idx {
		for _, i := range pos {
			r := &m.arena[i]
			if singleReturnOnly && !r.IsSingleReturn() {
				continue
			}
			if cur, ok := out[k]; !ok || r.Z < cur {
				out[k] = r.Z
			}
		}
	}
	return out, nil
}

func (m *MemoryBackend) RecordsAtZ(ctx context.Context, res cellhash.Resolution, key cellhash.Key, z int32) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, err := m.cellIndex(res)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, i := range idx[key] {
		if m.arena[i].Z == z {
			out = append(out, m.arena[i])
		}
	}
	return out, nil
}

func (m *MemoryBackend) RecordsInCell(ctx context.Context, res cellhash.Resolution, key cellhash.Key, singleReturnOnly bool) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, err := m.cellIndex(res)
	if err != nil {
		return nil, err
	}
	pos := idx[key]
	out := make([]Record, 0, len(pos))
	for _, i := range pos {
		if singleReturnOnly && !m.arena[i].IsSingleReturn() {
			continue
		}
		out = append(out, m.arena[i])
	}
	return out, nil
}

func (m *MemoryBackend) RecordsBelow(ctx context.Context, res cellhash.Resolution, key cellhash.Key, zUpper float64) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.indexed {
		return nil, ErrNotIndexed
	}
	sorted := m.byZ[res][key]
	n := sort.Search(len(sorted), func(j int) bool {
		return float64(m.arena[sorted[j]].Z) >= zUpper
	})
	pos := slices.Clone(sorted[:n])
	slices.Sort(pos)
	out := make([]Record, len(pos))
	for j, i := range pos {
		out[j] = m.arena[i]
	}
	return out, nil
}

func (m *MemoryBackend) ParentCellMap(ctx context.Context, fine, coarse cellhash.Resolution) (map[cellhash.Key]cellhash.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, err := m.cellIndex(fine)
	if err != nil {
		return nil, err
	}
	out := make(map[cellhash.Key]cellhash.Key, len(idx))
	for k, pos := range idx {
		out[k] = m.arena[pos[0]].Keys.At(coarse)
	}
	return out, nil
}
