// Package memory is an in-process RasterDBBackend, used for tests and dry-runs.
// Transactions work on a copy of the store that replaces it on commit. They are serialized.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/airbusgeo/coverstore/interface/database"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
)

// firstUserSRID is the first srid allocated to the spatial references registered by FindOrCreateSpatialRef
const firstUserSRID = 900000

type coverageData struct {
	cov           coverage.Coverage
	extent        coverage.Extent
	palette       *coverage.Palette
	stats         *coverage.Statistics
	sections      []coverage.Section
	sectionStats  map[int64]*coverage.Statistics
	levels        []coverage.PyramidLevel
	sectionLevels map[int64][]coverage.PyramidLevel
	tiles         []tiling.Tile
	blobs         map[int64][]byte
}

func (c *coverageData) clone() *coverageData {
	n := *c
	n.sections = append([]coverage.Section{}, c.sections...)
	n.levels = append([]coverage.PyramidLevel{}, c.levels...)
	n.tiles = append([]tiling.Tile{}, c.tiles...)
	n.sectionStats = make(map[int64]*coverage.Statistics, len(c.sectionStats))
	for k, v := range c.sectionStats {
		n.sectionStats[k] = v
	}
	n.sectionLevels = make(map[int64][]coverage.PyramidLevel, len(c.sectionLevels))
	for k, v := range c.sectionLevels {
		n.sectionLevels[k] = append([]coverage.PyramidLevel{}, v...)
	}
	// blobs are never modified once inserted
	n.blobs = make(map[int64][]byte, len(c.blobs))
	for k, v := range c.blobs {
		n.blobs[k] = v
	}
	return &n
}

type state struct {
	catalog       bool
	coverages     map[string]*coverageData
	srs           map[int]string
	nextSectionID int64
	nextTileID    int64
	nextSRID      int
}

func newState() *state {
	return &state{
		coverages: map[string]*coverageData{},
		srs:       map[int]string{},
		nextSRID:  firstUserSRID,
	}
}

func (s *state) clone() *state {
	n := *s
	n.coverages = make(map[string]*coverageData, len(s.coverages))
	for k, v := range s.coverages {
		n.coverages[k] = v.clone()
	}
	n.srs = make(map[int]string, len(s.srs))
	for k, v := range s.srs {
		n.srs[k] = v
	}
	return &n
}

// Backend is an in-memory store
type Backend struct {
	mu   sync.RWMutex
	st   *state
	txMu sync.Mutex
}

var _ database.RasterDBBackend = &Backend{}

// New creates an empty store
func New() *Backend {
	return &Backend{st: newState()}
}

// Tx is a transaction on a Backend
type Tx struct {
	*Backend
	parent *Backend
	done   bool
}

var _ database.RasterTxBackend = &Tx{}

// StartTransaction blocks until the previous transaction is committed or rolled back
func (b *Backend) StartTransaction(ctx context.Context) (database.RasterTxBackend, error) {
	b.txMu.Lock()
	b.mu.RLock()
	snapshot := b.st.clone()
	b.mu.RUnlock()
	return &Tx{Backend: &Backend{st: snapshot}, parent: b}, nil
}

// Commit replaces the state of the parent store
func (tx *Tx) Commit() error {
	if tx.done {
		return fmt.Errorf("commit: transaction already done")
	}
	tx.done = true
	tx.Backend.mu.RLock()
	st := tx.Backend.st
	tx.Backend.mu.RUnlock()
	tx.parent.mu.Lock()
	tx.parent.st = st
	tx.parent.mu.Unlock()
	tx.parent.txMu.Unlock()
	return nil
}

// Rollback discards the transaction (no effect if the transaction is already done)
func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.parent.txMu.Unlock()
	return nil
}

func (b *Backend) read(f func(st *state) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return f(b.st)
}

func (b *Backend) write(f func(st *state) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return f(b.st)
}

func (st *state) coverage(name string) (*coverageData, error) {
	c, ok := st.coverages[name]
	if !ok {
		return nil, coverage.NewEntityNotFound("Coverage", "name", name, "")
	}
	return c, nil
}

func (c *coverageData) section(id int64) (*coverage.Section, error) {
	for i := range c.sections {
		if c.sections[i].ID == id {
			return &c.sections[i], nil
		}
	}
	return nil, coverage.NewEntityNotFound("Section", "id", fmt.Sprint(id), "")
}

// CatalogExists implements RasterBackend
func (b *Backend) CatalogExists(ctx context.Context) (bool, error) {
	var exists bool
	err := b.read(func(st *state) error {
		exists = st.catalog
		return nil
	})
	return exists, err
}

// CreateCatalog implements RasterBackend
func (b *Backend) CreateCatalog(ctx context.Context) error {
	return b.write(func(st *state) error {
		st.catalog = true
		return nil
	})
}

// ListCoverages implements RasterBackend
func (b *Backend) ListCoverages(ctx context.Context) ([]*coverage.Coverage, error) {
	var covs []*coverage.Coverage
	err := b.read(func(st *state) error {
		for _, c := range st.coverages {
			cov := c.cov
			covs = append(covs, &cov)
		}
		return nil
	})
	sort.Slice(covs, func(i, j int) bool { return covs[i].Name < covs[j].Name })
	return covs, err
}

// ReadCoverage implements RasterBackend
func (b *Backend) ReadCoverage(ctx context.Context, name string) (*coverage.Coverage, error) {
	var cov coverage.Coverage
	err := b.read(func(st *state) error {
		c, err := st.coverage(name)
		if err != nil {
			return err
		}
		cov = c.cov
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cov, nil
}

// CreateCoverage implements RasterBackend
func (b *Backend) CreateCoverage(ctx context.Context, cov *coverage.Coverage) error {
	if err := cov.Validate(); err != nil {
		return err
	}
	return b.write(func(st *state) error {
		if !st.catalog {
			return coverage.NewStoreFailure("CreateCoverage", fmt.Errorf("catalog does not exist"))
		}
		if _, ok := st.coverages[cov.Name]; ok {
			return coverage.NewEntityAlreadyExists("Coverage", "name", cov.Name, "")
		}
		st.coverages[cov.Name] = &coverageData{
			cov:           *cov,
			sectionStats:  map[int64]*coverage.Statistics{},
			sectionLevels: map[int64][]coverage.PyramidLevel{},
			blobs:         map[int64][]byte{},
		}
		return nil
	})
}

// ReadCoverageExtent implements RasterBackend
func (b *Backend) ReadCoverageExtent(ctx context.Context, name string) (coverage.Extent, error) {
	var ext coverage.Extent
	err := b.read(func(st *state) error {
		c, err := st.coverage(name)
		if err == nil {
			ext = c.extent
		}
		return err
	})
	return ext, err
}

// ReadPalette implements RasterBackend
func (b *Backend) ReadPalette(ctx context.Context, name string) (*coverage.Palette, error) {
	var p *coverage.Palette
	err := b.read(func(st *state) error {
		c, err := st.coverage(name)
		if err == nil {
			p = c.palette
		}
		return err
	})
	return p, err
}

// UpdatePalette implements RasterBackend
func (b *Backend) UpdatePalette(ctx context.Context, name string, palette *coverage.Palette) error {
	return b.write(func(st *state) error {
		c, err := st.coverage(name)
		if err == nil {
			c.palette = palette
		}
		return err
	})
}

// ReadStatistics implements RasterBackend
func (b *Backend) ReadStatistics(ctx context.Context, name string, sectionID int64) (*coverage.Statistics, error) {
	var stats *coverage.Statistics
	err := b.read(func(st *state) error {
		c, err := st.coverage(name)
		if err != nil {
			return err
		}
		if sectionID == tiling.CoverageWide {
			stats = c.stats
		} else {
			stats = c.sectionStats[sectionID]
		}
		return nil
	})
	return stats, err
}

// ListSections implements RasterBackend
func (b *Backend) ListSections(ctx context.Context, cov string) ([]coverage.Section, error) {
	var sections []coverage.Section
	err := b.read(func(st *state) error {
		c, err := st.coverage(cov)
		if err == nil {
			sections = append(sections, c.sections...)
		}
		return err
	})
	return sections, err
}

// ReadSection implements RasterBackend
func (b *Backend) ReadSection(ctx context.Context, cov string, sectionID int64) (coverage.Section, error) {
	var section coverage.Section
	err := b.read(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		s, err := c.section(sectionID)
		if err == nil {
			section = *s
		}
		return err
	})
	return section, err
}

// SetSpatialRef registers a spatial reference with the given srid
func (b *Backend) SetSpatialRef(srid int, wkt string) {
	_ = b.write(func(st *state) error {
		st.srs[srid] = wkt
		return nil
	})
}

// ReadSpatialRef implements RasterBackend
func (b *Backend) ReadSpatialRef(ctx context.Context, srid int) (string, error) {
	var wkt string
	err := b.read(func(st *state) error {
		var ok bool
		if wkt, ok = st.srs[srid]; !ok {
			return coverage.NewEntityNotFound("SpatialRef", "srid", fmt.Sprint(srid), "")
		}
		return nil
	})
	return wkt, err
}

// FindOrCreateSpatialRef implements RasterBackend
func (b *Backend) FindOrCreateSpatialRef(ctx context.Context, wkt string) (int, error) {
	var srid int
	err := b.write(func(st *state) error {
		for id, w := range st.srs {
			if w == wkt {
				srid = id
				return nil
			}
		}
		srid = st.nextSRID
		st.nextSRID++
		st.srs[srid] = wkt
		return nil
	})
	return srid, err
}

// ReadRawRaster implements RasterBackend
func (b *Backend) ReadRawRaster(ctx context.Context, cov *coverage.Coverage, req coverage.WindowRequest) ([]byte, error) {
	return tiling.ReadWindow(ctx, b, cov, req)
}

// LoadRawTiles implements RasterBackend
func (b *Backend) LoadRawTiles(ctx context.Context, cov *coverage.Coverage, req coverage.LoadRequest, producer coverage.TileProducer) (coverage.Section, error) {
	return tiling.Load(ctx, b, cov, req, producer)
}
