package main

import (
	"context"
	"sync"

	"github.com/airbusgeo/coverstore/interface/database"
	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/raster"
	"go.uber.org/zap"
)

// datasets keeps the opened datasets, by coverage and section.
// A coverage is reopened after an event notified a change.
type datasets struct {
	db    database.RasterBackend
	store string
	opts  raster.OpenOptions

	mu   sync.Mutex
	open map[string]map[int64]*raster.Dataset
}

func newDatasets(db database.RasterBackend, store string, opts raster.OpenOptions) *datasets {
	return &datasets{
		db:    db,
		store: store,
		opts:  opts,
		open:  map[string]map[int64]*raster.Dataset{},
	}
}

func (d *datasets) cached(cov string, sectionID int64) (*raster.Dataset, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ds, ok := d.open[cov][sectionID]
	return ds, ok
}

// Get returns the dataset of the coverage (sectionID < 0: the whole coverage)
func (d *datasets) Get(ctx context.Context, cov string, sectionID int64) (*raster.Dataset, error) {
	if sectionID < 0 {
		sectionID = -1
	}
	if ds, ok := d.cached(cov, sectionID); ok {
		return ds, nil
	}
	cs := coverage.ConnString{File: d.store, Coverage: cov, SectionID: sectionID}
	ds, err := raster.Open(ctx, d.db, cs.String(), d.opts)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if other, ok := d.open[cov][sectionID]; ok {
		return other, nil
	}
	if d.open[cov] == nil {
		d.open[cov] = map[int64]*raster.Dataset{}
	}
	d.open[cov][sectionID] = ds
	return ds, nil
}

// Invalidate forgets the datasets of the coverage and returns how many were opened
func (d *datasets) Invalidate(cov string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.open[cov])
	delete(d.open, cov)
	return n
}

// HandleEvent invalidates the coverage of the event
func (d *datasets) HandleEvent(ctx context.Context, evt messaging.CoverageEvent) error {
	if evt.Store != "" && evt.Store != d.store {
		log.Logger(ctx).Debug("event of another store", zap.String("store", evt.Store))
		return nil
	}
	n := d.Invalidate(evt.Coverage)
	log.Logger(ctx).Info("coverage changed", zap.String("coverage", evt.Coverage), zap.String("section", evt.Section),
		zap.String("kind", string(evt.Kind)), zap.Int("invalidated", n))
	return nil
}
