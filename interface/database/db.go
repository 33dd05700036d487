package database

import (
	"context"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
)

type RasterTxBackend interface {
	RasterBackend
	// Must be call to apply transaction
	Commit() error
	// Might be called to cancel the transaction (no effect if commit has already be done)
	Rollback() error
}

type RasterDBBackend interface {
	RasterBackend
	StartTransaction(ctx context.Context) (RasterTxBackend, error)
}

type RasterBackend interface {
	// Persistence primitives of the tiles, sections and levels
	tiling.TileStore

	/******************** Catalog *************************/
	// CatalogExists returns true if the catalog tables exist
	CatalogExists(ctx context.Context) (bool, error)
	// CreateCatalog creates the catalog tables (no effect if they already exist)
	CreateCatalog(ctx context.Context) error

	/******************** Coverages *************************/
	// ListCoverages returns all the coverages of the store, ordered by name
	ListCoverages(ctx context.Context) ([]*coverage.Coverage, error)
	// ReadCoverage retrieves the coverage
	// Raise EntityNotFound
	ReadCoverage(ctx context.Context, name string) (*coverage.Coverage, error)
	// CreateCoverage creates the coverage and its tables
	// Raise EntityAlreadyExists
	CreateCoverage(ctx context.Context, cov *coverage.Coverage) error
	// ReadCoverageExtent returns the union of the extents of the sections of the coverage
	// Raise EntityNotFound
	ReadCoverageExtent(ctx context.Context, name string) (coverage.Extent, error)
	// ReadPalette returns the palette of the coverage or nil if it has none
	ReadPalette(ctx context.Context, name string) (*coverage.Palette, error)
	// UpdatePalette sets the palette of the coverage
	// Raise EntityNotFound
	UpdatePalette(ctx context.Context, name string, palette *coverage.Palette) error
	// ReadStatistics returns the statistics of the section (or of the coverage if sectionID is tiling.CoverageWide)
	// or nil if they are not known
	ReadStatistics(ctx context.Context, name string, sectionID int64) (*coverage.Statistics, error)

	/******************** Sections *************************/
	// ListSections returns the sections of the coverage, ordered by id
	ListSections(ctx context.Context, cov string) ([]coverage.Section, error)
	// ReadSection retrieves the section
	// Raise EntityNotFound
	ReadSection(ctx context.Context, cov string, sectionID int64) (coverage.Section, error)

	/******************** Spatial references *************************/
	// ReadSpatialRef returns the WKT of the spatial reference
	// Raise EntityNotFound
	ReadSpatialRef(ctx context.Context, srid int) (string, error)
	// FindOrCreateSpatialRef returns the srid of the spatial reference, registering it if it is unknown
	FindOrCreateSpatialRef(ctx context.Context, wkt string) (int, error)

	/******************** Raw rasters *************************/
	// ReadRawRaster decodes a georeferenced window of the coverage (see tiling.ReadWindow)
	ReadRawRaster(ctx context.Context, cov *coverage.Coverage, req coverage.WindowRequest) ([]byte, error)
	// LoadRawTiles creates a new section of the coverage, pulling its pixels through the producer (see tiling.Load)
	LoadRawTiles(ctx context.Context, cov *coverage.Coverage, req coverage.LoadRequest, producer coverage.TileProducer) (coverage.Section, error)
}
