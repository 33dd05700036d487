package mocks

import (
	"context"

	"github.com/airbusgeo/coverstore/interface/database"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/stretchr/testify/mock"
)

// RasterBackend is a mock of database.RasterDBBackend and database.RasterTxBackend
type RasterBackend struct {
	mock.Mock
}

var _ database.RasterDBBackend = &RasterBackend{}
var _ database.RasterTxBackend = &RasterBackend{}

func (_m *RasterBackend) StartTransaction(ctx context.Context) (database.RasterTxBackend, error) {
	ret := _m.Called(ctx)

	var r0 database.RasterTxBackend
	if rf, ok := ret.Get(0).(func(context.Context) database.RasterTxBackend); ok {
		r0 = rf(ctx)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(database.RasterTxBackend)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) Commit() error {
	ret := _m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *RasterBackend) Rollback() error {
	ret := _m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *RasterBackend) CatalogExists(ctx context.Context) (bool, error) {
	ret := _m.Called(ctx)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context) bool); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(bool)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) CreateCatalog(ctx context.Context) error {
	ret := _m.Called(ctx)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *RasterBackend) ListCoverages(ctx context.Context) ([]*coverage.Coverage, error) {
	ret := _m.Called(ctx)

	var r0 []*coverage.Coverage
	if rf, ok := ret.Get(0).(func(context.Context) []*coverage.Coverage); ok {
		r0 = rf(ctx)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*coverage.Coverage)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) ReadCoverage(ctx context.Context, name string) (*coverage.Coverage, error) {
	ret := _m.Called(ctx, name)

	var r0 *coverage.Coverage
	if rf, ok := ret.Get(0).(func(context.Context, string) *coverage.Coverage); ok {
		r0 = rf(ctx, name)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*coverage.Coverage)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, name)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) CreateCoverage(ctx context.Context, cov *coverage.Coverage) error {
	ret := _m.Called(ctx, cov)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *coverage.Coverage) error); ok {
		r0 = rf(ctx, cov)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *RasterBackend) ReadCoverageExtent(ctx context.Context, name string) (coverage.Extent, error) {
	ret := _m.Called(ctx, name)

	var r0 coverage.Extent
	if rf, ok := ret.Get(0).(func(context.Context, string) coverage.Extent); ok {
		r0 = rf(ctx, name)
	} else {
		r0 = ret.Get(0).(coverage.Extent)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, name)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) ReadPalette(ctx context.Context, name string) (*coverage.Palette, error) {
	ret := _m.Called(ctx, name)

	var r0 *coverage.Palette
	if rf, ok := ret.Get(0).(func(context.Context, string) *coverage.Palette); ok {
		r0 = rf(ctx, name)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*coverage.Palette)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, name)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) UpdatePalette(ctx context.Context, name string, palette *coverage.Palette) error {
	ret := _m.Called(ctx, name, palette)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, *coverage.Palette) error); ok {
		r0 = rf(ctx, name, palette)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *RasterBackend) ReadStatistics(ctx context.Context, name string, sectionID int64) (*coverage.Statistics, error) {
	ret := _m.Called(ctx, name, sectionID)

	var r0 *coverage.Statistics
	if rf, ok := ret.Get(0).(func(context.Context, string, int64) *coverage.Statistics); ok {
		r0 = rf(ctx, name, sectionID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*coverage.Statistics)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, int64) error); ok {
		r1 = rf(ctx, name, sectionID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) ListSections(ctx context.Context, cov string) ([]coverage.Section, error) {
	ret := _m.Called(ctx, cov)

	var r0 []coverage.Section
	if rf, ok := ret.Get(0).(func(context.Context, string) []coverage.Section); ok {
		r0 = rf(ctx, cov)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]coverage.Section)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, cov)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) ReadSection(ctx context.Context, cov string, sectionID int64) (coverage.Section, error) {
	ret := _m.Called(ctx, cov, sectionID)

	var r0 coverage.Section
	if rf, ok := ret.Get(0).(func(context.Context, string, int64) coverage.Section); ok {
		r0 = rf(ctx, cov, sectionID)
	} else {
		r0 = ret.Get(0).(coverage.Section)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, int64) error); ok {
		r1 = rf(ctx, cov, sectionID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) ReadSpatialRef(ctx context.Context, srid int) (string, error) {
	ret := _m.Called(ctx, srid)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, int) string); ok {
		r0 = rf(ctx, srid)
	} else {
		r0 = ret.Get(0).(string)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, int) error); ok {
		r1 = rf(ctx, srid)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) FindOrCreateSpatialRef(ctx context.Context, wkt string) (int, error) {
	ret := _m.Called(ctx, wkt)

	var r0 int
	if rf, ok := ret.Get(0).(func(context.Context, string) int); ok {
		r0 = rf(ctx, wkt)
	} else {
		r0 = ret.Get(0).(int)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, wkt)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) ReadRawRaster(ctx context.Context, cov *coverage.Coverage, req coverage.WindowRequest) ([]byte, error) {
	ret := _m.Called(ctx, cov, req)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, *coverage.Coverage, coverage.WindowRequest) []byte); ok {
		r0 = rf(ctx, cov, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, *coverage.Coverage, coverage.WindowRequest) error); ok {
		r1 = rf(ctx, cov, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) LoadRawTiles(ctx context.Context, cov *coverage.Coverage, req coverage.LoadRequest, producer coverage.TileProducer) (coverage.Section, error) {
	ret := _m.Called(ctx, cov, req, producer)

	var r0 coverage.Section
	if rf, ok := ret.Get(0).(func(context.Context, *coverage.Coverage, coverage.LoadRequest, coverage.TileProducer) coverage.Section); ok {
		r0 = rf(ctx, cov, req, producer)
	} else {
		r0 = ret.Get(0).(coverage.Section)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, *coverage.Coverage, coverage.LoadRequest, coverage.TileProducer) error); ok {
		r1 = rf(ctx, cov, req, producer)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) InsertSection(ctx context.Context, cov string, section coverage.Section) (int64, error) {
	ret := _m.Called(ctx, cov, section)

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, string, coverage.Section) int64); ok {
		r0 = rf(ctx, cov, section)
	} else {
		r0 = ret.Get(0).(int64)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, coverage.Section) error); ok {
		r1 = rf(ctx, cov, section)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) InsertTiles(ctx context.Context, cov string, tiles []tiling.Tile, blobs [][]byte) error {
	ret := _m.Called(ctx, cov, tiles, blobs)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, []tiling.Tile, [][]byte) error); ok {
		r0 = rf(ctx, cov, tiles, blobs)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *RasterBackend) FindTiles(ctx context.Context, cov string, sectionID int64, level int, window coverage.Extent) ([]tiling.Tile, error) {
	ret := _m.Called(ctx, cov, sectionID, level, window)

	var r0 []tiling.Tile
	if rf, ok := ret.Get(0).(func(context.Context, string, int64, int, coverage.Extent) []tiling.Tile); ok {
		r0 = rf(ctx, cov, sectionID, level, window)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]tiling.Tile)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, int64, int, coverage.Extent) error); ok {
		r1 = rf(ctx, cov, sectionID, level, window)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) ReadTileData(ctx context.Context, cov string, ids []int64) (map[int64][]byte, error) {
	ret := _m.Called(ctx, cov, ids)

	var r0 map[int64][]byte
	if rf, ok := ret.Get(0).(func(context.Context, string, []int64) map[int64][]byte); ok {
		r0 = rf(ctx, cov, ids)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[int64][]byte)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, []int64) error); ok {
		r1 = rf(ctx, cov, ids)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) WriteLevels(ctx context.Context, cov string, sectionID int64, levels []coverage.PyramidLevel) error {
	ret := _m.Called(ctx, cov, sectionID, levels)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int64, []coverage.PyramidLevel) error); ok {
		r0 = rf(ctx, cov, sectionID, levels)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *RasterBackend) ReadLevels(ctx context.Context, cov string, sectionID int64) ([]coverage.PyramidLevel, error) {
	ret := _m.Called(ctx, cov, sectionID)

	var r0 []coverage.PyramidLevel
	if rf, ok := ret.Get(0).(func(context.Context, string, int64) []coverage.PyramidLevel); ok {
		r0 = rf(ctx, cov, sectionID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]coverage.PyramidLevel)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, int64) error); ok {
		r1 = rf(ctx, cov, sectionID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) UpdateCoverageExtent(ctx context.Context, cov string, extent coverage.Extent) error {
	ret := _m.Called(ctx, cov, extent)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, coverage.Extent) error); ok {
		r0 = rf(ctx, cov, extent)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *RasterBackend) SectionIDs(ctx context.Context, cov string) ([]int64, error) {
	ret := _m.Called(ctx, cov)

	var r0 []int64
	if rf, ok := ret.Get(0).(func(context.Context, string) []int64); ok {
		r0 = rf(ctx, cov)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]int64)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, cov)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *RasterBackend) WriteStatistics(ctx context.Context, cov string, sectionID int64, stats *coverage.Statistics) error {
	ret := _m.Called(ctx, cov, sectionID, stats)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int64, *coverage.Statistics) error); ok {
		r0 = rf(ctx, cov, sectionID, stats)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
