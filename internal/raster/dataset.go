// Package raster exposes the coverages of a store through a windowed raster-access API:
// datasets, overviews and bands read block by block.
package raster

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/airbusgeo/coverstore/interface/database"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// Metadata domains
const (
	DomainDefault        = ""
	DomainImageStructure = "IMAGE_STRUCTURE"
	DomainSubdatasets    = "SUBDATASETS"
)

const (
	missingTitle    = "*** missing Title ***"
	missingAbstract = "*** missing Abstract ***"
)

var datasetIDs atomic.Uint64

// Subdataset is a dataset that can be opened with its connection string
type Subdataset struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

type bandInfo struct {
	colorInterp    godal.ColorInterp
	imageStructure map[string]string
	metadata       map[string]string
}

// Dataset is an opened coverage (or section of a coverage), or the list of the coverages of a store.
// The coverage is read once at opening.
type Dataset struct {
	db    database.RasterBackend
	file  string
	id    uint64
	cache BlockCache
	opts  OpenOptions

	cov           *coverage.Coverage
	enc           coverage.BandEncoding
	sectionID     int64
	singleSection bool
	// levels[0] is the full resolution, levels[i+1] the overview i
	levels      []level
	projection  string
	bands       []bandInfo
	metadata    map[string]map[string]string
	subdatasets []Subdataset

	paletteMu     sync.Mutex
	paletteLoaded bool
	palette       *coverage.Palette
}

func newDataset(db database.RasterBackend, file string, opts OpenOptions) (*Dataset, error) {
	ds := &Dataset{
		db:        db,
		file:      file,
		id:        datasetIDs.Add(1),
		opts:      opts,
		cache:     opts.Cache,
		sectionID: tiling.CoverageWide,
		metadata:  map[string]map[string]string{},
	}
	if ds.cache == nil {
		var err error
		if ds.cache, err = NewLRUBlockCache(DefaultCacheSize); err != nil {
			return nil, fmt.Errorf("newDataset: %w", err)
		}
	}
	return ds, nil
}

// Open opens a connection string RASTERLITE2:file[:coverage[:section-id:section-name]]
// Without coverage, the store is opened (see OpenStore).
func Open(ctx context.Context, db database.RasterBackend, connString string, opts OpenOptions) (*Dataset, error) {
	cs, err := coverage.ParseConnString(connString)
	if err != nil {
		return nil, err
	}
	if cs.Coverage == "" {
		return OpenStore(ctx, db, cs.File, opts)
	}
	return openCoverage(ctx, db, cs, opts)
}

// OpenStore lists the coverages of the store as subdatasets.
// If the store has only one coverage, it is opened.
func OpenStore(ctx context.Context, db database.RasterBackend, file string, opts OpenOptions) (*Dataset, error) {
	covs, err := db.ListCoverages(ctx)
	if err != nil {
		return nil, coverage.WrapStoreFailure("OpenStore", err)
	}
	if len(covs) == 0 {
		return nil, coverage.NewEntityNotFound("", "", "", "no coverage in store %s", file)
	}
	if len(covs) == 1 {
		return openCoverage(ctx, db, coverage.ConnString{File: file, Coverage: covs[0].Name, SectionID: tiling.CoverageWide}, opts)
	}

	ds, err := newDataset(db, file, opts)
	if err != nil {
		return nil, err
	}
	for _, c := range covs {
		desc := "Coverage " + c.Name
		if c.Title != "" && !strings.EqualFold(c.Title, missingTitle) {
			desc += ", title = " + c.Title
		}
		if c.Abstract != "" && !strings.EqualFold(c.Abstract, missingAbstract) {
			desc += ", abstract = " + c.Abstract
		}
		ds.addSubdataset(coverage.ConnString{File: file, Coverage: c.Name, SectionID: tiling.CoverageWide}.String(), desc)
	}
	return ds, nil
}

func openCoverage(ctx context.Context, db database.RasterBackend, cs coverage.ConnString, opts OpenOptions) (*Dataset, error) {
	ctx = log.With(ctx, "coverage", cs.Coverage)
	cov, err := db.ReadCoverage(ctx, cs.Coverage)
	if err != nil {
		return nil, coverage.WrapStoreFailure("ReadCoverage", err)
	}
	if err := coverage.ValidateBandCount(cov.Encoding.Bands); err != nil {
		return nil, err
	}
	enc, err := cov.Encoding.Describe(opts.Promote1Bit && cov.Encoding.IsMonochrome1Bit())
	if err != nil {
		return nil, err
	}
	if cov.TileWidth <= 0 || cov.TileHeight <= 0 {
		return nil, coverage.NewValidationError("invalid block size %dx%d", cov.TileWidth, cov.TileHeight)
	}

	ds, err := newDataset(db, cs.File, opts)
	if err != nil {
		return nil, err
	}
	ds.cov, ds.enc, ds.sectionID = cov, enc, cs.SectionID

	if ds.sectionID < 0 {
		sections, err := db.ListSections(ctx, cov.Name)
		if err != nil {
			return nil, coverage.WrapStoreFailure("ListSections", err)
		}
		switch {
		case len(sections) == 1:
			ds.sectionID, ds.singleSection = sections[0].ID, true
		case len(sections) > 1:
			// Ambiguous: the dataset is the whole coverage, the sections are subdatasets
			for _, s := range sections {
				ds.addSubdataset(coverage.ConnString{File: cs.File, Coverage: cov.Name, SectionID: s.ID, SectionName: s.Name}.String(),
					fmt.Sprintf("Coverage %s, section %s / %d", cov.Name, s.Name, s.ID))
			}
		}
	}

	base, summary, err := ds.baseLevel(ctx)
	if err != nil {
		return nil, err
	}
	ds.levels = []level{base}

	if wkt, err := db.ReadSpatialRef(ctx, cov.SRID); err == nil {
		ds.projection = wkt
	} else {
		log.Logger(ctx).Debug("no spatial reference", zap.Int("srid", cov.SRID), zap.Error(err))
	}

	ds.setImageStructure()
	ds.setBands(ctx)
	if cov.Title != "" && !strings.EqualFold(cov.Title, missingTitle) {
		ds.setMetadataItem("COVERAGE_TITLE", cov.Title, DomainDefault)
	}
	if cov.Abstract != "" && !strings.EqualFold(cov.Abstract, missingAbstract) {
		ds.setMetadataItem("COVERAGE_ABSTRACT", cov.Abstract, DomainDefault)
	}
	if summary != "" {
		ds.setMetadataItem("SECTION_SUMMARY", summary, DomainDefault)
	}

	// With mixed resolutions, the overviews are only known section by section
	if !cov.Policies.MixedResolutions || ds.sectionID >= 0 {
		resolutions, err := NewResolutionCatalog(db, cov, ds.sectionID).Resolutions(ctx)
		if err != nil {
			return nil, err
		}
		ds.levels = append(ds.levels, synthesizeOverviews(base, resolutions, opts.ShowAllLevels)...)
	}
	log.Logger(ctx).Debug("coverage opened", zap.Int64("section", ds.sectionID), zap.Int("width", base.width),
		zap.Int("height", base.height), zap.Int("overviews", len(ds.levels)-1))
	return ds, nil
}

// baseLevel returns the full resolution level of the section (or of the coverage) and the summary of the section
func (ds *Dataset) baseLevel(ctx context.Context) (level, string, error) {
	var extent coverage.Extent
	var width, height int
	var summary string
	if ds.sectionID >= 0 {
		section, err := ds.db.ReadSection(ctx, ds.cov.Name, ds.sectionID)
		if err != nil {
			return level{}, "", coverage.WrapStoreFailure(fmt.Sprintf("invalid section %d", ds.sectionID), err)
		}
		if section.Width <= 0 || section.Height <= 0 || section.Width > math.MaxInt32 || section.Height > math.MaxInt32 {
			return level{}, "", coverage.NewValidationError("invalid section %d: dimensions %dx%d", ds.sectionID, section.Width, section.Height)
		}
		extent, width, height, summary = section.Extent, section.Width, section.Height, section.Summary
	} else {
		var err error
		if extent, err = ds.db.ReadCoverageExtent(ctx, ds.cov.Name); err != nil {
			return level{}, "", coverage.WrapStoreFailure("ReadCoverageExtent", err)
		}
		fwidth := 0.5 + extent.Width()/ds.cov.Res.X
		fheight := 0.5 + extent.Height()/ds.cov.Res.Y
		if !(fwidth > 0.5 && fheight > 0.5 && fwidth <= math.MaxInt32 && fheight <= math.MaxInt32) {
			return level{}, "", coverage.NewValidationError("coverage %s: invalid dimensions", ds.cov.Name)
		}
		width, height = int(fwidth), int(fheight)
	}
	return level{
		width:  width,
		height: height,
		gt:     [6]float64{extent.MinX, extent.Width() / float64(width), 0, extent.MaxY, 0, -extent.Height() / float64(height)},
	}, summary, nil
}

// compressionName returns the name of the compression in the IMAGE_STRUCTURE metadata
func compressionName(c coverage.Compression) string {
	switch c {
	case coverage.CompressionNONE:
		return ""
	case coverage.CompressionCHARLS:
		return "JPEG_LOSSLESS"
	}
	return c.String()
}

func (ds *Dataset) setImageStructure() {
	if name := compressionName(ds.cov.Compression); name != "" {
		ds.setMetadataItem("COMPRESSION", name, DomainImageStructure)
	}
	if ds.cov.Quality != 0 && ds.cov.Compression.IsLossy() {
		ds.setMetadataItem("QUALITY", strconv.Itoa(ds.cov.Quality), DomainImageStructure)
	}
}

func (ds *Dataset) setBands(ctx context.Context) {
	nbands := ds.cov.Encoding.Bands
	nodata := ds.cov.ValidNoData()
	if nodata != nil && nbands > 1 {
		values := make([]string, len(nodata.Values))
		for i, v := range nodata.Values {
			values[i] = fmt.Sprintf("%g", v)
		}
		ds.setMetadataItem("NODATA_VALUES", strings.Join(values, " "), DomainDefault)
	}

	var stats *coverage.Statistics
	if (ds.sectionID < 0 || ds.singleSection) && !ds.enc.Promoted() {
		var err error
		if stats, err = ds.db.ReadStatistics(ctx, ds.cov.Name, tiling.CoverageWide); err != nil {
			log.Logger(ctx).Debug("no statistics", zap.Error(err))
			stats = nil
		}
	}

	ds.bands = make([]bandInfo, nbands)
	for i := range ds.bands {
		b := &ds.bands[i]
		b.imageStructure = map[string]string{}
		b.metadata = map[string]string{}
		switch {
		case ds.enc.Promoted():
			b.imageStructure["SOURCE_NBITS"] = strconv.Itoa(ds.enc.SourceNBits)
		case ds.enc.NBits != 0:
			b.imageStructure["NBITS"] = strconv.Itoa(ds.enc.NBits)
		}
		if ds.enc.SignedByte {
			b.imageStructure["PIXELTYPE"] = "SIGNEDBYTE"
		}
		switch ds.cov.Encoding.Pixel {
		case coverage.PixelMONOCHROME, coverage.PixelGRAYSCALE:
			b.colorInterp = godal.CIGray
		case coverage.PixelPALETTE:
			b.colorInterp = godal.CIPalette
		case coverage.PixelRGB:
			b.colorInterp = rgbInterp(i)
		default:
			b.colorInterp = godal.CIUndefined
		}
		if stats != nil && i < len(stats.Bands) && stats.Bands[i].Count > 0 {
			s := stats.Bands[i]
			b.metadata["STATISTICS_MINIMUM"] = strconv.FormatFloat(s.Min, 'g', 16, 64)
			b.metadata["STATISTICS_MAXIMUM"] = strconv.FormatFloat(s.Max, 'g', 16, 64)
			b.metadata["STATISTICS_MEAN"] = strconv.FormatFloat(s.Mean, 'g', 16, 64)
			b.metadata["STATISTICS_STDDEV"] = strconv.FormatFloat(s.StdDev(), 'g', 16, 64)
		}
	}
}

func rgbInterp(i int) godal.ColorInterp {
	switch i {
	case 0:
		return godal.CIRed
	case 1:
		return godal.CIGreen
	case 2:
		return godal.CIBlue
	}
	return godal.CIUndefined
}

func (ds *Dataset) addSubdataset(name, desc string) {
	ds.subdatasets = append(ds.subdatasets, Subdataset{Name: name, Desc: desc})
	n := len(ds.subdatasets)
	ds.setMetadataItem(fmt.Sprintf("SUBDATASET_%d_NAME", n), name, DomainSubdatasets)
	ds.setMetadataItem(fmt.Sprintf("SUBDATASET_%d_DESC", n), desc, DomainSubdatasets)
}

func (ds *Dataset) setMetadataItem(key, value, domain string) {
	if ds.metadata[domain] == nil {
		ds.metadata[domain] = map[string]string{}
	}
	ds.metadata[domain][key] = value
}

// Coverage returns the descriptor of the coverage (nil if the dataset only lists the coverages of a store).
// It must not be modified.
func (ds *Dataset) Coverage() *coverage.Coverage {
	return ds.cov
}

// Store returns the store token of the connection string of the dataset
func (ds *Dataset) Store() string {
	return ds.file
}

// SectionID returns the selected section or -1 for the whole coverage
func (ds *Dataset) SectionID() int64 {
	return ds.sectionID
}

// Subdatasets returns the coverages of the store, or the sections of the coverage if none is selected
func (ds *Dataset) Subdatasets() []Subdataset {
	return append([]Subdataset{}, ds.subdatasets...)
}

// Metadata returns a copy of the metadata of the domain
func (ds *Dataset) Metadata(domain string) map[string]string {
	md := make(map[string]string, len(ds.metadata[domain]))
	for k, v := range ds.metadata[domain] {
		md[k] = v
	}
	return md
}

// MetadataItem returns the value of the metadata key of the domain ("" if absent)
func (ds *Dataset) MetadataItem(key, domain string) string {
	return ds.metadata[domain][key]
}

// Projection returns the WKT of the spatial reference ("" if unknown)
func (ds *Dataset) Projection() string {
	return ds.projection
}

// BandEncoding returns the in-memory representation of the bands
func (ds *Dataset) BandEncoding() coverage.BandEncoding {
	return ds.enc
}

// Size returns the size in pixels of the full resolution
func (ds *Dataset) Size() (int, int) {
	return ds.view(0).Size()
}

// GeoTransform returns the north-up geotransform of the full resolution
func (ds *Dataset) GeoTransform() [6]float64 {
	return ds.view(0).GeoTransform()
}

// Bands of the full resolution
func (ds *Dataset) Bands() []Band {
	return ds.view(0).Bands()
}

// OverviewCount returns the number of overviews
func (ds *Dataset) OverviewCount() int {
	if len(ds.levels) == 0 {
		return 0
	}
	return len(ds.levels) - 1
}

// Overview returns the overview i, ordered from the finest to the coarsest
func (ds *Dataset) Overview(i int) (View, bool) {
	if i < 0 || i >= ds.OverviewCount() {
		return View{}, false
	}
	return ds.view(i + 1), true
}

func (ds *Dataset) view(index int) View {
	return View{owner: ds, index: index}
}

// View is the full resolution or an overview of a Dataset.
// It shares the store, the coverage and the block cache of the dataset.
type View struct {
	owner *Dataset
	index int
}

func (v View) level() level {
	if v.owner == nil || v.index >= len(v.owner.levels) {
		return level{}
	}
	return v.owner.levels[v.index]
}

// IsOverview returns true if the view is not the full resolution
func (v View) IsOverview() bool {
	return v.index > 0
}

// Size returns the size in pixels
func (v View) Size() (int, int) {
	l := v.level()
	return l.width, l.height
}

// GeoTransform returns the north-up geotransform
func (v View) GeoTransform() [6]float64 {
	return v.level().gt
}

// Bands returns the bands of the view
func (v View) Bands() []Band {
	if v.owner == nil || len(v.owner.levels) == 0 {
		return nil
	}
	bands := make([]Band, len(v.owner.bands))
	for i := range bands {
		bands[i] = Band{owner: v.owner, level: v.index, index: i}
	}
	return bands
}
