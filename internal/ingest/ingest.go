// Package ingest creates coverages, or new sections of coverages, from source rasters
package ingest

import (
	"context"
	"fmt"
	"math"

	"github.com/airbusgeo/coverstore/interface/database"
	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/airbusgeo/coverstore/interface/storage"
	"github.com/airbusgeo/coverstore/interface/storage/filesystem"
	"github.com/airbusgeo/coverstore/internal/codec"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/metrics"
	"github.com/airbusgeo/coverstore/internal/raster"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProgressFunc is called with the completed fraction of the ingestion.
// Returning false aborts the ingestion.
type ProgressFunc func(complete float64) bool

// Options of CreateCopy
type Options struct {
	coverage.IngestOptions
	// Open configures the returned dataset
	Open raster.OpenOptions
	// Publisher is notified of the new section (optional)
	Publisher messaging.Publisher
	// SourcePath is the file of the source raster, recorded with the section
	// if the coverage keeps the paths or the checksums of its sections (optional)
	SourcePath string
	// Storage reads SourcePath to compute its checksum (default: local filesystem)
	Storage storage.Strategy
}

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		IngestOptions: coverage.DefaultIngestOptions(),
		Open:          raster.DefaultOpenOptions(),
	}
}

// CreateCopy ingests the source raster in the store as a new section of a coverage.
// The coverage is created if it does not exist (and the catalog if the store is empty).
// The section and the coverage are named after the basename of name, unless opts says otherwise.
// All the modifications are done in a single transaction, committed if the whole raster is ingested.
// CreateCopy returns the coverage, opened on db.
func CreateCopy(ctx context.Context, db database.RasterDBBackend, name string, src SourceRaster, opts Options, progress ProgressFunc) (*raster.Dataset, error) {
	ctx = log.With(ctx, "ingest_id", uuid.New().String())
	ds, err := createCopy(ctx, db, name, src, opts, progress)
	if err != nil {
		if coverage.IsError(err, coverage.Aborted) {
			metrics.ObserveIngest(metrics.StatusAborted)
		} else {
			metrics.ObserveIngest(metrics.StatusFailure)
		}
		log.Logger(ctx).Warn("ingest failed", zap.String("target", name), zap.Error(err))
		return nil, err
	}
	metrics.ObserveIngest(metrics.StatusSuccess)
	return ds, nil
}

func createCopy(ctx context.Context, db database.RasterDBBackend, name string, src SourceRaster, opts Options, progress ProgressFunc) (*raster.Dataset, error) {
	// Preconditions: no I/O before they are checked
	enc, err := deriveEncoding(src, opts.PixelType)
	if err != nil {
		return nil, err
	}
	gt, ok := src.GeoTransform()
	if !ok {
		return nil, coverage.NewValidationError("the source raster is not georeferenced")
	}
	if gt.IsRotated() {
		return nil, coverage.NewValidationError("rasters with rotation/shearing geotransform terms are not supported")
	}
	if gt.Ry() > 0 {
		src = southUp{src}
		gt, _ = src.GeoTransform()
	}
	if gt.Rx() <= 0 || gt.Ry() >= 0 {
		return nil, coverage.NewValidationError("invalid resolution: %g, %g", gt.Rx(), gt.Ry())
	}
	if opts.AppendSubdataset && opts.Coverage == "" {
		return nil, coverage.NewValidationError("%s must be specified with %s=YES", coverage.OptCoverage, coverage.OptAppendSubdataset)
	}
	compression, quality := opts.EffectiveCompression()
	if err := codec.Validate(compression, enc); err != nil {
		return nil, err
	}
	width, height := src.Size()
	if width <= 0 || height <= 0 {
		return nil, coverage.NewValidationError("invalid source size %dx%d", width, height)
	}

	covName := opts.Coverage
	if covName == "" {
		covName = coverage.DefaultName(name)
	}
	sectionName := opts.Section
	if sectionName == "" {
		sectionName = coverage.DefaultName(name)
	}
	ctx = log.WithFields(ctx, zap.String("coverage", covName), zap.String("section", sectionName))

	tx, err := db.StartTransaction(ctx)
	if err != nil {
		return nil, coverage.WrapStoreFailure("StartTransaction", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil {
			log.Logger(ctx).Warn("rollback failed", zap.Error(err))
		}
	}()

	exists, err := tx.CatalogExists(ctx)
	if err != nil {
		return nil, coverage.WrapStoreFailure("CatalogExists", err)
	}
	if !exists {
		if err := tx.CreateCatalog(ctx); err != nil {
			return nil, coverage.WrapStoreFailure("CreateCatalog", err)
		}
	}

	// the spatial references live in the catalog
	srid, err := resolveSRID(ctx, tx, opts.SRID, src.Projection())
	if err != nil {
		return nil, err
	}

	cov, err := tx.ReadCoverage(ctx, covName)
	switch {
	case err == nil:
		if !opts.AppendSubdataset {
			return nil, coverage.NewEntityAlreadyExists("Coverage", "name", covName, "use %s=YES to add a section", coverage.OptAppendSubdataset)
		}
		if cov.Encoding != enc {
			return nil, coverage.NewValidationError("coverage %s is %s %s with %d band(s), the source is %s %s with %d band(s)",
				covName, cov.Encoding.Pixel, cov.Encoding.Sample, cov.Encoding.Bands, enc.Pixel, enc.Sample, enc.Bands)
		}
	case coverage.IsError(err, coverage.EntityNotFound):
		nodata, err := coverage.DefaultNoData(enc)
		if err != nil {
			return nil, err
		}
		cov = &coverage.Coverage{
			Name:        covName,
			Encoding:    enc,
			Compression: compression,
			Quality:     quality,
			TileWidth:   opts.BlockXSize,
			TileHeight:  opts.BlockYSize,
			Res:         coverage.Resolution{X: gt.Rx(), Y: math.Abs(gt.Ry())},
			SRID:        srid,
			NoData:      nodata,
			Policies:    coverage.Policies{StrictResolution: true},
		}
		if err := tx.CreateCoverage(ctx, cov); err != nil {
			return nil, coverage.WrapStoreFailure("CreateCoverage", err)
		}
		log.Logger(ctx).Debug("coverage created", zap.String("encoding", fmt.Sprintf("%s %s %d", enc.Pixel, enc.Sample, enc.Bands)),
			zap.Stringer("compression", compression), zap.Int("quality", quality))
	default:
		return nil, coverage.WrapStoreFailure("ReadCoverage", err)
	}

	minX, maxY := gt[0], gt[3]
	req := coverage.LoadRequest{
		Section:    sectionName,
		Width:      width,
		Height:     height,
		Res:        coverage.Resolution{X: gt.Rx(), Y: math.Abs(gt.Ry())},
		Extent:     coverage.Extent{MinX: minX, MinY: maxY + gt.Ry()*float64(height), MaxX: minX + gt.Rx()*float64(width), MaxY: maxY},
		SRID:       srid,
		Pyramidize: true,
	}
	if opts.SourcePath != "" {
		if cov.Policies.SectionPaths {
			req.Path = opts.SourcePath
		}
		if cov.Policies.SectionMD5 {
			if req.MD5, err = sourceMD5(ctx, opts); err != nil {
				return nil, fmt.Errorf("createCopy: %w", err)
			}
		}
	}

	p := &producer{src: src, gt: gt.GeoTransform(), tileWidth: cov.TileWidth, progress: progress}
	section, err := tx.LoadRawTiles(ctx, cov, req, p.produce)
	if err != nil {
		if coverage.IsError(err, coverage.Aborted) || coverage.IsError(err, coverage.ValidationError) {
			return nil, err
		}
		return nil, coverage.WrapStoreFailure("LoadRawTiles", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, coverage.WrapStoreFailure("Commit", err)
	}
	log.Logger(ctx).Info("section ingested", zap.Int64("section_id", section.ID), zap.Int("width", width), zap.Int("height", height))

	if opts.Publisher != nil {
		publish(ctx, opts.Publisher, messaging.CoverageEvent{
			Store:     name,
			Coverage:  covName,
			Section:   sectionName,
			SectionID: section.ID,
			Kind:      messaging.SectionAdded,
		})
	}

	return raster.Open(ctx, db, coverage.ConnString{File: name, Coverage: covName, SectionID: tiling.CoverageWide}.String(), opts.Open)
}

// deriveEncoding maps the source raster to the encoding of the coverage
func deriveEncoding(src SourceRaster, pixel *coverage.PixelType) (coverage.Encoding, error) {
	nbands := src.BandCount()
	if err := coverage.ValidateBandCount(nbands); err != nil {
		return coverage.Encoding{}, err
	}
	dtype := src.DType()
	sample, err := coverage.SampleTypeFromDType(dtype)
	if err != nil {
		return coverage.Encoding{}, err
	}
	enc := coverage.Encoding{Sample: sample, Pixel: coverage.PixelGRAYSCALE, Bands: nbands}
	if pixel != nil {
		enc.Pixel = *pixel
	} else {
		byteLike := dtype == coverage.DTypeUINT8 || dtype == coverage.DTypeUINT16
		switch {
		case nbands == 3 && byteLike &&
			src.ColorInterp(0) == godal.CIRed && src.ColorInterp(1) == godal.CIGreen && src.ColorInterp(2) == godal.CIBlue:
			enc.Pixel = coverage.PixelRGB
		case nbands > 1 && byteLike:
			enc.Pixel = coverage.PixelMULTIBAND
		case nbands == 1:
			enc.Pixel = coverage.PixelDATAGRID
		}
	}
	if err := enc.Validate(); err != nil {
		return coverage.Encoding{}, err
	}
	return enc, nil
}

// resolveSRID returns the srid given by the user (warning if it is unknown)
// or registers the projection of the source
func resolveSRID(ctx context.Context, db database.RasterBackend, srid int, wkt string) (int, error) {
	if srid > 0 {
		if _, err := db.ReadSpatialRef(ctx, srid); err != nil {
			log.Logger(ctx).Warn(fmt.Sprintf("SRID %d will be used, but no matching spatial reference is defined", srid), zap.Error(err))
		}
		return srid, nil
	}
	if wkt == "" {
		return 0, nil
	}
	srid, err := db.FindOrCreateSpatialRef(ctx, wkt)
	if err != nil {
		return 0, coverage.WrapStoreFailure("FindOrCreateSpatialRef", err)
	}
	return srid, nil
}

func publish(ctx context.Context, pub messaging.Publisher, evt messaging.CoverageEvent) {
	data, err := messaging.MarshalEvent(evt)
	if err == nil {
		err = pub.Publish(ctx, data)
	}
	if err != nil {
		log.Logger(ctx).Warn("unable to publish the coverage event", zap.Error(err))
	}
}

func sourceMD5(ctx context.Context, opts Options) (string, error) {
	st := opts.Storage
	if st == nil {
		st, _ = filesystem.NewFileSystemStrategy(ctx)
	}
	return storage.MD5(ctx, st, opts.SourcePath)
}
