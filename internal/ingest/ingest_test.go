package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/coverstore/interface/database/memory"
	"github.com/airbusgeo/coverstore/interface/database/mocks"
	"github.com/airbusgeo/coverstore/interface/messaging"
	msgmocks "github.com/airbusgeo/coverstore/interface/messaging/mocks"
	"github.com/airbusgeo/coverstore/interface/storage"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/ingest"
	"github.com/airbusgeo/coverstore/internal/utils/affine"
	"github.com/airbusgeo/godal"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"
)

// newRGBSource creates a north-up RGB raster whose sample (x, y, b) is value(x, y, b)
func newRGBSource(width, height int) *ingest.MemSource {
	src := ingest.NewMemSource(width, height, 3, coverage.DTypeUINT8, affine.NorthUp(1000, 2000, 2, 2))
	src.Interps = []godal.ColorInterp{godal.CIRed, godal.CIGreen, godal.CIBlue}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := src.Pixel(x, y)
			for b := range px {
				px[b] = value(x, y, b)
			}
		}
	}
	return src
}

func value(x, y, b int) byte {
	return byte((x+2*y+50*b)%200 + 1)
}

var _ = Describe("CreateCopy", func() {
	var (
		ctx  = context.Background()
		db   *memory.Backend
		src  *ingest.MemSource
		opts ingest.Options
	)

	BeforeEach(func() {
		db = memory.New()
		src = newRGBSource(100, 70)
		opts = ingest.DefaultOptions()
		opts.BlockXSize, opts.BlockYSize = 64, 64
		opts.Compression = coverage.CompressionDEFLATE
	})

	Describe("round trip", func() {
		It("should reproduce the source raster", func() {
			var steps []float64
			ds, err := ingest.CreateCopy(ctx, db, "/data/rgb.tif", src, opts, func(complete float64) bool {
				steps = append(steps, complete)
				return true
			})
			Expect(err).To(BeNil())
			Expect(steps).NotTo(BeEmpty())
			Expect(steps[len(steps)-1]).To(Equal(1.0))

			Expect(ds.Coverage().Name).To(Equal("rgb"))
			Expect(ds.Coverage().Encoding).To(Equal(coverage.Encoding{Sample: coverage.SampleUINT8, Pixel: coverage.PixelRGB, Bands: 3}))
			Expect(ds.Coverage().Policies.StrictResolution).To(BeTrue())
			Expect(ds.Coverage().NoData.Values).To(Equal([]float64{255, 255, 255}))
			w, h := ds.Size()
			Expect([]int{w, h}).To(Equal([]int{100, 70}))
			Expect(ds.GeoTransform()).To(Equal([6]float64{1000, 2, 0, 2000, 0, -2}))
			bands := ds.Bands()
			Expect(bands).To(HaveLen(3))

			dst := make([]byte, 64*64)
			Expect(bands[1].ReadBlock(ctx, 0, 0, dst)).To(Succeed())
			for y := 0; y < 64; y++ {
				for x := 0; x < 64; x++ {
					Expect(dst[y*64+x]).To(Equal(value(x, y, 1)), fmt.Sprintf("pixel %d,%d", x, y))
				}
			}
		})

		It("should flip a south-up raster", func() {
			src.Transform = affine.NewAffine(1000, 2, 0, 1860, 0, 2)
			ds, err := ingest.CreateCopy(ctx, db, "rgb", src, opts, nil)
			Expect(err).To(BeNil())
			Expect(ds.GeoTransform()).To(Equal([6]float64{1000, 2, 0, 2000, 0, -2}))
			Expect(ds.Coverage().Res).To(Equal(coverage.Resolution{X: 2, Y: 2}))

			dst := make([]byte, 64*64)
			Expect(ds.Bands()[1].ReadBlock(ctx, 0, 0, dst)).To(Succeed())
			for y := 0; y < 64; y++ {
				for x := 0; x < 64; x++ {
					Expect(dst[y*64+x]).To(Equal(value(x, 69-y, 1)), fmt.Sprintf("pixel %d,%d", x, y))
				}
			}
		})

		It("should zero-fill the edge tiles", func() {
			ds, err := ingest.CreateCopy(ctx, db, "rgb", src, opts, nil)
			Expect(err).To(BeNil())
			dst := make([]byte, 64*64)
			Expect(ds.Bands()[2].ReadBlock(ctx, 1, 1, dst)).To(Succeed())
			// The source has 36 columns and 6 lines in this block
			for y := 0; y < 64; y++ {
				for x := 0; x < 64; x++ {
					if x < 36 && y < 6 {
						Expect(dst[y*64+x]).To(Equal(value(64+x, 64+y, 2)))
					} else {
						Expect(dst[y*64+x]).To(Equal(byte(0)), fmt.Sprintf("pixel %d,%d", x, y))
					}
				}
			}
		})
	})

	Describe("pixel type", func() {
		for _, tc := range []struct {
			name     string
			bands    int
			dtype    coverage.DType
			interps  []godal.ColorInterp
			expected coverage.PixelType
		}{
			{"rgb", 3, coverage.DTypeUINT16, []godal.ColorInterp{godal.CIRed, godal.CIGreen, godal.CIBlue}, coverage.PixelRGB},
			{"3 bands", 3, coverage.DTypeUINT8, nil, coverage.PixelMULTIBAND},
			{"2 bands", 2, coverage.DTypeUINT16, nil, coverage.PixelMULTIBAND},
			{"1 band", 1, coverage.DTypeUINT8, nil, coverage.PixelDATAGRID},
			{"float", 1, coverage.DTypeFLOAT32, nil, coverage.PixelDATAGRID},
		} {
			It("should infer the pixel type of a source with "+tc.name, func() {
				s := ingest.NewMemSource(8, 8, tc.bands, tc.dtype, affine.NorthUp(0, 8, 1, 1))
				s.Interps = tc.interps
				ds, err := ingest.CreateCopy(ctx, db, "c", s, opts, nil)
				Expect(err).To(BeNil())
				Expect(ds.Coverage().Encoding.Pixel).To(Equal(tc.expected))
			})
		}

		It("should be overridden by the options", func() {
			s := ingest.NewMemSource(8, 8, 1, coverage.DTypeUINT8, affine.NorthUp(0, 8, 1, 1))
			gray := coverage.PixelGRAYSCALE
			opts.PixelType = &gray
			ds, err := ingest.CreateCopy(ctx, db, "c", s, opts, nil)
			Expect(err).To(BeNil())
			Expect(ds.Coverage().Encoding.Pixel).To(Equal(coverage.PixelGRAYSCALE))
			Expect(ds.Bands()[0].ColorInterp()).To(Equal(godal.CIGray))
		})

		It("should reject unsupported encodings", func() {
			s := ingest.NewMemSource(8, 8, 3, coverage.DTypeFLOAT64, affine.NorthUp(0, 8, 1, 1))
			_, err := ingest.CreateCopy(ctx, db, "c", s, opts, nil)
			Expect(coverage.IsError(err, coverage.UnsupportedEncoding)).To(BeTrue())
		})
	})

	Describe("sections", func() {
		JustBeforeEach(func() {
			_, err := ingest.CreateCopy(ctx, db, "store/rgb.tif", src, opts, nil)
			Expect(err).To(BeNil())
		})

		It("should refuse to overwrite a coverage", func() {
			_, err := ingest.CreateCopy(ctx, db, "store/rgb.tif", src, opts, nil)
			Expect(coverage.IsError(err, coverage.EntityAlreadyExists)).To(BeTrue())
		})

		It("should append a section", func() {
			east := newRGBSource(100, 70)
			east.Transform = affine.NorthUp(1200, 2000, 2, 2)
			opts.AppendSubdataset = true
			opts.Coverage = "rgb"
			opts.Section = "east"
			ds, err := ingest.CreateCopy(ctx, db, "store/rgb.tif", east, opts, nil)
			Expect(err).To(BeNil())
			w, h := ds.Size()
			Expect([]int{w, h}).To(Equal([]int{200, 70}))
			Expect(ds.Subdatasets()).To(HaveLen(2))
			Expect(ds.Subdatasets()[1].Name).To(HaveSuffix(":east"))
		})

		It("should reject a section of another encoding", func() {
			opts.AppendSubdataset = true
			opts.Coverage = "rgb"
			opts.Section = "gray"
			_, err := ingest.CreateCopy(ctx, db, "store/rgb.tif", ingest.NewMemSource(8, 8, 1, coverage.DTypeUINT8, affine.NorthUp(0, 8, 2, 2)), opts, nil)
			Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
		})

		It("should reject a section of another resolution", func() {
			other := newRGBSource(10, 10)
			other.Transform = affine.NorthUp(0, 10, 1, 1)
			opts.AppendSubdataset = true
			opts.Coverage = "rgb"
			opts.Section = "fine"
			_, err := ingest.CreateCopy(ctx, db, "store/rgb.tif", other, opts, nil)
			Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
			sections, err := db.ListSections(ctx, "rgb")
			Expect(err).To(BeNil())
			Expect(sections).To(HaveLen(1))
		})
	})

	Describe("section files", func() {
		It("should record the path and the checksum of the source", func() {
			dir, err := os.MkdirTemp("", "ingest")
			Expect(err).To(BeNil())
			defer os.RemoveAll(dir)
			file := filepath.Join(dir, "rgb.tif")
			Expect(os.WriteFile(file, []byte("0123456789"), 0o644)).To(Succeed())

			Expect(db.CreateCatalog(ctx)).To(Succeed())
			Expect(db.CreateCoverage(ctx, &coverage.Coverage{
				Name:        "rgb",
				Encoding:    coverage.Encoding{Sample: coverage.SampleUINT8, Pixel: coverage.PixelRGB, Bands: 3},
				Compression: coverage.CompressionDEFLATE,
				Quality:     100,
				TileWidth:   64,
				TileHeight:  64,
				Res:         coverage.Resolution{X: 2, Y: 2},
				Policies:    coverage.Policies{SectionPaths: true, SectionMD5: true},
			})).To(Succeed())

			opts.AppendSubdataset = true
			opts.Coverage = "rgb"
			opts.SourcePath = file
			_, err = ingest.CreateCopy(ctx, db, file, src, opts, nil)
			Expect(err).To(BeNil())
			sections, err := db.ListSections(ctx, "rgb")
			Expect(err).To(BeNil())
			Expect(sections).To(HaveLen(1))
			Expect(sections[0].Path).To(Equal(file))
			Expect(sections[0].MD5).To(Equal("781e5e245d69b566979b86e28d23f2c7"))
		})

		It("should fail if the source file cannot be read", func() {
			Expect(db.CreateCatalog(ctx)).To(Succeed())
			Expect(db.CreateCoverage(ctx, &coverage.Coverage{
				Name:        "rgb",
				Encoding:    coverage.Encoding{Sample: coverage.SampleUINT8, Pixel: coverage.PixelRGB, Bands: 3},
				Compression: coverage.CompressionDEFLATE,
				Quality:     100,
				TileWidth:   64,
				TileHeight:  64,
				Res:         coverage.Resolution{X: 2, Y: 2},
				Policies:    coverage.Policies{SectionMD5: true},
			})).To(Succeed())
			opts.AppendSubdataset = true
			opts.Coverage = "rgb"
			opts.SourcePath = "/nonexistent/rgb.tif"
			_, err := ingest.CreateCopy(ctx, db, "rgb", src, opts, nil)
			Expect(errors.Is(err, storage.ErrFileNotFound)).To(BeTrue())
		})
	})

	Describe("spatial reference", func() {
		It("should register the projection of the source", func() {
			src.WKT = `LOCAL_CS["custom"]`
			ds, err := ingest.CreateCopy(ctx, db, "rgb", src, opts, nil)
			Expect(err).To(BeNil())
			Expect(ds.Coverage().SRID).To(BeNumerically(">=", 900000))
			Expect(ds.Projection()).To(Equal(`LOCAL_CS["custom"]`))
		})

		It("should use the SRID of the options, even if unknown", func() {
			src.WKT = `LOCAL_CS["custom"]`
			opts.SRID = 2154
			ds, err := ingest.CreateCopy(ctx, db, "rgb", src, opts, nil)
			Expect(err).To(BeNil())
			Expect(ds.Coverage().SRID).To(Equal(2154))
			Expect(ds.Projection()).To(BeEmpty())
		})
	})

	Describe("abort", func() {
		It("should stop and roll back when the progress returns false", func() {
			calls := 0
			_, err := ingest.CreateCopy(ctx, db, "rgb", src, opts, func(float64) bool {
				calls++
				return calls < 2
			})
			Expect(coverage.IsError(err, coverage.Aborted)).To(BeTrue())
			Expect(calls).To(Equal(2))
			covs, err := db.ListCoverages(ctx)
			Expect(err).To(BeNil())
			Expect(covs).To(BeEmpty())
			exists, err := db.CatalogExists(ctx)
			Expect(err).To(BeNil())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("events", func() {
		var pub *msgmocks.Publisher
		BeforeEach(func() {
			pub = &msgmocks.Publisher{}
			opts.Publisher = pub
		})

		It("should publish the new section", func() {
			pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
			_, err := ingest.CreateCopy(ctx, db, "rgb", src, opts, nil)
			Expect(err).To(BeNil())
			pub.AssertNumberOfCalls(GinkgoT(), "Publish", 1)
			events, err := pub.Events()
			Expect(err).To(BeNil())
			Expect(events).To(HaveLen(1))
			evt := events[0]
			Expect(evt.Coverage).To(Equal("rgb"))
			Expect(evt.Kind).To(Equal(messaging.SectionAdded))
			Expect(evt.SectionID).To(BeNumerically(">", 0))
		})

		It("should ignore a publication failure", func() {
			pub.On("Publish", mock.Anything, mock.Anything).Return(fmt.Errorf("unavailable"))
			_, err := ingest.CreateCopy(ctx, db, "rgb", src, opts, nil)
			Expect(err).To(BeNil())
			Expect(pub.Events()).To(BeEmpty())
		})
	})

	Describe("preconditions and transaction", func() {
		var (
			mdb *mocks.RasterBackend
			tx  *mocks.RasterBackend
		)
		BeforeEach(func() {
			mdb = &mocks.RasterBackend{}
			tx = &mocks.RasterBackend{}
			mdb.On("StartTransaction", mock.Anything).Return(tx, nil)
			tx.On("Rollback").Return(nil)
			tx.On("Commit").Return(nil)
		})

		It("should reject a rotated raster before any store access", func() {
			src.Transform = affine.NewAffine(1000, 2, 0.1, 2000, 0, -2)
			_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
			Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
			mdb.AssertNotCalled(GinkgoT(), "StartTransaction", mock.Anything)
		})

		It("should reject a raster without georeference", func() {
			src.Transform = nil
			_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
			Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
			mdb.AssertNotCalled(GinkgoT(), "StartTransaction", mock.Anything)
		})

		It("should require the coverage name to append", func() {
			opts.AppendSubdataset = true
			_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
			Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
			mdb.AssertNotCalled(GinkgoT(), "StartTransaction", mock.Anything)
		})

		It("should reject an invalid band count", func() {
			_, err := ingest.CreateCopy(ctx, mdb, "rgb", ingest.NewMemSource(8, 8, 0, coverage.DTypeUINT8, affine.NorthUp(0, 8, 1, 1)), opts, nil)
			Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
			mdb.AssertNotCalled(GinkgoT(), "StartTransaction", mock.Anything)
		})

		It("should reject a compression that cannot store the encoding before any store access", func() {
			opts.Compression = coverage.CompressionJPEG2000
			_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
			Expect(coverage.IsError(err, coverage.UnsupportedEncoding)).To(BeTrue())

			opts.Compression = coverage.CompressionJPEG
			_, err = ingest.CreateCopy(ctx, mdb, "dem", ingest.NewMemSource(8, 8, 1, coverage.DTypeFLOAT32, affine.NorthUp(0, 8, 1, 1)), opts, nil)
			Expect(coverage.IsError(err, coverage.UnsupportedEncoding)).To(BeTrue())
			mdb.AssertNotCalled(GinkgoT(), "StartTransaction", mock.Anything)
		})

		It("should reject a null resolution before any store access", func() {
			src.Transform = affine.NewAffine(1000, 0, 0, 2000, 0, -2)
			_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
			Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
			mdb.AssertNotCalled(GinkgoT(), "StartTransaction", mock.Anything)
		})

		Context("in an empty store", func() {
			var calls []string
			record := func(name string) func(mock.Arguments) {
				return func(mock.Arguments) { calls = append(calls, name) }
			}
			BeforeEach(func() {
				calls = nil
				tx.On("CatalogExists", mock.Anything).Return(false, nil).Run(record("CatalogExists"))
				tx.On("CreateCatalog", mock.Anything).Return(nil).Run(record("CreateCatalog"))
			})

			It("should create the catalog before registering the projection", func() {
				src.WKT = `LOCAL_CS["custom"]`
				tx.On("FindOrCreateSpatialRef", mock.Anything, `LOCAL_CS["custom"]`).Return(900000, nil).Run(record("FindOrCreateSpatialRef"))
				tx.On("ReadCoverage", mock.Anything, "rgb").Return(nil, fmt.Errorf("connection reset"))
				_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
				Expect(coverage.IsError(err, coverage.StoreFailure)).To(BeTrue())
				Expect(calls).To(Equal([]string{"CatalogExists", "CreateCatalog", "FindOrCreateSpatialRef"}))
			})

			It("should create the catalog before reading the spatial reference of the options", func() {
				opts.SRID = 2154
				tx.On("ReadSpatialRef", mock.Anything, 2154).Return(`PROJCS["RGF93 / Lambert-93"]`, nil).Run(record("ReadSpatialRef"))
				tx.On("ReadCoverage", mock.Anything, "rgb").Return(nil, fmt.Errorf("connection reset"))
				_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
				Expect(coverage.IsError(err, coverage.StoreFailure)).To(BeTrue())
				Expect(calls).To(Equal([]string{"CatalogExists", "CreateCatalog", "ReadSpatialRef"}))
			})

			It("should find the spatial reference table of the new catalog", func() {
				src.WKT = `LOCAL_CS["custom"]`
				tx.On("FindOrCreateSpatialRef", mock.Anything, mock.Anything).Return(
					func(context.Context, string) int { return 900000 },
					func(context.Context, string) error {
						for _, c := range calls {
							if c == "CreateCatalog" {
								return nil
							}
						}
						return fmt.Errorf(`relation "coverstore.spatial_ref_sys" does not exist`)
					})
				tx.On("ReadCoverage", mock.Anything, "rgb").Return(nil, coverage.NewEntityNotFound("Coverage", "name", "rgb", ""))
				tx.On("CreateCoverage", mock.Anything, mock.MatchedBy(func(cov *coverage.Coverage) bool { return cov.SRID == 900000 })).
					Return(fmt.Errorf("disk full"))

				_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
				Expect(coverage.IsError(err, coverage.StoreFailure)).To(BeTrue())
				tx.AssertCalled(GinkgoT(), "CreateCoverage", mock.Anything, mock.Anything)
				tx.AssertNotCalled(GinkgoT(), "Commit")
			})
		})

		It("should not commit when the tiling fails", func() {
			tx.On("CatalogExists", mock.Anything).Return(false, nil)
			tx.On("CreateCatalog", mock.Anything).Return(nil)
			tx.On("ReadCoverage", mock.Anything, "rgb").Return(nil, coverage.NewEntityNotFound("Coverage", "name", "rgb", ""))
			tx.On("CreateCoverage", mock.Anything, mock.MatchedBy(func(cov *coverage.Coverage) bool {
				return cov.Name == "rgb" && cov.TileWidth == 64 && cov.Res == coverage.Resolution{X: 2, Y: 2} &&
					cov.Compression == coverage.CompressionDEFLATE && cov.Quality == 100
			})).Return(nil)
			tx.On("LoadRawTiles", mock.Anything, mock.Anything, mock.MatchedBy(func(req coverage.LoadRequest) bool {
				return req.Section == "rgb" && req.Width == 100 && req.Height == 70 && req.Pyramidize &&
					req.Extent == coverage.Extent{MinX: 1000, MinY: 1860, MaxX: 1200, MaxY: 2000}
			}), mock.Anything).Return(coverage.Section{}, fmt.Errorf("disk full"))

			_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
			Expect(coverage.IsError(err, coverage.StoreFailure)).To(BeTrue())
			tx.AssertCalled(GinkgoT(), "CreateCatalog", mock.Anything)
			tx.AssertNotCalled(GinkgoT(), "Commit")
			tx.AssertNumberOfCalls(GinkgoT(), "Rollback", 1)
		})

		It("should roll back when the coverage cannot be created", func() {
			tx.On("CatalogExists", mock.Anything).Return(true, nil)
			tx.On("ReadCoverage", mock.Anything, "rgb").Return(nil, coverage.NewEntityNotFound("Coverage", "name", "rgb", ""))
			tx.On("CreateCoverage", mock.Anything, mock.Anything).Return(fmt.Errorf("connection reset"))
			_, err := ingest.CreateCopy(ctx, mdb, "rgb", src, opts, nil)
			Expect(coverage.IsError(err, coverage.StoreFailure)).To(BeTrue())
			tx.AssertNotCalled(GinkgoT(), "CreateCatalog", mock.Anything)
			tx.AssertNotCalled(GinkgoT(), "LoadRawTiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			tx.AssertNotCalled(GinkgoT(), "Commit")
			tx.AssertNumberOfCalls(GinkgoT(), "Rollback", 1)
		})
	})
})

var _ = Describe("MemSource", func() {
	It("should read a window with a line stride", func() {
		src := ingest.NewMemSource(4, 3, 2, coverage.DTypeUINT8, nil)
		for i := range src.Pix {
			src.Pix[i] = byte(i)
		}
		buf := make([]byte, 3*2*2)
		Expect(src.Read(1, 1, 2, 2, buf, 6)).To(Succeed())
		Expect(buf).To(Equal([]byte{10, 11, 12, 13, 0, 0, 18, 19, 20, 21, 0, 0}))
		Expect(src.Read(3, 1, 2, 2, buf, 6)).NotTo(Succeed())
		_, ok := src.GeoTransform()
		Expect(ok).To(BeFalse())
	})
})

