package raster_test

import (
	"context"

	"github.com/airbusgeo/coverstore/interface/database/mocks"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/raster"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/airbusgeo/godal"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"
)

// interleaved returns w*h pixels of nbands bands, the sample of band b being b+1
func interleaved(w, h, nbands int) []byte {
	buf := make([]byte, w*h*nbands)
	for i := range buf {
		buf[i] = byte(i%nbands + 1)
	}
	return buf
}

// recordingCache records the blocks acquired for writing and can hide cached blocks from TryGet
type recordingCache struct {
	*raster.LRUBlockCache
	acquired []raster.BlockKey
	hidden   map[raster.BlockKey]bool
}

func newRecordingCache() *recordingCache {
	c, err := raster.NewLRUBlockCache(64)
	Expect(err).To(BeNil())
	return &recordingCache{LRUBlockCache: c, hidden: map[raster.BlockKey]bool{}}
}

func (c *recordingCache) TryGet(key raster.BlockKey) (*raster.Block, bool) {
	if c.hidden[key] {
		return nil, false
	}
	return c.LRUBlockCache.TryGet(key)
}

func (c *recordingCache) Acquire(key raster.BlockKey, size int) *raster.Block {
	c.acquired = append(c.acquired, key)
	return c.LRUBlockCache.Acquire(key, size)
}

var _ = Describe("Band", func() {
	var (
		ctx     = context.Background()
		db      *mocks.RasterBackend
		cov     *coverage.Coverage
		extent  coverage.Extent
		levels  []coverage.PyramidLevel
		opts    raster.OpenOptions
		ds      *raster.Dataset
		openErr error
	)

	BeforeEach(func() {
		db = &mocks.RasterBackend{}
		cov = &coverage.Coverage{
			Name:        "rgb",
			Encoding:    coverage.Encoding{Sample: coverage.SampleUINT8, Pixel: coverage.PixelRGB, Bands: 3},
			Compression: coverage.CompressionDEFLATE,
			TileWidth:   8,
			TileHeight:  8,
			Res:         coverage.Resolution{X: 1, Y: 1},
			SRID:        4326,
		}
		extent = coverage.Extent{MinX: 100, MinY: 200, MaxX: 116, MaxY: 216}
		levels = []coverage.PyramidLevel{coverage.NewPyramidLevel(0, cov.Res)}
		opts = raster.DefaultOpenOptions()
		opts.ShowAllLevels = true
	})

	JustBeforeEach(func() {
		db.On("ReadCoverage", mock.Anything, cov.Name).Return(cov, nil)
		db.On("ListSections", mock.Anything, cov.Name).Return([]coverage.Section{}, nil)
		db.On("ReadCoverageExtent", mock.Anything, cov.Name).Return(extent, nil)
		db.On("ReadSpatialRef", mock.Anything, cov.SRID).Return("GEOGCS[\"WGS 84\"]", nil)
		db.On("ReadStatistics", mock.Anything, cov.Name, tiling.CoverageWide).Return(nil, nil)
		db.On("ReadLevels", mock.Anything, cov.Name, tiling.CoverageWide).Return(levels, nil)
		ds, openErr = raster.Open(ctx, db, "RASTERLITE2:store.db:"+cov.Name, opts)
	})

	Describe("ReadBlock", func() {
		Context("multi-band coverage", func() {
			JustBeforeEach(func() {
				Expect(openErr).To(BeNil())
				db.On("ReadRawRaster", mock.Anything, cov, mock.MatchedBy(func(req coverage.WindowRequest) bool {
					return req.Width == 8 && req.Height == 8 && req.Threads == 1 && req.SectionID == tiling.CoverageWide
				})).Return(interleaved(8, 8, 3), nil)
			})

			It("should read the store once for all the bands of a block", func() {
				bands := ds.Bands()
				Expect(bands).To(HaveLen(3))
				for i, b := range bands {
					dst := make([]byte, 64)
					Expect(b.ReadBlock(ctx, 1, 0, dst)).To(Succeed())
					for _, v := range dst {
						Expect(v).To(Equal(byte(i + 1)))
					}
				}
				db.AssertNumberOfCalls(GinkgoT(), "ReadRawRaster", 1)

				dst := make([]byte, 64)
				Expect(bands[1].ReadBlock(ctx, 1, 0, dst)).To(Succeed())
				Expect(bands[0].ReadBlock(ctx, 0, 0, dst)).To(Succeed())
				db.AssertNumberOfCalls(GinkgoT(), "ReadRawRaster", 2)
			})

			Context("with a cache", func() {
				var cache *recordingCache
				BeforeEach(func() {
					cache = newRecordingCache()
					opts.Cache = cache
				})

				It("should populate the other bands once", func() {
					dst := make([]byte, 64)
					Expect(ds.Bands()[0].ReadBlock(ctx, 1, 0, dst)).To(Succeed())
					Expect(cache.acquired).To(HaveLen(3))
					for i, key := range cache.acquired {
						Expect(key.Band).To(Equal(i))
						Expect([]int{key.X, key.Y}).To(Equal([]int{1, 0}))
					}

					// the block of band 0 is read again, the other ones are still cached
					cache.hidden[cache.acquired[0]] = true
					cache.acquired = nil
					Expect(ds.Bands()[0].ReadBlock(ctx, 1, 0, dst)).To(Succeed())
					db.AssertNumberOfCalls(GinkgoT(), "ReadRawRaster", 2)
					Expect(cache.acquired).To(HaveLen(1))
					Expect(cache.acquired[0].Band).To(Equal(0))
				})
			})

			It("should request the georeferenced window of the block", func() {
				dst := make([]byte, 64)
				Expect(ds.Bands()[0].ReadBlock(ctx, 1, 1, dst)).To(Succeed())
				req := db.Calls[len(db.Calls)-1].Arguments.Get(2).(coverage.WindowRequest)
				Expect(req.Extent).To(Equal(coverage.Extent{MinX: 108, MinY: 200, MaxX: 116, MaxY: 208}))
				Expect(req.Res).To(Equal(coverage.Resolution{X: 1, Y: 1}))
				Expect(req.OutPixel).To(Equal(coverage.PixelRGB))
			})

			It("should reject a block out of range", func() {
				err := ds.Bands()[0].ReadBlock(ctx, 2, 0, make([]byte, 64))
				Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
				err = ds.Bands()[0].ReadBlock(ctx, 0, 0, make([]byte, 10))
				Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
				db.AssertNotCalled(GinkgoT(), "ReadRawRaster", mock.Anything, mock.Anything, mock.Anything)
			})
		})

		Context("the store returns a buffer of unexpected size", func() {
			JustBeforeEach(func() {
				db.On("ReadRawRaster", mock.Anything, cov, mock.Anything).Return(make([]byte, 10), nil)
			})
			It("should fail with a ShapeMismatch", func() {
				err := ds.Bands()[0].ReadBlock(ctx, 0, 0, make([]byte, 64))
				Expect(coverage.IsError(err, coverage.ShapeMismatch)).To(BeTrue())
				// Nothing cached
				err = ds.Bands()[1].ReadBlock(ctx, 0, 0, make([]byte, 64))
				Expect(coverage.IsError(err, coverage.ShapeMismatch)).To(BeTrue())
				db.AssertNumberOfCalls(GinkgoT(), "ReadRawRaster", 2)
			})
		})

		Context("the store fails", func() {
			JustBeforeEach(func() {
				db.On("ReadRawRaster", mock.Anything, cov, mock.Anything).Return(nil, context.DeadlineExceeded)
			})
			It("should return a StoreFailure", func() {
				err := ds.Bands()[0].ReadBlock(ctx, 0, 0, make([]byte, 64))
				Expect(coverage.IsError(err, coverage.StoreFailure)).To(BeTrue())
			})
		})

		Context("1-bit monochrome coverage", func() {
			BeforeEach(func() {
				cov.Name = "mono"
				cov.Encoding = coverage.Encoding{Sample: coverage.Sample1BIT, Pixel: coverage.PixelMONOCHROME, Bands: 1}
				cov.Compression = coverage.CompressionCCITTFAX4
				extent = coverage.Extent{MinX: 0, MinY: 0, MaxX: 128, MaxY: 128}
				opts.ShowAllLevels = false
			})
			JustBeforeEach(func() {
				Expect(openErr).To(BeNil())
				overview := []byte{0, 100, 127, 128, 200, 255, 1, 0}
				db.On("ReadRawRaster", mock.Anything, cov, mock.MatchedBy(func(req coverage.WindowRequest) bool {
					return req.Res.X == 2
				})).Return(func(context.Context, *coverage.Coverage, coverage.WindowRequest) []byte {
					buf := make([]byte, 64)
					copy(buf, overview)
					return buf
				}, nil)
				db.On("ReadRawRaster", mock.Anything, cov, mock.MatchedBy(func(req coverage.WindowRequest) bool {
					return req.Res.X == 1
				})).Return(func(context.Context, *coverage.Coverage, coverage.WindowRequest) []byte {
					buf := make([]byte, 64)
					buf[0] = 1
					return buf
				}, nil)
			})

			It("should keep the overviews of at least 64 pixels", func() {
				Expect(ds.OverviewCount()).To(Equal(1))
				ov, ok := ds.Overview(0)
				Expect(ok).To(BeTrue())
				w, h := ov.Size()
				Expect([]int{w, h}).To(Equal([]int{64, 64}))
				_, ok = ds.Overview(1)
				Expect(ok).To(BeFalse())
			})

			Context("not promoted", func() {
				BeforeEach(func() {
					opts.Promote1Bit = false
				})
				It("should threshold the overviews", func() {
					band, ok := ds.Bands()[0].Overview(0)
					Expect(ok).To(BeTrue())
					dst := make([]byte, 64)
					Expect(band.ReadBlock(ctx, 0, 0, dst)).To(Succeed())
					Expect(dst[:8]).To(Equal([]byte{0, 0, 0, 1, 1, 1, 0, 0}))
					req := db.Calls[len(db.Calls)-1].Arguments.Get(2).(coverage.WindowRequest)
					Expect(req.OutPixel).To(Equal(coverage.PixelGRAYSCALE))
					Expect(ds.Bands()[0].Metadata(raster.DomainImageStructure)).To(HaveKeyWithValue("NBITS", "1"))
				})
				It("should only cache the block of its single band", func() {
					cache := newRecordingCache()
					opts.Cache = cache
					ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:"+cov.Name, opts)
					Expect(err).To(BeNil())
					Expect(ds.Bands()[0].ReadBlock(ctx, 0, 0, make([]byte, 64))).To(Succeed())
					Expect(cache.acquired).To(HaveLen(1))
					Expect(cache.acquired[0].Band).To(Equal(0))
				})
				It("should return 0/1 at full resolution", func() {
					dst := make([]byte, 64)
					Expect(ds.Bands()[0].ReadBlock(ctx, 0, 0, dst)).To(Succeed())
					Expect(dst[0]).To(Equal(byte(1)))
					Expect(dst[1]).To(Equal(byte(0)))
				})
			})

			Context("promoted", func() {
				It("should return the grayscale overviews", func() {
					band, _ := ds.Bands()[0].Overview(0)
					dst := make([]byte, 64)
					Expect(band.ReadBlock(ctx, 0, 0, dst)).To(Succeed())
					Expect(dst[:8]).To(Equal([]byte{0, 100, 127, 128, 200, 255, 1, 0}))
					md := ds.Bands()[0].Metadata(raster.DomainImageStructure)
					Expect(md).To(HaveKeyWithValue("SOURCE_NBITS", "1"))
					Expect(md).NotTo(HaveKey("NBITS"))
				})
			})
		})
	})

	Describe("Open", func() {
		It("should describe the coverage", func() {
			Expect(openErr).To(BeNil())
			w, h := ds.Size()
			Expect([]int{w, h}).To(Equal([]int{16, 16}))
			Expect(ds.GeoTransform()).To(Equal([6]float64{100, 1, 0, 216, 0, -1}))
			Expect(ds.Projection()).To(Equal("GEOGCS[\"WGS 84\"]"))
			Expect(ds.MetadataItem("COMPRESSION", raster.DomainImageStructure)).To(Equal("DEFLATE"))
			bands := ds.Bands()
			Expect(bands[0].ColorInterp()).To(Equal(godal.CIRed))
			Expect(bands[1].ColorInterp()).To(Equal(godal.CIGreen))
			Expect(bands[2].ColorInterp()).To(Equal(godal.CIBlue))
			bw, bh := bands[0].BlockSize()
			Expect([]int{bw, bh}).To(Equal([]int{8, 8}))
			nx, ny := bands[0].BlockCount()
			Expect([]int{nx, ny}).To(Equal([]int{2, 2}))
			// 16x16 base: 8x8, 4x4 and 2x2 overviews, 1x1 is degenerate
			Expect(ds.OverviewCount()).To(Equal(3))
			ov, _ := ds.Overview(1)
			Expect(ov.GeoTransform()).To(Equal([6]float64{100, 4, 0, 216, 0, -4}))
			Expect(ov.IsOverview()).To(BeTrue())
		})

		Context("the coverage has an invalid extent", func() {
			BeforeEach(func() {
				extent = coverage.Extent{}
			})
			It("should fail", func() {
				Expect(coverage.IsError(openErr, coverage.ValidationError)).To(BeTrue())
			})
		})

		Context("the spatial reference is unknown", func() {
			BeforeEach(func() {
				cov.SRID = 2154
				db.On("ReadSpatialRef", mock.Anything, 2154).Return("", coverage.NewEntityNotFound("SpatialRef", "srid", "2154", ""))
			})
			It("should open without projection", func() {
				Expect(openErr).To(BeNil())
				Expect(ds.Projection()).To(BeEmpty())
			})
		})
	})
})
