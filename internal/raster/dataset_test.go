package raster_test

import (
	"context"
	"fmt"
	"image/color"

	"github.com/airbusgeo/coverstore/interface/database/memory"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/raster"
	"github.com/airbusgeo/godal"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func fill(value byte) coverage.TileProducer {
	return func(ctx context.Context, tile coverage.Extent, buf []byte) error {
		for i := range buf {
			buf[i] = value
		}
		return nil
	}
}

var _ = Describe("Dataset", func() {
	var (
		ctx = context.Background()
		db  *memory.Backend
		cov *coverage.Coverage
	)

	load := func(name string, extent coverage.Extent, value byte) {
		req := coverage.LoadRequest{
			Section:    name,
			Width:      int(extent.Width() / cov.Res.X),
			Height:     int(extent.Height() / cov.Res.Y),
			Res:        cov.Res,
			Extent:     extent,
			SRID:       cov.SRID,
			Pyramidize: true,
		}
		_, err := db.LoadRawTiles(ctx, cov, req, fill(value))
		Expect(err).To(BeNil())
	}

	BeforeEach(func() {
		db = memory.New()
		Expect(db.CreateCatalog(ctx)).To(Succeed())
		db.SetSpatialRef(4326, "GEOGCS[\"WGS 84\"]")
		cov = &coverage.Coverage{
			Name:        "gray",
			Title:       "Gray levels",
			Abstract:    "*** missing Abstract ***",
			Encoding:    coverage.Encoding{Sample: coverage.SampleUINT8, Pixel: coverage.PixelGRAYSCALE, Bands: 1},
			Compression: coverage.CompressionDEFLATE,
			Quality:     100,
			TileWidth:   32,
			TileHeight:  32,
			Res:         coverage.Resolution{X: 10, Y: 10},
			SRID:        4326,
			NoData:      &coverage.Pixel{Sample: coverage.SampleUINT8, Pixel: coverage.PixelGRAYSCALE, Bands: 1, Values: []float64{255}},
			Policies:    coverage.Policies{SectionSummary: true},
		}
	})

	JustBeforeEach(func() {
		Expect(db.CreateCoverage(ctx, cov)).To(Succeed())
	})

	Context("with one section", func() {
		JustBeforeEach(func() {
			load("a", coverage.Extent{MinX: 0, MinY: 0, MaxX: 400, MaxY: 200}, 7)
		})

		It("should open the coverage through the store", func() {
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db", raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			Expect(ds.Coverage().Name).To(Equal("gray"))
			Expect(ds.Subdatasets()).To(BeEmpty())
			Expect(ds.SectionID()).To(BeNumerically(">=", 0))
			w, h := ds.Size()
			Expect([]int{w, h}).To(Equal([]int{40, 20}))
			Expect(ds.Projection()).To(Equal("GEOGCS[\"WGS 84\"]"))
			Expect(ds.MetadataItem("COVERAGE_TITLE", raster.DomainDefault)).To(Equal("Gray levels"))
			Expect(ds.Metadata(raster.DomainDefault)).NotTo(HaveKey("COVERAGE_ABSTRACT"))
			Expect(ds.MetadataItem("SECTION_SUMMARY", raster.DomainDefault)).NotTo(BeEmpty())
			Expect(ds.Metadata(raster.DomainDefault)).NotTo(HaveKey("NODATA_VALUES"))
		})

		It("should expose the band", func() {
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:gray", raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			band := ds.Bands()[0]
			Expect(band.DataType()).To(Equal(coverage.DTypeUINT8))
			Expect(band.ColorInterp()).To(Equal(godal.CIGray))
			nd, ok := band.NoData()
			Expect(ok).To(BeTrue())
			Expect(nd).To(Equal(255.0))
			md := band.Metadata(raster.DomainDefault)
			Expect(md).To(HaveKeyWithValue("STATISTICS_MEAN", "7"))
			Expect(md).To(HaveKeyWithValue("STATISTICS_MINIMUM", "7"))
			Expect(md).To(HaveKeyWithValue("STATISTICS_STDDEV", "0"))
			ct, err := band.ColorTable(ctx)
			Expect(err).To(BeNil())
			Expect(ct).To(BeNil())
		})

		It("should read the blocks and cache them", func() {
			cache, err := raster.NewLRUBlockCache(16)
			Expect(err).To(BeNil())
			opts := raster.DefaultOpenOptions()
			opts.Cache = cache
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:gray", opts)
			Expect(err).To(BeNil())

			dst := make([]byte, 32*32)
			band := ds.Bands()[0]
			Expect(band.ReadBlock(ctx, 1, 0, dst)).To(Succeed())
			// Block (1, 0) covers the columns 32 to 63: only 8 of them are in the coverage
			for y := 0; y < 20; y++ {
				Expect(dst[y*32 : y*32+8]).To(Equal([]byte{7, 7, 7, 7, 7, 7, 7, 7}))
			}
			Expect(cache.Len()).To(Equal(1))
			Expect(band.ReadBlock(ctx, 1, 0, dst)).To(Succeed())
			Expect(cache.Len()).To(Equal(1))
		})

		It("should describe the dataset", func() {
			opts := raster.DefaultOpenOptions()
			opts.ShowAllLevels = true
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:gray", opts)
			Expect(err).To(BeNil())
			info := raster.Describe(ds)
			Expect(info.Store).To(Equal("store.db"))
			Expect(info.Coverage).To(Equal("gray"))
			Expect(info.Size).To(Equal([2]int{40, 20}))
			Expect(info.GeoTransform).To(Equal([6]float64{0, 10, 0, 200, 0, -10}))
			Expect(info.ImageStructure).To(HaveKeyWithValue("COMPRESSION", "DEFLATE"))
			Expect(info.Bands).To(HaveLen(1))
			Expect(info.Bands[0].Band).To(Equal(1))
			Expect(info.Bands[0].BlockSize).To(Equal([2]int{32, 32}))
			Expect(*info.Bands[0].NoData).To(Equal(255.0))
			Expect(info.Overviews).To(Equal([][2]int{{20, 10}, {10, 5}, {5, 3}}))
		})

		It("should hide the small overviews unless asked", func() {
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:gray", raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			Expect(ds.OverviewCount()).To(Equal(0))

			opts := raster.DefaultOpenOptions()
			opts.ShowAllLevels = true
			ds, err = raster.Open(ctx, db, "RASTERLITE2:store.db:gray", opts)
			Expect(err).To(BeNil())
			// 20x10, 10x5 and 5x3; 3x1 is degenerate
			Expect(ds.OverviewCount()).To(Equal(3))
			ov, _ := ds.Overview(2)
			w, h := ov.Size()
			Expect([]int{w, h}).To(Equal([]int{5, 3}))
			b, ok := ds.Bands()[0].Overview(0)
			Expect(ok).To(BeTrue())
			Expect(b.OverviewCount()).To(Equal(0))
			Expect(b.Metadata(raster.DomainDefault)).To(BeEmpty())

			dst := make([]byte, 32*32)
			Expect(b.ReadBlock(ctx, 0, 0, dst)).To(Succeed())
			Expect(dst[0]).To(Equal(byte(7)))
		})
	})

	Context("with two sections", func() {
		JustBeforeEach(func() {
			load("a", coverage.Extent{MinX: 0, MinY: 0, MaxX: 320, MaxY: 320}, 1)
			load("b", coverage.Extent{MinX: 320, MinY: 0, MaxX: 640, MaxY: 320}, 2)
		})

		It("should list the sections as subdatasets", func() {
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:gray", raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			Expect(ds.SectionID()).To(Equal(int64(-1)))
			w, h := ds.Size()
			Expect([]int{w, h}).To(Equal([]int{64, 32}))
			sds := ds.Subdatasets()
			Expect(sds).To(HaveLen(2))
			sections, err := db.ListSections(ctx, "gray")
			Expect(err).To(BeNil())
			Expect(sds[1].Name).To(Equal(coverage.ConnString{File: "store.db", Coverage: "gray", SectionID: sections[1].ID, SectionName: "b"}.String()))
			Expect(sds[1].Desc).To(HaveSuffix("section b / %d", sections[1].ID))
			Expect(ds.MetadataItem("SUBDATASET_2_NAME", raster.DomainSubdatasets)).To(Equal(sds[1].Name))
			Expect(ds.Metadata(raster.DomainDefault)).NotTo(HaveKey("SECTION_SUMMARY"))

			section, err := raster.Open(ctx, db, sds[1].Name, raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			Expect(section.GeoTransform()).To(Equal([6]float64{320, 10, 0, 320, 0, -10}))
			Expect(section.MetadataItem("SECTION_SUMMARY", raster.DomainDefault)).NotTo(BeEmpty())
			dst := make([]byte, 32*32)
			Expect(section.Bands()[0].ReadBlock(ctx, 0, 0, dst)).To(Succeed())
			Expect(dst[0]).To(Equal(byte(2)))
		})

		It("should fail to open an unknown section", func() {
			_, err := raster.Open(ctx, db, "RASTERLITE2:store.db:gray:42:x", raster.DefaultOpenOptions())
			Expect(coverage.IsError(err, coverage.EntityNotFound)).To(BeTrue())
		})
	})

	Context("with several coverages", func() {
		JustBeforeEach(func() {
			rgb := *cov
			rgb.Name = "rgb"
			rgb.Title = "*** missing Title ***"
			rgb.Abstract = "Colors"
			rgb.Encoding = coverage.Encoding{Sample: coverage.SampleUINT8, Pixel: coverage.PixelRGB, Bands: 3}
			rgb.NoData = &coverage.Pixel{Sample: coverage.SampleUINT8, Pixel: coverage.PixelRGB, Bands: 3, Values: []float64{0, 0, 255}}
			Expect(db.CreateCoverage(ctx, &rgb)).To(Succeed())
		})

		It("should list the coverages", func() {
			ds, err := raster.OpenStore(ctx, db, "store.db", raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			Expect(ds.Coverage()).To(BeNil())
			Expect(ds.Bands()).To(BeEmpty())
			Expect(ds.Subdatasets()).To(Equal([]raster.Subdataset{
				{Name: "RASTERLITE2:store.db:gray", Desc: "Coverage gray, title = Gray levels"},
				{Name: "RASTERLITE2:store.db:rgb", Desc: "Coverage rgb, abstract = Colors"},
			}))
			Expect(ds.MetadataItem("SUBDATASET_1_DESC", raster.DomainSubdatasets)).To(Equal("Coverage gray, title = Gray levels"))
		})

		It("should expose the joint nodata of a multi-band coverage", func() {
			load := func(c string) {
				rgb, err := db.ReadCoverage(ctx, c)
				Expect(err).To(BeNil())
				_, err = db.LoadRawTiles(ctx, rgb, coverage.LoadRequest{
					Section: "s", Width: 32, Height: 32, Res: rgb.Res, SRID: rgb.SRID,
					Extent: coverage.Extent{MinX: 0, MinY: 0, MaxX: 320, MaxY: 320},
				}, fill(3))
				Expect(err).To(BeNil())
			}
			load("rgb")
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:rgb", raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			Expect(ds.MetadataItem("NODATA_VALUES", raster.DomainDefault)).To(Equal("0 0 255"))
			_, ok := ds.Bands()[0].NoData()
			Expect(ok).To(BeFalse())
		})
	})

	Context("with a mismatched nodata", func() {
		BeforeEach(func() {
			cov.NoData = &coverage.Pixel{Sample: coverage.SampleUINT16, Pixel: coverage.PixelGRAYSCALE, Bands: 1, Values: []float64{255}}
		})
		JustBeforeEach(func() {
			load("a", coverage.Extent{MinX: 0, MinY: 0, MaxX: 320, MaxY: 320}, 7)
		})
		It("should ignore it", func() {
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:gray", raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			_, ok := ds.Bands()[0].NoData()
			Expect(ok).To(BeFalse())
		})
	})

	Context("with a palette", func() {
		BeforeEach(func() {
			cov.Encoding.Pixel = coverage.PixelPALETTE
			cov.NoData = &coverage.Pixel{Sample: coverage.SampleUINT8, Pixel: coverage.PixelPALETTE, Bands: 1, Values: []float64{1}}
		})
		JustBeforeEach(func() {
			load("a", coverage.Extent{MinX: 0, MinY: 0, MaxX: 320, MaxY: 320}, 0)
			Expect(db.UpdatePalette(ctx, "gray", &coverage.Palette{Entries: []color.RGBA{{R: 255, A: 255}, {G: 255, A: 255}}})).To(Succeed())
		})
		It("should return the color table", func() {
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:gray", raster.DefaultOpenOptions())
			Expect(err).To(BeNil())
			band := ds.Bands()[0]
			Expect(band.ColorInterp()).To(Equal(godal.CIPalette))
			ct, err := band.ColorTable(ctx)
			Expect(err).To(BeNil())
			Expect(ct).To(Equal([]color.RGBA{{R: 255, A: 255}, {G: 255, A: 0}}))
		})
	})

	Context("with a 1-bit monochrome section fitting in one tile", func() {
		var opts raster.OpenOptions
		BeforeEach(func() {
			cov.Name = "mono"
			cov.Encoding = coverage.Encoding{Sample: coverage.Sample1BIT, Pixel: coverage.PixelMONOCHROME, Bands: 1}
			cov.Compression = coverage.CompressionPNG
			cov.TileWidth, cov.TileHeight = 256, 256
			cov.Res = coverage.Resolution{X: 1, Y: 1}
			cov.NoData = nil
			opts = raster.DefaultOpenOptions()
		})
		JustBeforeEach(func() {
			// left half black
			_, err := db.LoadRawTiles(ctx, cov, coverage.LoadRequest{
				Section: "a", Width: 200, Height: 200, Res: cov.Res, SRID: cov.SRID, Pyramidize: true,
				Extent: coverage.Extent{MinX: 0, MinY: 0, MaxX: 200, MaxY: 200},
			}, func(ctx context.Context, tile coverage.Extent, buf []byte) error {
				for y := 0; y < 256; y++ {
					for x := 0; x < 100; x++ {
						buf[y*256+x] = 1
					}
				}
				return nil
			})
			Expect(err).To(BeNil())
		})

		readOverview := func() []byte {
			ds, err := raster.Open(ctx, db, "RASTERLITE2:store.db:mono", opts)
			Expect(err).To(BeNil())
			Expect(ds.OverviewCount()).To(Equal(1))
			band, ok := ds.Bands()[0].Overview(0)
			Expect(ok).To(BeTrue())
			dst := make([]byte, 256*256)
			Expect(band.ReadBlock(ctx, 0, 0, dst)).To(Succeed())
			return dst
		}

		It("should serve the promoted overview from the base level as 8-bit gray", func() {
			dst := readOverview()
			for y := 0; y < 100; y++ {
				Expect(dst[y*256+49]).To(Equal(byte(255)), fmt.Sprintf("line %d", y))
				Expect(dst[y*256+50]).To(Equal(byte(0)), fmt.Sprintf("line %d", y))
			}
		})

		It("should serve the overview from the base level as 0/1 when not promoted", func() {
			opts.Promote1Bit = false
			dst := readOverview()
			for y := 0; y < 100; y++ {
				Expect(dst[y*256+49]).To(Equal(byte(1)), fmt.Sprintf("line %d", y))
				Expect(dst[y*256+50]).To(Equal(byte(0)), fmt.Sprintf("line %d", y))
			}
		})
	})

	It("should fail on an empty store", func() {
		_, err := raster.Open(ctx, memory.New(), "RASTERLITE2:empty.db", raster.DefaultOpenOptions())
		Expect(coverage.IsError(err, coverage.EntityNotFound)).To(BeTrue())
	})
})
