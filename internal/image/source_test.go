package image_test

import (
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/image"
	"github.com/airbusgeo/coverstore/internal/utils"
	"github.com/airbusgeo/godal"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("GodalSource", func() {

	var (
		ds  *godal.Dataset
		src *image.GodalSource
		err error
	)

	BeforeEach(func() {
		godal.RegisterAll()
		ds, err = godal.Create(godal.Memory, "", 3, godal.UInt16, 10, 6)
		Expect(err).To(BeNil())
		pix := make([]uint16, 10*6*3)
		for i := range pix {
			pix[i] = uint16(i)
		}
		Expect(ds.Write(0, 0, pix, 10, 6)).To(Succeed())
		Expect(ds.Bands()[0].SetColorInterp(godal.CIRed)).To(Succeed())
	})

	JustBeforeEach(func() {
		src, err = image.NewGodalSource(ds)
	})

	AfterEach(func() {
		ds.Close()
	})

	Context("describing the dataset", func() {
		It("should expose the structure", func() {
			Expect(err).To(BeNil())
			w, h := src.Size()
			Expect(w).To(Equal(10))
			Expect(h).To(Equal(6))
			Expect(src.BandCount()).To(Equal(3))
			Expect(src.DType()).To(Equal(coverage.DTypeUINT16))
			Expect(src.ColorInterp(0)).To(Equal(godal.CIRed))
			Expect(src.ColorInterp(5)).To(Equal(godal.CIUndefined))
		})

		It("should not be georeferenced", func() {
			_, ok := src.GeoTransform()
			Expect(ok).To(BeFalse())
		})
	})

	Context("with a geotransform", func() {
		BeforeEach(func() {
			Expect(ds.SetGeoTransform([6]float64{100, 2, 0, 50, 0, -2})).To(Succeed())
		})
		It("should return it", func() {
			gt, ok := src.GeoTransform()
			Expect(ok).To(BeTrue())
			Expect(gt.GeoTransform()).To(Equal([6]float64{100, 2, 0, 50, 0, -2}))
		})
	})

	Context("reading a window", func() {
		It("should read packed lines", func() {
			buf := make([]byte, 2*2*3*2)
			Expect(src.Read(1, 1, 2, 2, buf, 2*3*2)).To(Succeed())
			Expect(utils.SliceByteToGeneric[uint16](buf)).To(Equal([]uint16{33, 34, 35, 36, 37, 38, 63, 64, 65, 66, 67, 68}))
		})

		It("should honor the line stride", func() {
			buf := make([]byte, 2*4*3*2)
			Expect(src.Read(0, 4, 2, 2, buf, 4*3*2)).To(Succeed())
			values := utils.SliceByteToGeneric[uint16](buf)
			Expect(values[:6]).To(Equal([]uint16{120, 121, 122, 123, 124, 125}))
			Expect(values[6:12]).To(Equal([]uint16{0, 0, 0, 0, 0, 0}))
			Expect(values[12:18]).To(Equal([]uint16{150, 151, 152, 153, 154, 155}))
		})

		It("should reject a small buffer", func() {
			Expect(src.Read(0, 0, 2, 2, make([]byte, 10), 12)).NotTo(Succeed())
		})
	})

	Context("overriding the spatial reference", func() {
		It("should export the epsg as wkt", func() {
			Expect(src.OverrideSRS("epsg:4326")).To(Succeed())
			Expect(src.Projection()).To(ContainSubstring("WGS 84"))
		})
		It("should reject an invalid input", func() {
			err := src.OverrideSRS("epsg:abc")
			Expect(coverage.IsError(err, coverage.ValidationError)).To(BeTrue())
		})
	})
})
