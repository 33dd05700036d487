package proj_test

import (
	"github.com/airbusgeo/coverstore/internal/utils/affine"
	"github.com/airbusgeo/coverstore/internal/utils/proj"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Footprint", func() {
	var pixToCRS *affine.Affine
	var footprint proj.Footprint

	BeforeEach(func() {
		pixToCRS = affine.Translation(453120, 5338560).Multiply(affine.Scale(10, -10))
	})

	Describe("NewFootprint", func() {
		JustBeforeEach(func() {
			footprint = proj.NewFootprint(pixToCRS, 4640, 416, 32631)
		})

		It("should cover the raster", func() {
			Expect(footprint.SRID()).To(Equal(32631))
			b := footprint.Bounds()
			Expect(b.Min(0)).To(Equal(453120.0))
			Expect(b.Min(1)).To(Equal(5334400.0))
			Expect(b.Max(0)).To(Equal(499520.0))
			Expect(b.Max(1)).To(Equal(5338560.0))
		})

		It("should round-trip through Value and Scan", func() {
			v, err := footprint.Value()
			Expect(err).To(BeNil())
			var scanned proj.Footprint
			Expect(scanned.Scan([]byte(v.(string)))).To(Succeed())
			Expect(scanned.Equal(&footprint)).To(BeTrue())
		})

		It("should fail to scan an unexpected type", func() {
			var scanned proj.Footprint
			Expect(scanned.Scan(12)).NotTo(Succeed())
			Expect(scanned.Scan(nil)).To(Succeed())
		})
	})
})

var _ = Describe("CRS", func() {
	It("should find the EPSG code", func() {
		crs, err := proj.CRSFromEPSG(4326)
		Expect(err).To(BeNil())
		Expect(proj.Srid(crs)).To(Equal(4326))

		_, srid, err := proj.CRSFromUserInput("epsg:32631")
		Expect(err).To(BeNil())
		Expect(srid).To(Equal(32631))
	})
})
