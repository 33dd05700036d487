package raster

import (
	"context"
	"iter"
	"math"
	"sort"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/airbusgeo/coverstore/internal/utils"
)

// minOverviewSize: an overview whose both dimensions are smaller is not useful
const minOverviewSize = 64

type levelReader interface {
	ReadLevels(ctx context.Context, cov string, sectionID int64) ([]coverage.PyramidLevel, error)
}

// ResolutionCatalog lists the resolutions at which the tiles of a coverage (or of one of its sections) are stored
type ResolutionCatalog struct {
	db        levelReader
	coverage  string
	sectionID int64
	bySection bool
}

// NewResolutionCatalog creates the catalog of the coverage.
// The levels of the section are used if the coverage has mixed resolutions and a section is selected,
// the levels of the coverage otherwise.
func NewResolutionCatalog(db levelReader, cov *coverage.Coverage, sectionID int64) ResolutionCatalog {
	return ResolutionCatalog{
		db:        db,
		coverage:  cov.Name,
		sectionID: sectionID,
		bySection: cov.Policies.MixedResolutions && sectionID >= 0,
	}
}

// Resolutions queries the levels and returns their valid resolutions (1:1, 1:2, 1:4 then 1:8),
// ordered by pyramid level. Each call queries the store again.
// A coverage without levels returns an empty sequence.
func (rc ResolutionCatalog) Resolutions(ctx context.Context) (iter.Seq[coverage.Resolution], error) {
	sectionID := tiling.CoverageWide
	if rc.bySection {
		sectionID = rc.sectionID
	}
	levels, err := rc.db.ReadLevels(ctx, rc.coverage, sectionID)
	if err != nil {
		return nil, coverage.WrapStoreFailure("Resolutions", err)
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })
	return func(yield func(coverage.Resolution) bool) {
		for _, l := range levels {
			for _, r := range l.Res {
				if r.Valid() && !yield(r) {
					return
				}
			}
		}
	}, nil
}

// level is the geometry of the full resolution or of an overview of a dataset
type level struct {
	width, height int
	gt            [6]float64
}

func (l level) resolution() coverage.Resolution {
	return coverage.Resolution{X: l.gt[1], Y: math.Abs(l.gt[5])}
}

func sameResolution(res, ref float64) bool {
	return math.Abs(res-ref) < coverage.ResolutionTolerance*ref
}

// synthesizeOverviews returns the overviews of the base level at the given resolutions.
// A resolution equal (within the tolerance) to the base or to a previous overview is skipped,
// as well as a degenerate overview (1 pixel wide or high) and, unless showAll, an overview smaller
// than minOverviewSize in both dimensions.
func synthesizeOverviews(base level, resolutions iter.Seq[coverage.Resolution], showAll bool) []level {
	var overviews []level
	minX, maxY := base.gt[0], base.gt[3]
	maxX := minX + base.gt[1]*float64(base.width)
	minY := maxY + base.gt[5]*float64(base.height)

next:
	for r := range resolutions {
		if sameResolution(r.X, base.gt[1]) {
			continue
		}
		for _, o := range overviews {
			if sameResolution(r.X, o.gt[1]) {
				continue next
			}
		}
		width := utils.RoundHalfUp((maxX - minX) / r.X)
		height := utils.RoundHalfUp((maxY - minY) / r.Y)
		if width <= 1 || height <= 1 || (width < minOverviewSize && height < minOverviewSize && !showAll) {
			continue
		}
		overviews = append(overviews, level{
			width:  width,
			height: height,
			gt:     [6]float64{minX, r.X, 0, maxY, 0, -r.Y},
		})
	}
	return overviews
}
