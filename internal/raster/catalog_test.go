package raster

import (
	"context"
	"slices"
	"testing"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type levelsFunc func(cov string, sectionID int64) []coverage.PyramidLevel

func (f levelsFunc) ReadLevels(ctx context.Context, cov string, sectionID int64) ([]coverage.PyramidLevel, error) {
	return f(cov, sectionID), nil
}

func resolutions(xs ...float64) []coverage.Resolution {
	rs := make([]coverage.Resolution, len(xs))
	for i, x := range xs {
		rs[i] = coverage.Resolution{X: x, Y: x}
	}
	return rs
}

func TestSynthesizeOverviews(t *testing.T) {
	base := level{width: 2000, height: 1600, gt: [6]float64{500, 1, 0, 2000, 0, -1}}
	at := func(w, h int, rx, ry float64) level {
		return level{width: w, height: h, gt: [6]float64{500, rx, 0, 2000, 0, -ry}}
	}

	tests := []struct {
		name    string
		res     []coverage.Resolution
		showAll bool
		want    []level
	}{
		{
			name: "duplicates",
			res:  resolutions(1, 10, 10.00001, 20, 20),
			want: []level{at(200, 160, 10, 10), at(100, 80, 20, 20)},
		},
		{
			name: "small",
			res:  resolutions(20, 100),
			want: []level{at(100, 80, 20, 20)},
		},
		{
			name:    "show all",
			res:     resolutions(20, 100),
			showAll: true,
			want:    []level{at(100, 80, 20, 20), at(20, 16, 100, 100)},
		},
		{
			name:    "degenerate",
			res:     resolutions(1200, 2500),
			showAll: true,
			want:    nil,
		},
		{
			name: "one dimension large enough",
			res:  []coverage.Resolution{{X: 10, Y: 100}},
			want: []level{at(200, 16, 10, 100)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := synthesizeOverviews(base, slices.Values(tt.res), tt.showAll)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolutionCatalog(t *testing.T) {
	var queried []int64
	db := levelsFunc(func(cov string, sectionID int64) []coverage.PyramidLevel {
		queried = append(queried, sectionID)
		return []coverage.PyramidLevel{
			coverage.NewPyramidLevel(1, coverage.Resolution{X: 2, Y: 2}),
			{Level: 0, Res: [4]coverage.Resolution{{X: 1, Y: 1}, {}, {X: 4, Y: 4}}},
		}
	})
	cov := &coverage.Coverage{Name: "c"}

	seq, err := NewResolutionCatalog(db, cov, 3).Resolutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resolutions(1, 4, 2, 4, 8, 16), slices.Collect(seq))

	cov.Policies.MixedResolutions = true
	_, err = NewResolutionCatalog(db, cov, 3).Resolutions(context.Background())
	require.NoError(t, err)
	_, err = NewResolutionCatalog(db, cov, tiling.CoverageWide).Resolutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{tiling.CoverageWide, 3, tiling.CoverageWide}, queried)
}

func TestParseOpenOptions(t *testing.T) {
	o, err := ParseOpenOptions(nil)
	require.NoError(t, err)
	assert.True(t, o.Promote1Bit)
	assert.False(t, o.ShowAllLevels)

	o, err = ParseOpenOptions(map[string]string{"1bit_as_8bit": "NO", "SHOW_ALL_LEVELS": "yes"})
	require.NoError(t, err)
	assert.False(t, o.Promote1Bit)
	assert.True(t, o.ShowAllLevels)

	_, err = ParseOpenOptions(map[string]string{"SHOW_ALL_LEVELS": "maybe"})
	assert.True(t, coverage.IsError(err, coverage.ValidationError))
	_, err = ParseOpenOptions(map[string]string{"UNKNOWN": "YES"})
	assert.True(t, coverage.IsError(err, coverage.ValidationError))
}

func TestLRUBlockCache(t *testing.T) {
	c, err := NewLRUBlockCache(2)
	require.NoError(t, err)
	k1 := BlockKey{Dataset: 1, X: 1}
	k2 := BlockKey{Dataset: 1, X: 2}
	k3 := BlockKey{Dataset: 2, X: 1}

	_, ok := c.TryGet(k1)
	assert.False(t, ok)

	// A block released without being written is dropped
	b := c.Acquire(k1, 4)
	c.Release(b)
	_, ok = c.TryGet(k1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	for _, k := range []BlockKey{k1, k2} {
		b := c.Acquire(k, 4)
		b.Data[0] = byte(k.X)
		b.MarkValid()
		c.Release(b)
	}
	b, ok = c.TryGet(k1)
	require.True(t, ok)
	assert.Equal(t, byte(1), b.Data[0])
	c.Release(b)

	// k2 is the least recently used
	b = c.Acquire(k3, 4)
	b.MarkValid()
	c.Release(b)
	assert.Equal(t, 2, c.Len())
	_, ok = c.TryGet(k2)
	assert.False(t, ok)
	b, ok = c.TryGet(k1)
	require.True(t, ok)
	c.Release(b)
}
