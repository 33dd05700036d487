package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airbusgeo/coverstore/interface/database/memory"
	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/airbusgeo/coverstore/interface/messaging/mocks"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/raster"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*server, *memory.Backend, *coverage.Coverage) {
	ctx := context.Background()
	db := memory.New()
	require.NoError(t, db.CreateCatalog(ctx))
	cov := &coverage.Coverage{
		Name:        "dem",
		Encoding:    coverage.Encoding{Sample: coverage.SampleUINT16, Pixel: coverage.PixelDATAGRID, Bands: 1},
		Compression: coverage.CompressionDEFLATE,
		Quality:     100,
		TileWidth:   16,
		TileHeight:  16,
		Res:         coverage.Resolution{X: 1, Y: 1},
		SRID:        4326,
	}
	require.NoError(t, db.CreateCoverage(ctx, cov))
	loadSection(t, db, cov, "a", coverage.Extent{MinX: 0, MinY: 0, MaxX: 32, MaxY: 16}, 3)

	opts := raster.DefaultOpenOptions()
	s := &server{
		db:          db,
		datasets:    newDatasets(db, "coverstore", opts),
		bearerAuths: map[string]tokenAuth{},
	}
	return s, db, cov
}

func loadSection(t *testing.T, db *memory.Backend, cov *coverage.Coverage, name string, extent coverage.Extent, value byte) {
	_, err := db.LoadRawTiles(context.Background(), cov, coverage.LoadRequest{
		Section: name,
		Width:   int(extent.Width()),
		Height:  int(extent.Height()),
		Res:     cov.Res,
		Extent:  extent,
		SRID:    cov.SRID,
	}, func(ctx context.Context, tile coverage.Extent, buf []byte) error {
		for i := 0; i < len(buf); i += 2 {
			buf[i] = value
		}
		return nil
	})
	require.NoError(t, err)
}

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListCoverages(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s.routes(), "/v1/coverages")
	require.Equal(t, http.StatusOK, rec.Code)
	var covs []coverageSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &covs))
	require.Len(t, covs, 1)
	assert.Equal(t, "dem", covs[0].Name)
	assert.Equal(t, "UINT16", covs[0].Sample)
	assert.Equal(t, [2]int{16, 16}, covs[0].TileSize)
}

func TestCoverageInfo(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.routes()

	rec := get(t, h, "/v1/coverages/dem")
	require.Equal(t, http.StatusOK, rec.Code)
	var info raster.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "dem", info.Coverage)
	assert.Equal(t, [2]int{32, 16}, info.Size)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/coverages/unknown").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/coverages/dem?section=abc").Code)
}

func TestReadBlock(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.routes()

	rec := get(t, h, "/v1/coverages/dem/bands/1/blocks/1/0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "16", rec.Header().Get("X-Block-Width"))
	assert.Equal(t, "UINT16", rec.Header().Get("X-Data-Type"))
	body := rec.Body.Bytes()
	require.Len(t, body, 16*16*2)
	assert.Equal(t, byte(3), body[0])

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/coverages/dem/bands/2/blocks/0/0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/coverages/dem/bands/1/blocks/2/0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/coverages/dem/bands/1/blocks/0/0?overview=5").Code)
}

func TestAuthentication(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.bearerAuths = map[string]tokenAuth{userTokenKey: {Token: "secret"}}
	h := s.routes()

	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/v1/coverages").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/v1/coverages", AuthorizationHeader, "secret").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/v1/coverages", AuthorizationHeader, "Bearer other").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/v1/coverages", AuthorizationHeader, "Bearer secret").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestEventInvalidation(t *testing.T) {
	ctx := context.Background()
	s, db, cov := newTestServer(t)

	ds, err := s.datasets.Get(ctx, "dem", -1)
	require.NoError(t, err)
	w, _ := ds.Size()
	assert.Equal(t, 32, w)

	loadSection(t, db, cov, "b", coverage.Extent{MinX: 32, MinY: 0, MaxX: 64, MaxY: 16}, 5)
	again, err := s.datasets.Get(ctx, "dem", -1)
	require.NoError(t, err)
	assert.Same(t, ds, again, "served from the opened datasets")

	require.NoError(t, s.datasets.HandleEvent(ctx, messaging.CoverageEvent{Store: "other", Coverage: "dem"}))
	again, _ = s.datasets.Get(ctx, "dem", -1)
	assert.Same(t, ds, again, "event of another store")

	require.NoError(t, s.datasets.HandleEvent(ctx, messaging.CoverageEvent{Store: "coverstore", Coverage: "dem", Kind: messaging.SectionAdded}))
	reopened, err := s.datasets.Get(ctx, "dem", -1)
	require.NoError(t, err)
	assert.NotSame(t, ds, reopened)
	w, _ = reopened.Size()
	assert.Equal(t, 64, w)
}

func TestPushEvent(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestServer(t)
	push := &mocks.PushConsumer{}
	push.On("Consume", mock.Anything, mock.Anything).Return(func(req *http.Request, cb messaging.Callback) int {
		if err := cb(req.Context(), &messaging.Message{Data: []byte(`{"coverage":"dem","kind":"SectionAdded"}`)}); err != nil {
			return http.StatusServiceUnavailable
		}
		return http.StatusOK
	}, nil)
	s.push = push
	s.bearerAuths = map[string]tokenAuth{eventTokenKey: {Token: "evt"}}
	h := s.routes()

	_, err := s.datasets.Get(ctx, "dem", -1)
	require.NoError(t, err)
	_, cached := s.datasets.cached("dem", -1)
	require.True(t, cached)

	req := httptest.NewRequest(http.MethodPost, "/push", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/push", strings.NewReader("{}"))
	req.Header.Set(AuthorizationHeader, "Bearer evt")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, cached = s.datasets.cached("dem", -1)
	assert.False(t, cached)
	push.AssertNumberOfCalls(t, "Consume", 1)
}

func TestPullEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := &mocks.Consumer{}
	calls := 0
	consumer.On("Pull", mock.Anything, mock.Anything).Return(func(ctx context.Context, cb messaging.Callback) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return cb(ctx, &messaging.Message{Data: []byte(`{"coverage":"dem"}`)})
	})
	events := 0
	pullEvents(ctx, consumer, messaging.EventCallback(func(ctx context.Context, evt messaging.CoverageEvent) error {
		events++
		return nil
	}))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, events)
}
