package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/airbusgeo/coverstore/interface/database"
	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/metrics"
	"github.com/airbusgeo/coverstore/internal/raster"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type server struct {
	db          database.RasterBackend
	datasets    *datasets
	push        messaging.PushConsumer
	bearerAuths map[string]tokenAuth
}

type coverageSummary struct {
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Abstract    string     `json:"abstract,omitempty"`
	Sample      string     `json:"sample"`
	Pixel       string     `json:"pixel"`
	Bands       int        `json:"bands"`
	Compression string     `json:"compression"`
	Quality     int        `json:"quality"`
	TileSize    [2]int     `json:"tile_size"`
	Resolution  [2]float64 `json:"resolution"`
	SRID        int        `json:"srid"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken(userTokenKey))
		r.Get("/v1/coverages", s.listCoverages)
		r.Get("/v1/coverages/{coverage}", s.coverageInfo)
		r.Get("/v1/coverages/{coverage}/bands/{band}/blocks/{x}/{y}", s.readBlock)
	})

	if s.push != nil {
		r.With(s.requireToken(eventTokenKey)).Post("/push", s.pushEvent)
	}
	return r
}

// logRequests logs the requests with their id
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.WithFields(r.Context(), zap.String("request_id", middleware.GetReqID(r.Context())))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		log.Logger(ctx).Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()), zap.Duration("duration", time.Since(start)))
	})
}

// httpStatus maps an error to an http status
func httpStatus(err error) int {
	var cerr coverage.CoverageError
	if !errors.As(err, &cerr) {
		return http.StatusInternalServerError
	}
	switch cerr.Code() {
	case coverage.ValidationError, coverage.UnsupportedEncoding:
		return http.StatusBadRequest
	case coverage.EntityNotFound:
		return http.StatusNotFound
	case coverage.Aborted:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= 500 {
		log.Logger(r.Context()).Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (s *server) listCoverages(w http.ResponseWriter, r *http.Request) {
	covs, err := s.db.ListCoverages(r.Context())
	if err != nil {
		writeError(w, r, coverage.WrapStoreFailure("ListCoverages", err))
		return
	}
	res := make([]coverageSummary, 0, len(covs))
	for _, c := range covs {
		res = append(res, coverageSummary{
			Name:        c.Name,
			Title:       c.Title,
			Abstract:    c.Abstract,
			Sample:      c.Encoding.Sample.String(),
			Pixel:       c.Encoding.Pixel.String(),
			Bands:       c.Encoding.Bands,
			Compression: c.Compression.String(),
			Quality:     c.Quality,
			TileSize:    [2]int{c.TileWidth, c.TileHeight},
			Resolution:  [2]float64{c.Res.X, c.Res.Y},
			SRID:        c.SRID,
		})
	}
	writeJSON(w, r, res)
}

// queryInt returns the integer parameter of the query, or def if it is absent
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, coverage.NewValidationError("%s must be an integer (got %s)", key, v)
	}
	return i, nil
}

func pathInt(r *http.Request, key string) (int, error) {
	v := chi.URLParam(r, key)
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, coverage.NewValidationError("%s must be an integer (got %s)", key, v)
	}
	return i, nil
}

func (s *server) dataset(r *http.Request) (*raster.Dataset, error) {
	section, err := queryInt(r, "section", -1)
	if err != nil {
		return nil, err
	}
	return s.datasets.Get(r.Context(), chi.URLParam(r, "coverage"), int64(section))
}

func (s *server) coverageInfo(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, raster.Describe(ds))
}

// readBlock returns the raw pixels of a block of a band (band starting at 1)
func (s *server) readBlock(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var bandIdx, bx, by, overview int
	if bandIdx, err = pathInt(r, "band"); err == nil {
		if bx, err = pathInt(r, "x"); err == nil {
			if by, err = pathInt(r, "y"); err == nil {
				overview, err = queryInt(r, "overview", -1)
			}
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	bands := ds.Bands()
	if bandIdx < 1 || bandIdx > len(bands) {
		writeError(w, r, coverage.NewValidationError("invalid band %d (%d bands)", bandIdx, len(bands)))
		return
	}
	band := bands[bandIdx-1]
	if overview >= 0 {
		var ok bool
		if band, ok = band.Overview(overview); !ok {
			writeError(w, r, coverage.NewValidationError("invalid overview %d (%d overviews)", overview, ds.OverviewCount()))
			return
		}
	}
	nx, ny := band.BlockCount()
	if bx < 0 || by < 0 || bx >= nx || by >= ny {
		writeError(w, r, coverage.NewValidationError("invalid block %d,%d (%dx%d blocks)", bx, by, nx, ny))
		return
	}

	bw, bh := band.BlockSize()
	dst := make([]byte, bw*bh*band.DataType().Size())
	if err := band.ReadBlock(r.Context(), bx, by, dst); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Block-Width", strconv.Itoa(bw))
	w.Header().Set("X-Block-Height", strconv.Itoa(bh))
	w.Header().Set("X-Data-Type", band.DataType().String())
	w.Write(dst)
}

// pushEvent handles the coverage events pushed by pubsub
func (s *server) pushEvent(w http.ResponseWriter, r *http.Request) {
	code, err := s.push.Consume(r, messaging.EventCallback(s.datasets.HandleEvent))
	if err != nil {
		log.Logger(r.Context()).Warn("push: "+err.Error(), zap.Int("status", code))
	}
	w.WriteHeader(code)
}
