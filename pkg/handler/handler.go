package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"

	"github.com/tilezen/ogctiles/pkg/log"
	"github.com/tilezen/ogctiles/pkg/metrics"
	"github.com/tilezen/ogctiles/pkg/model"
	"github.com/tilezen/ogctiles/pkg/provider"
	"github.com/tilezen/ogctiles/pkg/state"
)

// Collection is a published collection backed by a tile provider.
type Collection struct {
	ID       string
	Meta     model.Collection
	MimeType string
	// Format is the configured tile format. Tile requests may name it, mvt,
	// or nothing.
	Format   string
	Provider provider.TileProvider
}

// acceptsFormat reports whether a tile request for format can be served.
func (c *Collection) acceptsFormat(format string) bool {
	switch format {
	case "", provider.FormatMVT:
		return true
	}
	return c.Format == "" || format == c.Format
}

// Collections is the set of collections served, keyed by id. It is built
// once at startup and only read afterwards.
type Collections struct {
	byID map[string]*Collection
	ids  []string
}

func NewCollections() *Collections {
	return &Collections{byID: make(map[string]*Collection)}
}

func (cs *Collections) Add(c *Collection) error {
	if _, ok := cs.byID[c.ID]; ok {
		return fmt.Errorf("duplicate collection %s", c.ID)
	}
	cs.byID[c.ID] = c
	cs.ids = append(cs.ids, c.ID)
	sort.Strings(cs.ids)
	return nil
}

func (cs *Collections) Get(id string) (*Collection, bool) {
	c, ok := cs.byID[id]
	return c, ok
}

// All returns the collections ordered by id.
func (cs *Collections) All() []*Collection {
	result := make([]*Collection, 0, len(cs.ids))
	for _, id := range cs.ids {
		result = append(result, cs.byID[id])
	}
	return result
}

type ParseResultType int

const (
	ParseResultType_Nil ParseResultType = iota
	ParseResultType_Tile
	ParseResultType_Description
)

type Parser interface {
	Parse(*http.Request) (*ParseResult, error)
}

type ParseResult struct {
	Type     ParseResultType
	HttpData state.HttpRequestData
	// Encoding is the document encoding, or the tile format for tiles.
	Encoding string
	// set to be more specific data based on parse type
	AdditionalData interface{}
}

// Options configures the routes set up by Register.
type Options struct {
	// BaseURL is the public url of the server. When empty it is taken from
	// each request.
	BaseURL     string
	Healthcheck string
	Metrics     metrics.MetricsWriter
	Logger      log.JsonLogger
}

// Register sets up the OGC API tiles routes for cs on r.
func Register(r *mux.Router, cs *Collections, opts Options) {
	mw := opts.Metrics
	if mw == nil {
		mw = &metrics.NilMetricsWriter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.NilJsonLogger{}
	}

	gzipped := func(h http.Handler) http.Handler {
		return gziphandler.GzipHandler(h)
	}

	r.Handle("/collections", gzipped(CollectionsHandler(cs, opts.BaseURL, mw, logger))).Methods("GET")
	r.Handle("/collections/{collectionId}/tiles", gzipped(TilesHandler(cs, opts.BaseURL, mw, logger))).Methods("GET")
	r.Handle("/collections/{collectionId}/tiles/metadata", gzipped(MetadataHandler(cs, mw, logger))).Methods("GET")
	r.Handle("/collections/{collectionId}/tiles/{tileMatrixSetId}/metadata", gzipped(MetadataHandler(cs, mw, logger))).Methods("GET")

	tileHandler := TileHandler(&TileMuxParser{}, cs, mw, logger)
	r.Handle("/collections/{collectionId}/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}.{fmt}", tileHandler).Methods("GET")
	r.Handle("/collections/{collectionId}/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}", tileHandler).Methods("GET")

	r.Handle("/tileMatrixSets", gzipped(TileMatrixSetsHandler(mw, logger))).Methods("GET")

	if opts.Healthcheck != "" {
		r.Handle(opts.Healthcheck, HealthCheckHandler(cs, logger)).Methods("GET")
	}
}
