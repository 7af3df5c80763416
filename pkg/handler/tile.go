package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tilezen/ogctiles/pkg/log"
	"github.com/tilezen/ogctiles/pkg/metrics"
	"github.com/tilezen/ogctiles/pkg/provider"
	"github.com/tilezen/ogctiles/pkg/state"
	"github.com/tilezen/ogctiles/pkg/tile"
)

type TileParseData struct {
	Collection string
	Tileset    string
	Coord      tile.Coord
}

// TileMuxParser reads a tile request from the mux vars. The format comes
// from the path extension, or the f query parameter when there is none.
type TileMuxParser struct{}

func (tp *TileMuxParser) Parse(req *http.Request) (*ParseResult, error) {
	m := mux.Vars(req)

	format, ok := m["fmt"]
	if !ok {
		format = req.URL.Query().Get("f")
	}

	parseData := &TileParseData{
		Collection: m["collectionId"],
		Tileset:    m["tileMatrixSetId"],
	}
	parseResult := &ParseResult{
		Type:           ParseResultType_Tile,
		HttpData:       ParseHttpData(req),
		Encoding:       format,
		AdditionalData: parseData,
	}

	scheme, known := tile.LookupScheme(parseData.Tileset)
	if !known {
		return parseResult, &ParseError{CollectionError: &CollectionParseError{UnknownTileset: parseData.Tileset}}
	}
	if err := provider.CheckFormat(format); err != nil {
		return parseResult, &ParseError{EncodingError: &EncodingParseError{BadEncoding: format}}
	}

	var coordError CoordParseError
	var err error

	z := m["tileMatrix"]
	parseData.Coord.Z, err = strconv.Atoi(z)
	if err != nil {
		coordError.BadZ = z
	}
	y := m["tileRow"]
	parseData.Coord.Y, err = strconv.Atoi(y)
	if err != nil {
		coordError.BadY = y
	}
	x := m["tileCol"]
	parseData.Coord.X, err = strconv.Atoi(x)
	if err != nil {
		coordError.BadX = x
	}
	parseData.Coord.Format = format

	if coordError.IsError() {
		return parseResult, &ParseError{CoordError: &coordError}
	}
	if !parseData.Coord.IsValid(scheme) {
		coordError.OutOfRange = fmt.Sprintf("%s/%s/%s", z, y, x)
		return parseResult, &ParseError{CoordError: &coordError}
	}

	return parseResult, nil
}

// TileHandler fetches a tile from the collection's provider. A tile the
// provider does not have is answered with 204 No Content, any other provider
// failure with 500.
func TileHandler(p Parser, cs *Collections, mw metrics.MetricsWriter, logger log.JsonLogger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		reqState := &state.TileRequestState{}

		startTime := time.Now()

		defer func() {
			reqState.Duration.Total = time.Since(startTime)

			if reqState.ResponseState == state.ResponseState_Nil {
				logger.Error(log.LogCategory_InvalidCodeState, "handler did not set response state for tile %+v", reqState.Coord)
			}

			logger.Metrics(reqState.AsJsonMap())
			mw.WriteTileState(reqState)
		}()

		parseStart := time.Now()
		parseResult, err := p.Parse(req)
		reqState.Duration.Parse = time.Since(parseStart)
		if parseResult != nil {
			// set the http data here so that on 404s we log the path too
			reqState.HttpData = parseResult.HttpData
		}
		if err != nil {
			logger.Warning(log.LogCategory_ParseError, "%s", err.Error())
			if pe, ok := err.(*ParseError); ok && pe.CollectionError != nil {
				reqState.ResponseState = state.ResponseState_NotFound
				http.Error(rw, pe.Error(), http.StatusNotFound)
			} else {
				reqState.ResponseState = state.ResponseState_BadRequest
				http.Error(rw, err.Error(), http.StatusBadRequest)
			}
			return
		}

		parseData := parseResult.AdditionalData.(*TileParseData)
		coord := parseData.Coord
		reqState.Coord = &coord

		c, ok := cs.Get(parseData.Collection)
		if !ok {
			logger.Warning(log.LogCategory_ParseError, "Unknown collection: %s", parseData.Collection)
			reqState.ResponseState = state.ResponseState_NotFound
			http.NotFound(rw, req)
			return
		}

		if !supportsScheme(c.Provider, parseData.Tileset) {
			logger.Warning(log.LogCategory_ParseError, "Collection %s does not support %s", c.ID, parseData.Tileset)
			reqState.ResponseState = state.ResponseState_NotFound
			http.NotFound(rw, req)
			return
		}
		// only known ids reach the request state, which labels metrics
		reqState.Collection = c.ID
		reqState.Tileset = parseData.Tileset

		if !c.acceptsFormat(coord.Format) {
			pe := &ParseError{EncodingError: &EncodingParseError{BadEncoding: coord.Format}}
			logger.Warning(log.LogCategory_ParseError, "%s", pe.Error())
			reqState.ResponseState = state.ResponseState_BadRequest
			http.Error(rw, pe.Error(), http.StatusBadRequest)
			return
		}

		fetchStart := time.Now()
		data, err := c.Provider.Tile(req.Context(), provider.TileRequest{
			Tileset: parseData.Tileset,
			Z:       coord.Z,
			Y:       coord.Y,
			X:       coord.X,
			Format:  coord.Format,
		})
		reqState.Duration.Fetch = time.Since(fetchStart)
		if err != nil {
			var nf *provider.TilesetNotFoundError
			var qe *provider.TileQueryError
			var ce *provider.ConfigurationError
			switch {
			case errors.As(err, &nf):
				reqState.FetchState = state.FetchState_NotFound
				reqState.ResponseState = state.ResponseState_NoContent
				rw.WriteHeader(http.StatusNoContent)
			case errors.As(err, &qe):
				logger.Error(log.LogCategory_TileQueryError, "Tile query for %s failed: %s", c.ID, err.Error())
				reqState.FetchState = state.FetchState_QueryError
				reqState.ResponseState = state.ResponseState_Error
				http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
			case errors.As(err, &ce):
				logger.Error(log.LogCategory_ConfigError, "Provider for %s is misconfigured: %s", c.ID, err.Error())
				reqState.FetchState = state.FetchState_ConfigError
				reqState.ResponseState = state.ResponseState_Error
				http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
			default:
				logger.Error(log.LogCategory_ProviderError, "Tile fetch for %s failed: %s", c.ID, err.Error())
				reqState.FetchState = state.FetchState_QueryError
				reqState.ResponseState = state.ResponseState_Error
				http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}
		reqState.FetchState = state.FetchState_Success
		reqState.FetchSize = len(data)

		headers := rw.Header()
		headers.Set("Content-Type", c.MimeType)
		headers.Set("Content-Length", strconv.Itoa(len(data)))
		rw.WriteHeader(http.StatusOK)
		reqState.ResponseState = state.ResponseState_Success

		respWriteStart := time.Now()
		n, err := rw.Write(data)
		reqState.Duration.RespWrite = time.Since(respWriteStart)
		reqState.ResponseSize = n
		if err != nil {
			logger.Error(log.LogCategory_ResponseError, "Failed to write response body: %s", err.Error())
			reqState.IsResponseWriteError = true
		}
	})
}

// servedSchemes returns the tiling schemes p is served in. A provider
// without configured schemes is served in every catalog scheme.
func servedSchemes(p provider.TileProvider) []tile.TilingScheme {
	schemes := p.TilingSchemes()
	if len(schemes) == 0 {
		return tile.Catalog()
	}
	return schemes
}

func supportsScheme(p provider.TileProvider, id string) bool {
	for _, s := range servedSchemes(p) {
		if s.ID == id {
			return true
		}
	}
	return false
}
