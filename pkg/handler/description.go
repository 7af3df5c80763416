package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tilezen/ogctiles/pkg/log"
	"github.com/tilezen/ogctiles/pkg/metrics"
	"github.com/tilezen/ogctiles/pkg/model"
	"github.com/tilezen/ogctiles/pkg/provider"
	"github.com/tilezen/ogctiles/pkg/state"
	"github.com/tilezen/ogctiles/pkg/tile"
)

const collectionTilesPath = "/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}?f=" + provider.FormatMVT

type collectionDocument struct {
	ID string `json:"id"`
	model.Collection
	Links []provider.Link `json:"links"`
}

type collectionsDocument struct {
	Collections []collectionDocument `json:"collections"`
}

type tilesDocument struct {
	Links              []provider.Link     `json:"links"`
	TileMatrixSetLinks []tile.TilingScheme `json:"tileMatrixSetLinks"`
}

type tileMatrixSetsDocument struct {
	TileMatrixSets []tile.TilingScheme `json:"tileMatrixSets"`
}

// documentBuilder returns the document to encode for a request. A
// *CollectionParseError results in a 404.
type documentBuilder func(req *http.Request, descReqState *state.DescriptionRequestState) (interface{}, error)

func documentHandler(kind state.DescriptionKind, build documentBuilder, mw metrics.MetricsWriter, logger log.JsonLogger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		descReqState := state.DescriptionRequestState{
			Kind:     kind,
			HttpData: ParseHttpData(req),
		}

		startTime := time.Now()

		defer func() {
			descReqState.Duration.Total = time.Since(startTime)

			if descReqState.ResponseState == state.ResponseState_Nil {
				logger.Error(log.LogCategory_InvalidCodeState, "handler did not set response state for %s", descReqState.HttpData.Path)
			}

			logger.Description(descReqState.AsJsonMap())
			mw.WriteDescriptionState(&descReqState)
		}()

		encoding, encErr := ParseEncoding(req)
		if encErr != nil {
			logger.Warning(log.LogCategory_ParseError, "%s", encErr.Error())
			descReqState.ResponseState = state.ResponseState_BadRequest
			http.Error(rw, encErr.Error(), http.StatusBadRequest)
			return
		}
		descReqState.Encoding = encoding

		buildStart := time.Now()
		doc, err := build(req, &descReqState)
		descReqState.Duration.Build = time.Since(buildStart)
		if err != nil {
			var cpe *CollectionParseError
			if errors.As(err, &cpe) {
				logger.Warning(log.LogCategory_ParseError, "%s", cpe.Error())
				descReqState.ResponseState = state.ResponseState_NotFound
				http.Error(rw, cpe.Error(), http.StatusNotFound)
				return
			}

			descReqState.IsBuildError = true
			descReqState.ResponseState = state.ResponseState_Error
			var ce *provider.ConfigurationError
			if errors.As(err, &ce) {
				logger.Error(log.LogCategory_ConfigError, "Building %s document failed: %s", kind, err.Error())
			} else {
				logger.Error(log.LogCategory_ProviderError, "Building %s document failed: %s", kind, err.Error())
			}
			http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		body, err := encodeDocument(encoding, doc)
		if err != nil {
			descReqState.IsBuildError = true
			descReqState.ResponseState = state.ResponseState_Error
			logger.Error(log.LogCategory_ResponseError, "Encoding %s document failed: %s", kind, err.Error())
			http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		rw.Header().Set("Content-Type", encodingContentTypes[encoding])
		rw.WriteHeader(http.StatusOK)
		descReqState.ResponseState = state.ResponseState_Success

		respWriteStart := time.Now()
		n, err := rw.Write(body)
		descReqState.Duration.RespWrite = time.Since(respWriteStart)
		descReqState.ResponseSize = n
		if err != nil {
			logger.Error(log.LogCategory_ResponseError, "Failed to write response body: %s", err.Error())
			descReqState.IsResponseWriteError = true
		}
	})
}

func lookupCollection(cs *Collections, req *http.Request, descReqState *state.DescriptionRequestState) (*Collection, error) {
	id := mux.Vars(req)["collectionId"]
	c, ok := cs.Get(id)
	if !ok {
		return nil, &CollectionParseError{UnknownCollection: id}
	}
	descReqState.Collection = c.ID
	return c, nil
}

func publicBaseURL(baseURL string, req *http.Request) string {
	if baseURL == "" {
		baseURL = requestBaseURL(req)
	}
	return strings.TrimSuffix(baseURL, "/")
}

// CollectionsHandler lists the configured collections.
func CollectionsHandler(cs *Collections, baseURL string, mw metrics.MetricsWriter, logger log.JsonLogger) http.Handler {
	build := func(req *http.Request, _ *state.DescriptionRequestState) (interface{}, error) {
		base := publicBaseURL(baseURL, req)

		doc := collectionsDocument{Collections: make([]collectionDocument, 0)}
		for _, c := range cs.All() {
			doc.Collections = append(doc.Collections, collectionDocument{
				ID:         c.ID,
				Collection: c.Meta,
				Links: []provider.Link{
					{
						Type:  encodingContentTypes[EncodingJSON],
						Rel:   "tiles",
						Title: fmt.Sprintf("Tiles of %s", c.ID),
						Href:  fmt.Sprintf("%s/collections/%s/tiles", base, c.ID),
					},
				},
			})
		}
		return doc, nil
	}
	return documentHandler(state.DescriptionKind_Collections, build, mw, logger)
}

// TilesHandler serves the tile service description of a collection along
// with the tiling schemes it supports.
func TilesHandler(cs *Collections, baseURL string, mw metrics.MetricsWriter, logger log.JsonLogger) http.Handler {
	build := func(req *http.Request, descReqState *state.DescriptionRequestState) (interface{}, error) {
		c, err := lookupCollection(cs, req, descReqState)
		if err != nil {
			return nil, err
		}

		base := publicBaseURL(baseURL, req)
		desc, err := c.Provider.TileServiceDescription(provider.ServiceOptions{
			BaseURL:     base,
			ServicePath: fmt.Sprintf("%s/collections/%s%s", base, c.ID, collectionTilesPath),
		})
		if err != nil {
			return nil, err
		}

		return tilesDocument{
			Links:              desc.Links,
			TileMatrixSetLinks: servedSchemes(c.Provider),
		}, nil
	}
	return documentHandler(state.DescriptionKind_Tiles, build, mw, logger)
}

// MetadataHandler serves the TileJSON metadata of a collection.
func MetadataHandler(cs *Collections, mw metrics.MetricsWriter, logger log.JsonLogger) http.Handler {
	build := func(req *http.Request, descReqState *state.DescriptionRequestState) (interface{}, error) {
		c, err := lookupCollection(cs, req, descReqState)
		if err != nil {
			return nil, err
		}
		if tms, ok := mux.Vars(req)["tileMatrixSetId"]; ok {
			if _, known := tile.LookupScheme(tms); !known {
				return nil, &CollectionParseError{UnknownTileset: tms}
			}
		}
		return c.Provider.Metadata()
	}
	return documentHandler(state.DescriptionKind_Metadata, build, mw, logger)
}

// TileMatrixSetsHandler lists every known tiling scheme.
func TileMatrixSetsHandler(mw metrics.MetricsWriter, logger log.JsonLogger) http.Handler {
	build := func(_ *http.Request, _ *state.DescriptionRequestState) (interface{}, error) {
		return tileMatrixSetsDocument{TileMatrixSets: tile.Catalog()}, nil
	}
	return documentHandler(state.DescriptionKind_TileMatrixSets, build, mw, logger)
}
