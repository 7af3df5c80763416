package state

import (
	"time"

	"github.com/tilezen/ogctiles/pkg/tile"
)

type ReqResponseState int32

const (
	ResponseState_Nil ReqResponseState = iota
	ResponseState_Success
	ResponseState_NoContent
	ResponseState_NotFound
	ResponseState_BadRequest
	ResponseState_Error
	ResponseState_Count
)

func (rrs ReqResponseState) String() string {
	switch rrs {
	case ResponseState_Nil:
		return "nil"
	case ResponseState_Success:
		return "ok"
	case ResponseState_NoContent:
		return "nocontent"
	case ResponseState_NotFound:
		return "notfound"
	case ResponseState_BadRequest:
		return "badreq"
	case ResponseState_Error:
		return "err"
	default:
		return "unknown"
	}
}

func (rrs ReqResponseState) AsStatusCode() int {
	switch rrs {
	case ResponseState_Nil:
		return 0
	case ResponseState_Success:
		return 200
	case ResponseState_NoContent:
		return 204
	case ResponseState_NotFound:
		return 404
	case ResponseState_BadRequest:
		return 400
	case ResponseState_Error:
		return 500
	default:
		return -1
	}
}

type ReqFetchState int32

const (
	FetchState_Nil ReqFetchState = iota
	FetchState_Success
	FetchState_NotFound
	FetchState_QueryError
	FetchState_ConfigError
	FetchState_Count
)

func (rfs ReqFetchState) String() string {
	switch rfs {
	case FetchState_Nil:
		return "nil"
	case FetchState_Success:
		return "ok"
	case FetchState_NotFound:
		return "notfound"
	case FetchState_QueryError:
		return "queryerr"
	case FetchState_ConfigError:
		return "configerr"
	default:
		return "unknown"
	}
}

type HttpRequestData struct {
	Path      string
	ApiKey    string
	UserAgent string
	Referrer  string
}

func (h HttpRequestData) asJsonMap() map[string]interface{} {
	httpJsonData := make(map[string]interface{})
	httpJsonData["path"] = h.Path
	if userAgent := h.UserAgent; userAgent != "" {
		httpJsonData["user_agent"] = userAgent
	}
	if referrer := h.Referrer; referrer != "" {
		httpJsonData["referer"] = referrer
	}
	if apiKey := h.ApiKey; apiKey != "" {
		httpJsonData["api_key"] = apiKey
	}
	return httpJsonData
}

type ReqDuration struct {
	Parse     time.Duration
	Fetch     time.Duration
	RespWrite time.Duration
	Total     time.Duration
}

// TileRequestState collects what happened while serving one tile.
type TileRequestState struct {
	ResponseState        ReqResponseState
	FetchState           ReqFetchState
	FetchSize            int
	IsResponseWriteError bool
	Duration             ReqDuration
	Collection           string
	Tileset              string
	Coord                *tile.Coord
	HttpData             HttpRequestData
	ResponseSize         int
}

func (reqState *TileRequestState) AsJsonMap() map[string]interface{} {
	result := make(map[string]interface{})

	if reqState.FetchState > FetchState_Nil {
		fetchResult := make(map[string]interface{})
		fetchResult["state"] = reqState.FetchState.String()
		if reqState.FetchSize > 0 {
			fetchResult["size"] = reqState.FetchSize
		}
		result["fetch"] = fetchResult
	}

	if reqState.IsResponseWriteError {
		result["error"] = map[string]bool{"response_write": true}
	}

	result["timing"] = map[string]int64{
		"parse":      reqState.Duration.Parse.Milliseconds(),
		"fetch":      reqState.Duration.Fetch.Milliseconds(),
		"resp_write": reqState.Duration.RespWrite.Milliseconds(),
		"total":      reqState.Duration.Total.Milliseconds(),
	}

	if reqState.Collection != "" {
		result["collection"] = reqState.Collection
	}
	if reqState.Tileset != "" {
		result["tileset"] = reqState.Tileset
	}

	httpJsonData := reqState.HttpData.asJsonMap()
	if reqState.Coord != nil {
		result["coord"] = map[string]int{
			"x": reqState.Coord.X,
			"y": reqState.Coord.Y,
			"z": reqState.Coord.Z,
		}
		httpJsonData["format"] = reqState.Coord.Format
	}
	if responseSize := reqState.ResponseSize; responseSize > 0 {
		httpJsonData["response_size"] = responseSize
	}
	httpJsonData["status"] = reqState.ResponseState.AsStatusCode()
	result["http"] = httpJsonData

	return result
}

type DescriptionKind string

const (
	DescriptionKind_Collections    DescriptionKind = "collections"
	DescriptionKind_Tiles          DescriptionKind = "tiles"
	DescriptionKind_Metadata       DescriptionKind = "metadata"
	DescriptionKind_TileMatrixSets DescriptionKind = "tilematrixsets"
)

type DescriptionDuration struct {
	Build, RespWrite, Total time.Duration
}

// DescriptionRequestState collects what happened while serving a JSON
// document: a collection list, a service description or metadata.
type DescriptionRequestState struct {
	Kind                 DescriptionKind
	Collection           string
	Encoding             string
	ResponseState        ReqResponseState
	IsBuildError         bool
	IsResponseWriteError bool
	Duration             DescriptionDuration
	HttpData             HttpRequestData
	ResponseSize         int
}

func (descReqState *DescriptionRequestState) AsJsonMap() map[string]interface{} {
	result := make(map[string]interface{})

	result["kind"] = string(descReqState.Kind)
	if descReqState.Collection != "" {
		result["collection"] = descReqState.Collection
	}

	descReqErrs := make(map[string]bool)
	if descReqState.IsBuildError {
		descReqErrs["build"] = true
	}
	if descReqState.IsResponseWriteError {
		descReqErrs["response_write"] = true
	}
	if len(descReqErrs) > 0 {
		result["error"] = descReqErrs
	}

	result["timing"] = map[string]int64{
		"build":      descReqState.Duration.Build.Milliseconds(),
		"resp_write": descReqState.Duration.RespWrite.Milliseconds(),
		"total":      descReqState.Duration.Total.Milliseconds(),
	}

	httpJsonData := descReqState.HttpData.asJsonMap()
	if encoding := descReqState.Encoding; encoding != "" {
		httpJsonData["format"] = encoding
	}
	if responseSize := descReqState.ResponseSize; responseSize > 0 {
		httpJsonData["response_size"] = responseSize
	}
	httpJsonData["status"] = descReqState.ResponseState.AsStatusCode()
	result["http"] = httpJsonData

	return result
}
