package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tilezen/ogctiles/pkg/state"
)

const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

var encodingContentTypes = map[string]string{
	EncodingJSON:    "application/json",
	EncodingMsgpack: "application/msgpack",
}

func ParseHttpData(req *http.Request) state.HttpRequestData {
	var apiKey string
	q := req.URL.Query()
	if apiKeys, ok := q["api_key"]; ok && len(apiKeys) > 0 {
		apiKey = apiKeys[0]
	}
	return state.HttpRequestData{
		Path:      req.URL.Path,
		ApiKey:    apiKey,
		UserAgent: req.UserAgent(),
		Referrer:  req.Referer(),
	}
}

// ParseEncoding reads the document encoding from the f query parameter.
func ParseEncoding(req *http.Request) (string, *EncodingParseError) {
	f := req.URL.Query().Get("f")
	switch f {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	}
	return "", &EncodingParseError{BadEncoding: f}
}

// encodeDocument renders v for the given encoding. msgpack documents use the
// json field names.
func encodeDocument(encoding string, v interface{}) ([]byte, error) {
	switch encoding {
	case EncodingMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case EncodingJSON:
		return json.Marshal(v)
	}
	return nil, fmt.Errorf("unknown encoding %s", encoding)
}

// requestBaseURL is the scheme and host the client used to reach us.
func requestBaseURL(req *http.Request) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return fmt.Sprintf("%s://%s", scheme, req.Host)
}

type ParseError struct {
	EncodingError   *EncodingParseError
	CoordError      *CoordParseError
	CollectionError *CollectionParseError
}

func (pe *ParseError) Error() string {
	if pe.EncodingError != nil {
		return pe.EncodingError.Error()
	} else if pe.CoordError != nil {
		return pe.CoordError.Error()
	} else if pe.CollectionError != nil {
		return pe.CollectionError.Error()
	} else {
		panic("ParseError: No error")
	}
}

type EncodingParseError struct {
	BadEncoding string
}

func (epe *EncodingParseError) Error() string {
	return fmt.Sprintf("Invalid format: %s", epe.BadEncoding)
}

type CollectionParseError struct {
	UnknownCollection string
	UnknownTileset    string
}

func (cpe *CollectionParseError) Error() string {
	if cpe.UnknownTileset != "" {
		return fmt.Sprintf("Unknown tile matrix set: %s", cpe.UnknownTileset)
	}
	return fmt.Sprintf("Unknown collection: %s", cpe.UnknownCollection)
}

type CoordParseError struct {
	// relevant values are set when parse fails
	BadZ string
	BadX string
	BadY string
	// set when the numbers parse but fall outside the tile matrix
	OutOfRange string
}

func (cpe *CoordParseError) IsError() bool {
	return cpe.BadZ != "" || cpe.BadX != "" || cpe.BadY != "" || cpe.OutOfRange != ""
}

func (cpe *CoordParseError) Error() string {
	if cpe.BadZ != "" {
		return fmt.Sprintf("Invalid tileMatrix: %s", cpe.BadZ)
	}
	if cpe.BadY != "" {
		return fmt.Sprintf("Invalid tileRow: %s", cpe.BadY)
	}
	if cpe.BadX != "" {
		return fmt.Sprintf("Invalid tileCol: %s", cpe.BadX)
	}
	if cpe.OutOfRange != "" {
		return fmt.Sprintf("Tile out of range: %s", cpe.OutOfRange)
	}
	panic("No coord parse error")
}
