package provider

import (
	"fmt"
)

// ConfigurationError reports a missing or malformed provider configuration
// field. It is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid provider configuration %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TileQueryError reports any failure fetching a tile from the backend.
// StatusCode is set when the backend answered with a non success status.
type TileQueryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TileQueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tile query %s failed: %s", e.URL, e.Err.Error())
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("tile query %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("tile query %s failed", e.URL)
}

func (e *TileQueryError) Unwrap() error {
	return e.Err
}

// TilesetNotFoundError is the TileQueryError for a tile or tileset the
// backend does not have. errors.As finds the *TileQueryError through it.
type TilesetNotFoundError struct {
	TileQueryError
}

func (e *TilesetNotFoundError) Error() string {
	return fmt.Sprintf("tileset not found: %s", e.URL)
}

func (e *TilesetNotFoundError) Unwrap() error {
	return &e.TileQueryError
}

func NewTilesetNotFoundError(url string, statusCode int) *TilesetNotFoundError {
	return &TilesetNotFoundError{
		TileQueryError: TileQueryError{URL: url, StatusCode: statusCode},
	}
}
