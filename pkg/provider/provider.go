package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/tilezen/ogctiles/pkg/tile"
)

// TileProvider is implemented by every tile backend. Callers hold the
// interface, never a concrete backend.
type TileProvider interface {
	// LayerName is the logical tile layer derived from the configured data
	// template.
	LayerName() (string, error)

	// TilingSchemes returns the catalog schemes this deployment supports, in
	// catalog order. An empty result is not an error.
	TilingSchemes() []tile.TilingScheme

	TileServiceDescription(opts ServiceOptions) (*ServiceDescription, error)

	// Tile fetches a single encoded tile. Errors are *TileQueryError, or
	// *TilesetNotFoundError when the backend has no such tile.
	Tile(ctx context.Context, req TileRequest) ([]byte, error)

	Metadata() (*Metadata, error)

	// Fields describes feature attributes. Tile providers expose none.
	Fields() map[string]string
}

// HealthChecker is implemented by providers able to check their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ServiceOptions carries the optional arguments of a service description
// request. Empty fields are derived from the provider configuration.
type ServiceOptions struct {
	BaseURL     string
	ServicePath string
	// DirPath is accepted for directory backed providers; url backed
	// providers ignore it.
	DirPath  string
	TileType string
}

type TileRequest struct {
	// Layer defaults to the provider's layer name.
	Layer string
	// Tileset is the requested tile matrix set. Backends addressing a
	// single grid ignore it.
	Tileset string
	Z, Y, X int
	// Format defaults to the configured format. FormatMVT selects it
	// explicitly.
	Format string
}

const (
	RelItem        = "item"
	RelDescribedBy = "describedby"

	// FormatMVT is the format token meaning "the configured format".
	FormatMVT = "mvt"

	TileJSONVersion = "3.0.0"
)

// CheckFormat rejects a format token that would change the shape of the
// url or path it is substituted into.
func CheckFormat(format string) error {
	if strings.ContainsAny(format, `/\?#`) || strings.Contains(format, "..") {
		return fmt.Errorf("invalid tile format %q", format)
	}
	return nil
}

type Link struct {
	Type      string `json:"type"`
	Rel       string `json:"rel"`
	Title     string `json:"title"`
	Href      string `json:"href"`
	Templated bool   `json:"templated"`
}

type ServiceDescription struct {
	Links []Link `json:"links"`
}

// Metadata is a minimal TileJSON document.
type Metadata struct {
	TileJSON string `json:"tilejson"`
}
