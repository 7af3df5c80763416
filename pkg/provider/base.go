package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tilezen/ogctiles/pkg/tile"
)

const (
	itemTitle        = "This collection as Mapbox vector tiles"
	describedByTitle = "Metadata for this collection in the TileJSON format"

	serviceTilesPath = "/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}"
)

var (
	// zxyMarker locates the layer path inside a data template.
	zxyMarker = tile.MustParseTemplate("/{z}/{x}/{y}")
	// tileMatrixMarker locates the tile matrix set path inside a service url.
	tileMatrixMarker = tile.MustParseTemplate("/{tileMatrix}/{tileRow}/{tileCol}")
)

// Base holds the behaviour every backend derives from its configuration
// alone: layer name, tiling schemes, service description and metadata.
// Backends embed it and add Tile.
type Base struct {
	config Config

	data *url.URL
	// pathTemplate is the data url path, e.g. /world/{z}/{x}/{y}.pbf
	pathTemplate *tile.Template
	// layerPath is the part of the path before the z/x/y marker, including
	// its leading slash.
	layerPath string
}

func NewBase(cfg Config) (*Base, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	data, err := url.Parse(cfg.Data)
	if err != nil {
		return nil, &ConfigurationError{Field: "data", Reason: "not a url", Err: err}
	}

	pathTemplate, err := tile.ParseTemplate(data.Path)
	if err != nil {
		return nil, &ConfigurationError{Field: "data", Reason: "malformed template", Err: err}
	}

	layerPath, _, err := pathTemplate.Split(zxyMarker)
	if err != nil {
		return nil, &ConfigurationError{Field: "data", Reason: "no single /{z}/{x}/{y} marker", Err: err}
	}

	cfg.Schemes = append([]string(nil), cfg.Schemes...)

	return &Base{
		config:       cfg,
		data:         data,
		pathTemplate: pathTemplate,
		layerPath:    layerPath,
	}, nil
}

func (b *Base) Config() Config {
	cfg := b.config
	cfg.Schemes = append([]string(nil), b.config.Schemes...)
	return cfg
}

func (b *Base) MimeType() string {
	return b.config.MimeType
}

func (b *Base) FormatName() string {
	return b.config.Format.Name
}

// DataURL returns the parsed data template.
func (b *Base) DataURL() *url.URL {
	u := *b.data
	return &u
}

func (b *Base) PathTemplate() *tile.Template {
	return b.pathTemplate
}

// Origin is scheme://authority of the data template.
func (b *Base) Origin() string {
	return templateString(&url.URL{Scheme: b.data.Scheme, User: b.data.User, Host: b.data.Host})
}

func (b *Base) LayerName() (string, error) {
	return strings.TrimPrefix(b.layerPath, "/"), nil
}

func (b *Base) TilingSchemes() []tile.TilingScheme {
	return tile.FilterSchemes(b.config.Schemes)
}

func (b *Base) TileServiceDescription(opts ServiceOptions) (*ServiceDescription, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = b.Origin()
	}

	tileType := opts.TileType
	if tileType == "" {
		tileType = b.config.Format.Name
	}
	tileType = normalizeTileType(tileType)

	servicePath := opts.ServicePath
	if servicePath == "" {
		servicePath = b.layerPath + serviceTilesPath + tileType
	}

	serviceURL, err := resolveTemplateURL(baseURL, servicePath)
	if err != nil {
		return nil, fmt.Errorf("building service url: %w", err)
	}

	metadataBase, err := tileMatrixSetURL(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("building metadata url: %w", err)
	}
	metadataURL, err := resolveTemplateURL(metadataBase, "metadata")
	if err != nil {
		return nil, fmt.Errorf("building metadata url: %w", err)
	}

	return &ServiceDescription{
		Links: []Link{
			{
				Type:      b.config.MimeType,
				Rel:       RelItem,
				Title:     itemTitle,
				Href:      serviceURL,
				Templated: true,
			},
			{
				Type:      "application/json",
				Rel:       RelDescribedBy,
				Title:     describedByTitle,
				Href:      metadataURL + "?f=json",
				Templated: true,
			},
		},
	}, nil
}

func (b *Base) Metadata() (*Metadata, error) {
	return &Metadata{TileJSON: TileJSONVersion}, nil
}

func (b *Base) Fields() map[string]string {
	return map[string]string{}
}

func (b *Base) String() string {
	return fmt.Sprintf("<%s> %s", b.config.Name, b.config.Data)
}

// normalizeTileType gives a bare type such as "pbf" its leading dot. Types
// that already start with a separator are kept as configured.
func normalizeTileType(t string) string {
	if t == "" || strings.HasPrefix(t, ".") || strings.HasPrefix(t, "/") {
		return t
	}
	return "." + t
}

// tileMatrixSetURL cuts a templated service url before its
// /{tileMatrix}/{tileRow}/{tileCol} run. A url without the run is returned
// whole.
func tileMatrixSetURL(serviceURL string) (string, error) {
	tpl, err := tile.ParseTemplate(serviceURL)
	if err != nil {
		return "", err
	}
	before, _, err := tpl.Split(tileMatrixMarker)
	if err != nil {
		if me, ok := err.(*tile.TemplateMatchError); ok && me.Count == 0 {
			return serviceURL, nil
		}
		return "", err
	}
	return before, nil
}

// resolveTemplateURL resolves ref against base following RFC 3986, keeping
// template placeholders such as {tileMatrix} unescaped.
func resolveTemplateURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return templateString(b.ResolveReference(r)), nil
}

// templateString is url.URL.String without path escaping.
func templateString(u *url.URL) string {
	var buf strings.Builder
	if u.Scheme != "" {
		buf.WriteString(u.Scheme)
		buf.WriteByte(':')
	}
	if u.Scheme != "" || u.Host != "" || u.User != nil {
		buf.WriteString("//")
		if u.User != nil {
			buf.WriteString(u.User.String())
			buf.WriteByte('@')
		}
		buf.WriteString(u.Host)
	}
	buf.WriteString(u.Path)
	if u.RawQuery != "" || u.ForceQuery {
		buf.WriteByte('?')
		buf.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		buf.WriteByte('#')
		buf.WriteString(u.Fragment)
	}
	return buf.String()
}
