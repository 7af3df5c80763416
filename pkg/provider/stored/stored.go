package stored

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/tilezen/ogctiles/pkg/log"
	"github.com/tilezen/ogctiles/pkg/provider"
	"github.com/tilezen/ogctiles/pkg/storage"
	"github.com/tilezen/ogctiles/pkg/tile"
)

// Provider serves pre-rendered tiles out of S3 or a local directory. The data
// template names the location, e.g.
//
//	s3://tiles-bucket/world/{z}/{x}/{y}.{fmt}
//	file:///srv/tiles/world/{z}/{x}/{y}.pbf
type Provider struct {
	*provider.Base

	storage storage.Storage
	logger  log.JsonLogger
}

type options struct {
	s3          s3iface.S3API
	healthcheck string
	logger      log.JsonLogger
}

type Option func(*options)

// WithS3 sets the client used for s3:// data templates.
func WithS3(api s3iface.S3API) Option {
	return func(o *options) {
		o.s3 = api
	}
}

// WithHealthcheck names the S3 key or file checked by HealthCheck.
func WithHealthcheck(key string) Option {
	return func(o *options) {
		o.healthcheck = key
	}
}

func WithLogger(logger log.JsonLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func New(cfg provider.Config, opts ...Option) (*Provider, error) {
	base, err := provider.NewBase(cfg)
	if err != nil {
		return nil, err
	}

	o := options{logger: &log.NilJsonLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	data := base.DataURL()

	var stg storage.Storage
	switch data.Scheme {
	case "s3":
		if data.Host == "" {
			return nil, &provider.ConfigurationError{Field: "data", Reason: "missing bucket"}
		}
		if o.s3 == nil {
			return nil, &provider.ConfigurationError{Field: "data", Reason: "s3 data without an s3 client"}
		}
		keyPattern, err := keyTemplate(strings.TrimPrefix(base.PathTemplate().String(), "/"))
		if err != nil {
			return nil, err
		}
		stg = storage.NewS3Storage(o.s3, data.Host, keyPattern, o.healthcheck)

	case "file":
		pathPattern, err := keyTemplate(base.PathTemplate().String())
		if err != nil {
			return nil, err
		}
		stg = storage.NewFileStorage(pathPattern, o.healthcheck)

	default:
		return nil, &provider.ConfigurationError{
			Field:  "data",
			Reason: fmt.Sprintf("unsupported scheme %q, expected s3 or file", data.Scheme),
		}
	}

	return &Provider{
		Base:    base,
		storage: stg,
		logger:  o.logger,
	}, nil
}

// keyTemplate parses a storage key pattern and rejects placeholders storage
// cannot fill.
func keyTemplate(pattern string) (*tile.Template, error) {
	tpl, err := tile.ParseTemplate(pattern)
	if err != nil {
		return nil, &provider.ConfigurationError{Field: "data", Reason: "malformed template", Err: err}
	}
	for _, name := range tpl.Placeholders() {
		if !storage.KeyPlaceholders[name] {
			return nil, &provider.ConfigurationError{
				Field:  "data",
				Reason: fmt.Sprintf("unknown placeholder {%s}", name),
			}
		}
	}
	return tpl, nil
}

func (p *Provider) Tile(ctx context.Context, req provider.TileRequest) ([]byte, error) {
	format := req.Format
	if format == "" || format == provider.FormatMVT {
		format = p.FormatName()
	}
	if err := provider.CheckFormat(format); err != nil {
		return nil, &provider.TileQueryError{URL: p.String(), Err: err}
	}

	layer := req.Layer
	if layer == "" {
		layer, _ = p.LayerName()
	}

	coord := tile.Coord{Z: req.Z, X: req.X, Y: req.Y, Format: format}

	location, err := p.storage.Location(coord, layer)
	if err != nil {
		return nil, &provider.TileQueryError{URL: p.String(), Err: err}
	}

	resp, err := p.storage.Fetch(ctx, coord, layer)
	if err != nil {
		p.logger.Warning(log.LogCategory_StorageError, "Storage fetch of %s failed: %s", location, err.Error())
		return nil, &provider.TileQueryError{URL: location, Err: err}
	}
	if resp.NotFound {
		return nil, provider.NewTilesetNotFoundError(location, http.StatusNotFound)
	}

	return resp.Response.Body, nil
}

func (p *Provider) HealthCheck(ctx context.Context) error {
	return p.storage.HealthCheck(ctx)
}
