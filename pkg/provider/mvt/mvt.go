package mvt

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/net/publicsuffix"

	"github.com/tilezen/ogctiles/pkg/buffer"
	"github.com/tilezen/ogctiles/pkg/log"
	"github.com/tilezen/ogctiles/pkg/provider"
	"github.com/tilezen/ogctiles/pkg/tile"
)

// upstream tiles are addressed z/y/x, unlike the data template.
var tileURLTemplate = tile.MustParseTemplate("{base}/{layer}/{z}/{y}/{x}.{fmt}")

// Provider proxies Mapbox vector tiles from an upstream tile server. It holds
// no state besides its configuration and is safe for concurrent use.
type Provider struct {
	*provider.Base

	transport *http.Transport
	buffers   buffer.BufferManager
	logger    log.JsonLogger
}

type Option func(*Provider)

// WithTransport sets the transport each tile session is cloned from.
func WithTransport(t *http.Transport) Option {
	return func(p *Provider) {
		p.transport = t
	}
}

func WithBufferManager(bm buffer.BufferManager) Option {
	return func(p *Provider) {
		p.buffers = bm
	}
}

func WithLogger(logger log.JsonLogger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New validates cfg without touching the network.
func New(cfg provider.Config, opts ...Option) (*Provider, error) {
	base, err := provider.NewBase(cfg)
	if err != nil {
		return nil, err
	}

	data := base.DataURL()
	if data.Scheme != "http" && data.Scheme != "https" {
		return nil, &provider.ConfigurationError{
			Field:  "data",
			Reason: fmt.Sprintf("unsupported scheme %q, expected http or https", data.Scheme),
		}
	}
	if data.Host == "" {
		return nil, &provider.ConfigurationError{Field: "data", Reason: "missing host"}
	}

	p := &Provider{
		Base:      base,
		transport: http.DefaultTransport.(*http.Transport),
		buffers:   &buffer.OnDemandBufferManager{},
		logger:    &log.NilJsonLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Provider) Tile(ctx context.Context, req provider.TileRequest) ([]byte, error) {
	origin := p.Origin()

	format := req.Format
	if format == "" || format == provider.FormatMVT {
		format = p.FormatName()
	}
	if err := provider.CheckFormat(format); err != nil {
		return nil, &provider.TileQueryError{URL: origin, Err: err}
	}

	layer := req.Layer
	if layer == "" {
		layer, _ = p.LayerName()
	}

	values := tile.Coord{Z: req.Z, X: req.X, Y: req.Y, Format: format}.Values()
	values["base"] = origin
	values["layer"] = layer
	tileURL, err := tileURLTemplate.Render(values)
	if err != nil {
		return nil, &provider.TileQueryError{URL: origin, Err: err}
	}

	session, release, err := p.newSession()
	if err != nil {
		return nil, &provider.TileQueryError{URL: tileURL, Err: err}
	}
	defer release()

	p.connectivityProbe(ctx, session, origin)

	resp, err := ctxhttp.Get(ctx, session, tileURL)
	if err != nil {
		return nil, &provider.TileQueryError{URL: tileURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, provider.NewTilesetNotFoundError(tileURL, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &provider.TileQueryError{URL: tileURL, StatusCode: resp.StatusCode}
	}

	buf := p.buffers.Get()
	defer p.buffers.Put(buf)

	_, err = io.Copy(buf, resp.Body)
	if err != nil {
		return nil, &provider.TileQueryError{URL: tileURL, Err: fmt.Errorf("failed to read tile body: %w", err)}
	}

	// the buffer goes back to the pool, so hand out a copy
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())

	return data, nil
}

// HealthCheck requests the upstream origin and fails on transport errors or
// server errors.
func (p *Provider) HealthCheck(ctx context.Context) error {
	session, release, err := p.newSession()
	if err != nil {
		return err
	}
	defer release()

	origin := p.Origin()
	resp, err := ctxhttp.Get(ctx, session, origin)
	if err != nil {
		return fmt.Errorf("upstream %s unreachable: %w", origin, err)
	}
	io.Copy(ioutil.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("upstream %s answered %d", origin, resp.StatusCode)
	}
	return nil
}

// connectivityProbe requests the bare origin ahead of the tile request so the
// session carries whatever cookies the upstream hands out. Its outcome is
// discarded; transport failures are only logged.
// TODO: drop the probe once no configured upstream requires the session
// cookie before serving tiles.
func (p *Provider) connectivityProbe(ctx context.Context, session *http.Client, origin string) {
	resp, err := ctxhttp.Get(ctx, session, origin)
	if err != nil {
		p.logger.Warning(log.LogCategory_ProviderError, "Connectivity probe to %s failed: %s", origin, err.Error())
		return
	}
	io.Copy(ioutil.Discard, resp.Body)
	resp.Body.Close()
}

// newSession returns a client with its own connections and cookie jar. The
// release func closes the connections once the call is done.
func (p *Provider) newSession() (*http.Client, func(), error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, nil, err
	}

	transport := p.transport.Clone()
	// tiles are returned exactly as the upstream encoded them
	transport.DisableCompression = true

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
	}
	return client, transport.CloseIdleConnections, nil
}
