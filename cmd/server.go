package main

import (
	"context"
	"fmt"
	golog "log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/namsral/flag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpmetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
	"golang.org/x/sync/errgroup"

	"github.com/tilezen/ogctiles/pkg/buffer"
	"github.com/tilezen/ogctiles/pkg/config"
	"github.com/tilezen/ogctiles/pkg/handler"
	"github.com/tilezen/ogctiles/pkg/log"
	"github.com/tilezen/ogctiles/pkg/metrics"
	"github.com/tilezen/ogctiles/pkg/provider"
	"github.com/tilezen/ogctiles/pkg/provider/mvt"
	"github.com/tilezen/ogctiles/pkg/provider/stored"
)

const appName = "ogctiles"

func main() {
	var listen, healthcheck, baseURL, resources string
	var poolNumEntries, poolEntrySize int
	var upstreamTimeout time.Duration
	var metricsStatsdAddr, metricsStatsdPrefix, metricsListen string

	sc := config.ServerConfig{}

	systemLogger := golog.New(os.Stdout, "", golog.LstdFlags|golog.LUTC|golog.Lmicroseconds)
	hostname, err := os.Hostname()
	if err != nil {
		// NOTE: if there are legitimate cases when this can fail, we
		// can leave off the hostname in the logger.
		// But for now we prefer to get notified of it.
		systemLogger.Fatalf("ERROR: Cannot find hostname to use for logger")
	}
	// use this logger everywhere.
	logger := log.NewJsonLogger(systemLogger, hostname)

	f := flag.NewFlagSetWithEnvPrefix(os.Args[0], "OGCTILES", 0)
	f.Var(&sc, "collections",
		`JSON object defining the published collections.
   aws { Object present when Aws-wide configuration is needed, eg session config.
     region string Name of aws region
   }
   collections { collection id -> collection definition mapping
     collection id string -> {
       collection { collectionid number, title, description, extent string }
       provider {
         name     string  Provider name, eg "MVT".
         data     string  Tile url template containing /{z}/{x}/{y} exactly once.
                          http(s):// urls are proxied, s3:// and file:// urls are
                          read from storage. Storage keys may also use {fmt},
                          {layer} and {hash}.
         format   { name string  Tile format, eg "pbf" }
         mimetype string  Content type of tiles.
         schemes  []string Supported tile matrix sets, eg "WebMercatorQuad".
       }
       healthcheck string S3 key or file path checked by the healthcheck.
     }
   }
`)
	f.StringVar(&resources, "resources", "", "YAML file with the same structure as the collections flag.")
	f.StringVar(&listen, "listen", ":8080", "interface and port to listen on")
	f.String("config", "", "Config file to read values from.")
	f.StringVar(&healthcheck, "healthcheck", "", "A URL path for healthcheck. Intended for use by load balancer health checks.")
	f.StringVar(&baseURL, "base-url", "", "Public URL of the server used in links. Taken from each request when empty.")
	f.DurationVar(&upstreamTimeout, "upstream-timeout", 10*time.Second, "Time to wait for upstream tile servers to answer.")

	f.IntVar(&poolNumEntries, "poolnumentries", 0, "Number of buffers to pool.")
	f.IntVar(&poolEntrySize, "poolentrysize", 0, "Size of each buffer in pool.")

	f.StringVar(&metricsStatsdAddr, "metrics-statsd-addr", "", "host:port to use to send data to statsd")
	f.StringVar(&metricsStatsdPrefix, "metrics-statsd-prefix", "", "prefix to prepend to metrics")
	f.StringVar(&metricsListen, "metrics-listen", "", "interface and port to serve prometheus metrics on")

	err = f.Parse(os.Args[1:])
	if err == flag.ErrHelp {
		return
	} else if err != nil {
		logFatalCfgErr(logger, "Unable to parse input command line, environment or config: %s", err.Error())
	}

	if resources != "" {
		if err := sc.LoadFile(resources); err != nil {
			logFatalCfgErr(logger, "%s", err.Error())
		}
	}
	if err := sc.Validate(); err != nil {
		logFatalCfgErr(logger, "%s", err.Error())
	}

	// buffer manager shared by all providers
	bufferManager := buffer.NewBufferManager(poolNumEntries, poolEntrySize)

	// metrics writer configuration
	var mws metrics.MultiMetricsWriter
	if metricsStatsdAddr != "" {
		udpAddr, err := net.ResolveUDPAddr("udp4", metricsStatsdAddr)
		if err != nil {
			logFatalCfgErr(logger, "Invalid metricsstatsdaddr %s: %s", metricsStatsdAddr, err)
		}
		mws = append(mws, metrics.NewStatsdMetricsWriter(udpAddr, metricsStatsdPrefix, logger))
	}
	if metricsListen != "" {
		mws = append(mws, metrics.NewPrometheusMetricsWriter(prometheus.DefaultRegisterer, appName))
	}
	var mw metrics.MetricsWriter = &metrics.NilMetricsWriter{}
	if len(mws) > 0 {
		mw = mws
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = upstreamTimeout

	pf := providerFactory{
		aws:       sc.Aws,
		transport: transport,
		buffers:   bufferManager,
		logger:    logger,
	}

	collections := handler.NewCollections()
	for _, id := range sc.CollectionIDs() {
		cc := sc.Collections[id]

		p, err := pf.newProvider(cc)
		if err != nil {
			logFatalCfgErr(logger, "Unable to set up provider for collection %s: %s", id, err.Error())
		}

		if hc, ok := p.(provider.HealthChecker); ok && healthcheck != "" {
			if err := hc.HealthCheck(context.Background()); err != nil {
				logger.Warning(log.LogCategory_ConfigError, "Healthcheck failed on collection %s: %s", id, err)
			}
		}

		err = collections.Add(&handler.Collection{
			ID:       id,
			Meta:     cc.Collection,
			MimeType: cc.Provider.MimeType,
			Format:   cc.Provider.Format.Name,
			Provider: p,
		})
		if err != nil {
			logFatalCfgErr(logger, "%s", err.Error())
		}
		logger.Info("Serving collection %s from %s", id, p)
	}

	r := mux.NewRouter()
	handler.Register(r, collections, handler.Options{
		BaseURL:     baseURL,
		Healthcheck: healthcheck,
		Metrics:     mw,
		Logger:      logger,
	})

	var h http.Handler = handlers.CORS(handlers.AllowedMethods([]string{"GET"}))(r)
	if metricsListen != "" {
		metricsMwr := middleware.New(middleware.Config{
			Recorder: httpmetrics.NewRecorder(httpmetrics.Config{Prefix: appName}),
		})
		h = std.Handler("api", metricsMwr, h)
	}
	h = log.LoggingMiddleware(logger)(h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// catch termination
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:    listen,
		Handler: h,
	}
	g.Go(func() error {
		logger.Info("Server started and listening on %s", listen)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	var metricsServer *http.Server
	if metricsListen != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", gziphandler.GzipHandler(promhttp.Handler()))
		metricsServer = &http.Server{
			Addr:         metricsListen,
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Metrics server listening on %s", metricsListen)
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	select {
	case <-interrupt:
		cancel()
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	httpServer.Shutdown(shutdownCtx)
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil {
		logger.Error(log.LogCategory_ConfigError, "Server exited: %s", err.Error())
		os.Exit(2)
	}
}

// providerFactory builds the provider matching a collection's data url.
type providerFactory struct {
	aws       *config.AwsConfig
	transport *http.Transport
	buffers   buffer.BufferManager
	logger    log.JsonLogger

	// set if we have s3 storage configured, and shared across all s3 sessions
	awsSession *session.Session
}

func (pf *providerFactory) newProvider(cc config.CollectionConfig) (provider.TileProvider, error) {
	data, err := url.Parse(cc.Provider.Data)
	if err != nil {
		return nil, &provider.ConfigurationError{Field: "data", Reason: "not a url", Err: err}
	}

	switch data.Scheme {
	case "http", "https":
		if cc.Healthcheck != "" {
			pf.logger.Warning(log.LogCategory_ConfigError, "healthcheck is ignored for %s, the upstream origin is checked", cc.Provider.Data)
		}
		return mvt.New(cc.Provider,
			mvt.WithTransport(pf.transport),
			mvt.WithBufferManager(pf.buffers),
			mvt.WithLogger(pf.logger))

	case "s3":
		if pf.awsSession == nil {
			if pf.aws != nil && pf.aws.Region != nil {
				pf.awsSession, err = session.NewSessionWithOptions(session.Options{
					Config: aws.Config{Region: pf.aws.Region},
				})
			} else {
				pf.awsSession, err = session.NewSession()
			}
			if err != nil {
				return nil, fmt.Errorf("Unable to set up AWS session: %w", err)
			}
		}
		if cc.Healthcheck == "" {
			pf.logger.Warning(log.LogCategory_ConfigError, "Missing healthcheck for storage s3")
		}
		return stored.New(cc.Provider,
			stored.WithS3(s3.New(pf.awsSession)),
			stored.WithHealthcheck(cc.Healthcheck),
			stored.WithLogger(pf.logger))

	case "file":
		if cc.Healthcheck == "" {
			pf.logger.Warning(log.LogCategory_ConfigError, "Missing healthcheck for storage file")
		}
		return stored.New(cc.Provider,
			stored.WithHealthcheck(cc.Healthcheck),
			stored.WithLogger(pf.logger))
	}

	return nil, &provider.ConfigurationError{
		Field:  "data",
		Reason: fmt.Sprintf("unsupported scheme %q", data.Scheme),
	}
}

func logFatalCfgErr(logger log.JsonLogger, msg string, xs ...interface{}) {
	logger.Error(log.LogCategory_ConfigError, msg, xs...)
	os.Exit(1)
}
