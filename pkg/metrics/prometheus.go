package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tilezen/ogctiles/pkg/state"
)

type PrometheusMetricsWriter struct {
	tileRequests        *prometheus.CounterVec
	tileFetches         *prometheus.CounterVec
	tileDuration        *prometheus.HistogramVec
	tileSize            prometheus.Histogram
	descriptionRequests *prometheus.CounterVec
	descriptionDuration *prometheus.HistogramVec
}

// NewPrometheusMetricsWriter registers the request collectors with reg.
func NewPrometheusMetricsWriter(reg prometheus.Registerer, namespace string) *PrometheusMetricsWriter {
	factory := promauto.With(reg)

	return &PrometheusMetricsWriter{
		tileRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_requests_total",
			Help:      "Tile requests by collection and response state.",
		}, []string{"collection", "state"}),
		tileFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_fetches_total",
			Help:      "Provider tile fetches by collection and fetch state.",
		}, []string{"collection", "state"}),
		tileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tile_fetch_duration_seconds",
			Help:      "Time spent fetching tiles from providers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
		tileSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tile_response_size_bytes",
			Help:      "Size of tile responses.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),
		descriptionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "description_requests_total",
			Help:      "Description document requests by kind and response state.",
		}, []string{"kind", "state"}),
		descriptionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "description_duration_seconds",
			Help:      "Time spent serving description documents.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}

func (pmw *PrometheusMetricsWriter) WriteTileState(reqState *state.TileRequestState) {
	pmw.tileRequests.WithLabelValues(reqState.Collection, reqState.ResponseState.String()).Inc()
	if reqState.FetchState > state.FetchState_Nil {
		pmw.tileFetches.WithLabelValues(reqState.Collection, reqState.FetchState.String()).Inc()
		pmw.tileDuration.WithLabelValues(reqState.Collection).Observe(reqState.Duration.Fetch.Seconds())
	}
	if reqState.ResponseSize > 0 {
		pmw.tileSize.Observe(float64(reqState.ResponseSize))
	}
}

func (pmw *PrometheusMetricsWriter) WriteDescriptionState(descReqState *state.DescriptionRequestState) {
	kind := string(descReqState.Kind)
	pmw.descriptionRequests.WithLabelValues(kind, descReqState.ResponseState.String()).Inc()
	pmw.descriptionDuration.WithLabelValues(kind).Observe(descReqState.Duration.Total.Seconds())
}
