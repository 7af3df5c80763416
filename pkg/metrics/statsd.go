package metrics

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/tilezen/ogctiles/pkg/log"
	"github.com/tilezen/ogctiles/pkg/state"
)

type StatsdMetricsWriter struct {
	addr   *net.UDPAddr
	prefix string
	logger log.JsonLogger
	queue  chan requestStateContainer
}
type requestStateContainer struct {
	// one of these will be set
	tileReqState *state.TileRequestState
	descReqState *state.DescriptionRequestState
}

func (smw *StatsdMetricsWriter) Process(reqStateContainer requestStateContainer) {
	conn, err := net.DialUDP("udp", nil, smw.addr)
	if err != nil {
		smw.logger.Error(log.LogCategory_Metrics, "Metrics Writer failed to connect to %s: %s", smw.addr, err)
		return
	}
	defer conn.Close()

	w := bufio.NewWriter(conn)
	defer w.Flush()

	psw := prefixedStatsdWriter{
		prefix: smw.prefix,
		w:      w,
	}

	psw.WriteCount("count", 1)

	var respState *state.ReqResponseState
	var isResponseWriteError *bool

	if reqStateContainer.tileReqState != nil {
		reqState := reqStateContainer.tileReqState

		psw.WriteCount("tile", 1)

		respState = &reqState.ResponseState
		isResponseWriteError = &reqState.IsResponseWriteError

		fetchState := reqState.FetchState
		if fetchState > state.FetchState_Nil && fetchState < state.FetchState_Count {
			psw.WriteCount(fmt.Sprintf("fetchstate.%s", fetchState.String()), 1)
		} else if fetchState != state.FetchState_Nil {
			smw.logger.Error(log.LogCategory_InvalidCodeState, "Invalid fetch state: %d", int32(fetchState))
		}
		if reqState.FetchSize > 0 {
			psw.WriteGauge("fetchsize.body-size", reqState.FetchSize)
		}

		psw.WriteTimer("timers.parse", reqState.Duration.Parse)
		psw.WriteTimer("timers.fetch", reqState.Duration.Fetch)
		psw.WriteTimer("timers.response-write", reqState.Duration.RespWrite)
		psw.WriteTimer("timers.total", reqState.Duration.Total)

		if reqState.Coord != nil && reqState.Coord.Format != "" {
			psw.WriteCount(fmt.Sprintf("formats.%s", reqState.Coord.Format), 1)
		}
		if responseSize := reqState.ResponseSize; responseSize > 0 {
			psw.WriteGauge("response-size", responseSize)
		}
	} else if reqStateContainer.descReqState != nil {
		descReqState := reqStateContainer.descReqState

		psw.WriteCount(fmt.Sprintf("description.%s", descReqState.Kind), 1)

		respState = &descReqState.ResponseState
		isResponseWriteError = &descReqState.IsResponseWriteError

		psw.WriteTimer("description.timers.build", descReqState.Duration.Build)
		psw.WriteTimer("description.timers.response-write", descReqState.Duration.RespWrite)
		psw.WriteTimer("description.timers.total", descReqState.Duration.Total)

		if encoding := descReqState.Encoding; encoding != "" {
			psw.WriteCount(fmt.Sprintf("description.formats.%s", encoding), 1)
		}
		psw.WriteBool("errors.build-error", descReqState.IsBuildError)
	} else {
		smw.logger.Warning(log.LogCategory_InvalidCodeState, "Metric processing: no state")
	}

	if respState != nil {
		if *respState > state.ResponseState_Nil && *respState < state.ResponseState_Count {
			respStateName := respState.String()
			respMetricName := fmt.Sprintf("responsestate.%s", respStateName)
			psw.WriteCount(respMetricName, 1)
		} else {
			smw.logger.Error(log.LogCategory_InvalidCodeState, "Invalid response state: %d", int32(*respState))
		}
	}
	if isResponseWriteError != nil {
		psw.WriteBool("errors.response-write-error", *isResponseWriteError)
	}
}

func (smw *StatsdMetricsWriter) enqueue(container requestStateContainer) {
	select {
	case smw.queue <- container:
	default:
		smw.logger.Warning(log.LogCategory_Metrics, "Metrics Writer queue full")
	}
}

func (smw *StatsdMetricsWriter) WriteTileState(reqState *state.TileRequestState) {
	smw.enqueue(requestStateContainer{tileReqState: reqState})
}

func (smw *StatsdMetricsWriter) WriteDescriptionState(descReqState *state.DescriptionRequestState) {
	smw.enqueue(requestStateContainer{descReqState: descReqState})
}

func NewStatsdMetricsWriter(addr *net.UDPAddr, metricsPrefix string, logger log.JsonLogger) MetricsWriter {
	maxQueueSize := 4096
	queue := make(chan requestStateContainer, maxQueueSize)

	smw := &StatsdMetricsWriter{
		addr:   addr,
		prefix: metricsPrefix,
		logger: logger,
		queue:  queue,
	}

	go func(smw *StatsdMetricsWriter) {
		for reqStateContainer := range smw.queue {
			smw.Process(reqStateContainer)
		}
	}(smw)

	return smw
}

func makeMetricPrefix(prefix string, metric string) string {
	if prefix == "" {
		return metric
	} else {
		return fmt.Sprintf("%s.%s", prefix, metric)
	}
}

func makeStatsdLineCount(prefix string, metric string, value int) string {
	return fmt.Sprintf("%s:%d|c\n", makeMetricPrefix(prefix, metric), value)
}

func makeStatsdLineGauge(prefix string, metric string, value int) string {
	return fmt.Sprintf("%s:%d|g\n", makeMetricPrefix(prefix, metric), value)
}

func makeStatsdLineTimer(prefix string, metric string, value time.Duration) string {
	millis := value.Milliseconds()
	return fmt.Sprintf("%s:%d|ms\n", makeMetricPrefix(prefix, metric), millis)
}

func writeStatsdCount(w io.Writer, prefix string, metric string, value int) {
	w.Write([]byte(makeStatsdLineCount(prefix, metric, value)))
}

func writeStatsdGauge(w io.Writer, prefix string, metric string, value int) {
	w.Write([]byte(makeStatsdLineGauge(prefix, metric, value)))
}

func writeStatsdTimer(w io.Writer, prefix string, metric string, value time.Duration) {
	w.Write([]byte(makeStatsdLineTimer(prefix, metric, value)))
}

type prefixedStatsdWriter struct {
	prefix string
	w      io.Writer
}

func (psw *prefixedStatsdWriter) WriteCount(metric string, value int) {
	writeStatsdCount(psw.w, psw.prefix, metric, value)
}

func (psw *prefixedStatsdWriter) WriteGauge(metric string, value int) {
	writeStatsdGauge(psw.w, psw.prefix, metric, value)
}

func (psw *prefixedStatsdWriter) WriteBool(metric string, value bool) {
	if value {
		psw.WriteCount(metric, 1)
	}
}

func (psw *prefixedStatsdWriter) WriteTimer(metric string, value time.Duration) {
	writeStatsdTimer(psw.w, psw.prefix, metric, value)
}
