package metrics

import "github.com/tilezen/ogctiles/pkg/state"

type MetricsWriter interface {
	WriteTileState(*state.TileRequestState)
	WriteDescriptionState(*state.DescriptionRequestState)
}

type NilMetricsWriter struct{}

func (_ *NilMetricsWriter) WriteTileState(reqState *state.TileRequestState)                {}
func (_ *NilMetricsWriter) WriteDescriptionState(descReqState *state.DescriptionRequestState) {}

// MultiMetricsWriter hands every state to each of its writers in turn.
type MultiMetricsWriter []MetricsWriter

func (mmw MultiMetricsWriter) WriteTileState(reqState *state.TileRequestState) {
	for _, mw := range mmw {
		mw.WriteTileState(reqState)
	}
}

func (mmw MultiMetricsWriter) WriteDescriptionState(descReqState *state.DescriptionRequestState) {
	for _, mw := range mmw {
		mw.WriteDescriptionState(descReqState)
	}
}
