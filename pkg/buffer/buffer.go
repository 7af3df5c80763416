package buffer

import (
	"bytes"

	"github.com/oxtoacart/bpool"
)

// BufferManager hands out the buffers tile bodies are read into. A buffer
// is only valid until it is Put back.
type BufferManager interface {
	Get() *bytes.Buffer
	Put(*bytes.Buffer)
}

// NewBufferManager returns a pool of entries buffers, each allocated with
// entrySize bytes, shared by every provider. Without a positive size and
// count buffers are allocated per tile instead.
func NewBufferManager(entries, entrySize int) BufferManager {
	if entries > 0 && entrySize > 0 {
		return bpool.NewSizedBufferPool(entries, entrySize)
	}
	return &OnDemandBufferManager{}
}

// OnDemandBufferManager allocates a fresh buffer per tile and lets the
// garbage collector reclaim it.
type OnDemandBufferManager struct{}

func (bm *OnDemandBufferManager) Get() *bytes.Buffer {
	return &bytes.Buffer{}
}

func (bm *OnDemandBufferManager) Put(*bytes.Buffer) {}
