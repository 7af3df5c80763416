package buffer

import (
	"testing"

	"github.com/oxtoacart/bpool"
)

func TestNewBufferManagerPooled(t *testing.T) {
	bm := NewBufferManager(2, 128)
	if _, ok := bm.(*bpool.SizedBufferPool); !ok {
		t.Fatalf("Expected a sized pool, got %T", bm)
	}

	buf := bm.Get()
	if buf.Cap() < 128 {
		t.Fatalf("Expected capacity of at least 128, got %d", buf.Cap())
	}
	buf.WriteString("tile")
	bm.Put(buf)
	if got := bm.Get(); got.Len() != 0 {
		t.Fatalf("Expected a reset buffer from the pool, got %q", got.String())
	}
}

func TestNewBufferManagerOnDemand(t *testing.T) {
	for _, args := range [][2]int{{0, 128}, {2, 0}, {-1, -1}} {
		bm := NewBufferManager(args[0], args[1])
		if _, ok := bm.(*OnDemandBufferManager); !ok {
			t.Fatalf("Expected on demand buffers for %v, got %T", args, bm)
		}
	}

	bm := &OnDemandBufferManager{}
	a, b := bm.Get(), bm.Get()
	if a == b {
		t.Fatalf("Expected a fresh buffer per Get")
	}
}
