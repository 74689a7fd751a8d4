package dashboard

import (
	"sync/atomic"

	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
)

// Frame is one recomputed view tagged with the sequence of the snapshot it
// was built from.
type Frame struct {
	Seq  uint64         `json:"seq"`
	View inventory.View `json:"view"`
}

// Tracker recomputes a view for every pushed snapshot and keeps only the
// result of the most recent snapshot. A computation that finishes after a
// newer one was published is discarded.
type Tracker struct {
	engine  *inventory.Engine
	opts    inventory.FilterOptions
	seq     atomic.Uint64
	latest  atomic.Pointer[Frame]
	updates chan struct{}
}

// NewTracker constructs a Tracker for one filtered view.
func NewTracker(engine *inventory.Engine, opts inventory.FilterOptions) *Tracker {
	return &Tracker{engine: engine, opts: opts, updates: make(chan struct{}, 1)}
}

// Next reserves the sequence number of the next snapshot. It must be called
// in delivery order, before any asynchronous recomputation starts.
func (t *Tracker) Next() uint64 {
	return t.seq.Add(1)
}

// PushAt recomputes the view of the snapshot numbered seq and publishes it
// unless a newer frame is already published. It reports whether the frame
// was kept.
func (t *Tracker) PushAt(seq uint64, products []inventory.Product) bool {
	return t.publish(&Frame{Seq: seq, View: t.engine.Build(products, t.opts)})
}

// Push numbers and recomputes the snapshot synchronously.
func (t *Tracker) Push(products []inventory.Product) bool {
	return t.PushAt(t.Next(), products)
}

func (t *Tracker) publish(frame *Frame) bool {
	for {
		current := t.latest.Load()
		if current != nil && current.Seq > frame.Seq {
			return false
		}
		if t.latest.CompareAndSwap(current, frame) {
			break
		}
	}
	select {
	case t.updates <- struct{}{}:
	default:
	}
	return true
}

// Latest returns the most recent published frame.
func (t *Tracker) Latest() (Frame, bool) {
	f := t.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Updates signals after a frame is published. Signals coalesce: a reader
// should call Latest after each one.
func (t *Tracker) Updates() <-chan struct{} {
	return t.updates
}
