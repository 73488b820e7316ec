package slotstore

import (
	"context"
	"sync"
)

// OpKind identifies a recorded store operation.
type OpKind uint8

const (
	// OpGet is a recorded Get.
	OpGet OpKind = iota
	// OpPut is a recorded Put.
	OpPut
)

func (k OpKind) String() string {
	switch k {
	case OpGet:
		return "get"
	case OpPut:
		return "put"
	default:
		return "unknown"
	}
}

// Op is one recorded store call.
type Op struct {
	Kind OpKind
	Key  byte
}

// Recorder wraps a Store and records every Get and Put in call order.
//
// Range operations issue a deterministic sequence of slot calls; tests use
// a Recorder to assert that sequence, to count reads on the full-page write
// fast path, and to verify that failed precondition checks issue no store
// I/O at all.
type Recorder struct {
	inner Store

	mu  sync.Mutex
	ops []Op
}

// NewRecorder wraps inner with call recording.
func NewRecorder(inner Store) *Recorder {
	return &Recorder{inner: inner}
}

func (r *Recorder) record(kind OpKind, key byte) {
	r.mu.Lock()
	r.ops = append(r.ops, Op{Kind: kind, Key: key})
	r.mu.Unlock()
}

// Get records the call and delegates to the wrapped store.
func (r *Recorder) Get(ctx context.Context, key byte) ([]byte, error) {
	r.record(OpGet, key)
	return r.inner.Get(ctx, key)
}

// Put records the call and delegates to the wrapped store.
func (r *Recorder) Put(ctx context.Context, key byte, value []byte) error {
	r.record(OpPut, key)
	return r.inner.Put(ctx, key, value)
}

// Ops returns a copy of the recorded operations in call order.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Counts returns how many Gets and Puts have been recorded.
func (r *Recorder) Counts() (gets, puts int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, op := range r.ops {
		switch op.Kind {
		case OpGet:
			gets++
		case OpPut:
			puts++
		}
	}
	return gets, puts
}

// Reset discards the recorded operations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = r.ops[:0]
	r.mu.Unlock()
}
