// Package avmkit provides building blocks for contract applications backed
// by small keyed slot stores.
//
// The target platform stores application state as key/value slots with a
// hard cap on both the number of slots and the size of one slot. avmkit
// turns that raw surface into three layers:
//
//   - blob: a single byte array paged across fixed-size slots, with reads
//     and writes that may straddle slot boundaries
//   - state: declared named values, dynamic key families and blobs, placed
//     onto concrete slot keys and checked against the platform quotas
//   - avmkit (this package): method routing by 4-byte selector, bare-call
//     routing by on-completion action, and a self-describing document
//
// # Quick Start
//
//	app, err := avmkit.App("counter").
//	    GlobalState(state.Uint64("count")).
//	    Methods(avmkit.Method{
//	        Name:      "incr",
//	        Signature: "incr()void",
//	        Handler: func(ctx context.Context, call *avmkit.Call) error {
//	            count, err := call.Global.Value("count")
//	            if err != nil {
//	                return err
//	            }
//	            n, err := count.Uint64(ctx)
//	            if err != nil {
//	                return err
//	            }
//	            return count.SetUint64(ctx, n+1)
//	        },
//	    }).
//	    Build()
//	if err != nil {
//	    panic(err)
//	}
//
//	store := slotstore.NewMemory(int(app.GlobalRegistry().SlotSize()), 64)
//	sel := avmkit.Method{Signature: "incr()void"}.Selector()
//	call := &avmkit.Call{
//	    Sender: "CALLER",
//	    Args:   [][]byte{sel[:]},
//	    Global: app.BindGlobal(store),
//	}
//	_, err = app.Dispatch(ctx, call)
//
// # Storage Model
//
// Applications never touch slot keys directly. A state.Registry resolves
// every declaration to concrete keys at construction time and rejects
// layouts that exceed the platform quotas, so placement failures happen
// before any store exists. Scopes bound through BindGlobal/BindLocal meter
// every slot read and write through the configured MetricsCollector.
//
// # Key Features
//
//   - Paged blobs spanning multiple slots with byte-range reads and writes
//   - Declarative state with deterministic key placement
//   - sha512/256-derived method selectors, clash-checked at construction
//   - Bare-call routing by on-completion action and create mode
//   - Structured dispatch logging and pluggable metrics
//   - Durable file-backed, buffered and remote slot stores
package avmkit
