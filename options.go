package avmkit

import (
	"log/slog"

	"github.com/hupe1980/avmkit/codec"
	"github.com/hupe1980/avmkit/state"
)

type options struct {
	description      string
	slotSize         uint32
	globalDecls      []state.Decl
	localDecls       []state.Decl
	methods          []Method
	bares            []Bare
	metricsCollector MetricsCollector
	logger           *Logger
	codec            codec.Codec
}

// Option configures Application construction.
//
// Options exist to keep the constructor surface small: an application is
// one name plus whatever state, methods and plumbing it declares.
type Option func(*options)

// WithDescription sets the human-readable summary surfaced by Spec.
func WithDescription(desc string) Option {
	return func(o *options) {
		o.description = desc
	}
}

// WithSlotSize overrides the storage slot size both state registries are
// laid out for. Zero keeps the platform default.
//
// All stores later bound to the application must use the same slot size.
func WithSlotSize(size uint32) Option {
	return func(o *options) {
		o.slotSize = size
	}
}

// WithGlobalState declares the application's global values.
//
// Example:
//
//	app, _ := avmkit.New("counter",
//	    avmkit.WithGlobalState(
//	        state.Uint64("count").Describe("total increments"),
//	        state.Bytes("owner").Static(),
//	    ),
//	)
func WithGlobalState(decls ...state.Decl) Option {
	return func(o *options) {
		o.globalDecls = append(o.globalDecls, decls...)
	}
}

// WithLocalState declares the per-account values.
func WithLocalState(decls ...state.Decl) Option {
	return func(o *options) {
		o.localDecls = append(o.localDecls, decls...)
	}
}

// WithMethods registers selector-routed methods.
func WithMethods(methods ...Method) Option {
	return func(o *options) {
		o.methods = append(o.methods, methods...)
	}
}

// WithBares registers handlers for argument-less calls.
func WithBares(bares ...Bare) Option {
	return func(o *options) {
		o.bares = append(o.bares, bares...)
	}
}

// WithMetricsCollector configures a metrics collector for dispatch and
// storage operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &avmkit.BasicMetricsCollector{}
//	app, _ := avmkit.New("royalty", avmkit.WithMetricsCollector(metrics))
//	// ... dispatch calls ...
//	stats := metrics.GetStats()
//	fmt.Printf("Dispatches: %d, Avg latency: %dns\n", stats.DispatchCount, stats.DispatchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for dispatches.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := avmkit.NewJSONLogger(slog.LevelInfo)
//	app, _ := avmkit.New("royalty", avmkit.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithCodec configures the codec used to render application documents.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
