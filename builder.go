package avmkit

import (
	"log/slog"

	"github.com/hupe1980/avmkit/codec"
	"github.com/hupe1980/avmkit/state"
)

// Builder provides a fluent API for assembling an Application.
//
// Example:
//
//	app, err := avmkit.App("royalty").
//	    Describe("royalty split for secondary sales").
//	    GlobalState(
//	        state.Uint64("basis_points"),
//	        state.Bytes("royalty_receiver").Static(),
//	    ).
//	    Methods(
//	        avmkit.Method{Name: "set_policy", Signature: "set_policy(byte[],uint64)void", Handler: setPolicy},
//	    ).
//	    Build()
type Builder struct {
	name string
	opts []Option
}

// App creates a new application builder.
func App(name string) Builder {
	return Builder{name: name}
}

// Describe sets the human-readable summary surfaced by Spec.
func (b Builder) Describe(desc string) Builder {
	b.opts = append(b.opts, WithDescription(desc))
	return b
}

// SlotSize overrides the storage slot size both state layouts assume.
func (b Builder) SlotSize(size uint32) Builder {
	b.opts = append(b.opts, WithSlotSize(size))
	return b
}

// GlobalState declares the application's global values.
func (b Builder) GlobalState(decls ...state.Decl) Builder {
	b.opts = append(b.opts, WithGlobalState(decls...))
	return b
}

// LocalState declares the per-account values.
func (b Builder) LocalState(decls ...state.Decl) Builder {
	b.opts = append(b.opts, WithLocalState(decls...))
	return b
}

// Methods registers selector-routed methods.
func (b Builder) Methods(methods ...Method) Builder {
	b.opts = append(b.opts, WithMethods(methods...))
	return b
}

// Bares registers handlers for argument-less calls.
func (b Builder) Bares(bares ...Bare) Builder {
	b.opts = append(b.opts, WithBares(bares...))
	return b
}

// Metrics configures a metrics collector.
func (b Builder) Metrics(mc MetricsCollector) Builder {
	b.opts = append(b.opts, WithMetricsCollector(mc))
	return b
}

// Logger configures structured logging.
func (b Builder) Logger(logger *Logger) Builder {
	b.opts = append(b.opts, WithLogger(logger))
	return b
}

// LogLevel configures a text logger at the given level.
// Convenience wrapper for Logger(NewTextLogger(level)).
func (b Builder) LogLevel(level slog.Level) Builder {
	b.opts = append(b.opts, WithLogLevel(level))
	return b
}

// Codec configures the codec used to render application documents.
func (b Builder) Codec(c codec.Codec) Builder {
	b.opts = append(b.opts, WithCodec(c))
	return b
}

// Build creates the Application.
func (b Builder) Build() (*Application, error) {
	return New(b.name, b.opts...)
}

// MustBuild creates the Application and panics on error.
// Use only when the declarations are known-good, such as in tests.
func (b Builder) MustBuild() *Application {
	app, err := b.Build()
	if err != nil {
		panic(err)
	}
	return app
}
