package avmkit

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hupe1980/avmkit/codec"
	"github.com/hupe1980/avmkit/slotstore"
	"github.com/hupe1980/avmkit/state"
)

type bareKey struct {
	action OnCompletion
	create bool
}

// Application is one routed contract: a method table, a bare-call table and
// the resolved global/local state layouts. It is immutable after New.
//
// An Application holds no storage of its own. Callers bind scopes to
// whatever slot store backs the account being touched, usually through a
// Ledger, and attach them to the Call before dispatching.
type Application struct {
	name        string
	description string
	global      *state.Registry
	local       *state.Registry
	methods     []Method
	selectors   map[[4]byte]int
	bares       []Bare
	bareRoutes  map[bareKey]int
	metrics     MetricsCollector
	logger      *Logger
	codec       codec.Codec
}

// New builds an application from its declarations.
//
// Construction resolves both state layouts against the platform quotas,
// derives every method selector and fails on the first clash, so an
// application that constructs cleanly routes deterministically forever.
func New(name string, optFns ...Option) (*Application, error) {
	if name == "" {
		return nil, fmt.Errorf("avmkit: application name must not be empty")
	}

	opts := applyOptions(optFns)

	var regOpts []state.RegistryOption
	if opts.slotSize > 0 {
		regOpts = append(regOpts, state.WithSlotSize(opts.slotSize))
	}

	global, err := state.NewRegistry(state.Global, opts.globalDecls, regOpts...)
	if err != nil {
		return nil, fmt.Errorf("avmkit: global state: %w", err)
	}
	local, err := state.NewRegistry(state.Local, opts.localDecls, regOpts...)
	if err != nil {
		return nil, fmt.Errorf("avmkit: local state: %w", err)
	}

	app := &Application{
		name:        name,
		description: opts.description,
		global:      global,
		local:       local,
		methods:     opts.methods,
		selectors:   make(map[[4]byte]int, len(opts.methods)),
		bares:       opts.bares,
		bareRoutes:  make(map[bareKey]int, len(opts.bares)),
		metrics:     opts.metricsCollector,
		logger:      opts.logger,
		codec:       opts.codec,
	}

	for i, m := range opts.methods {
		if m.Name == "" || m.Signature == "" {
			return nil, fmt.Errorf("avmkit: method %d needs a name and a signature", i)
		}
		if m.Handler == nil {
			return nil, fmt.Errorf("avmkit: method %q has no handler", m.Name)
		}
		sel := m.Selector()
		if j, taken := app.selectors[sel]; taken {
			return nil, &SelectorClashError{
				Selector: sel,
				First:    opts.methods[j].Signature,
				Second:   m.Signature,
			}
		}
		app.selectors[sel] = i
	}

	for i, b := range opts.bares {
		if b.Handler == nil {
			return nil, fmt.Errorf("avmkit: bare handler for %s is nil", b.Action)
		}
		for _, create := range bareModes(b.when()) {
			key := bareKey{action: b.Action, create: create}
			if _, taken := app.bareRoutes[key]; taken {
				return nil, &BareOverwriteError{Action: b.Action}
			}
			app.bareRoutes[key] = i
		}
	}

	return app, nil
}

// bareModes expands a CallAction into the create flags it claims.
func bareModes(when CallAction) []bool {
	switch when {
	case ActionCreate:
		return []bool{true}
	case ActionAll:
		return []bool{false, true}
	default:
		return []bool{false}
	}
}

// Name returns the application name.
func (app *Application) Name() string { return app.name }

// Description returns the human-readable summary, empty if none was set.
func (app *Application) Description() string { return app.description }

// GlobalRegistry returns the resolved global state layout.
func (app *Application) GlobalRegistry() *state.Registry { return app.global }

// LocalRegistry returns the resolved per-account state layout.
func (app *Application) LocalRegistry() *state.Registry { return app.local }

// Methods returns a copy of the registered method table.
func (app *Application) Methods() []Method {
	return append([]Method(nil), app.methods...)
}

// BindGlobal wires the application's global layout to a slot store. Reads
// and writes issued through the returned scope are metered.
func (app *Application) BindGlobal(store slotstore.Store) *state.Scope {
	return app.global.Bind(MeterStore(store, app.metrics))
}

// BindLocal wires the per-account layout to one account's slot store.
func (app *Application) BindLocal(store slotstore.Store) *state.Scope {
	return app.local.Bind(MeterStore(store, app.metrics))
}

// Dispatch routes one call to its handler and returns the handler's
// recorded payload.
//
// Calls without arguments route through the bare table by on-completion
// action; calls with arguments route by the 4-byte selector in Args[0].
// Routing rejections never touch state.
func (app *Application) Dispatch(ctx context.Context, call *Call) ([]byte, error) {
	start := time.Now()

	handler, name, err := app.route(call)
	if err != nil {
		err = translateError(err)
		app.metrics.RecordDispatch(name, time.Since(start), err)
		app.logger.LogReject(ctx, call.OnCompletion, err)
		return nil, err
	}

	err = translateError(handler(ctx, call))
	duration := time.Since(start)
	app.metrics.RecordDispatch(name, duration, err)
	app.logger.WithSender(call.Sender).LogDispatch(ctx, name, call.OnCompletion, err)
	if err != nil {
		return nil, err
	}

	return call.Return(), nil
}

func (app *Application) route(call *Call) (HandlerFunc, string, error) {
	if len(call.Args) == 0 {
		i, ok := app.bareRoutes[bareKey{action: call.OnCompletion, create: call.Create}]
		if !ok {
			return nil, "", fmt.Errorf("%w: %s (create=%t)", ErrUnknownAction, call.OnCompletion, call.Create)
		}
		return app.bares[i].Handler, "bare:" + call.OnCompletion.String(), nil
	}

	raw := call.Args[0]
	if len(raw) != 4 {
		return nil, "", &SelectorSizeError{Got: len(raw)}
	}
	var sel [4]byte
	copy(sel[:], raw)

	i, ok := app.selectors[sel]
	if !ok {
		return nil, "", fmt.Errorf("%w: selector %s", ErrUnknownMethod, hex.EncodeToString(raw))
	}
	m := app.methods[i]

	if call.Create && !m.OnCreate {
		return nil, m.Name, &ActionError{Method: m.Name, Action: call.OnCompletion, Create: true}
	}
	if !m.AllowsAction(call.OnCompletion) {
		return nil, m.Name, &ActionError{Method: m.Name, Action: call.OnCompletion}
	}

	return m.Handler, m.Name, nil
}

// Document is the structured self-description of an application: its state
// layouts with resolved keys, its method table with derived selectors and
// its bare-call table.
type Document struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	SlotSize    uint32        `json:"slot_size"`
	Global      StateDocument `json:"global"`
	Local       StateDocument `json:"local"`
	Methods     []MethodEntry `json:"methods,omitempty"`
	Bares       []BareEntry   `json:"bares,omitempty"`
}

// StateDocument describes one scope's layout.
type StateDocument struct {
	Schema state.Schema     `json:"schema"`
	Decls  []state.DeclInfo `json:"decls,omitempty"`
}

// MethodEntry describes one routed method.
type MethodEntry struct {
	Name        string   `json:"name"`
	Signature   string   `json:"signature"`
	Selector    string   `json:"selector"`
	Actions     []string `json:"actions"`
	OnCreate    bool     `json:"on_create,omitempty"`
	Description string   `json:"description,omitempty"`
}

// BareEntry describes one bare-call handler.
type BareEntry struct {
	Action      string `json:"action"`
	When        string `json:"when"`
	Description string `json:"description,omitempty"`
}

// Document returns the application's structured self-description.
func (app *Application) Document() Document {
	doc := Document{
		Name:        app.name,
		Description: app.description,
		SlotSize:    app.global.SlotSize(),
		Global: StateDocument{
			Schema: app.global.Schema(),
			Decls:  app.global.Describe(),
		},
		Local: StateDocument{
			Schema: app.local.Schema(),
			Decls:  app.local.Describe(),
		},
	}

	for _, m := range app.methods {
		sel := m.Selector()
		actions := m.Actions
		if len(actions) == 0 {
			actions = []OnCompletion{NoOp}
		}
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = a.String()
		}
		doc.Methods = append(doc.Methods, MethodEntry{
			Name:        m.Name,
			Signature:   m.Signature,
			Selector:    hex.EncodeToString(sel[:]),
			Actions:     names,
			OnCreate:    m.OnCreate,
			Description: m.Description,
		})
	}

	for _, b := range app.bares {
		doc.Bares = append(doc.Bares, BareEntry{
			Action:      b.Action.String(),
			When:        b.when().String(),
			Description: b.Description,
		})
	}

	return doc
}

// Spec renders the application document with the configured codec.
func (app *Application) Spec(ctx context.Context) ([]byte, error) {
	b, err := app.codec.Marshal(app.Document())
	app.logger.LogSpec(ctx, app.name, len(b), err)
	if err != nil {
		return nil, fmt.Errorf("avmkit: render document: %w", err)
	}
	return b, nil
}
