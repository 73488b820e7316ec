package avmkit

import (
	"context"
	"crypto/sha512"

	"github.com/hupe1980/avmkit/state"
)

// OnCompletion is the action a call asks the host to perform once the
// application program approves it.
type OnCompletion uint8

const (
	// NoOp performs no state transition besides the program's own writes.
	NoOp OnCompletion = iota
	// OptIn allocates the sender's local state for this application.
	OptIn
	// CloseOut releases the sender's local state.
	CloseOut
	// ClearState forcibly releases local state; the program cannot block it.
	ClearState
	// UpdateApplication replaces the application's program.
	UpdateApplication
	// DeleteApplication removes the application.
	DeleteApplication
)

func (oc OnCompletion) String() string {
	switch oc {
	case NoOp:
		return "no_op"
	case OptIn:
		return "opt_in"
	case CloseOut:
		return "close_out"
	case ClearState:
		return "clear_state"
	case UpdateApplication:
		return "update_application"
	case DeleteApplication:
		return "delete_application"
	default:
		return "unknown"
	}
}

// CallAction says when a bare handler applies: to regular calls, to the
// application-creation call, or to both.
type CallAction uint8

const (
	// ActionCall applies to calls against an existing application.
	ActionCall CallAction = iota + 1
	// ActionCreate applies to the application-creation call.
	ActionCreate
	// ActionAll applies to both.
	ActionAll
)

func (a CallAction) String() string {
	switch a {
	case ActionCall:
		return "call"
	case ActionCreate:
		return "create"
	case ActionAll:
		return "all"
	default:
		return "unknown"
	}
}

// Call is one invocation routed through an Application. Arguments and
// returns are opaque bytes: argument typing belongs to the caller's
// encoding layer, not to the router.
type Call struct {
	// AppID is the target application, 0 during creation.
	AppID uint64

	// Sender is the rendered address of the calling account.
	Sender string

	// OnCompletion is the action requested alongside the call.
	OnCompletion OnCompletion

	// Create is true for the application-creation call.
	Create bool

	// Args holds the raw argument bytes. For method calls Args[0] is the
	// 4-byte selector; a call with no arguments routes to a bare handler.
	Args [][]byte

	// Global is the application's global scope.
	Global *state.Scope

	// Local is the sender's local scope, nil unless allocated.
	Local *state.Scope

	ret []byte
}

// MethodArgs returns the arguments after the selector.
func (c *Call) MethodArgs() [][]byte {
	if len(c.Args) == 0 {
		return nil
	}
	return c.Args[1:]
}

// SetReturn records the handler's return payload.
func (c *Call) SetReturn(b []byte) {
	c.ret = append([]byte(nil), b...)
}

// Return reports the payload recorded by the handler, nil if none.
func (c *Call) Return() []byte {
	return c.ret
}

// HandlerFunc implements one contract operation.
type HandlerFunc func(ctx context.Context, call *Call) error

// Method binds a named operation to its routing selector.
type Method struct {
	// Name is the short operation name used in logs and documents.
	Name string

	// Signature is the canonical signature string the selector is derived
	// from, e.g. "offer(uint64,byte[])void". The router treats it as an
	// opaque label.
	Signature string

	// Handler runs when the selector matches.
	Handler HandlerFunc

	// Actions lists the on-completion actions the method accepts. Empty
	// means NoOp only.
	Actions []OnCompletion

	// OnCreate marks the method callable during application creation.
	OnCreate bool

	// Description is surfaced by Application.Spec.
	Description string
}

// Selector derives the method's 4-byte routing selector: the leading four
// bytes of sha512/256 over the signature.
func (m Method) Selector() [4]byte {
	sum := sha512.Sum512_256([]byte(m.Signature))
	var sel [4]byte
	copy(sel[:], sum[:4])
	return sel
}

// AllowsAction reports whether the method accepts the given on-completion
// action.
func (m Method) AllowsAction(oc OnCompletion) bool {
	if len(m.Actions) == 0 {
		return oc == NoOp
	}
	for _, a := range m.Actions {
		if a == oc {
			return true
		}
	}
	return false
}

// Bare registers a handler for argument-less calls requesting one
// on-completion action.
type Bare struct {
	// Action is the on-completion action this handler serves.
	Action OnCompletion

	// When restricts the handler to calls, creation, or both. Zero value
	// means ActionCall.
	When CallAction

	// Handler runs when the action matches.
	Handler HandlerFunc

	// Description is surfaced by Application.Spec.
	Description string
}

func (b Bare) when() CallAction {
	if b.When == 0 {
		return ActionCall
	}
	return b.When
}
