package avmkit

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hupe1980/avmkit/blob"
	"github.com/hupe1980/avmkit/state"
)

var (
	// ErrUnknownMethod is returned by Dispatch when no registered method
	// matches the call's selector.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrUnknownAction is returned by Dispatch when a bare call names an
	// on-completion action no handler was registered for.
	ErrUnknownAction = errors.New("no handler for action")

	// ErrOutOfRange mirrors blob.ErrOutOfRange at the public boundary.
	ErrOutOfRange = blob.ErrOutOfRange

	// ErrNotFound unifies the library's lookup failures: unknown state
	// declarations, missing applications, accounts that never opted in.
	ErrNotFound = errors.New("not found")
)

// BareOverwriteError reports two bare handlers registered for overlapping
// (action, call/create) combinations.
type BareOverwriteError struct {
	Action OnCompletion
}

func (e *BareOverwriteError) Error() string {
	return fmt.Sprintf("bare handler for %s is already registered", e.Action)
}

// SelectorClashError reports two methods whose signatures hash to the same
// 4-byte selector, or a literal duplicate registration.
type SelectorClashError struct {
	Selector [4]byte
	First    string
	Second   string
}

func (e *SelectorClashError) Error() string {
	return fmt.Sprintf("selector %s claimed by both %q and %q",
		hex.EncodeToString(e.Selector[:]), e.First, e.Second)
}

// ActionError reports a method invoked with an on-completion action or
// creation mode its registration does not allow.
type ActionError struct {
	Method string
	Action OnCompletion
	Create bool
}

func (e *ActionError) Error() string {
	if e.Create {
		return fmt.Sprintf("method %q is not callable at creation", e.Method)
	}
	return fmt.Sprintf("method %q does not allow %s", e.Method, e.Action)
}

// SelectorSizeError reports a method call whose first argument is not a
// 4-byte selector.
type SelectorSizeError struct {
	Got int
}

func (e *SelectorSizeError) Error() string {
	return fmt.Sprintf("selector must be 4 bytes, got %d", e.Got)
}

// translateError maps subpackage errors into the root vocabulary at the
// public boundary. Errors that already speak for themselves pass through.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Lookup unification.
	if errors.Is(err, state.ErrUnknownDecl) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}
