// Package ledger provides an in-memory stand-in for the chain state a
// deployed application lives against: application records with a global
// scope store and per-(application, account) local scope stores.
//
// The host executes one call at a time against any given application, so
// the ledger serializes bookkeeping with a single mutex and hands out
// plain in-memory slot stores. It is meant for tests, simulations and
// examples, not for persistence.
package ledger

import (
	"errors"
	"sync"

	"github.com/hupe1980/avmkit/blob"
	"github.com/hupe1980/avmkit/slotstore"
	"github.com/hupe1980/avmkit/state"
)

var (
	// ErrNoSuchApp is returned when the application ID is not on the ledger.
	ErrNoSuchApp = errors.New("no such application")

	// ErrNotOptedIn is returned when an account has no local scope for the
	// application.
	ErrNotOptedIn = errors.New("account is not opted in")

	// ErrAlreadyOptedIn is returned when an account opts in twice.
	ErrAlreadyOptedIn = errors.New("account is already opted in")
)

// AppParams fixes an application's storage geometry at create time.
type AppParams struct {
	// SlotSize is the byte capacity of one slot. Zero means the platform
	// default.
	SlotSize uint32

	// GlobalSchema caps the application's global slot count.
	GlobalSchema state.Schema

	// LocalSchema caps each opted-in account's slot count.
	LocalSchema state.Schema
}

func (p AppParams) slotSize() int {
	if p.SlotSize == 0 {
		return blob.DefaultPageSize
	}
	return int(p.SlotSize)
}

type appRecord struct {
	creator Address
	params  AppParams
	global  *slotstore.Memory
	locals  map[Address]*slotstore.Memory
}

// Ledger tracks applications and their scope stores.
type Ledger struct {
	mu     sync.Mutex
	nextID uint64
	apps   map[uint64]*appRecord
}

// New creates an empty ledger. Application IDs are assigned sequentially
// starting at 1; ID 0 stays free as the creation sentinel.
func New() *Ledger {
	return &Ledger{
		nextID: 1,
		apps:   make(map[uint64]*appRecord),
	}
}

// CreateApplication records a new application and allocates its global
// scope store, sized by the declared schema.
func (l *Ledger) CreateApplication(creator Address, params AppParams) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++

	l.apps[id] = &appRecord{
		creator: creator,
		params:  params,
		global:  slotstore.NewMemory(params.slotSize(), int(params.GlobalSchema.Total())),
		locals:  make(map[Address]*slotstore.Memory),
	}
	return id
}

// DeleteApplication removes an application and every local scope attached
// to it.
func (l *Ledger) DeleteApplication(appID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.apps[appID]; !ok {
		return ErrNoSuchApp
	}
	delete(l.apps, appID)
	return nil
}

// Creator returns the account that created the application.
func (l *Ledger) Creator(appID uint64) (Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.apps[appID]
	if !ok {
		return Address{}, ErrNoSuchApp
	}
	return rec.creator, nil
}

// Params returns the storage geometry fixed at create time.
func (l *Ledger) Params(appID uint64) (AppParams, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.apps[appID]
	if !ok {
		return AppParams{}, ErrNoSuchApp
	}
	return rec.params, nil
}

// OptIn allocates addr's local scope store for the application. The store
// starts empty; initializing it, including zeroing any blobs, is the
// application's opt-in handler's job.
func (l *Ledger) OptIn(appID uint64, addr Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.apps[appID]
	if !ok {
		return ErrNoSuchApp
	}
	if _, in := rec.locals[addr]; in {
		return ErrAlreadyOptedIn
	}

	rec.locals[addr] = slotstore.NewMemory(rec.params.slotSize(), int(rec.params.LocalSchema.Total()))
	return nil
}

// CloseOut releases addr's local scope store and everything in it.
func (l *Ledger) CloseOut(appID uint64, addr Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.apps[appID]
	if !ok {
		return ErrNoSuchApp
	}
	if _, in := rec.locals[addr]; !in {
		return ErrNotOptedIn
	}

	delete(rec.locals, addr)
	return nil
}

// OptedIn reports whether addr holds a local scope for the application.
func (l *Ledger) OptedIn(appID uint64, addr Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.apps[appID]
	if !ok {
		return false, ErrNoSuchApp
	}
	_, in := rec.locals[addr]
	return in, nil
}

// GlobalStore returns the application's global scope store.
func (l *Ledger) GlobalStore(appID uint64) (slotstore.Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.apps[appID]
	if !ok {
		return nil, ErrNoSuchApp
	}
	return rec.global, nil
}

// LocalStore returns addr's local scope store for the application.
func (l *Ledger) LocalStore(appID uint64, addr Address) (slotstore.Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.apps[appID]
	if !ok {
		return nil, ErrNoSuchApp
	}
	store, in := rec.locals[addr]
	if !in {
		return nil, ErrNotOptedIn
	}
	return store, nil
}
