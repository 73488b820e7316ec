// Package slotstore defines the fixed-capacity slot storage boundary that
// the blob engine and the state registry are built on.
//
// On chain, an account's storage for one application is a small set of
// named slots: at most a fixed number of keys, each holding at most a fixed
// number of bytes. The Store interface is that contract reduced to what the
// framework needs — Get and Put of whole slots by single-byte key.
//
// The package ships several implementations:
//
//   - Memory: the reference in-memory store with the host's quota and slot
//     size limits enforced. Used by the ledger simulator and by tests.
//   - File: a persistent single-owner store over one preallocated file,
//     memory-mapped on platforms that support it.
//   - Buffered: a write-coalescing decorator that stages Puts and flushes
//     each dirty slot once.
//   - Recorder: a decorator that records the operation sequence, for tests
//     asserting exactly which slot calls an operation issues.
//
// A DynamoDB-backed store lives in the dynamo subpackage.
package slotstore
