// Package container provides the allocation-conscious primitives the rest
// of the framework builds on: a sharded associative map keyed by opaque
// handle values and an intrusive doubly-linked list for enumerating live
// objects of a kind.
//
// Both containers give no ordering guarantees. The map is safe for
// concurrent use and avoids serializing operations on distinct keys; the
// list is deliberately unsynchronized, and mutation concurrent with an
// unguarded walk is undefined. Callers needing a consistent snapshot must
// exclude mutation externally for the duration of the walk.
package container
