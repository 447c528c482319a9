// Package dispatch builds and holds the per-object tables of resolved
// next-link entry points.
//
// A Table is constructed exactly once, inside the intercepted creation call
// of the object that will own it, by resolving every function name the
// framework knows about through the next link's resolver. Names the next
// link does not support are stored as nil slots; that is not an error, and
// callers must check a slot before invoking it. Once built a table is
// immutable, so querying it needs no locking and invoking through it is a
// single indirect call with no chain walking.
package dispatch
