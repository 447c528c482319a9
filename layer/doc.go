// Package layer is the consumer-facing surface of the interception core,
// used by concrete layers such as frame counters or call-trace recorders.
//
// A concrete layer registers the function names it wants to intercept with
// handler callbacks, attaches private payload blobs to object records, and
// enumerates live handles of a level when it needs a snapshot (for example
// walking every live resource at a capture point). The loader handshake,
// dispatch-table construction and forwarding are inherited from package
// chain unchanged.
package layer
