// Package registry is the central state store of the interception core: a
// thread-safe mapping from opaque handle values to object records.
//
// A Record is created synchronously inside the intercepted creation call
// for its handle and removed synchronously inside the matching destroy
// call; there is no background lifecycle. Handle values are unique among
// live records. Operations on distinct handles do not serialize (the store
// is sharded by handle hash); per-handle ordering is the caller's
// obligation, exactly as the underlying API already requires.
//
// Double destroys and lookups of dead handles are contract violations by
// the hosting application. The registry detects them defensively and
// reports them through explicit errors; it never panics on these paths and
// never terminates the process.
package registry
