// Package chain implements the entry-point negotiation and proc-address
// protocol the surrounding loader performs against an interception layer.
//
// A Layer sits in front of a NextLink, which is either the underlying
// driver or a deeper layer; Layer itself satisfies NextLink, so layers
// stack. The loader first negotiates an interface version (fail-closed:
// a layer that cannot agree on a version is never loaded), then obtains
// every other function through the two resolvers. Resolution happens once
// per symbol per consumer cache; calls afterwards go through the resolved
// proc directly, with no per-call chain walking.
//
// Creation interceptors forward to the next link first and only then
// mutate the registry, so a failed creation leaves no trace. Destruction
// forwards first too: removal happens only after the underlying destroy
// succeeds, which keeps the record live and resolvable when teardown
// fails downstream.
package chain
