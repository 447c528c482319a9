// Package gflayers provides the interception substrate shared by a family
// of graphics-API layers: libraries that sit between an application and the
// underlying driver, observing and optionally transforming every call that
// flows through them.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	gflayers/          Root package with the shared handle and call vocabulary
//	├── chain/         Version negotiation, proc-address resolvers, interceptors
//	├── registry/      Thread-safe handle to object-record bookkeeping
//	├── dispatch/      Immutable per-object tables of resolved next-link procs
//	├── layer/         High-level API for building concrete layers
//	├── manifest/      Loader-facing discovery manifest format
//	├── container/     Sharded handle map and intrusive list primitives
//	└── errors/        Structured error types for diagnostics
//
// # Quick Start
//
// Build a pass-through layer over a next link (driver or deeper layer):
//
//	l, err := layer.New(next, layer.Options{Name: "counter"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	l.Intercept("present", func(next gflayers.Proc, h gflayers.Handle, args []uint64) (uint64, error) {
//	    // layer-specific logic, then forward
//	    return next(h, args)
//	})
//
//	if _, err := l.Negotiate(chain.VersionRange{Min: 1, Max: 2}); err != nil {
//	    log.Fatal(err) // loader will not load this layer
//	}
//
// # Dispatch Model
//
// Every object that can issue calls owns (or borrows) a dispatch table built
// once at creation time by resolving the full known-function set through the
// next link. Tables are immutable after construction, so invoking through
// them is lock-free; there is no per-call chain walking.
//
// # Thread Safety
//
// All operations execute synchronously on the calling application thread.
// The registry supports concurrent operations on distinct handles without
// serializing them; per-handle call ordering is the caller's obligation, as
// the underlying API already requires.
package gflayers
