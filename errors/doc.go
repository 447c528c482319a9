// Package errors provides structured error types for the gf-layers core.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type carries the offending handle and
// function name where relevant, plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRegistry, errors.KindDuplicateHandle).
//		Handle(h).
//		Detail("record already live").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.DuplicateHandle(h)
//	err := errors.UnknownHandle(errors.PhaseResolve, h)
//
// All errors implement the standard error interface and support
// errors.Is/As. Contract-violation kinds (duplicate handle, unknown
// handle, double destroy) are diagnostics for misbehaving callers; they
// are reported, never escalated to termination.
//
// Failures that must be surfaced through the underlying API's own
// vocabulary map to a gflayers.Result via the Result method.
package errors
