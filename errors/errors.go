package errors

import (
	"fmt"
	"strings"

	gflayers "github.com/afd/gf-layers"
)

// Phase indicates where in the interception pipeline the error occurred
type Phase string

const (
	PhaseNegotiate Phase = "negotiate" // loader interface handshake
	PhaseCreate    Phase = "create"    // object creation interceptors
	PhaseDestroy   Phase = "destroy"   // object destruction interceptors
	PhaseResolve   Phase = "resolve"   // proc-address resolution
	PhaseRegistry  Phase = "registry"  // handle bookkeeping
	PhaseDispatch  Phase = "dispatch"  // table construction
	PhaseManifest  Phase = "manifest"  // discovery manifest handling
)

// Kind categorizes the error
type Kind string

const (
	KindNegotiationFailed Kind = "negotiation_failed"
	KindCreationFailed    Kind = "creation_failed"
	KindDuplicateHandle   Kind = "duplicate_handle"
	KindUnknownHandle     Kind = "unknown_handle"
	KindDoubleDestroy     Kind = "double_destroy"
	KindOutOfMemory       Kind = "out_of_memory"
	KindBadState          Kind = "bad_state"
	KindUnsupported       Kind = "unsupported"
	KindInvalidManifest   Kind = "invalid_manifest"
	KindInvalidInput      Kind = "invalid_input"
)

// Error is the structured error type used throughout the core
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Func   string
	Detail string
	Handle gflayers.Handle
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Func != "" {
		b.WriteString(" in ")
		b.WriteString(e.Func)
	}

	if e.Handle != gflayers.NilHandle {
		fmt.Fprintf(&b, " (handle 0x%x)", uintptr(e.Handle))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Result maps the error to the closest code in the underlying API's own
// vocabulary. Next-link failures that already carry a Result keep it
// unchanged; framework-internal kinds translate.
func (e *Error) Result() gflayers.Result {
	if e.Cause != nil {
		if r, ok := e.Cause.(gflayers.Result); ok {
			return r
		}
	}
	switch e.Kind {
	case KindOutOfMemory:
		return gflayers.ErrOutOfMemory
	case KindNegotiationFailed:
		return gflayers.ErrIncompatibleVersion
	case KindCreationFailed:
		return gflayers.ErrInitializationFailed
	case KindUnsupported:
		return gflayers.ErrFeatureNotPresent
	}
	return gflayers.ErrUnknown
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the offending handle
func (b *Builder) Handle(h gflayers.Handle) *Builder {
	b.err.Handle = h
	return b
}

// Func sets the entry-point name the error occurred in
func (b *Builder) Func(name string) *Builder {
	b.err.Func = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NegotiationFailed creates the fatal handshake error. A layer returning
// this is never loaded.
func NegotiationFailed(reqMin, reqMax, supMin, supMax uint32) *Error {
	return &Error{
		Phase:  PhaseNegotiate,
		Kind:   KindNegotiationFailed,
		Detail: fmt.Sprintf("requested interface range [%d, %d] does not intersect supported [%d, %d]", reqMin, reqMax, supMin, supMax),
	}
}

// CreationFailed wraps a next-link creation failure. The cause is the next
// link's error, forwarded unchanged.
func CreationFailed(fn string, cause error) *Error {
	return &Error{
		Phase: PhaseCreate,
		Kind:  KindCreationFailed,
		Func:  fn,
		Cause: cause,
	}
}

// DuplicateHandle creates a contract-violation error for inserting a handle
// value that is already live.
func DuplicateHandle(h gflayers.Handle) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindDuplicateHandle,
		Handle: h,
		Detail: "handle value already registered",
	}
}

// UnknownHandle creates a contract-violation error for looking up a handle
// that was never created or was already destroyed.
func UnknownHandle(phase Phase, h gflayers.Handle) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownHandle,
		Handle: h,
		Detail: "no live record for handle",
	}
}

// DoubleDestroy creates a contract-violation error for destroying a handle
// twice without an intervening create.
func DoubleDestroy(h gflayers.Handle) *Error {
	return &Error{
		Phase:  PhaseDestroy,
		Kind:   KindDoubleDestroy,
		Handle: h,
		Detail: "handle already destroyed",
	}
}

// OutOfMemory creates an allocation failure error for record or table
// construction.
func OutOfMemory(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Detail: detail,
	}
}

// BadState creates an error for operations issued out of lifecycle order,
// such as creation before negotiation.
func BadState(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBadState,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidManifest creates a discovery manifest validation error
func InvalidManifest(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseManifest,
		Kind:   KindInvalidManifest,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}
