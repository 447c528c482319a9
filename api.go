package gflayers

// Handle is an opaque reference to an API object. Values are pointer-sized
// to match the underlying API's handle representation. Handle 0 is reserved
// and always invalid.
type Handle uintptr

// NilHandle is the reserved invalid handle value.
const NilHandle Handle = 0

// Valid reports whether h is a usable handle value.
func (h Handle) Valid() bool { return h != NilHandle }

// Level classifies an API object by its position in the creation hierarchy.
type Level uint8

const (
	// LevelContext is a top-level execution context. Owns a dispatch table.
	LevelContext Level = iota

	// LevelSubContext is an enumerated child of a context that dispatches
	// through its parent context's table.
	LevelSubContext

	// LevelDevice is an execution context derived from a top-level context.
	// Owns a dispatch table resolved through its parent's chain.
	LevelDevice

	// LevelStream is a per-operation stream that dispatches through its
	// owning device's table.
	LevelStream

	// LevelResource is a non-dispatchable object tracked only for metadata.
	LevelResource
)

// Dispatchable reports whether objects at this level own a dispatch table.
func (l Level) Dispatchable() bool {
	return l == LevelContext || l == LevelDevice
}

func (l Level) String() string {
	switch l {
	case LevelContext:
		return "context"
	case LevelSubContext:
		return "subcontext"
	case LevelDevice:
		return "device"
	case LevelStream:
		return "stream"
	case LevelResource:
		return "resource"
	}
	return "unknown"
}

// Result is the underlying API's result-code vocabulary. Callers of this
// framework only understand these codes, so internal failures are surfaced
// as the closest equivalent Result.
type Result int32

const (
	Success                 Result = 0
	ErrOutOfMemory          Result = -1
	ErrInitializationFailed Result = -2
	ErrIncompatibleVersion  Result = -3
	ErrFeatureNotPresent    Result = -4
	ErrUnknown              Result = -5
)

// Error implements error for non-success results so next-link failures can
// propagate unchanged through Go error returns. Success never reaches an
// error path by contract.
func (r Result) Error() string { return r.String() }

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case ErrOutOfMemory:
		return "out of memory"
	case ErrInitializationFailed:
		return "initialization failed"
	case ErrIncompatibleVersion:
		return "incompatible version"
	case ErrFeatureNotPresent:
		return "feature not present"
	case ErrUnknown:
		return "unknown error"
	}
	return "unrecognized result"
}

// Proc is a resolved entry point with the framework's uniform calling
// convention: the dispatchable handle the call is issued on, followed by the
// packed argument words. The single result word is interpreted per function.
type Proc func(target Handle, args []uint64) (uint64, error)

// ProcResolver resolves a function by name for a dispatchable handle.
// It returns nil when the name is unsupported at that object's level
// anywhere further down the chain; callers must check before invoking.
type ProcResolver func(target Handle, name string) Proc
