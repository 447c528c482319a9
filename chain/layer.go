package chain

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	gflayers "github.com/afd/gf-layers"
	"github.com/afd/gf-layers/dispatch"
	"github.com/afd/gf-layers/errors"
	"github.com/afd/gf-layers/registry"
)

// Interceptor is a layer-supplied hook for one function name. next is the
// proc the call would otherwise reach (nil when the name is unsupported
// further down the chain); a pass-through interceptor invokes it unchanged.
type Interceptor func(next gflayers.Proc, target gflayers.Handle, args []uint64) (uint64, error)

// Options configures a Layer.
type Options struct {
	// Name identifies the layer in logs and in its discovery manifest.
	Name string

	// Interceptors seeds the intercepted-name set. More can be added with
	// Intercept until negotiation completes.
	Interceptors map[string]Interceptor
}

// DefaultOptions returns the default layer configuration.
func DefaultOptions() Options {
	return Options{Name: "anonymous"}
}

// Layer is one link of an interception chain. It forwards everything it
// does not intercept to its NextLink and keeps per-object bookkeeping for
// everything it does. Layer itself satisfies NextLink so layers stack.
type Layer struct {
	next NextLink
	reg  *registry.Registry
	name string

	mu           sync.RWMutex
	interceptors map[string]Interceptor

	negotiated atomic.Bool
	version    atomic.Uint32
}

var _ NextLink = (*Layer)(nil)

// New creates a layer in front of next. next must not be nil; a layer at
// the bottom of a chain fronts the driver itself.
func New(next NextLink, opts Options) (*Layer, error) {
	if next == nil {
		return nil, errors.InvalidInput(errors.PhaseNegotiate, "nil next link")
	}
	name := opts.Name
	if name == "" {
		name = DefaultOptions().Name
	}
	l := &Layer{
		next:         next,
		reg:          registry.New(),
		name:         name,
		interceptors: make(map[string]Interceptor, len(opts.Interceptors)),
	}
	for n, fn := range opts.Interceptors {
		if err := l.Intercept(n, fn); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Name returns the layer's name.
func (l *Layer) Name() string { return l.name }

// Registry exposes the layer's handle bookkeeping to its consumer.
func (l *Layer) Registry() *registry.Registry { return l.reg }

// Intercept registers fn as the handler for name and adds name to the
// framework's known-function set so tables built afterwards carry a slot
// for it. Registration closes at negotiation time: the function set a
// layer advertises to the loader must not change once negotiated.
func (l *Layer) Intercept(name string, fn Interceptor) error {
	if name == "" || fn == nil {
		return errors.InvalidInput(errors.PhaseResolve, "empty interceptor registration")
	}
	if l.negotiated.Load() {
		return errors.BadState(errors.PhaseResolve, "interceptor registered after negotiation")
	}
	l.mu.Lock()
	l.interceptors[name] = fn
	l.mu.Unlock()
	dispatch.RegisterNames(name)
	return nil
}

// InterceptedNames returns the registered interceptor names, unordered.
func (l *Layer) InterceptedNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.interceptors))
	for n := range l.interceptors {
		names = append(names, n)
	}
	return names
}

func (l *Layer) interceptor(name string) Interceptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.interceptors[name]
}

// Negotiate performs the loader handshake: the highest interface version
// inside both windows, or a NegotiationFailure when the windows do not
// intersect. Failure is fatal for the layer; the loader will not load it.
// Negotiation must precede any creation call.
func (l *Layer) Negotiate(req VersionRange) (uint32, error) {
	v, err := negotiate(req)
	if err != nil {
		Logger().Error("negotiation failed",
			zap.String("layer", l.name),
			zap.Uint32("req_min", req.Min),
			zap.Uint32("req_max", req.Max),
			zap.Error(err))
		return 0, err
	}
	l.version.Store(v)
	l.negotiated.Store(true)
	Logger().Debug("negotiated",
		zap.String("layer", l.name),
		zap.Uint32("version", v))
	return v, nil
}

// Negotiated reports whether the handshake has completed.
func (l *Layer) Negotiated() bool { return l.negotiated.Load() }

// Version returns the negotiated interface version, 0 before negotiation.
func (l *Layer) Version() uint32 { return l.version.Load() }

// CreateContext forwards to the next link and, on success, builds the new
// context's dispatch table (every known name resolved exactly once through
// the next link), inserts the record and returns the handle. On failure the
// next link's error propagates unchanged and the registry is untouched.
func (l *Layer) CreateContext(info CreateInfo) (gflayers.Handle, error) {
	if !l.negotiated.Load() {
		return gflayers.NilHandle, errors.BadState(errors.PhaseCreate, "create before negotiation")
	}

	h, err := l.next.CreateContext(info)
	if err != nil {
		return gflayers.NilHandle, err
	}

	table := dispatch.Build(l.next.ResolveContextProc, h, dispatch.KnownNames())
	rec := registry.NewRecord(registry.RecordInfo{
		Handle: h,
		Level:  gflayers.LevelContext,
		Table:  table,
	})
	if err := l.reg.Insert(rec); err != nil {
		// Handle-value reuse violation upstream. Unwind the downstream
		// creation so nothing leaks, then report.
		if uerr := l.next.DestroyContext(h); uerr != nil {
			Logger().Warn("unwind destroy failed",
				zap.String("layer", l.name),
				zap.Uintptr("handle", uintptr(h)),
				zap.Error(uerr))
		}
		return gflayers.NilHandle, err
	}

	Logger().Debug("context created",
		zap.String("layer", l.name),
		zap.Uintptr("handle", uintptr(h)))
	return h, nil
}

// DestroyContext forwards to the next link first and removes the record
// only after the underlying destroy succeeds. A failed destroy leaves the
// record live: lookups keep succeeding and the handle stays resolvable.
func (l *Layer) DestroyContext(h gflayers.Handle) error {
	rec, err := l.reg.Lookup(h)
	if err != nil {
		// Unknown or already destroyed; forwarding it downstream would
		// hand the driver a dangling handle.
		return err
	}

	if n := rec.LiveChildren(); n > 0 {
		Logger().Warn("context destroyed before its children",
			zap.String("layer", l.name),
			zap.Uintptr("handle", uintptr(h)),
			zap.Int("live_children", n))
	}

	if err := l.next.DestroyContext(h); err != nil {
		return err
	}
	if _, err := l.reg.Remove(h); err != nil {
		return err
	}
	Logger().Debug("context destroyed",
		zap.String("layer", l.name),
		zap.Uintptr("handle", uintptr(h)))
	return nil
}

// CreateDevice forwards to the next link and, on success, builds the new
// device's table by re-resolving the parent table's slot names through the
// next link's device resolver. Slots therefore bind to the parent context's
// own chain and to nothing else.
func (l *Layer) CreateDevice(parent gflayers.Handle, info CreateInfo) (gflayers.Handle, error) {
	if !l.negotiated.Load() {
		return gflayers.NilHandle, errors.BadState(errors.PhaseCreate, "create before negotiation")
	}
	parentRec, err := l.reg.Lookup(parent)
	if err != nil {
		return gflayers.NilHandle, err
	}
	if parentRec.Level() != gflayers.LevelContext {
		return gflayers.NilHandle, errors.New(errors.PhaseCreate, errors.KindInvalidInput).
			Handle(parent).
			Detail("device parent must be a top-level context, got %s", parentRec.Level()).
			Build()
	}

	h, err := l.next.CreateDevice(parent, info)
	if err != nil {
		return gflayers.NilHandle, err
	}

	table := dispatch.Derive(parentRec.Table(), l.next.ResolveDeviceProc, h)
	rec := registry.NewRecord(registry.RecordInfo{
		Handle: h,
		Parent: parent,
		Level:  gflayers.LevelDevice,
		Table:  table,
	})
	if err := l.reg.Insert(rec); err != nil {
		if uerr := l.next.DestroyDevice(h); uerr != nil {
			Logger().Warn("unwind destroy failed",
				zap.String("layer", l.name),
				zap.Uintptr("handle", uintptr(h)),
				zap.Error(uerr))
		}
		return gflayers.NilHandle, err
	}

	Logger().Debug("device created",
		zap.String("layer", l.name),
		zap.Uintptr("handle", uintptr(h)),
		zap.Uintptr("parent", uintptr(parent)))
	return h, nil
}

// DestroyDevice mirrors DestroyContext one level down.
func (l *Layer) DestroyDevice(h gflayers.Handle) error {
	rec, err := l.reg.Lookup(h)
	if err != nil {
		return err
	}
	if rec.Level() != gflayers.LevelDevice {
		return errors.New(errors.PhaseDestroy, errors.KindInvalidInput).
			Handle(h).
			Detail("destroy_device on a %s handle", rec.Level()).
			Build()
	}

	if err := l.next.DestroyDevice(h); err != nil {
		return err
	}
	if _, err := l.reg.Remove(h); err != nil {
		return err
	}
	Logger().Debug("device destroyed",
		zap.String("layer", l.name),
		zap.Uintptr("handle", uintptr(h)))
	return nil
}

// ResolveContextProc implements the top-level resolver contract: the
// layer's own callable when it intercepts name at this level, otherwise the
// next link's pointer unchanged, or nil when unsupported anywhere. This is
// the hot path once per distinct symbol per consumer cache, not per call.
func (l *Layer) ResolveContextProc(h gflayers.Handle, name string) gflayers.Proc {
	base := l.protocolProc(name, gflayers.LevelContext)

	if base == nil {
		if !h.Valid() {
			// Global query: only protocol entry points exist before a
			// context does; everything else passes through.
			base = l.next.ResolveContextProc(h, name)
		} else {
			rec, err := l.reg.Lookup(h)
			if err != nil {
				Logger().Warn("resolve on dead handle",
					zap.String("layer", l.name),
					zap.Uintptr("handle", uintptr(h)),
					zap.String("func", name))
				return nil
			}
			base = l.cachedProc(rec, name, l.next.ResolveContextProc)
		}
	}

	return l.wrap(name, base)
}

// ResolveDeviceProc implements the same contract one level down, seeded
// from the table built when the device was created.
func (l *Layer) ResolveDeviceProc(h gflayers.Handle, name string) gflayers.Proc {
	base := l.protocolProc(name, gflayers.LevelDevice)

	if base == nil {
		rec, err := l.reg.Lookup(h)
		if err != nil {
			Logger().Warn("resolve on dead handle",
				zap.String("layer", l.name),
				zap.Uintptr("handle", uintptr(h)),
				zap.String("func", name))
			return nil
		}
		base = l.cachedProc(rec, name, l.next.ResolveDeviceProc)
	}

	return l.wrap(name, base)
}

// cachedProc returns the proc cached in the record's table, falling back to
// a live next-link resolution for names unknown to this layer's table but
// possibly known further down the chain.
func (l *Layer) cachedProc(rec *registry.Record, name string, fallback gflayers.ProcResolver) gflayers.Proc {
	if t := rec.Table(); t != nil && t.Has(name) {
		return t.Get(name)
	}
	return fallback(rec.Handle(), name)
}

// wrap applies a registered interceptor around base. Without one, base is
// returned as-is: identity pass-through.
func (l *Layer) wrap(name string, base gflayers.Proc) gflayers.Proc {
	ic := l.interceptor(name)
	if ic == nil {
		return base
	}
	return func(target gflayers.Handle, args []uint64) (uint64, error) {
		return ic(base, target, args)
	}
}

// protocolProc exposes the layer's own entry points by name, per the
// export contract: intercepted functions are reachable exclusively through
// the resolvers, never by link-time symbols.
func (l *Layer) protocolProc(name string, scope gflayers.Level) gflayers.Proc {
	switch name {
	case dispatch.NameNegotiateVersion:
		if scope != gflayers.LevelContext {
			return nil
		}
		return func(_ gflayers.Handle, args []uint64) (uint64, error) {
			if len(args) < 2 {
				return 0, errors.InvalidInput(errors.PhaseNegotiate, "negotiate_version needs min and max words")
			}
			v, err := l.Negotiate(VersionRange{Min: uint32(args[0]), Max: uint32(args[1])})
			return uint64(v), err
		}
	case dispatch.NameCreateContext:
		if scope != gflayers.LevelContext {
			return nil
		}
		return func(_ gflayers.Handle, args []uint64) (uint64, error) {
			var info CreateInfo
			if len(args) > 0 {
				info.Flags = args[0]
			}
			h, err := l.CreateContext(info)
			return uint64(h), err
		}
	case dispatch.NameDestroyContext:
		if scope != gflayers.LevelContext {
			return nil
		}
		return func(target gflayers.Handle, _ []uint64) (uint64, error) {
			return 0, l.DestroyContext(target)
		}
	case dispatch.NameCreateDevice:
		if scope != gflayers.LevelContext {
			return nil
		}
		return func(target gflayers.Handle, args []uint64) (uint64, error) {
			var info CreateInfo
			if len(args) > 0 {
				info.Flags = args[0]
			}
			h, err := l.CreateDevice(target, info)
			return uint64(h), err
		}
	case dispatch.NameDestroyDevice:
		// Reachable from both resolvers, like the underlying API allows.
		return func(target gflayers.Handle, _ []uint64) (uint64, error) {
			return 0, l.DestroyDevice(target)
		}
	}
	return nil
}
