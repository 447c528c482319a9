package layer

import (
	gflayers "github.com/afd/gf-layers"
	"github.com/afd/gf-layers/chain"
	"github.com/afd/gf-layers/dispatch"
	"github.com/afd/gf-layers/errors"
	"github.com/afd/gf-layers/manifest"
	"github.com/afd/gf-layers/registry"
)

// Options configures a concrete layer.
type Options struct {
	// Name is the layer's identity, matching its discovery manifest.
	Name string

	// APIVersion is the dotted-triple version of the underlying API the
	// layer claims to support, e.g. "1.2.0". Used for manifest checks.
	APIVersion string

	// ImplementationVersion is the layer's own version string.
	ImplementationVersion string

	// Interceptors seeds the intercepted-name set.
	Interceptors map[string]chain.Interceptor
}

// Layer wraps a chain.Layer with the consumer conveniences concrete layers
// need. All chain entry points are promoted unchanged.
type Layer struct {
	*chain.Layer
	opts Options
}

// New creates a concrete layer in front of next.
func New(next chain.NextLink, opts Options) (*Layer, error) {
	cl, err := chain.New(next, chain.Options{
		Name:         opts.Name,
		Interceptors: opts.Interceptors,
	})
	if err != nil {
		return nil, err
	}
	return &Layer{Layer: cl, opts: opts}, nil
}

// Payload returns the private blob attached to h's record.
func (l *Layer) Payload(h gflayers.Handle) (any, error) {
	rec, err := l.Registry().Lookup(h)
	if err != nil {
		return nil, err
	}
	return rec.Payload(), nil
}

// SetPayload attaches a private blob to h's record. The per-handle call
// discipline the underlying API demands of applications covers payload
// access too; distinct handles may be written concurrently.
func (l *Layer) SetPayload(h gflayers.Handle, v any) error {
	rec, err := l.Registry().Lookup(h)
	if err != nil {
		return err
	}
	rec.SetPayload(v)
	return nil
}

// PayloadAs returns h's payload typed as T.
func PayloadAs[T any](l *Layer, h gflayers.Handle) (T, error) {
	var zero T
	v, err := l.Payload(h)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.PhaseRegistry, errors.KindInvalidInput).
			Handle(h).
			Detail("payload is %T", v).
			Build()
	}
	return t, nil
}

// Snapshot returns the handles of every live record at level, in creation
// order. Mutation at that level is excluded for the duration of the
// collection, so the result is a consistent snapshot.
func (l *Layer) Snapshot(level gflayers.Level) []gflayers.Handle {
	var out []gflayers.Handle
	l.Registry().EachAtLevel(level, func(r *registry.Record) bool {
		out = append(out, r.Handle())
		return true
	})
	return out
}

// EachLive walks the live records at level, passing each handle and its
// payload to fn until fn returns false. fn must not create or destroy
// records at the same level.
func (l *Layer) EachLive(level gflayers.Level, fn func(h gflayers.Handle, payload any) bool) {
	l.Registry().EachAtLevel(level, func(r *registry.Record) bool {
		return fn(r.Handle(), r.Payload())
	})
}

// View reports the layer's identity the way its discovery manifest must
// claim it: name, versions, interface window and full function set. The
// function list is the framework's known set, which includes everything
// this layer registered for interception.
func (l *Layer) View() manifest.View {
	return manifest.View{
		Name:                  l.Name(),
		APIVersion:            l.opts.APIVersion,
		ImplementationVersion: l.opts.ImplementationVersion,
		InterfaceMin:          chain.MinInterfaceVersion,
		InterfaceMax:          chain.MaxInterfaceVersion,
		Functions:             dispatch.KnownNames(),
	}
}
