package chain

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	gflayers "github.com/afd/gf-layers"
	"github.com/afd/gf-layers/dispatch"
	gferrors "github.com/afd/gf-layers/errors"
)

// fakeDriver is the bottom of the chain in tests. Each context gets its own
// stable proc values so resolver identity can be checked with reflect.
type fakeDriver struct {
	mu        sync.Mutex
	nextH     gflayers.Handle
	contexts  map[gflayers.Handle]*driverContext
	devices   map[gflayers.Handle]gflayers.Handle // device -> owning context
	supported []string

	failCreateCtx error
	failCreateDev error
	failDestroy   map[gflayers.Handle]error
}

type driverContext struct {
	procs map[string]gflayers.Proc
}

func newFakeDriver(supported ...string) *fakeDriver {
	return &fakeDriver{
		contexts:    make(map[gflayers.Handle]*driverContext),
		devices:     make(map[gflayers.Handle]gflayers.Handle),
		supported:   supported,
		failDestroy: make(map[gflayers.Handle]error),
	}
}

func (d *fakeDriver) CreateContext(info CreateInfo) (gflayers.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreateCtx != nil {
		return gflayers.NilHandle, d.failCreateCtx
	}
	d.nextH++
	h := d.nextH
	// Salt results per context so tests can tell which context's chain a
	// proc is bound to; closures share code pointers, so reflect-based
	// identity alone cannot.
	salt := uint64(h) * 1_000_000
	dc := &driverContext{procs: make(map[string]gflayers.Proc)}
	for _, name := range d.supported {
		name := name
		dc.procs[name] = func(target gflayers.Handle, args []uint64) (uint64, error) {
			var sum uint64
			for _, a := range args {
				sum += a
			}
			return sum + uint64(len(name)) + salt, nil
		}
	}
	d.contexts[h] = dc
	return h, nil
}

func (d *fakeDriver) DestroyContext(h gflayers.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failDestroy[h]; err != nil {
		return err
	}
	if _, ok := d.contexts[h]; !ok {
		return gflayers.ErrUnknown
	}
	delete(d.contexts, h)
	return nil
}

func (d *fakeDriver) CreateDevice(parent gflayers.Handle, info CreateInfo) (gflayers.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreateDev != nil {
		return gflayers.NilHandle, d.failCreateDev
	}
	if _, ok := d.contexts[parent]; !ok {
		return gflayers.NilHandle, gflayers.ErrUnknown
	}
	d.nextH++
	h := d.nextH
	d.devices[h] = parent
	return h, nil
}

func (d *fakeDriver) DestroyDevice(h gflayers.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failDestroy[h]; err != nil {
		return err
	}
	if _, ok := d.devices[h]; !ok {
		return gflayers.ErrUnknown
	}
	delete(d.devices, h)
	return nil
}

func (d *fakeDriver) ResolveContextProc(h gflayers.Handle, name string) gflayers.Proc {
	d.mu.Lock()
	defer d.mu.Unlock()
	dc, ok := d.contexts[h]
	if !ok {
		return nil
	}
	return dc.procs[name]
}

func (d *fakeDriver) ResolveDeviceProc(h gflayers.Handle, name string) gflayers.Proc {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, ok := d.devices[h]
	if !ok {
		return nil
	}
	dc, ok := d.contexts[ctx]
	if !ok {
		return nil
	}
	return dc.procs[name]
}

// driverProc returns the driver's own proc value for identity comparisons.
func (d *fakeDriver) driverProc(ctx gflayers.Handle, name string) gflayers.Proc {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.contexts[ctx].procs[name]
}

func procPtr(p gflayers.Proc) uintptr {
	return reflect.ValueOf(p).Pointer()
}

func negotiated(t *testing.T, next NextLink, opts Options) *Layer {
	t.Helper()
	l, err := New(next, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := l.Negotiate(VersionRange{Min: MinInterfaceVersion, Max: MaxInterfaceVersion}); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	return l
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name    string
		req     VersionRange
		want    uint32
		wantErr bool
	}{
		{"exact window", VersionRange{MinInterfaceVersion, MaxInterfaceVersion}, MaxInterfaceVersion, false},
		{"loader ahead", VersionRange{1, 99}, MaxInterfaceVersion, false},
		{"loader behind, overlapping", VersionRange{0, 1}, 1, false},
		{"below window", VersionRange{0, 0}, 0, true},
		{"above window", VersionRange{MaxInterfaceVersion + 1, MaxInterfaceVersion + 5}, 0, true},
		{"inverted", VersionRange{2, 1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(newFakeDriver(), Options{Name: "test"})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got, err := l.Negotiate(tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Negotiate = %d, want error", got)
				}
				if l.Negotiated() {
					t.Fatal("failed negotiation must not mark the layer negotiated")
				}
				return
			}
			if err != nil {
				t.Fatalf("Negotiate: %v", err)
			}
			if got != tt.want || l.Version() != tt.want {
				t.Fatalf("Negotiate = %d (Version %d), want %d", got, l.Version(), tt.want)
			}
		})
	}
}

func TestCreateBeforeNegotiate(t *testing.T) {
	l, _ := New(newFakeDriver(), Options{})
	_, err := l.CreateContext(CreateInfo{})
	if !errors.Is(err, &gferrors.Error{Phase: gferrors.PhaseCreate, Kind: gferrors.KindBadState}) {
		t.Fatalf("CreateContext before negotiation = %v, want BadState", err)
	}
}

func TestCreateContext_FailurePropagatesUnchanged(t *testing.T) {
	drv := newFakeDriver()
	drv.failCreateCtx = gflayers.ErrOutOfMemory
	l := negotiated(t, drv, Options{})

	_, err := l.CreateContext(CreateInfo{})
	if err != gflayers.ErrOutOfMemory {
		t.Fatalf("error = %v, want the next link's error unchanged", err)
	}
	if l.Registry().Len() != 0 {
		t.Fatal("failed create must not mutate the registry")
	}
}

func TestDestroyContext_FailureLeavesRecordLive(t *testing.T) {
	drv := newFakeDriver()
	l := negotiated(t, drv, Options{})

	h, err := l.CreateContext(CreateInfo{})
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}

	drv.failDestroy[h] = gflayers.ErrUnknown
	if err := l.DestroyContext(h); err != gflayers.ErrUnknown {
		t.Fatalf("DestroyContext = %v, want the next link's error unchanged", err)
	}

	// The record stays valid and resolvable after a failed teardown.
	if _, err := l.Registry().Lookup(h); err != nil {
		t.Fatalf("Lookup after failed destroy: %v", err)
	}

	delete(drv.failDestroy, h)
	if err := l.DestroyContext(h); err != nil {
		t.Fatalf("retried DestroyContext: %v", err)
	}
	if _, err := l.Registry().Lookup(h); err == nil {
		t.Fatal("record reachable after successful destroy")
	}
}

func TestDestroy_RejectsDeadHandle(t *testing.T) {
	l := negotiated(t, newFakeDriver(), Options{})

	h, _ := l.CreateContext(CreateInfo{})
	if err := l.DestroyContext(h); err != nil {
		t.Fatalf("DestroyContext: %v", err)
	}

	err := l.DestroyContext(h)
	if !errors.Is(err, &gferrors.Error{Phase: gferrors.PhaseRegistry, Kind: gferrors.KindUnknownHandle}) {
		t.Fatalf("second DestroyContext = %v, want UnknownHandle", err)
	}
}

func TestResolve_PassThroughIdentity(t *testing.T) {
	drv := newFakeDriver("submit_work", "present")
	dispatch.RegisterNames("submit_work", "present")
	l := negotiated(t, drv, Options{})

	h, _ := l.CreateContext(CreateInfo{})

	// No interceptor registered: the resolver must hand back the next
	// link's pointer unchanged.
	got := l.ResolveContextProc(h, "submit_work")
	want := drv.driverProc(h, "submit_work")
	if got == nil || procPtr(got) != procPtr(want) {
		t.Fatal("pass-through must return the next link's proc unchanged")
	}

	// Unsupported anywhere in the chain: nil.
	if l.ResolveContextProc(h, "no_such_op") != nil {
		t.Fatal("unsupported name must resolve to nil")
	}
}

func TestResolve_NameKnownOnlyDownstream(t *testing.T) {
	// The driver supports a name this layer never registered; tables have
	// no slot for it, so resolution falls through to the live next link.
	drv := newFakeDriver("vendor_secret_op")
	l := negotiated(t, drv, Options{})

	h, _ := l.CreateContext(CreateInfo{})
	got := l.ResolveContextProc(h, "vendor_secret_op")
	want := drv.driverProc(h, "vendor_secret_op")
	if got == nil || procPtr(got) != procPtr(want) {
		t.Fatal("downstream-only name must pass through unchanged")
	}
}

func TestResolve_Interceptor(t *testing.T) {
	drv := newFakeDriver("present")
	dispatch.RegisterNames("present")

	var observed int
	l := negotiated(t, drv, Options{
		Name: "counter",
		Interceptors: map[string]Interceptor{
			"present": func(next gflayers.Proc, target gflayers.Handle, args []uint64) (uint64, error) {
				observed++
				return next(target, args)
			},
		},
	})

	h, _ := l.CreateContext(CreateInfo{})
	p := l.ResolveContextProc(h, "present")
	if p == nil {
		t.Fatal("intercepted name must resolve")
	}

	res, err := p(h, []uint64{10})
	if err != nil {
		t.Fatalf("intercepted call: %v", err)
	}
	want, err := drv.driverProc(h, "present")(h, []uint64{10})
	if err != nil || res != want {
		t.Fatalf("result = %d, want %d forwarded unchanged", res, want)
	}
	if observed != 1 {
		t.Fatalf("interceptor ran %d times, want 1", observed)
	}
}

func TestIntercept_ClosedAfterNegotiation(t *testing.T) {
	l := negotiated(t, newFakeDriver(), Options{})
	err := l.Intercept("late_op", func(next gflayers.Proc, h gflayers.Handle, a []uint64) (uint64, error) {
		return 0, nil
	})
	if !errors.Is(err, &gferrors.Error{Phase: gferrors.PhaseResolve, Kind: gferrors.KindBadState}) {
		t.Fatalf("late Intercept = %v, want BadState", err)
	}
}

func TestDevice_BindsToOwnContextChain(t *testing.T) {
	drv := newFakeDriver("submit_work")
	dispatch.RegisterNames("submit_work")
	l := negotiated(t, drv, Options{})

	ctxA, _ := l.CreateContext(CreateInfo{})
	ctxB, _ := l.CreateContext(CreateInfo{})
	devA, err := l.CreateDevice(ctxA, CreateInfo{})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	got := l.ResolveDeviceProc(devA, "submit_work")
	if got == nil {
		t.Fatal("resolve submit_work on device failed")
	}
	res, err := got(devA, nil)
	if err != nil {
		t.Fatalf("submit_work: %v", err)
	}
	wantA, _ := drv.driverProc(ctxA, "submit_work")(devA, nil)
	wantB, _ := drv.driverProc(ctxB, "submit_work")(devA, nil)
	if res != wantA {
		t.Fatalf("device call = %d, want %d from its own context's chain", res, wantA)
	}
	if res == wantB {
		t.Fatal("device resolved through a foreign context's chain")
	}
}

func TestCreateDevice_ParentValidation(t *testing.T) {
	l := negotiated(t, newFakeDriver(), Options{})

	if _, err := l.CreateDevice(999, CreateInfo{}); err == nil {
		t.Fatal("CreateDevice from unknown parent should fail before touching the next link")
	}

	ctx, _ := l.CreateContext(CreateInfo{})
	dev, _ := l.CreateDevice(ctx, CreateInfo{})
	if _, err := l.CreateDevice(dev, CreateInfo{}); err == nil {
		t.Fatal("CreateDevice from a device handle should fail")
	}
}

func TestProtocolProcsReachableByName(t *testing.T) {
	l := negotiated(t, newFakeDriver(), Options{})

	create := l.ResolveContextProc(gflayers.NilHandle, dispatch.NameCreateContext)
	if create == nil {
		t.Fatal("create_context must be reachable through the resolver")
	}
	word, err := create(gflayers.NilHandle, nil)
	if err != nil {
		t.Fatalf("create via resolver: %v", err)
	}
	h := gflayers.Handle(word)
	if _, err := l.Registry().Lookup(h); err != nil {
		t.Fatalf("created context not registered: %v", err)
	}

	destroy := l.ResolveContextProc(h, dispatch.NameDestroyContext)
	if destroy == nil {
		t.Fatal("destroy_context must be reachable through the resolver")
	}
	if _, err := destroy(h, nil); err != nil {
		t.Fatalf("destroy via resolver: %v", err)
	}
	if l.Registry().Len() != 0 {
		t.Fatal("registry not empty after destroy")
	}
}

func TestLayersStack(t *testing.T) {
	drv := newFakeDriver("present")
	dispatch.RegisterNames("present")

	bottom := negotiated(t, drv, Options{Name: "bottom"})
	top := negotiated(t, bottom, Options{Name: "top"})

	h, err := top.CreateContext(CreateInfo{})
	if err != nil {
		t.Fatalf("CreateContext through stack: %v", err)
	}
	// Both links keep their own record for the same handle.
	if _, err := top.Registry().Lookup(h); err != nil {
		t.Fatalf("top registry: %v", err)
	}
	if _, err := bottom.Registry().Lookup(h); err != nil {
		t.Fatalf("bottom registry: %v", err)
	}

	p := top.ResolveContextProc(h, "present")
	if p == nil {
		t.Fatal("resolve through two links failed")
	}
	res, err := p(h, nil)
	if err != nil {
		t.Fatalf("call through stack: %v", err)
	}
	want, _ := drv.driverProc(h, "present")(h, nil)
	if res != want {
		t.Fatalf("call through stack = %d, want %d unchanged from the driver", res, want)
	}

	if err := top.DestroyContext(h); err != nil {
		t.Fatalf("DestroyContext through stack: %v", err)
	}
	if top.Registry().Len() != 0 || bottom.Registry().Len() != 0 {
		t.Fatal("stacked registries not empty after destroy")
	}
}

func TestConcurrentContextCreation(t *testing.T) {
	drv := newFakeDriver()
	l := negotiated(t, drv, Options{})

	const n = 32
	handles := make([]gflayers.Handle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := l.CreateContext(CreateInfo{})
			if err != nil {
				t.Errorf("CreateContext: %v", err)
				return
			}
			l.Registry().Lookup(h) // must not race
			handles[i] = h
		}(i)
	}
	wg.Wait()

	if l.Registry().Len() != n {
		t.Fatalf("live contexts = %d, want %d", l.Registry().Len(), n)
	}
	seen := make(map[gflayers.Handle]bool, n)
	for _, h := range handles {
		if seen[h] {
			t.Fatalf("duplicate handle %d", h)
		}
		seen[h] = true
		rec, err := l.Registry().Lookup(h)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", h, err)
		}
		rec.SetPayload(uintptr(h))
	}
	for _, h := range handles {
		rec, _ := l.Registry().Lookup(h)
		if rec.Payload() != uintptr(h) {
			t.Fatalf("payload of %d = %v", h, rec.Payload())
		}
	}
}

// End-to-end scenario: negotiate, create context A, create device D from A,
// call an unintercepted function on D, destroy D, destroy A, registry empty.
func TestEndToEnd_PassThroughLayer(t *testing.T) {
	drv := newFakeDriver("submit_work")
	dispatch.RegisterNames("submit_work")

	l, err := New(drv, Options{Name: "passthrough"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := l.Negotiate(VersionRange{Min: 1, Max: 2}); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}

	ctx, err := l.CreateContext(CreateInfo{AppName: "demo"})
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	dev, err := l.CreateDevice(ctx, CreateInfo{})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	f := l.ResolveDeviceProc(dev, "submit_work")
	if f == nil {
		t.Fatal("resolve submit_work on device failed")
	}
	if procPtr(f) != procPtr(drv.driverProc(ctx, "submit_work")) {
		t.Fatal("pass-through layer must expose exactly the driver's proc")
	}
	res, err := f(dev, []uint64{1, 2, 3})
	if err != nil {
		t.Fatalf("submit_work: %v", err)
	}
	want, _ := drv.driverProc(ctx, "submit_work")(dev, []uint64{1, 2, 3})
	if res != want {
		t.Fatalf("result = %d, want %d unchanged from the driver", res, want)
	}

	if err := l.DestroyDevice(dev); err != nil {
		t.Fatalf("DestroyDevice: %v", err)
	}
	if err := l.DestroyContext(ctx); err != nil {
		t.Fatalf("DestroyContext: %v", err)
	}
	if l.Registry().Len() != 0 {
		t.Fatalf("registry holds %d records after teardown, want 0", l.Registry().Len())
	}
}
