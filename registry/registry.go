package registry

import (
	"sync"

	"go.uber.org/zap"

	gflayers "github.com/afd/gf-layers"
	"github.com/afd/gf-layers/container"
	"github.com/afd/gf-layers/errors"
)

// EventType enumerates record lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDestroyed
)

// Event describes a record lifecycle transition.
type Event struct {
	Record *Record
	Handle gflayers.Handle
	Level  gflayers.Level
	Type   EventType
}

// Observer receives record lifecycle events, synchronously on the thread
// performing the mutation.
type Observer interface {
	OnRecordEvent(Event)
}

const levelCount = int(gflayers.LevelResource) + 1

// Registry owns the full set of live object records.
type Registry struct {
	records *container.ShardedMap[gflayers.Handle, *Record]

	// tombstones remembers destroyed handle values so a second destroy can
	// be reported as such rather than as a plain unknown handle. An entry
	// is cleared when the creator legitimately reuses the value.
	tombstones *container.ShardedMap[gflayers.Handle, struct{}]

	levels [levelCount]levelList

	observers []Observer
	obsMu     sync.RWMutex
}

// levelList guards the per-level intrusive list; the mutex provides the
// external exclusion the container contract demands.
type levelList struct {
	mu   sync.Mutex
	list container.List[*Record]
}

func handleHash(h gflayers.Handle) uint64 {
	return container.HandleHasher(uintptr(h))
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		records:    container.NewShardedMap[gflayers.Handle, *Record](handleHash),
		tombstones: container.NewShardedMap[gflayers.Handle, struct{}](handleHash),
	}
}

// Insert registers rec under its handle. It fails with a DuplicateHandle
// error if the handle is already live, leaving the registry unchanged.
func (g *Registry) Insert(rec *Record) error {
	h := rec.Handle()
	if !h.Valid() {
		return errors.InvalidInput(errors.PhaseRegistry, "nil handle")
	}

	if !g.records.Insert(h, rec) {
		err := errors.DuplicateHandle(h)
		Logger().Warn("insert rejected",
			zap.Uintptr("handle", uintptr(h)),
			zap.Stringer("level", rec.Level()))
		return err
	}
	g.tombstones.Delete(h)

	ll := &g.levels[rec.Level()]
	ll.mu.Lock()
	ll.list.PushBack(&rec.elem)
	ll.mu.Unlock()

	if rec.Parent().Valid() {
		if parent, ok := g.records.Get(rec.Parent()); ok {
			parent.liveChildren.Add(1)
		}
	}

	g.notify(Event{Type: EventCreated, Handle: h, Level: rec.Level(), Record: rec})
	return nil
}

// Lookup returns the live record for h. An unknown or already-destroyed
// handle yields an UnknownHandle error; the underlying API forbids using
// destroyed handles, so this path only serves defensive diagnostics.
func (g *Registry) Lookup(h gflayers.Handle) (*Record, error) {
	rec, ok := g.records.Get(h)
	if !ok {
		return nil, errors.UnknownHandle(errors.PhaseRegistry, h)
	}
	return rec, nil
}

// Remove erases the record for h and returns it. The record's owned table
// dies with it; nothing keeps the record reachable once Remove returns.
// A second removal before a new create reports DoubleDestroy.
func (g *Registry) Remove(h gflayers.Handle) (*Record, error) {
	rec, ok := g.records.Delete(h)
	if !ok {
		if _, dead := g.tombstones.Get(h); dead {
			Logger().Warn("double destroy", zap.Uintptr("handle", uintptr(h)))
			return nil, errors.DoubleDestroy(h)
		}
		return nil, errors.UnknownHandle(errors.PhaseDestroy, h)
	}
	g.tombstones.Insert(h, struct{}{})

	ll := &g.levels[rec.Level()]
	ll.mu.Lock()
	ll.list.Remove(&rec.elem)
	ll.mu.Unlock()

	if rec.Parent().Valid() {
		if parent, ok := g.records.Get(rec.Parent()); ok {
			parent.liveChildren.Add(-1)
		}
	}

	g.notify(Event{Type: EventDestroyed, Handle: h, Level: rec.Level(), Record: rec})
	return rec, nil
}

// Len returns the number of live records.
func (g *Registry) Len() int { return g.records.Len() }

// EachAtLevel walks every live record at level in creation order, calling
// fn until it returns false. The walk excludes concurrent insert/remove at
// that level for its duration, giving callers the consistent snapshot the
// container itself does not promise. fn must not mutate the registry.
func (g *Registry) EachAtLevel(level gflayers.Level, fn func(*Record) bool) {
	ll := &g.levels[level]
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.list.Each(fn)
}

// LenAtLevel returns the number of live records at level.
func (g *Registry) LenAtLevel(level gflayers.Level) int {
	ll := &g.levels[level]
	ll.mu.Lock()
	defer ll.mu.Unlock()
	return ll.list.Len()
}

// Subscribe adds an observer for record lifecycle events.
func (g *Registry) Subscribe(o Observer) {
	g.obsMu.Lock()
	defer g.obsMu.Unlock()
	g.observers = append(g.observers, o)
}

// Unsubscribe removes an observer.
func (g *Registry) Unsubscribe(o Observer) {
	g.obsMu.Lock()
	defer g.obsMu.Unlock()
	for i, obs := range g.observers {
		if obs == o {
			g.observers = append(g.observers[:i], g.observers[i+1:]...)
			return
		}
	}
}

func (g *Registry) notify(e Event) {
	g.obsMu.RLock()
	defer g.obsMu.RUnlock()
	for _, o := range g.observers {
		o.OnRecordEvent(e)
	}
}
