package dispatch

import (
	gflayers "github.com/afd/gf-layers"
)

// Table is an immutable set of named entry-point slots resolved through the
// next link in the chain. A nil slot means the name is unsupported further
// down the chain.
type Table struct {
	procs map[string]gflayers.Proc
	names []string // slot order as given to Build
}

// Build populates a table for the object identified by target by asking
// next for every name, exactly once per name. Build is pure: no I/O, no
// locking, allocation bounded by len(names). Publishing the finished table
// is the caller's concern (it is inserted into the registry together with
// the new record).
func Build(next gflayers.ProcResolver, target gflayers.Handle, names []string) *Table {
	t := &Table{
		procs: make(map[string]gflayers.Proc, len(names)),
		names: make([]string, 0, len(names)),
	}
	for _, name := range names {
		if _, dup := t.procs[name]; dup {
			continue
		}
		t.procs[name] = next(target, name)
		t.names = append(t.names, name)
	}
	return t
}

// Derive builds a table one level down, resolving every slot name of the
// parent table through resolve against the new object. Used when a device
// is created from a context: the device's slots come from the parent's
// already-built chain, never from another context.
func Derive(parent *Table, resolve gflayers.ProcResolver, target gflayers.Handle) *Table {
	return Build(resolve, target, parent.names)
}

// Get returns the resolved proc for name, or nil when the slot is empty or
// the name has no slot at all.
func (t *Table) Get(name string) gflayers.Proc {
	return t.procs[name]
}

// Supported reports whether name resolved to a callable proc.
func (t *Table) Supported(name string) bool {
	return t.procs[name] != nil
}

// Has reports whether the table carries a slot for name, supported or not.
func (t *Table) Has(name string) bool {
	_, ok := t.procs[name]
	return ok
}

// Names returns a copy of the slot names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of slots.
func (t *Table) Len() int { return len(t.names) }

// SupportedLen returns the number of slots that resolved to a callable.
func (t *Table) SupportedLen() int {
	n := 0
	for _, p := range t.procs {
		if p != nil {
			n++
		}
	}
	return n
}
