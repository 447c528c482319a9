package registry

import (
	"sync/atomic"

	gflayers "github.com/afd/gf-layers"
	"github.com/afd/gf-layers/container"
	"github.com/afd/gf-layers/dispatch"
)

// RecordInfo describes a record at creation time.
type RecordInfo struct {
	// Payload is the layer-private blob attached to the record. The core
	// never interprets it.
	Payload any

	// Table is the dispatch table the new object owns. Required for
	// table-owning levels, nil otherwise.
	Table *dispatch.Table

	// ParentTable is the borrowed table of the creating parent, for levels
	// that dispatch through it. The record never owns this table.
	ParentTable *dispatch.Table

	Handle gflayers.Handle
	Parent gflayers.Handle
	Level  gflayers.Level
}

// Record is the per-handle bookkeeping unit. One exists per live handle;
// it is owned exclusively by the Registry that holds it.
type Record struct {
	payload atomic.Value // payloadBox

	table       *dispatch.Table // owned; destroyed with the record
	parentTable *dispatch.Table // borrowed from the creating parent

	handle gflayers.Handle
	parent gflayers.Handle
	level  gflayers.Level

	liveChildren atomic.Int32

	elem container.Elem[*Record] // per-level enumeration linkage
}

// payloadBox wraps payloads so atomic.Value accepts differing concrete
// types, including nil.
type payloadBox struct{ v any }

// NewRecord builds a record from info. The dispatch table reference is
// fixed for the record's lifetime: tables are fully populated at creation
// and immutable afterwards.
func NewRecord(info RecordInfo) *Record {
	r := &Record{
		table:       info.Table,
		parentTable: info.ParentTable,
		handle:      info.Handle,
		parent:      info.Parent,
		level:       info.Level,
	}
	r.elem.Value = r
	r.payload.Store(payloadBox{info.Payload})
	return r
}

// Handle returns the handle value this record tracks.
func (r *Record) Handle() gflayers.Handle { return r.handle }

// Level returns the record's object level.
func (r *Record) Level() gflayers.Level { return r.level }

// Parent returns the creating parent's handle, or NilHandle for top-level
// contexts.
func (r *Record) Parent() gflayers.Handle { return r.parent }

// Table returns the dispatch table calls on this object go through: the
// owned table for table-owning levels, the borrowed parent table otherwise,
// nil for non-dispatchable records.
func (r *Record) Table() *dispatch.Table {
	if r.table != nil {
		return r.table
	}
	return r.parentTable
}

// OwnsTable reports whether the record owns its table.
func (r *Record) OwnsTable() bool { return r.table != nil }

// Payload returns the layer-private blob.
func (r *Record) Payload() any {
	return r.payload.Load().(payloadBox).v
}

// SetPayload replaces the layer-private blob. Concurrent SetPayload on the
// same handle is a caller contract violation upstream, mirroring the
// underlying API's per-handle discipline; distinct handles may race freely.
func (r *Record) SetPayload(v any) {
	r.payload.Store(payloadBox{v})
}

// LiveChildren returns the debug count of live records created from this
// one. Maintained by the registry; see the destruction-ordering note in
// the package chain.
func (r *Record) LiveChildren() int {
	return int(r.liveChildren.Load())
}
