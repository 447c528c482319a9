package chain

import (
	gflayers "github.com/afd/gf-layers"
)

// CreateInfo carries the application's creation parameters. The framework
// forwards it to the next link unchanged and never interprets it.
type CreateInfo struct {
	AppName string
	Flags   uint64
}

// NextLink is the next element of the chain: another layer or the driver
// itself. Every operation of this interface executes synchronously on the
// calling thread and either completes or fails before returning.
type NextLink interface {
	// CreateContext creates a top-level context downstream.
	CreateContext(info CreateInfo) (gflayers.Handle, error)

	// DestroyContext destroys a top-level context downstream. An error
	// means the teardown did not happen and the handle remains usable.
	DestroyContext(h gflayers.Handle) error

	// CreateDevice creates a device-level context from a top-level one.
	CreateDevice(parent gflayers.Handle, info CreateInfo) (gflayers.Handle, error)

	// DestroyDevice destroys a device-level context.
	DestroyDevice(h gflayers.Handle) error

	// ResolveContextProc resolves name at top-level-context scope, or nil
	// when unsupported anywhere further down the chain.
	ResolveContextProc(h gflayers.Handle, name string) gflayers.Proc

	// ResolveDeviceProc resolves name at device scope; the returned proc
	// is bound to h's own chain, never another context's.
	ResolveDeviceProc(h gflayers.Handle, name string) gflayers.Proc
}
