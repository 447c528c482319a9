package chain

import (
	"github.com/afd/gf-layers/errors"
)

// Interface versions this build of the core speaks. The window widens only
// when a new protocol revision is actually implemented; anything outside it
// fails closed rather than being guessed at.
const (
	MinInterfaceVersion uint32 = 1
	MaxInterfaceVersion uint32 = 2
)

// VersionRange is the loader's requested interface-version window.
type VersionRange struct {
	Min uint32
	Max uint32
}

// negotiate returns the highest interface version inside both windows.
func negotiate(req VersionRange) (uint32, error) {
	if req.Min > req.Max {
		return 0, errors.InvalidInput(errors.PhaseNegotiate, "inverted version range")
	}
	if req.Max < MinInterfaceVersion || req.Min > MaxInterfaceVersion {
		return 0, errors.NegotiationFailed(req.Min, req.Max, MinInterfaceVersion, MaxInterfaceVersion)
	}
	v := MaxInterfaceVersion
	if req.Max < v {
		v = req.Max
	}
	return v, nil
}
