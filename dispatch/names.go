package dispatch

import (
	"sort"
	"sync"
)

// Core entry-point names every link in a chain understands. All other
// names reach the framework through RegisterNames.
const (
	NameNegotiateVersion  = "negotiate_version"
	NameGetProcAddr       = "get_proc_addr"
	NameGetDeviceProcAddr = "get_device_proc_addr"
	NameCreateContext     = "create_context"
	NameDestroyContext    = "destroy_context"
	NameCreateDevice      = "create_device"
	NameDestroyDevice     = "destroy_device"
)

// coreNames is the fixed protocol set, in negotiation order.
var coreNames = []string{
	NameNegotiateVersion,
	NameGetProcAddr,
	NameGetDeviceProcAddr,
	NameCreateContext,
	NameDestroyContext,
	NameCreateDevice,
	NameDestroyDevice,
}

// registered holds extension names added by concrete layers, typically from
// init() or before negotiation.
var (
	registeredMu sync.RWMutex
	registered   = make(map[string]struct{})
)

// RegisterNames adds function names to the framework's known set. Tables
// built afterwards will carry a slot per registered name. Registering a
// name twice is harmless.
func RegisterNames(names ...string) {
	registeredMu.Lock()
	defer registeredMu.Unlock()
	for _, n := range names {
		if n == "" {
			continue
		}
		registered[n] = struct{}{}
	}
}

// IsKnown reports whether name is in the core set or was registered.
func IsKnown(name string) bool {
	for _, n := range coreNames {
		if n == name {
			return true
		}
	}
	registeredMu.RLock()
	defer registeredMu.RUnlock()
	_, ok := registered[name]
	return ok
}

// KnownNames returns the core protocol names followed by the registered
// extension names in sorted order. The slice is a copy.
func KnownNames() []string {
	registeredMu.RLock()
	ext := make([]string, 0, len(registered))
	for n := range registered {
		ext = append(ext, n)
	}
	registeredMu.RUnlock()

	sort.Strings(ext)
	out := make([]string, 0, len(coreNames)+len(ext))
	out = append(out, coreNames...)
	return append(out, ext...)
}
