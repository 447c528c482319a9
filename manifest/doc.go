// Package manifest reads and writes the discovery manifest an external
// loader consults before it loads a layer: a small JSON file declaring the
// layer's name, supported API version, implementation version, library
// path, loader interface version and exported function set.
//
// The JSON format is fixed by the loader ecosystem; this package only
// enforces that a manifest is well-formed and that its claims stay
// consistent with what the layer actually negotiates and resolves
// (Verify). Manifest generation and installation paths belong to external
// tooling.
package manifest
