package manifest

import (
	"github.com/coreos/go-semver/semver"

	"github.com/afd/gf-layers/errors"
)

// View is what a loaded layer actually exposes: the identity the manifest's
// claims are checked against.
type View struct {
	Name                  string
	APIVersion            string
	ImplementationVersion string
	InterfaceMin          uint32
	InterfaceMax          uint32
	Functions             []string
}

// Verify checks that the manifest's claims are consistent with what the
// layer exposes. A loader acting on an inconsistent manifest would resolve
// functions the layer does not provide or negotiate a version it cannot
// speak, so any mismatch fails verification.
func (m *Manifest) Verify(v View) error {
	if err := m.Validate(); err != nil {
		return err
	}
	l := &m.Layer

	if l.Name != v.Name {
		return errors.New(errors.PhaseManifest, errors.KindInvalidManifest).
			Detail("manifest names %q but the layer is %q", l.Name, v.Name).
			Build()
	}

	if l.InterfaceVersion < v.InterfaceMin || l.InterfaceVersion > v.InterfaceMax {
		return errors.New(errors.PhaseManifest, errors.KindInvalidManifest).
			Detail("manifest interface_version %d outside the layer's window [%d, %d]",
				l.InterfaceVersion, v.InterfaceMin, v.InterfaceMax).
			Build()
	}

	if v.APIVersion != "" {
		claimed, err := semver.NewVersion(l.APIVersion)
		if err != nil {
			return errors.InvalidManifest("api_version is not a semantic version", err)
		}
		actual, err := semver.NewVersion(v.APIVersion)
		if err != nil {
			return errors.InvalidManifest("layer api version is not a semantic version", err)
		}
		if actual.LessThan(*claimed) {
			return errors.New(errors.PhaseManifest, errors.KindInvalidManifest).
				Detail("manifest claims API %s but the layer supports %s", claimed, actual).
				Build()
		}
	}

	exposed := make(map[string]struct{}, len(v.Functions))
	for _, fn := range v.Functions {
		exposed[fn] = struct{}{}
	}
	for _, fn := range l.Functions {
		if _, ok := exposed[fn]; !ok {
			return errors.New(errors.PhaseManifest, errors.KindInvalidManifest).
				Func(fn).
				Detail("manifest declares a function the layer does not expose").
				Build()
		}
	}
	return nil
}
