package manifest

import (
	"encoding/json"
	"os"

	"github.com/coreos/go-semver/semver"

	"github.com/afd/gf-layers/errors"
)

// FileFormatVersion is the manifest format revision this package writes.
const FileFormatVersion = "1.1.0"

// Manifest is the loader-facing discovery file.
type Manifest struct {
	FileFormatVersion string `json:"file_format_version"`
	Layer             Layer  `json:"layer"`
}

// Layer is the declarative description of one interception layer.
type Layer struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description,omitempty"`
	LibraryPath           string   `json:"library_path"`
	APIVersion            string   `json:"api_version"`
	ImplementationVersion string   `json:"implementation_version"`
	InterfaceVersion      uint32   `json:"interface_version"`
	Functions             []string `json:"functions,omitempty"`
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.InvalidManifest("malformed manifest JSON", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidManifest("read manifest", err)
	}
	return Parse(data)
}

// Validate checks that the manifest is structurally complete: all required
// fields present, versions parseable as dotted triples.
func (m *Manifest) Validate() error {
	if _, err := semver.NewVersion(m.FileFormatVersion); err != nil {
		return errors.InvalidManifest("file_format_version is not a semantic version", err)
	}
	l := &m.Layer
	if l.Name == "" {
		return errors.InvalidManifest("layer name is required", nil)
	}
	if l.LibraryPath == "" {
		return errors.InvalidManifest("library_path is required", nil)
	}
	if _, err := semver.NewVersion(l.APIVersion); err != nil {
		return errors.InvalidManifest("api_version is not a semantic version", err)
	}
	if l.ImplementationVersion == "" {
		return errors.InvalidManifest("implementation_version is required", nil)
	}
	if l.InterfaceVersion == 0 {
		return errors.InvalidManifest("interface_version is required", nil)
	}
	for _, fn := range l.Functions {
		if fn == "" {
			return errors.InvalidManifest("empty function name in function list", nil)
		}
	}
	return nil
}

// Encode serializes the manifest as indented JSON.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.InvalidManifest("encode manifest", err)
	}
	return append(data, '\n'), nil
}

// Save validates and writes the manifest to path.
func (m *Manifest) Save(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.InvalidManifest("write manifest", err)
	}
	return nil
}
