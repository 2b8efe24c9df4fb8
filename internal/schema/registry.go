// Package schema tracks the record shapes observed in a business class's
// stream and buckets incoming records by schema version.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Registry maps a schema version id (a small stringified integer) to the
// ordered field set last seen for that version. Version "0" is reserved and
// always empty; real versions start at "1". Version ids are dense and
// assigned monotonically, so the same field set always maps to the same
// version within one run.
type Registry map[string][]string

// NewRegistry returns a registry holding only the reserved version.
func NewRegistry() Registry {
	return Registry{"0": {}}
}

// LoadRegistry reads a business class's schema registry file. A missing file
// is created with the reserved empty version so first runs and full resets
// behave identically.
func LoadRegistry(path string) (Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		reg := NewRegistry()
		if err := reg.Save(path); err != nil {
			return nil, err
		}
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema registry '%s': %w", path, err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse schema registry '%s': %w", path, err)
	}
	return reg, nil
}

// Save writes the registry to its file.
func (r Registry) Save(path string) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal schema registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write schema registry '%s': %w", path, err)
	}
	return nil
}

// Reset overwrites the registry file with the reserved empty version.
func Reset(path string) error {
	return NewRegistry().Save(path)
}

// Versions returns all version ids in ascending numeric order, including the
// reserved "0".
func (r Registry) Versions() []string {
	versions := make([]string, 0, len(r))
	for v := range r {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		a, _ := strconv.Atoi(versions[i])
		b, _ := strconv.Atoi(versions[j])
		return a < b
	})
	return versions
}

// DataVersions returns the version ids that carry data, stripping the
// reserved "0".
func (r Registry) DataVersions() []string {
	var versions []string
	for _, v := range r.Versions() {
		if v != "0" {
			versions = append(versions, v)
		}
	}
	return versions
}

// MaxVersion returns the highest numeric version id present.
func (r Registry) MaxVersion() int {
	max := 0
	for v := range r {
		if n, err := strconv.Atoi(v); err == nil && n > max {
			max = n
		}
	}
	return max
}

// Allocate registers a new field set under the next version id and returns
// that id.
func (r Registry) Allocate(fields []string) string {
	version := strconv.Itoa(r.MaxVersion() + 1)
	r[version] = fields
	return version
}
