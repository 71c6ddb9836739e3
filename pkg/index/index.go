// Package index loads, caches and queries the remote package index: the
// mapping from package name to its available versions and their
// metadata. The index is read-only during operations; Refresh atomically
// replaces the on-disk cache.
package index

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/version"
)

// Document is the top-level index schema.
type Document struct {
	Packages map[string]*Entry `yaml:"packages" validate:"required,dive"`
}

// Entry describes one package and its ordered available versions.
type Entry struct {
	Author      string    `yaml:"author"`
	License     string    `yaml:"license"`
	Description string    `yaml:"description"`
	Versions    []*Record `yaml:"versions" validate:"required,min=1,dive"`
}

// Record is one published version of a package.
type Record struct {
	Version string `yaml:"version" validate:"required"`

	// URL locates the artifact archive.
	URL string `yaml:"url" validate:"required"`

	// SHA256 is the artifact digest in lowercase hex; optional.
	SHA256 string `yaml:"sha256,omitempty"`

	// Dependencies maps package name to requirement string.
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
}

var validate = validator.New()

// Parse decodes and validates an index document. Version strings must be
// unique within each entry.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, operr.NewError(operr.KindIndexLoad, "parsing index", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, operr.NewError(operr.KindIndexLoad, "invalid index document", err)
	}
	for name, entry := range doc.Packages {
		seen := make(map[string]struct{}, len(entry.Versions))
		for _, rec := range entry.Versions {
			if _, dup := seen[rec.Version]; dup {
				return nil, operr.NewError(operr.KindIndexLoad,
					fmt.Sprintf("duplicate version %s for package %s", rec.Version, name), nil)
			}
			seen[rec.Version] = struct{}{}
		}
	}
	return &doc, nil
}

// LoadFile reads the index cache from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, operr.NewError(operr.KindIndexLoad,
			"cannot read index cache "+path+" (run refresh first)", err)
	}
	return Parse(data)
}

// Entry returns the package entry, or a PackageNotFound error.
func (d *Document) Entry(name string) (*Entry, error) {
	e, ok := d.Packages[name]
	if !ok {
		return nil, operr.NewError(operr.KindPackageNotFound,
			"package not found in index", nil).WithPackage(name)
	}
	return e, nil
}

// Record returns the version record for an exact version string.
func (d *Document) Record(name, ver string) (*Record, error) {
	e, err := d.Entry(name)
	if err != nil {
		return nil, err
	}
	for _, rec := range e.Versions {
		if rec.Version == ver {
			return rec, nil
		}
	}
	return nil, operr.NewError(operr.KindVersionNotFound,
		"version not in index", nil).WithPackage(name).WithVersion(ver)
}

// Satisfying returns the records whose version meets the requirement, in
// index order.
func (e *Entry) Satisfying(req version.Requirement) []*Record {
	var out []*Record
	for _, rec := range e.Versions {
		if req.Satisfies(rec.Version) {
			out = append(out, rec)
		}
	}
	return out
}

// Latest returns the maximum available version of the entry under the
// segment-wise version ordering.
func (e *Entry) Latest() *Record {
	var best *Record
	for _, rec := range e.Versions {
		if best == nil || version.Compare(rec.Version, best.Version) > 0 {
			best = rec
		}
	}
	return best
}

// Names returns the package names in sorted order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Packages))
	for name := range d.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
