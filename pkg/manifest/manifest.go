// Package manifest loads the per-artifact metadata document, info.hk,
// found at a fixed path inside every unpacked artifact.
//
// The document is a line-oriented text format with two markers: a
// primary-key line "[section]" (or "[section.sub]" for a nested map) and
// a key/value line "key = value" under the last primary key. The
// separator is the first " = " on the line; a line ending in " ="
// declares a key with an empty value, which is how list members (binary
// names, bind paths, install commands) are enumerated.
package manifest

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// FileName is the manifest's fixed path relative to the artifact root.
const FileName = "info.hk"

// Manifest describes one unpacked artifact.
type Manifest struct {
	Name    string
	Version string
	Authors string
	License string

	Summary string
	Long    string

	// SystemSpecs carries free-form host requirements from [specs].
	SystemSpecs map[string]string

	// Dependencies maps package name to requirement string.
	Dependencies map[string]string

	// Bins lists launcher binary names to publish, in manifest order.
	Bins []string

	Sandbox Profile

	// InstallCommands run inside the sandbox joined with "&&".
	InstallCommands []string
}

// Profile is the manifest's sandbox section: three share flags plus
// extra host paths to bind read-write at their own locations.
type Profile struct {
	Network    bool
	GUI        bool
	Device     bool
	Filesystem []string
}

// Load reads and parses the manifest of the artifact rooted at dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, operr.NewError(operr.KindManifestInvalid, "missing manifest "+path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a manifest document.
func Parse(r io.Reader) (*Manifest, error) {
	sections, order, err := parseSections(r)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		SystemSpecs:  map[string]string{},
		Dependencies: map[string]string{},
	}

	meta, ok := sections["metadata"]
	if !ok {
		return nil, invalid("missing [metadata] section")
	}
	m.Name = meta["name"]
	m.Version = meta["version"]
	m.Authors = meta["authors"]
	m.License = meta["license"]
	if m.Name == "" {
		return nil, invalid("metadata.name is required")
	}
	if m.Version == "" {
		return nil, invalid("metadata.version is required")
	}

	if desc, ok := sections["description"]; ok {
		m.Summary = desc["summary"]
		m.Long = desc["long"]
	}

	for k, v := range sections["specs"] {
		m.SystemSpecs[k] = v
	}
	for _, k := range order["specs.dependencies"] {
		m.Dependencies[k] = sections["specs.dependencies"][k]
	}

	m.Bins = append(m.Bins, order["metadata.bins"]...)

	if sb, ok := sections["sandbox"]; ok {
		m.Sandbox.Network = sb["network"] == "true"
		m.Sandbox.GUI = sb["gui"] == "true"
		m.Sandbox.Device = sb["dev"] == "true"
	}
	m.Sandbox.Filesystem = append(m.Sandbox.Filesystem, order["sandbox.filesystem"]...)

	m.InstallCommands = append(m.InstallCommands, order["install.commands"]...)

	return m, nil
}

// parseSections reads the raw two-level structure: section name to
// key/value map, plus per-section key order for list-like sections.
func parseSections(r io.Reader) (map[string]map[string]string, map[string][]string, error) {
	sections := map[string]map[string]string{}
	order := map[string][]string{}
	current := ""

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			current = strings.TrimSpace(text[1 : len(text)-1])
			if current == "" {
				return nil, nil, invalidLine(line, "empty section name")
			}
			if _, dup := sections[current]; dup {
				return nil, nil, invalidLine(line, "duplicate section ["+current+"]")
			}
			sections[current] = map[string]string{}
			continue
		}
		if current == "" {
			return nil, nil, invalidLine(line, "key outside any section")
		}

		key, value, ok := splitEntry(text)
		if !ok {
			return nil, nil, invalidLine(line, "malformed entry")
		}
		sections[current][key] = value
		order[current] = append(order[current], key)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, operr.NewError(operr.KindManifestInvalid, "reading manifest", err)
	}
	return sections, order, nil
}

// splitEntry splits "key = value" on the first spaced separator. A line
// ending in " =" yields an empty value.
func splitEntry(line string) (key, value string, ok bool) {
	if i := strings.Index(line, " = "); i >= 0 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+3:]), true
	}
	if strings.HasSuffix(line, " =") {
		return strings.TrimSpace(line[:len(line)-2]), "", true
	}
	return "", "", false
}

func invalid(msg string) error {
	return operr.NewError(operr.KindManifestInvalid, msg, nil)
}

func invalidLine(line int, msg string) error {
	return operr.NewError(operr.KindManifestInvalid,
		"manifest line "+strconv.Itoa(line)+": "+msg, nil)
}
