package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/paxpkg/registry/internal/metrics"
)

// metadataFile is the descriptor every published version directory carries.
const metadataFile = "metadata.yaml"

// lowestVersion is the sort key for directory names that fail semver
// parsing. Such directories stay candidates but never beat a parsable
// version.
var lowestVersion = semver.New(0, 0, 0, "", "")

// Resolve maps a version spec to a single concrete version directory under
// pkgDir and returns its name.
//
// An empty spec selects the highest version among all subdirectories. A one-
// or two-component numeric spec prefix-matches directory names against "M."
// or "M.N."; a three-component spec must match a name exactly. Any other
// shape matches nothing. The prefix match is on the literal string, so a
// directory outside the requested numeric range can match if its name shares
// the prefix.
//
// The selected directory must contain the metadata descriptor; otherwise the
// result is ErrNotFound. The directory listing is taken fresh on every call.
func Resolve(pkgDir, spec string) (string, error) {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		metrics.RecordResolve("miss")
		return "", ErrNotFound
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	candidates, ok := filterSpec(names, spec)
	if !ok {
		metrics.RecordResolve("invalid")
		return "", ErrNotFound
	}
	if len(candidates) == 0 {
		metrics.RecordResolve("miss")
		return "", ErrNotFound
	}

	type candidate struct {
		name string
		ver  *semver.Version
	}
	sorted := make([]candidate, len(candidates))
	for i, name := range candidates {
		sorted[i] = candidate{name: name, ver: parseVersion(name)}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ver.LessThan(sorted[j].ver)
	})

	selected := sorted[len(sorted)-1].name
	info, err := os.Stat(filepath.Join(pkgDir, selected, metadataFile))
	if err != nil || info.IsDir() {
		metrics.RecordResolve("miss")
		return "", ErrNotFound
	}

	metrics.RecordResolve("hit")
	return selected, nil
}

// filterSpec returns the candidate directory names matching spec. The second
// return value is false when the spec shape itself is invalid (non-numeric
// or more than three components) and can never match anything.
func filterSpec(names []string, spec string) ([]string, bool) {
	if spec == "" {
		return names, true
	}

	parts := strings.Split(spec, ".")
	if len(parts) > 3 {
		return nil, false
	}
	for _, p := range parts {
		if !isNumeric(p) {
			return nil, false
		}
	}

	var matches func(string) bool
	switch len(parts) {
	case 1, 2:
		prefix := spec + "."
		matches = func(name string) bool { return strings.HasPrefix(name, prefix) }
	case 3:
		matches = func(name string) bool { return name == spec }
	}

	var out []string
	for _, name := range names {
		if matches(name) {
			out = append(out, name)
		}
	}
	return out, true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parseVersion(name string) *semver.Version {
	v, err := semver.StrictNewVersion(name)
	if err != nil {
		return lowestVersion
	}
	return v
}
