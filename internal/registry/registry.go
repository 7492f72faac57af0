// Package registry implements read-only access to an on-disk package
// registry: one directory per package under a fixed root, one subdirectory
// per published version holding a metadata descriptor, and per-version
// binary archives named {package}-{version}.pax in the package directory.
//
// The filesystem is the system of record. Every operation consults it
// fresh; there is no caching, so versions published by an external process
// become visible on the next request. All request-derived path fragments go
// through safepath before touching the filesystem.
package registry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paxpkg/registry/internal/safepath"
)

// archiveExt is the file extension of package archives.
const archiveExt = ".pax"

// Registry serves packages from a root directory fixed at construction.
type Registry struct {
	root   string
	logger *slog.Logger
}

// New creates a Registry rooted at the given directory. The root is
// immutable for the lifetime of the Registry.
func New(root string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{root: root, logger: logger}
}

// Root returns the registry root directory.
func (r *Registry) Root() string {
	return r.root
}

// packageDir validates name and resolves it to an existing package
// directory beneath the root.
func (r *Registry) packageDir(name string) (string, error) {
	dir, err := safepath.Join(r.root, name)
	if err != nil {
		r.logger.Warn("rejected package path", "name", name)
		return "", fmt.Errorf("%w: package %q", ErrForbidden, name)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrPackageNotFound, name)
	}
	return dir, nil
}

// Metadata resolves spec against the package's version directories and
// returns the decoded descriptor. An empty spec selects the highest version.
func (r *Registry) Metadata(name, spec string) (*PackageMetadata, error) {
	pkgDir, err := r.packageDir(name)
	if err != nil {
		return nil, err
	}

	version, err := Resolve(pkgDir, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: package %q version %q", ErrNotFound, name, spec)
	}

	return ReadMetadata(filepath.Join(pkgDir, version, metadataFile))
}

// Archive is an opened package archive ready to stream. The caller must
// close it.
type Archive struct {
	io.ReadCloser

	// Filename is the download filename, {package}-{version}.pax.
	Filename string

	// Size is the archive size in bytes.
	Size int64
}

// OpenArchive opens the archive for an exact package version. The derived
// archive filename is validated independently of the package name; the two
// are never concatenated before validation.
func (r *Registry) OpenArchive(name, version string) (*Archive, error) {
	pkgDir, err := r.packageDir(name)
	if err != nil {
		return nil, err
	}

	filename := name + "-" + version + archiveExt
	path, err := safepath.Join(pkgDir, filename)
	if err != nil {
		r.logger.Warn("rejected archive path", "name", name, "version", version)
		return nil, fmt.Errorf("%w: archive %q", ErrForbidden, filename)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: archive %q", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: archive %q", ErrNotFound, filename)
	}

	return &Archive{ReadCloser: f, Filename: filename, Size: info.Size()}, nil
}
