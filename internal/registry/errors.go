package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden marks request input that failed path validation.
	// It is always surfaced to the caller and never retried.
	ErrForbidden = errors.New("access denied")

	// ErrNotFound marks a well-formed request for a package, version, or
	// file that does not exist. Callers must keep it distinct from
	// ErrForbidden; the difference is part of the wire contract.
	ErrNotFound = errors.New("not found")

	// ErrPackageNotFound marks a package whose directory does not exist
	// under the root. It matches ErrNotFound; the wire contract reports it
	// with a package-level message rather than a version-level one.
	ErrPackageNotFound = fmt.Errorf("package %w", ErrNotFound)
)
