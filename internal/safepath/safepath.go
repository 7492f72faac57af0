// Package safepath validates untrusted path fragments against a trusted
// base directory.
//
// Validation is purely lexical: the result is guaranteed to stay inside the
// base directory but is not required to exist. Callers must map ErrTraversal
// to an access-denied outcome and a missing-but-valid path to not-found;
// the two are distinct parts of the contract.
package safepath

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrTraversal is returned when an untrusted path fragment would escape the
// base directory or contains components that are not plain names.
var ErrTraversal = errors.New("path escapes base directory")

// Join appends the components of untrusted to base, rejecting any input that
// could resolve outside base.
//
// The untrusted string is split on "/" after stripping leading slashes.
// "." components are skipped. ".." components, volume or drive prefixes,
// and components that are not a single plain name (null bytes, embedded
// separators) reject the whole input.
//
// Each untrusted segment of a request must be validated by its own Join
// call; concatenating segments before validation changes the component
// splitting and is not safe.
func Join(base, untrusted string) (string, error) {
	result := base

	for _, comp := range strings.Split(strings.TrimLeft(untrusted, "/"), "/") {
		switch comp {
		case "", ".":
			continue
		case "..":
			return "", ErrTraversal
		}
		if !isPlainName(comp) {
			return "", ErrTraversal
		}
		result = filepath.Join(result, comp)
	}

	return result, nil
}

// isPlainName reports whether comp is a single ordinary path component.
// Components that decompose further (drive prefixes, embedded separators)
// or contain null bytes can smuggle traversal past the splitter and are
// rejected.
func isPlainName(comp string) bool {
	if strings.ContainsAny(comp, "\\\x00") {
		return false
	}
	if filepath.VolumeName(comp) != "" {
		return false
	}
	return filepath.Clean(comp) == comp
}
