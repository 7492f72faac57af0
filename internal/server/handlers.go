package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paxpkg/registry/internal/metrics"
	"github.com/paxpkg/registry/internal/registry"
)

// handleMetadata serves a package's descriptor as JSON, resolved to the
// requested version spec (?v=) or the highest available version.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	spec := r.URL.Query().Get("v")

	meta, err := s.registry.Metadata(name, spec)
	if err != nil {
		s.writeError(w, err,
			"Requested package's version's metadata could not be found.",
			"Error reading package metadata!")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(meta); err != nil {
		s.logger.Error("failed to encode metadata", "package", name, "error", err)
	}
}

// handleArchive serves the raw archive bytes for an exact package version.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	ver := urlParam(r, "ver")

	archive, err := s.registry.OpenArchive(name, ver)
	if err != nil {
		s.writeError(w, err,
			"Requested file could not be found.",
			"Error reading package!")
		return
	}
	defer func() { _ = archive.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(archive.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename))

	n, err := io.Copy(w, archive)
	metrics.RecordArchiveBytes(n)
	if err != nil {
		s.logger.Warn("archive transfer aborted", "file", archive.Filename, "error", err)
	}
}

// writeError maps a registry error to the three-tier HTTP contract:
// Forbidden for rejected path input, NotFound for missing packages,
// versions, or files, Internal for everything else. A missing package
// gets its own message; notFoundMsg covers the endpoint's other misses.
func (s *Server) writeError(w http.ResponseWriter, err error, notFoundMsg, internalMsg string) {
	switch {
	case errors.Is(err, registry.ErrForbidden):
		jsonError(w, http.StatusForbidden, "You do not have access to this location.")
	case errors.Is(err, registry.ErrPackageNotFound):
		jsonError(w, http.StatusNotFound, "Requested package could not be found.")
	case errors.Is(err, registry.ErrNotFound):
		jsonError(w, http.StatusNotFound, notFoundMsg)
	default:
		s.logger.Error("request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, internalMsg)
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":%q}`, message)
}

// urlParam returns a chi route parameter, URL-decoded. Decoding happens
// before validation so that encoded traversal sequences are seen by the
// path validator, not smuggled past it.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
