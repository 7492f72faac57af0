package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paxpkg/registry/internal/config"
	"github.com/paxpkg/registry/internal/registry"
)

func TestMetadataEndpoint(t *testing.T) {
	srv := createTestServer(t)

	rec := doRequest(t, srv, "/packages/metadata/hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var m registry.PackageMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if m.Name != "hello" {
		t.Errorf("name = %q, want hello", m.Name)
	}
	if m.Version != "2.0.0" {
		t.Errorf("version = %q, want 2.0.0 (highest)", m.Version)
	}
}

func TestMetadataEndpointPinned(t *testing.T) {
	srv := createTestServer(t)

	tests := []struct {
		query string
		want  string
	}{
		{"?v=1", "1.2.5"},
		{"?v=1.2", "1.2.5"},
		{"?v=1.0.0", "1.0.0"},
	}

	for _, tt := range tests {
		rec := doRequest(t, srv, "/packages/metadata/hello"+tt.query)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", tt.query, rec.Code)
			continue
		}
		var m registry.PackageMetadata
		if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
			t.Fatal(err)
		}
		if m.Version != tt.want {
			t.Errorf("%s: version = %q, want %q", tt.query, m.Version, tt.want)
		}
	}
}

func TestMetadataEndpointStatusMapping(t *testing.T) {
	srv := createTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/packages/metadata/unknown", http.StatusNotFound},
		{"/packages/metadata/hello?v=9", http.StatusNotFound},
		{"/packages/metadata/hello?v=abc", http.StatusNotFound},
		{"/packages/metadata/hello?v=1.2.3.4", http.StatusNotFound},
		{"/packages/metadata/..%2F..%2Fetc", http.StatusForbidden},
		{"/packages/metadata/%2e%2e", http.StatusForbidden},
	}

	for _, tt := range tests {
		rec := doRequest(t, srv, tt.path)
		if rec.Code != tt.want {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestMetadataEndpointUnreadableDescriptor(t *testing.T) {
	srv := createTestServer(t)

	path := filepath.Join(srv.registry.Root(), "hello", "2.0.0", "metadata.yaml")
	if err := os.WriteFile(path, []byte("name: [broken\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, srv, "/packages/metadata/hello")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestArchiveEndpoint(t *testing.T) {
	srv := createTestServer(t)

	rec := doRequest(t, srv, "/package/hello/1.0.0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "archive-bytes-1.0.0" {
		t.Errorf("body = %q, want archive bytes", got)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "hello-1.0.0.pax") {
		t.Errorf("Content-Disposition = %q, want filename hello-1.0.0.pax", cd)
	}
	if cl := rec.Header().Get("Content-Length"); cl != "19" {
		t.Errorf("Content-Length = %q, want 19", cl)
	}
}

func TestArchiveEndpointStatusMapping(t *testing.T) {
	srv := createTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/package/hello/9.9.9", http.StatusNotFound},
		{"/package/unknown/1.0.0", http.StatusNotFound},
		{"/package/..%2F..%2Fetc/passwd", http.StatusForbidden},
		{"/package/hello/..%2F..%2Fsecret", http.StatusForbidden},
	}

	for _, tt := range tests {
		rec := doRequest(t, srv, tt.path)
		if rec.Code != tt.want {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestTraversalNeverLeavesRoot(t *testing.T) {
	srv := createTestServer(t)

	// Plant a file just outside the registry root; no request may reach it.
	outside := filepath.Join(filepath.Dir(srv.registry.Root()), "secret.pax")
	if err := os.WriteFile(outside, []byte("top secret"), 0644); err != nil {
		t.Fatal(err)
	}

	paths := []string{
		"/packages/metadata/..%2F",
		"/package/..%2F/secret",
		"/package/hello/..%2F..%2Fsecret",
	}
	for _, p := range paths {
		rec := doRequest(t, srv, p)
		if rec.Code != http.StatusForbidden {
			t.Errorf("GET %s status = %d, want 403", p, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "top secret") {
			t.Errorf("GET %s leaked file contents outside root", p)
		}
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv := createTestServer(t)

	rec := doRequest(t, srv, "/version")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "test-version" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "test-version")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := createTestServer(t)

	rec := doRequest(t, srv, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := createTestServer(t)

	rec := doRequest(t, srv, "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}

func TestNotFoundMessages(t *testing.T) {
	srv := createTestServer(t)

	tests := []struct {
		path string
		want string
	}{
		{"/packages/metadata/unknown", "Requested package could not be found."},
		{"/packages/metadata/hello?v=9", "Requested package's version's metadata could not be found."},
		{"/package/unknown/1.0.0", "Requested package could not be found."},
		{"/package/hello/9.9.9", "Requested file could not be found."},
	}

	for _, tt := range tests {
		rec := doRequest(t, srv, tt.path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", tt.path, rec.Code)
			continue
		}
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("GET %s: error body is not JSON: %v", tt.path, err)
		}
		if body.Error != tt.want {
			t.Errorf("GET %s error = %q, want %q", tt.path, body.Error, tt.want)
		}
	}
}

func TestErrorBodyIsJSON(t *testing.T) {
	srv := createTestServer(t)

	rec := doRequest(t, srv, "/packages/metadata/unknown")
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body.Error == "" {
		t.Error("error body has no message")
	}
}

func doRequest(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

// createTestServer builds a server over a temp registry with package
// "hello" at versions 1.0.0, 1.2.0, 1.2.5, 2.0.0 and an archive for 1.0.0.
func createTestServer(t *testing.T) *Server {
	t.Helper()
	root := filepath.Join(t.TempDir(), "registry")

	for _, v := range []string{"1.0.0", "1.2.0", "1.2.5", "2.0.0"} {
		dir := filepath.Join(root, "hello", v)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		descriptor := testDescriptor("hello", v)
		if err := os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(descriptor), 0644); err != nil {
			t.Fatal(err)
		}
	}
	archive := filepath.Join(root, "hello", "hello-1.0.0.pax")
	if err := os.WriteFile(archive, []byte("archive-bytes-1.0.0"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Directory = root

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(root, logger)
	return New(cfg, reg, "test-version", logger)
}

// testDescriptor returns a descriptor carrying every schema field.
func testDescriptor(name, version string) string {
	return "name: " + name + "\n" +
		"description: test package\n" +
		"version: " + version + "\n" +
		"origin: https://example.com/" + name + "\n" +
		"build_dependencies: []\n" +
		"runtime_dependencies: []\n" +
		"build: build.sh\n" +
		"install: install.sh\n" +
		"uninstall: uninstall.sh\n" +
		"purge: purge.sh\n" +
		"hash: abc123\n"
}
