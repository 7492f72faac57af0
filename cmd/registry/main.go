// Command registry runs a read-only package registry server.
//
// The server answers metadata and archive requests for packages laid out on
// disk as {directory}/{package}/{version}, where each version directory
// holds a metadata.yaml descriptor and the package directory holds the
// {package}-{version}.pax archives.
//
// Usage:
//
//	registry [flags]
//
// Flags:
//
//	-config string
//	      Path to configuration file (YAML or JSON)
//	-directory string / -d string
//	      Registry root directory (default: working directory)
//	-port int / -p int
//	      Port to listen on (default 8080)
//	-listen string
//	      Full listen address, overrides -port (e.g. "127.0.0.1:8080")
//	-log-level string
//	      Log level: debug, info, warn, error (default "info")
//	-log-format string
//	      Log format: text, json (default "text")
//	-version
//	      Print version and exit
//
// Environment Variables:
//
//	REGISTRY_LISTEN      - Listen address
//	REGISTRY_PORT        - Port to listen on
//	REGISTRY_DIRECTORY   - Registry root directory
//	REGISTRY_LOG_LEVEL   - Log level
//	REGISTRY_LOG_FORMAT  - Log format
//
// Example:
//
//	# Serve the current directory on port 8080
//	registry
//
//	# Serve a package tree on a custom port
//	registry -d /srv/packages -p 9000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paxpkg/registry/internal/config"
	"github.com/paxpkg/registry/internal/registry"
	"github.com/paxpkg/registry/internal/server"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Commit is set at build time.
	Commit = "unknown"
)

func main() {
	fs := flag.NewFlagSet("registry", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (YAML or JSON)")
	directory := fs.String("directory", "", "Registry root directory")
	fs.StringVar(directory, "d", "", "Registry root directory (shorthand)")
	port := fs.Int("port", 0, "Port to listen on")
	fs.IntVar(port, "p", 0, "Port to listen on (shorthand)")
	listen := fs.String("listen", "", "Full listen address, overrides -port")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: text, json")
	version := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "registry - read-only package registry server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: registry [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  REGISTRY_LISTEN      Listen address\n")
		fmt.Fprintf(os.Stderr, "  REGISTRY_PORT        Port to listen on\n")
		fmt.Fprintf(os.Stderr, "  REGISTRY_DIRECTORY   Registry root directory\n")
		fmt.Fprintf(os.Stderr, "  REGISTRY_LOG_LEVEL   Log level\n")
		fmt.Fprintf(os.Stderr, "  REGISTRY_LOG_FORMAT  Log format\n")
	}

	_ = fs.Parse(os.Args[1:])

	if *version {
		fmt.Printf("registry %s (%s)\n", Version, Commit)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	// Apply environment variables
	cfg.LoadFromEnv()

	// Apply command line flags (highest priority)
	if *directory != "" {
		cfg.Directory = *directory
	}
	if *port != 0 {
		cfg.Listen = fmt.Sprintf(":%d", *port)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)

	// The registry root is resolved once and immutable from here on.
	root, err := cfg.AbsDirectory()
	if err != nil {
		logger.Error("failed to resolve registry directory", "error", err)
		os.Exit(1)
	}

	reg := registry.New(root, logger)
	srv := server.New(cfg, reg, Version, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Default(), nil
}

func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
