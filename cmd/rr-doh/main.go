package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/rr-doh/internal/dns/common/clock"
	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/config"
	"github.com/haukened/rr-doh/internal/dns/gateways/doh"
	"github.com/haukened/rr-doh/internal/dns/gateways/transport"
	"github.com/haukened/rr-doh/internal/dns/gateways/wire"
	"github.com/haukened/rr-doh/internal/dns/repos/blocklist"
	"github.com/haukened/rr-doh/internal/dns/repos/blocklist/bloom"
	"github.com/haukened/rr-doh/internal/dns/repos/blocklist/bolt"
	"github.com/haukened/rr-doh/internal/dns/repos/blocklist/lru"
	"github.com/haukened/rr-doh/internal/dns/repos/blocklist/parsers"
	"github.com/haukened/rr-doh/internal/dns/services/forwarder"
	"github.com/haukened/rr-doh/internal/dns/services/resolver"
)

const (
	version = "0.1.0-dev"
	appName = "rr-doh"

	defaultShutdownTimeout = 10 * time.Second

	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage:\n  %s [-config FILE] resolve <domain>\n  %s [-config FILE] forward\n", appName, appName)
}

// invocation is the parsed command line.
type invocation struct {
	configPath string
	mode       string
	domain     string
}

func parseArgs(args []string, stderr io.Writer) (invocation, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		usage(stderr)
		fs.PrintDefaults()
	}
	var inv invocation
	fs.StringVar(&inv.configPath, "config", "", "path to a .toml, .yaml or .json config file")
	if err := fs.Parse(args); err != nil {
		return inv, errUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return inv, errUsage
	}
	inv.mode = rest[0]
	switch {
	case inv.mode == "resolve" && len(rest) == 2:
		inv.domain = rest[1]
	case inv.mode == "forward" && len(rest) == 1:
	default:
		usage(stderr)
		return inv, errUsage
	}
	return inv, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	inv, err := parseArgs(args, stderr)
	if err != nil {
		return exitUsage
	}

	cfg, err := config.Load(inv.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitError
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(stderr, "Logging configuration error: %v\n", err)
		return exitError
	}
	defer func() { _ = log.Sync() }()

	httpClient, err := doh.NewHTTPClient()
	if err != nil {
		log.Error(map[string]any{"error": err}, "Failed to build HTTP client")
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch inv.mode {
	case "resolve":
		if err := runResolve(ctx, *cfg, httpClient, inv.domain, stdout); err != nil {
			log.Error(map[string]any{"domain": inv.domain, "error": err}, "Resolve failed")
			return exitError
		}
	case "forward":
		log.Info(map[string]any{
			"version":    version,
			"env":        cfg.Env,
			"log_level":  cfg.LogLevel,
			"listen":     cfg.ListenAddress(),
			"upstream":   cfg.DNSServer,
			"timeout":    cfg.UpstreamTimeout.String(),
			"workers":    cfg.Workers,
			"max_udp":    cfg.MaxUDPSize,
			"blocklists": len(cfg.BlocklistFiles),
		}, "Starting rr-doh gateway")

		app, err := buildApplication(*cfg, httpClient, log.GetLogger())
		if err != nil {
			log.Error(map[string]any{"error": err}, "Failed to build application")
			return exitError
		}
		if err := app.Run(ctx); err != nil {
			log.Error(map[string]any{"error": err}, "Gateway failed")
			return exitError
		}
		log.Info(nil, "rr-doh gateway stopped gracefully")
	}
	return exitOK
}

func newUpstream(cfg config.AppConfig, httpClient *http.Client, logger log.Logger) (*doh.Client, error) {
	return doh.NewClient(doh.Options{
		Timeout:    cfg.UpstreamTimeout,
		Logger:     logger,
		HTTPClient: httpClient,
	})
}

// runResolve resolves name once and prints one line per answer to stdout.
func runResolve(ctx context.Context, cfg config.AppConfig, httpClient *http.Client, name string, stdout io.Writer) error {
	logger := log.GetLogger()
	upstream, err := newUpstream(cfg, httpClient, logger)
	if err != nil {
		return err
	}
	res, err := resolver.NewResolver(resolver.ResolverOptions{
		Codec:       wire.NewUDPCodec(logger),
		Logger:      logger,
		Upstream:    upstream,
		UpstreamURL: cfg.DNSServer,
	})
	if err != nil {
		return err
	}

	answers, err := res.Resolve(ctx, name)
	if err != nil {
		return err
	}
	for _, rr := range answers {
		if _, err := fmt.Fprintln(stdout, resolver.FormatRecord(rr)); err != nil {
			return fmt.Errorf("write answer: %w", err)
		}
	}
	return nil
}

// Application holds the forward-mode components.
type Application struct {
	transport *transport.UDPTransport
	forwarder *forwarder.Forwarder
	closer    io.Closer
	logger    log.Logger
}

// buildApplication wires codec, DoH client, query filter, forwarder and UDP
// transport. Nothing is bound until Run.
func buildApplication(cfg config.AppConfig, httpClient *http.Client, logger log.Logger) (*Application, error) {
	codec := wire.NewUDPCodec(logger)

	upstream, err := newUpstream(cfg, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build DoH client: %w", err)
	}

	filter, closer, err := buildBlocklist(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build blocklist: %w", err)
	}

	fwd, err := forwarder.New(forwarder.Options{
		Upstream:    upstream,
		UpstreamURL: cfg.DNSServer,
		Codec:       codec,
		Blocklist:   filter,
		Logger:      logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	udp := transport.NewUDPTransport(transport.Options{
		Addr:       cfg.ListenAddress(),
		Codec:      codec,
		Logger:     logger,
		MaxUDPSize: cfg.MaxUDPSize,
		Workers:    cfg.Workers,
	})

	return &Application{transport: udp, forwarder: fwd, closer: closer, logger: logger}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildBlocklist returns the query filter. With no files configured it is a
// Noop and nothing touches the disk.
func buildBlocklist(cfg config.AppConfig, logger log.Logger) (forwarder.Blocklist, io.Closer, error) {
	if len(cfg.BlocklistFiles) == 0 {
		return blocklist.Noop{}, nopCloser{}, nil
	}

	clk := clock.RealClock{}
	rules, err := parsers.ParseFiles(cfg.BlocklistFiles, logger, clk.Now())
	if err != nil {
		return nil, nil, err
	}

	store, err := bolt.New(cfg.BlocklistDB)
	if err != nil {
		return nil, nil, err
	}
	cache, err := lru.New(cfg.BlocklistCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	repo, err := blocklist.NewRepository(blocklist.Options{
		Store:   store,
		Cache:   cache,
		Factory: bloom.NewFactory(),
		FPRate:  cfg.BlocklistFPRate,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if err := repo.Load(rules); err != nil {
		_ = repo.Close()
		return nil, nil, err
	}

	stats, err := repo.Stats()
	if err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("read blocklist stats: %w", err)
	}
	logger.Info(map[string]any{
		"files":       len(cfg.BlocklistFiles),
		"rules":       stats.Rules,
		"zones":       stats.Zones,
		"exact_keys":  stats.Store.ExactKeys,
		"suffix_keys": stats.Store.SuffixKeys,
		"version":     stats.Store.Version,
		"cache_size":  stats.Cache.Capacity,
		"db":          cfg.BlocklistDB,
	}, "Query filter ready")
	return repo, repo, nil
}

// Address returns the bound UDP address once Run has started the transport.
func (app *Application) Address() string {
	return app.transport.Address()
}

// Run starts the transport and blocks until ctx is cancelled, then shuts
// down within defaultShutdownTimeout.
func (app *Application) Run(ctx context.Context) error {
	defer func() {
		if err := app.closer.Close(); err != nil {
			app.logger.Warn(map[string]any{"error": err}, "Error closing blocklist store")
		}
	}()

	if err := app.transport.Start(ctx, app.forwarder); err != nil {
		return fmt.Errorf("failed to start UDP transport: %w", err)
	}
	app.logger.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": "UDP",
	}, "DNS gateway started")

	<-ctx.Done()
	app.logger.Info(nil, "Shutdown initiated")

	done := make(chan error, 1)
	go func() { done <- app.transport.Stop() }()

	timer := time.NewTimer(defaultShutdownTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			app.logger.Warn(map[string]any{"error": err}, "Error during transport shutdown")
		}
		app.logger.Info(nil, "Graceful shutdown completed")
		return nil
	case <-timer.C:
		app.logger.Warn(map[string]any{"timeout": defaultShutdownTimeout.String()}, "Shutdown timeout exceeded")
		return errors.New("shutdown timeout")
	}
}
