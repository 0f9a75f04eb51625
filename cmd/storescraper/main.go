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
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-stores/config"
	"github.com/aluiziolira/go-scrape-stores/scraper"
	"github.com/aluiziolira/go-scrape-stores/stores"
)

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{name: "search", usage: "search -q QUERY [-output FILE] [-format csv|json|dual]", run: runSearch},
	{name: "scrape", usage: "scrape -store NAME -url URL [-single]", run: runScrape},
	{name: "stores", usage: "stores [-validate]", run: runStores},
	{name: "suggest", usage: "suggest -field container|title|price|image|link|description", run: runSuggest},
	{name: "export", usage: "export [-output FILE]", run: runExport},
	{name: "backup", usage: "backup", run: runBackup},
	{name: "serve", usage: "serve [-addr :8080]", run: runServe},
}

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	name := os.Args[1]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if err := cmd.run(os.Args[2:]); err != nil {
			if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
				os.Exit(2)
			}
			slog.Error(name+" failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	printUsage()
	os.Exit(2)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: storescraper <command> [flags]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", cmd.usage)
	}
	fmt.Fprintln(os.Stderr, "\ncommon flags: -dir, -v, -parallel, -timeout, -delay, -metrics-addr")
}

// commonFlags are registered on every subcommand.
type commonFlags struct {
	dir         string
	verbose     bool
	parallel    int
	timeout     time.Duration
	delay       time.Duration
	metricsAddr string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	defaults := config.DefaultConfig()
	cf := &commonFlags{}
	fs.StringVar(&cf.dir, "dir", "", "Data directory holding stores.json and config.json (default \".\")")
	fs.BoolVar(&cf.verbose, "v", false, "Enable verbose logging")
	fs.IntVar(&cf.parallel, "parallel", defaults.Parallelism, "Number of stores searched concurrently")
	fs.DurationVar(&cf.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	fs.DurationVar(&cf.delay, "delay", defaults.RequestDelay, "Minimum delay between requests")
	fs.StringVar(&cf.metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	return cf
}

// loadConfig layers configuration: defaults, persisted settings, environment,
// then explicitly set flags.
func loadConfig(fs *flag.FlagSet, cf *commonFlags) (*config.Config, *stores.FileRepository, error) {
	logger, level := newLogger(cf.verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	if err := cfg.FromEnv(); err != nil {
		return nil, nil, fmt.Errorf("read environment: %w", err)
	}
	if cf.dir != "" {
		cfg.DataDir = cf.dir
	}

	repo := stores.NewFileRepository(cfg.DataDir)
	appCfg, err := repo.LoadAppConfig()
	if err != nil {
		slog.Warn("could not persist default settings", slog.Any("error", err))
	}
	cfg.Apply(appCfg)
	if err := cfg.FromEnv(); err != nil {
		return nil, nil, fmt.Errorf("read environment: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "parallel":
			cfg.Parallelism = cf.parallel
		case "timeout":
			cfg.Timeout = cf.timeout
		case "delay":
			cfg.RequestDelay = cf.delay
		case "metrics-addr":
			cfg.MetricsAddr = cf.metricsAddr
		}
	})
	cfg.Verbose = cf.verbose

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, repo, nil
}

// setup builds the scraper and the store collection from the data directory.
func setup(cfg *config.Config, repo *stores.FileRepository) (*scraper.Scraper, *stores.Collection, error) {
	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialising scraper: %w", err)
	}
	profiles, err := repo.LoadStores()
	if err != nil {
		slog.Warn("could not persist default stores", slog.Any("error", err))
	}
	return s, stores.NewCollection(profiles, s.ValidateProfile), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()
	return ctx, stop
}

// startMetricsServer serves the scraper registry when addr is set. The
// returned func shuts it down.
func startMetricsServer(addr string, metrics *scraper.Metrics) func() {
	if addr == "" || metrics == nil {
		return func() {}
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
