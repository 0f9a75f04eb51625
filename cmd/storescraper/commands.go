package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aluiziolira/go-scrape-stores/api"
	"github.com/aluiziolira/go-scrape-stores/models"
	"github.com/aluiziolira/go-scrape-stores/parser"
	"github.com/aluiziolira/go-scrape-stores/pipeline"
)

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	cf := registerCommon(fs)
	query := fs.String("q", "", "Search query")
	outputFile := fs.String("output", "", "Output file path")
	outputFormat := fs.String("format", "", "Output format: csv, json, or dual")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*query) == "" {
		fmt.Fprintln(os.Stderr, "search: -q is required")
		return errUsage
	}

	cfg, repo, err := loadConfig(fs, cf)
	if err != nil {
		return err
	}
	if *outputFile != "" {
		cfg.OutputFile = *outputFile
	}
	if *outputFormat != "" {
		cfg.OutputFormat = strings.ToLower(*outputFormat)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	s, collection, err := setup(cfg, repo)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	stopMetrics := startMetricsServer(cfg.MetricsAddr, s.Metrics)
	defer stopMetrics()

	slog.Info("starting search",
		slog.String("query", *query),
		slog.Int("stores", len(collection.Enabled())),
		slog.Int("workers", cfg.Parallelism),
	)

	startTime := time.Now()
	outcome := s.SearchAll(ctx, *query, collection.All())

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	// A single worker keeps the file in store order.
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(1)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}
	if err := p.Process(outcome.Products...); err != nil {
		return fmt.Errorf("queue products: %w", err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown failed: %w", err)
	}
	if len(outcome.Products) > 0 {
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	}

	if cfg.AutoSaveResults {
		if err := repo.SaveResults(outcome); err != nil {
			slog.Warn("saving search results failed", slog.Any("error", err))
		}
	}

	printSummary(os.Stdout, outcome, time.Since(startTime), cfg.OutputFile, p.GetMetrics())

	if outcome.Succeeded == 0 && outcome.Failed > 0 {
		return errors.New("every store failed")
	}
	return nil
}

func runScrape(args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	cf := registerCommon(fs)
	storeName := fs.String("store", "", "Store profile name")
	pageURL := fs.String("url", "", "Page to scrape")
	single := fs.Bool("single", false, "Treat the page as a single product detail page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *storeName == "" || *pageURL == "" {
		fmt.Fprintln(os.Stderr, "scrape: -store and -url are required")
		return errUsage
	}

	cfg, repo, err := loadConfig(fs, cf)
	if err != nil {
		return err
	}
	s, collection, err := setup(cfg, repo)
	if err != nil {
		return err
	}
	index, ok := collection.Find(*storeName)
	if !ok {
		return fmt.Errorf("store %q not found", *storeName)
	}
	profile, err := collection.Get(index)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	products := []models.Product{}
	if *single {
		product, found, err := s.ScrapeProduct(ctx, *pageURL, profile)
		if err != nil {
			return err
		}
		if found {
			products = append(products, product)
		}
	} else {
		products, err = s.ScrapeStore(ctx, *pageURL, profile)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(products)
}

func runStores(args []string) error {
	fs := flag.NewFlagSet("stores", flag.ContinueOnError)
	cf := registerCommon(fs)
	validate := fs.Bool("validate", false, "Check every profile's fields and selectors")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, repo, err := loadConfig(fs, cf)
	if err != nil {
		return err
	}
	s, collection, err := setup(cfg, repo)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	header := "#\tNAME\tENABLED\tBASE URL"
	if *validate {
		header += "\tSTATUS"
	}
	fmt.Fprintln(tw, header)

	invalid := 0
	for i, profile := range collection.All() {
		line := fmt.Sprintf("%d\t%s\t%t\t%s", i, profile.Name, profile.Enabled, profile.BaseURL)
		if *validate {
			status := "ok"
			if err := s.ValidateProfile(profile); err != nil {
				status = err.Error()
				invalid++
			}
			line += "\t" + status
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d invalid store profile(s)", invalid)
	}
	return nil
}

func runSuggest(args []string) error {
	fs := flag.NewFlagSet("suggest", flag.ContinueOnError)
	field := fs.String("field", "", "Field kind: container, title, price, image, link, description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := models.ParseFieldKind(*field)
	if err != nil {
		fmt.Fprintln(os.Stderr, "suggest:", err)
		return errUsage
	}
	for _, selector := range parser.SuggestSelectors(kind) {
		fmt.Println(selector)
	}
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cf := registerCommon(fs)
	outputFile := fs.String("output", "search_results.csv", "CSV file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, repo, err := loadConfig(fs, cf)
	if err != nil {
		return err
	}

	saved := repo.LoadResults()
	if len(saved.Products) == 0 {
		return errors.New("no saved search results to export")
	}
	if err := pipeline.ExportCSVFile(*outputFile, saved.Products); err != nil {
		return err
	}
	slog.Info("exported saved results",
		slog.String("query", saved.Query),
		slog.Int("products", len(saved.Products)),
		slog.String("output", *outputFile),
	)
	return nil
}

func runBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	cf := registerCommon(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, repo, err := loadConfig(fs, cf)
	if err != nil {
		return err
	}
	path, err := repo.Backup()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cf := registerCommon(fs)
	addr := fs.String("addr", "", "HTTP listen address (default :8080)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, repo, err := loadConfig(fs, cf)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	s, collection, err := setup(cfg, repo)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(cfg, s, collection, repo).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server listening", slog.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// printSummary reports the search. The output file drops duplicate and
// incomplete records while the saved results keep every product, so both
// counts are shown when they differ.
func printSummary(w io.Writer, outcome models.SearchOutcome, duration time.Duration, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintf(w, "Search %q complete\n", outcome.Query)

	written := int64(0)
	if processed, ok := metrics["processed_products"].(int64); ok {
		written = processed
	}

	fmt.Fprintf(w, "  Status:        %s\n", outcome.Status())
	fmt.Fprintf(w, "  Written:       %d\n", written)
	if dropped := int64(len(outcome.Products)) - written; dropped > 0 {
		fmt.Fprintf(w, "  Not written:   %d (saved results keep all %d products)\n", dropped, len(outcome.Products))
	}
	for _, failure := range outcome.Failures {
		fmt.Fprintf(w, "  Failed store:  %s (%s) %s\n", failure.Store, failure.Category, failure.Message)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(w, "  Validation:    %v\n", valErrors)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Output file:   %s\n", outputFile)
	fmt.Fprintf(w, "  Search ID:     %s\n", outcome.ID)
	fmt.Fprintln(w, separator)
}
