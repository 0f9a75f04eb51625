package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	DataDir             string
	MaxProductsPerStore int
	Parallelism         int
	RequestDelay        time.Duration
	Timeout             time.Duration
	MaxBodySize         int
	SelectorCacheSize   int
	DedupeMaxSize       int
	PipelineBufferSize  int
	BatchSize           int
	OutputFile          string
	OutputFormat        string // csv, json, or dual
	UserAgent           string
	AutoSaveResults     bool
	Theme               string
	MetricsAddr         string
	ListenAddr          string
	Verbose             bool
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:             ".",
		MaxProductsPerStore: 50,
		Parallelism:         4,
		RequestDelay:        1000 * time.Millisecond,
		Timeout:             15 * time.Second,
		MaxBodySize:         10 * 1024 * 1024,
		SelectorCacheSize:   256,
		DedupeMaxSize:       10000,
		PipelineBufferSize:  512,
		BatchSize:           64,
		OutputFile:          "output/products.csv",
		OutputFormat:        "csv",
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		AutoSaveResults:     true,
		Theme:               "dark",
		ListenAddr:          ":8080",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.MaxProductsPerStore < 0 {
		return fmt.Errorf("max products per store cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.SelectorCacheSize <= 0 {
		return fmt.Errorf("selector cache size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// Apply overlays the persisted application settings.
func (c *Config) Apply(app AppConfig) {
	c.MaxProductsPerStore = app.MaxProductsPerStore
	c.RequestDelay = time.Duration(app.RequestDelayMs) * time.Millisecond
	if app.UserAgent != "" {
		c.UserAgent = app.UserAgent
	}
	c.AutoSaveResults = app.AutoSaveResults
	if app.Theme != "" {
		c.Theme = app.Theme
	}
}

// AppConfig is the persisted subset of the configuration.
type AppConfig struct {
	MaxProductsPerStore int    `json:"max_products_per_store" yaml:"max_products_per_store"`
	RequestDelayMs      int64  `json:"request_delay_ms" yaml:"request_delay_ms"`
	UserAgent           string `json:"user_agent" yaml:"user_agent"`
	AutoSaveResults     bool   `json:"auto_save_results" yaml:"auto_save_results"`
	Theme               string `json:"theme" yaml:"theme"`
}

// DefaultAppConfig mirrors the defaults of DefaultConfig.
func DefaultAppConfig() AppConfig {
	return DefaultConfig().AppConfig()
}

// AppConfig extracts the persisted subset.
func (c *Config) AppConfig() AppConfig {
	return AppConfig{
		MaxProductsPerStore: c.MaxProductsPerStore,
		RequestDelayMs:      c.RequestDelay.Milliseconds(),
		UserAgent:           c.UserAgent,
		AutoSaveResults:     c.AutoSaveResults,
		Theme:               c.Theme,
	}
}
