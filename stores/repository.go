package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aluiziolira/go-scrape-stores/config"
	"github.com/aluiziolira/go-scrape-stores/models"
)

const (
	DefaultStoresFile  = "stores.json"
	DefaultConfigFile  = "config.json"
	DefaultResultsFile = "search_results.json"

	backupTimeLayout = "20060102_150405"
)

// ErrNoStoresFile is returned by Backup when there is nothing to copy.
var ErrNoStoresFile = errors.New("stores: no stores file to back up")

type storesDocument struct {
	Stores []models.StoreProfile `json:"stores" yaml:"stores"`
}

// SavedResults is the persisted form of the last search.
type SavedResults struct {
	ID        string           `json:"id" yaml:"id"`
	Query     string           `json:"query" yaml:"query"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Products  []models.Product `json:"products" yaml:"products"`
}

// DefaultStores returns the example profile written on first run.
func DefaultStores() []models.StoreProfile {
	return []models.StoreProfile{
		{
			Name:                "Example Store",
			BaseURL:             "https://example.com",
			SearchURLPattern:    models.DefaultSearchURLPattern,
			ContainerSelector:   ".product-item",
			NameSelector:        ".product-name",
			PriceSelector:       ".price",
			ImageSelector:       ".product-image img",
			LinkSelector:        "a",
			DescriptionSelector: ".description",
			Enabled:             true,
		},
	}
}

// FileRepository reads and writes documents in a data directory. Files
// ending in .yaml or .yml are YAML, everything else is JSON.
type FileRepository struct {
	dir         string
	storesFile  string
	configFile  string
	resultsFile string
	now         func() time.Time
}

// RepositoryOption customizes a FileRepository.
type RepositoryOption func(*FileRepository)

// WithStoresFile overrides the stores document name.
func WithStoresFile(name string) RepositoryOption {
	return func(r *FileRepository) { r.storesFile = name }
}

// WithConfigFile overrides the settings document name.
func WithConfigFile(name string) RepositoryOption {
	return func(r *FileRepository) { r.configFile = name }
}

// WithResultsFile overrides the saved results document name.
func WithResultsFile(name string) RepositoryOption {
	return func(r *FileRepository) { r.resultsFile = name }
}

// WithClock overrides the time source used for backups and result stamps.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *FileRepository) { r.now = now }
}

// NewFileRepository returns a repository rooted at dir.
func NewFileRepository(dir string, opts ...RepositoryOption) *FileRepository {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	r := &FileRepository{
		dir:         dir,
		storesFile:  DefaultStoresFile,
		configFile:  DefaultConfigFile,
		resultsFile: DefaultResultsFile,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the data directory.
func (r *FileRepository) Dir() string {
	return r.dir
}

// LoadStores reads the stores document. A missing document is created with
// DefaultStores. An unreadable one yields the defaults and is left in place.
func (r *FileRepository) LoadStores() ([]models.StoreProfile, error) {
	path := r.path(r.storesFile)
	var doc storesDocument
	err := readDocument(path, &doc)
	switch {
	case err == nil:
		if doc.Stores == nil {
			doc.Stores = []models.StoreProfile{}
		}
		return doc.Stores, nil
	case errors.Is(err, fs.ErrNotExist):
		defaults := DefaultStores()
		if err := r.SaveStores(defaults); err != nil {
			return defaults, fmt.Errorf("create default stores: %w", err)
		}
		slog.Info("created default stores document", slog.String("path", path))
		return defaults, nil
	default:
		slog.Warn("stores document unreadable, using defaults",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return DefaultStores(), nil
	}
}

// SaveStores writes profiles to the stores document.
func (r *FileRepository) SaveStores(profiles []models.StoreProfile) error {
	if profiles == nil {
		profiles = []models.StoreProfile{}
	}
	return writeDocument(r.path(r.storesFile), storesDocument{Stores: profiles})
}

// LoadAppConfig reads the settings document with the same fallbacks as
// LoadStores.
func (r *FileRepository) LoadAppConfig() (config.AppConfig, error) {
	path := r.path(r.configFile)
	appCfg := config.DefaultAppConfig()
	err := readDocument(path, &appCfg)
	switch {
	case err == nil:
		return appCfg, nil
	case errors.Is(err, fs.ErrNotExist):
		defaults := config.DefaultAppConfig()
		if err := r.SaveAppConfig(defaults); err != nil {
			return defaults, fmt.Errorf("create default config: %w", err)
		}
		return defaults, nil
	default:
		slog.Warn("config document unreadable, using defaults",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return config.DefaultAppConfig(), nil
	}
}

// SaveAppConfig writes the settings document.
func (r *FileRepository) SaveAppConfig(appCfg config.AppConfig) error {
	return writeDocument(r.path(r.configFile), appCfg)
}

// SaveResults stores the products of outcome as the last search.
func (r *FileRepository) SaveResults(outcome models.SearchOutcome) error {
	timestamp := outcome.EndTime
	if timestamp.IsZero() {
		timestamp = r.now()
	}
	products := outcome.Products
	if products == nil {
		products = []models.Product{}
	}
	return writeDocument(r.path(r.resultsFile), SavedResults{
		ID:        outcome.ID,
		Query:     outcome.Query,
		Timestamp: timestamp.UTC(),
		Products:  products,
	})
}

// LoadResults returns the last saved search. Missing or unreadable
// documents yield an empty result.
func (r *FileRepository) LoadResults() SavedResults {
	var saved SavedResults
	if err := readDocument(r.path(r.resultsFile), &saved); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("results document unreadable", slog.Any("error", err))
		}
		return SavedResults{Products: []models.Product{}}
	}
	if saved.Products == nil {
		saved.Products = []models.Product{}
	}
	return saved
}

// Backup copies the stores document next to itself with a timestamped
// name and returns the new path.
func (r *FileRepository) Backup() (string, error) {
	src := r.path(r.storesFile)
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoStoresFile
		}
		return "", fmt.Errorf("open stores file: %w", err)
	}
	defer in.Close()

	ext := filepath.Ext(r.storesFile)
	if ext == "" {
		ext = ".json"
	}
	dst := r.path(fmt.Sprintf("stores_backup_%s%s", r.now().UTC().Format(backupTimeLayout), ext))

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copy backup: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close backup: %w", err)
	}
	return dst, nil
}

func (r *FileRepository) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.dir, name)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isYAML(path) {
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode yaml %s: %w", path, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode json %s: %w", path, err)
	}
	return nil
}

// writeDocument replaces path atomically through a temp file in the same
// directory.
func writeDocument(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
