package stores

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-stores/config"
	"github.com/aluiziolira/go-scrape-stores/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestLoadStoresCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)

	profiles, err := repo.LoadStores()
	require.NoError(t, err)
	assert.Equal(t, DefaultStores(), profiles)

	data, err := os.ReadFile(filepath.Join(dir, DefaultStoresFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"product_container_selector": ".product-item"`)
	assert.Contains(t, string(data), `"stores"`)
}

func TestLoadStoresUnparsableKeepsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultStoresFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	profiles, err := NewFileRepository(dir).LoadStores()
	require.NoError(t, err)
	assert.Equal(t, DefaultStores(), profiles)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data), "unparsable document must not be overwritten")
}

func TestStoresRoundTripJSON(t *testing.T) {
	repo := NewFileRepository(t.TempDir())
	want := []models.StoreProfile{profile("alpha"), profile("beta")}
	want[1].Enabled = false
	want[1].DescriptionSelector = ".desc"

	require.NoError(t, repo.SaveStores(want))
	got, err := repo.LoadStores()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoresRoundTripYAML(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir, WithStoresFile("stores.yaml"))
	want := []models.StoreProfile{profile("alpha")}

	require.NoError(t, repo.SaveStores(want))
	data, err := os.ReadFile(filepath.Join(dir, "stores.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "product_container_selector: .item")

	got, err := repo.LoadStores()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveStoresEmptyCollection(t *testing.T) {
	repo := NewFileRepository(t.TempDir())
	require.NoError(t, repo.SaveStores(nil))

	got, err := repo.LoadStores()
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestAppConfigLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)

	appCfg, err := repo.LoadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAppConfig(), appCfg)
	assert.FileExists(t, filepath.Join(dir, DefaultConfigFile))

	appCfg.MaxProductsPerStore = 5
	appCfg.Theme = "light"
	require.NoError(t, repo.SaveAppConfig(appCfg))

	reloaded, err := repo.LoadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, appCfg, reloaded)
}

func TestAppConfigPartialDocumentKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(`{"theme":"light"}`), 0o644))

	appCfg, err := NewFileRepository(dir).LoadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "light", appCfg.Theme)
	assert.Equal(t, 50, appCfg.MaxProductsPerStore)
}

func TestResultsRoundTrip(t *testing.T) {
	repo := NewFileRepository(t.TempDir(), WithClock(fixedClock))

	empty := repo.LoadResults()
	assert.Empty(t, empty.Products)
	assert.NotNil(t, empty.Products)

	outcome := models.SearchOutcome{
		ID:    "d3b07384-d9a0-4c1f-8a8e-2c3f2b6a8e01",
		Query: "shoes",
		Products: []models.Product{
			{Name: "Trail Runner", Price: "$89.90", URL: "https://a.example/p/1", StoreName: "A"},
		},
	}
	require.NoError(t, repo.SaveResults(outcome))

	saved := repo.LoadResults()
	assert.Equal(t, outcome.ID, saved.ID)
	assert.Equal(t, "shoes", saved.Query)
	assert.True(t, saved.Timestamp.Equal(fixedClock()))
	assert.Equal(t, outcome.Products, saved.Products)
}

func TestLoadResultsUnreadable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultResultsFile), []byte("garbage"), 0o644))

	saved := NewFileRepository(dir).LoadResults()
	assert.Empty(t, saved.Products)
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir, WithClock(fixedClock))

	_, err := repo.Backup()
	assert.ErrorIs(t, err, ErrNoStoresFile)

	require.NoError(t, repo.SaveStores([]models.StoreProfile{profile("alpha")}))
	path, err := repo.Backup()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "stores_backup_20260314_092653.json"), path)

	original, err := os.ReadFile(filepath.Join(dir, DefaultStoresFile))
	require.NoError(t, err)
	copied, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	_, err = repo.Backup()
	assert.Error(t, err, "a second backup in the same second must not overwrite the first")
}

func TestWriteDocumentLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)
	require.NoError(t, repo.SaveStores(DefaultStores()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), "."), "leftover temp file %s", entry.Name())
	}
}
