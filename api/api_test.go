package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-stores/config"
	"github.com/aluiziolira/go-scrape-stores/models"
	"github.com/aluiziolira/go-scrape-stores/scraper"
	"github.com/aluiziolira/go-scrape-stores/stores"
)

type pageFetcher map[string]string

func (f pageFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	page, ok := f[rawURL]
	if !ok {
		return "", scraper.HTTPStatusError{URL: rawURL, StatusCode: http.StatusNotFound}
	}
	return page, nil
}

const listing = `<div class="item"><a href="/p/1"><span class="name">Shoe</span></a><span class="price">$10</span></div>
<div class="item"><a href="/p/2"><span class="name">Boot</span></a><span class="price">$20</span></div>`

func storeProfile(name, base string) models.StoreProfile {
	p := models.NewStoreProfile(name, base)
	p.ContainerSelector = ".item"
	p.NameSelector = ".name"
	p.PriceSelector = ".price"
	p.LinkSelector = "a"
	return p
}

type testEnv struct {
	router *gin.Engine
	repo   *stores.FileRepository
	dir    string
}

func newTestEnv(t *testing.T, pages pageFetcher, profiles ...models.StoreProfile) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.RequestDelay = 0
	cfg.DataDir = t.TempDir()

	sc, err := scraper.NewScraper(cfg, scraper.WithFetcher(pages))
	require.NoError(t, err)

	repo := stores.NewFileRepository(cfg.DataDir)
	collection := stores.NewCollection(profiles, sc.ValidateProfile)
	server := NewServer(cfg, sc, collection, repo)
	return testEnv{router: server.Router(), repo: repo, dir: cfg.DataDir}
}

func (e testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, pageFetcher{}, storeProfile("A", "http://a.test"))

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Stores)
	assert.Equal(t, 1, resp.EnabledStores)
}

func TestCreateStorePersists(t *testing.T) {
	env := newTestEnv(t, pageFetcher{})

	body := map[string]any{
		"name":                       "Shop",
		"base_url":                   "https://shop.test",
		"product_container_selector": ".item",
		"name_selector":              ".name",
		"price_selector":             ".price",
	}
	rec := env.do(t, http.MethodPost, "/api/v1/stores", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created StoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 0, created.Index)
	assert.True(t, created.Store.Enabled, "enabled defaults to true")
	assert.Equal(t, models.DefaultSearchURLPattern, created.Store.SearchURLPattern)

	data, err := os.ReadFile(filepath.Join(env.dir, stores.DefaultStoresFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Shop"`)

	rec = env.do(t, http.MethodPost, "/api/v1/stores", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrCodeDuplicateStore, decodeError(t, rec).Code)
}

func TestCreateStoreRejectsInvalidProfiles(t *testing.T) {
	env := newTestEnv(t, pageFetcher{})

	missingPrice := map[string]any{
		"name":                       "Shop",
		"base_url":                   "https://shop.test",
		"product_container_selector": ".item",
		"name_selector":              ".name",
	}
	rec := env.do(t, http.MethodPost, "/api/v1/stores", missingPrice)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, ErrCodeInvalidProfile, detail.Code)
	assert.Equal(t, "invalid_profile", detail.Category)

	badSelector := map[string]any{
		"name":                       "Shop",
		"base_url":                   "https://shop.test",
		"product_container_selector": "div[class",
		"name_selector":              ".name",
		"price_selector":             ".price",
	}
	rec = env.do(t, http.MethodPost, "/api/v1/stores", badSelector)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "selector", decodeError(t, rec).Category)

	rec = env.do(t, http.MethodGet, "/api/v1/stores", nil)
	assert.JSONEq(t, `{"stores":[]}`, rec.Body.String())
}

func TestUpdateAndDeleteStore(t *testing.T) {
	env := newTestEnv(t, pageFetcher{}, storeProfile("A", "http://a.test"), storeProfile("B", "http://b.test"))

	updated := storeProfile("A2", "http://a2.test")
	rec := env.do(t, http.MethodPut, "/api/v1/stores/0", updated)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/v1/stores/9", updated)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeStoreNotFound, decodeError(t, rec).Code)

	rec = env.do(t, http.MethodPut, "/api/v1/stores/abc", updated)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/stores/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err := env.repo.LoadStores()
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "A2", saved[0].Name)
}

func TestStoreMutationsRollBackWhenSaveFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig()
	cfg.RequestDelay = 0

	// A regular file where the data directory should be makes every save fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.DataDir = filepath.Join(blocker, "data")

	sc, err := scraper.NewScraper(cfg, scraper.WithFetcher(pageFetcher{}))
	require.NoError(t, err)
	collection := stores.NewCollection([]models.StoreProfile{storeProfile("A", "http://a.test")}, sc.ValidateProfile)
	server := NewServer(cfg, sc, collection, stores.NewFileRepository(cfg.DataDir))
	env := testEnv{router: server.Router(), dir: cfg.DataDir}

	before := collection.All()

	rec := env.do(t, http.MethodPost, "/api/v1/stores", storeProfile("B", "http://b.test"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrCodeInternal, decodeError(t, rec).Code)
	assert.Equal(t, before, collection.All())

	rec = env.do(t, http.MethodPut, "/api/v1/stores/0", storeProfile("A2", "http://a2.test"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, before, collection.All())

	rec = env.do(t, http.MethodDelete, "/api/v1/stores/0", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, before, collection.All())
}

func TestConcurrentCreatesReportTheirOwnIndex(t *testing.T) {
	env := newTestEnv(t, pageFetcher{})

	const workers = 8
	responses := make([]StoreResponse, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := env.do(t, http.MethodPost, "/api/v1/stores", storeProfile(fmt.Sprintf("S%d", i), "http://s.test"))
			if assert.Equal(t, http.StatusCreated, rec.Code) {
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &responses[i]))
			}
		}()
	}
	wg.Wait()

	saved, err := env.repo.LoadStores()
	require.NoError(t, err)
	require.Len(t, saved, workers)
	for _, resp := range responses {
		require.Less(t, resp.Index, workers)
		assert.Equal(t, resp.Store.Name, saved[resp.Index].Name)
	}
}

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t, pageFetcher{})

	rec := env.do(t, http.MethodGet, "/api/v1/suggestions/name", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Field     string   `json:"field"`
		Selectors []string `json:"selectors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "title", resp.Field)
	assert.Contains(t, resp.Selectors, ".product-title")

	rec = env.do(t, http.MethodGet, "/api/v1/suggestions/rating", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidField, decodeError(t, rec).Code)
}

func TestSearchSavesAndExports(t *testing.T) {
	pages := pageFetcher{"http://a.test/search?q=winter+shoes": listing}
	env := newTestEnv(t, pages, storeProfile("A", "http://a.test"), storeProfile("B", "http://b.test"))

	rec := env.do(t, http.MethodPost, "/api/v1/search", SearchRequest{Query: "winter shoes"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "1 succeeded, 1 failed, 2 products", resp.Status)
	assert.True(t, resp.Saved)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "B", resp.Failures[0].Store)
	assert.Equal(t, "http_status", resp.Failures[0].Category)

	rec = env.do(t, http.MethodGet, "/api/v1/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var saved stores.SavedResults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "winter shoes", saved.Query)
	assert.Equal(t, resp.ID, saved.ID)
	require.Len(t, saved.Products, 2)

	rec = env.do(t, http.MethodGet, "/api/v1/results/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"name", "price", "url", "store_name", "description"}, records[0])
	assert.Equal(t, []string{"Shoe", "$10", "http://a.test/p/1", "A", ""}, records[1])
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t, pageFetcher{})

	rec := env.do(t, http.MethodPost, "/api/v1/search", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidInput, decodeError(t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/v1/search", SearchRequest{Query: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestStoreEndpoint(t *testing.T) {
	detail := `<h1 class="name">Boot</h1><span class="price">$20</span>`
	pages := pageFetcher{
		"http://a.test/list":   listing,
		"http://a.test/p/boot": detail,
	}
	env := newTestEnv(t, pages, storeProfile("A", "http://a.test"))

	rec := env.do(t, http.MethodPost, "/api/v1/stores/0/test", TestStoreRequest{URL: "http://a.test/list"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TestStoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rec = env.do(t, http.MethodPost, "/api/v1/stores/0/test", TestStoreRequest{URL: "http://a.test/p/boot", Single: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "http://a.test/p/boot", resp.Products[0].URL)

	rec = env.do(t, http.MethodPost, "/api/v1/stores/0/test", TestStoreRequest{URL: "http://a.test/missing"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "http_status", decodeError(t, rec).Category)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, pageFetcher{})

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storescraper_products_extracted_total")
}
