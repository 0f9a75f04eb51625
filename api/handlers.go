package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aluiziolira/go-scrape-stores/models"
	"github.com/aluiziolira/go-scrape-stores/parser"
	"github.com/aluiziolira/go-scrape-stores/pipeline"
)

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	Stores        int    `json:"stores"`
	EnabledStores int    `json:"enabled_stores"`
}

// StoreResponse pairs a profile with its position in the collection.
type StoreResponse struct {
	Index int                 `json:"index"`
	Store models.StoreProfile `json:"store"`
}

// TestStoreRequest is the body of POST /api/v1/stores/:index/test.
type TestStoreRequest struct {
	URL    string `json:"url" binding:"required"`
	Single bool   `json:"single"`
}

// TestStoreResponse reports what a profile extracts from one page.
type TestStoreResponse struct {
	Store    string           `json:"store"`
	URL      string           `json:"url"`
	Products []models.Product `json:"products"`
	Count    int              `json:"count"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// SearchResponse is the outcome plus its status line.
type SearchResponse struct {
	models.SearchOutcome
	Status string `json:"status"`
	Saved  bool   `json:"saved"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Stores:        s.stores.Len(),
		EnabledStores: len(s.stores.Enabled()),
	})
}

func (s *Server) listStores(c *gin.Context) {
	all := s.stores.All()
	out := make([]StoreResponse, len(all))
	for i, profile := range all {
		out[i] = StoreResponse{Index: i, Store: profile}
	}
	c.JSON(http.StatusOK, gin.H{"stores": out})
}

func (s *Server) createStore(c *gin.Context) {
	profile, ok := bindProfile(c)
	if !ok {
		return
	}
	var index int
	err := s.mutate(func() (err error) {
		index, err = s.stores.Add(profile)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, StoreResponse{Index: index, Store: profile})
}

func (s *Server) updateStore(c *gin.Context) {
	index, ok := bindIndex(c)
	if !ok {
		return
	}
	profile, ok := bindProfile(c)
	if !ok {
		return
	}
	err := s.mutate(func() error {
		return s.stores.Update(index, profile)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StoreResponse{Index: index, Store: profile})
}

func (s *Server) deleteStore(c *gin.Context) {
	index, ok := bindIndex(c)
	if !ok {
		return
	}
	var removed models.StoreProfile
	err := s.mutate(func() (err error) {
		removed, err = s.stores.Remove(index)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StoreResponse{Index: index, Store: removed})
}

func (s *Server) testStore(c *gin.Context) {
	index, ok := bindIndex(c)
	if !ok {
		return
	}
	var req TestStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidInput(err))
		return
	}
	profile, err := s.stores.Get(index)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	resp := TestStoreResponse{Store: profile.Name, URL: req.URL, Products: []models.Product{}}
	if req.Single {
		product, found, err := s.scraper.ScrapeProduct(ctx, req.URL, profile)
		if err != nil {
			respondError(c, err)
			return
		}
		if found {
			resp.Products = append(resp.Products, product)
		}
	} else {
		products, err := s.scraper.ScrapeStore(ctx, req.URL, profile)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.Products = products
	}
	resp.Count = len(resp.Products)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) suggestions(c *gin.Context) {
	kind, err := models.ParseFieldKind(c.Param("field"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Code: ErrCodeInvalidField, Message: err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"field":     kind.String(),
		"selectors": parser.SuggestSelectors(kind),
	})
}

func (s *Server) search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidInput(err))
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondError(c, invalidInput(errors.New("query cannot be blank")))
		return
	}

	outcome := s.scraper.SearchAll(c.Request.Context(), query, s.stores.All())
	resp := SearchResponse{SearchOutcome: outcome, Status: outcome.Status()}

	if s.cfg.AutoSaveResults {
		if err := s.repo.SaveResults(outcome); err != nil {
			slog.Warn("saving search results failed", slog.Any("error", err))
		} else {
			resp.Saved = true
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) results(c *gin.Context) {
	c.JSON(http.StatusOK, s.repo.LoadResults())
}

func (s *Server) exportResults(c *gin.Context) {
	saved := s.repo.LoadResults()
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="search_results.csv"`)
	c.Status(http.StatusOK)
	if err := pipeline.ExportCSV(c.Writer, saved.Products); err != nil {
		slog.Error("csv export failed", slog.Any("error", err))
	}
}

// mutate applies change to the collection and persists the result. When the
// save fails the collection is restored, so memory never runs ahead of disk.
func (s *Server) mutate(change func() error) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	before := s.stores.All()
	if err := change(); err != nil {
		return err
	}
	if err := s.repo.SaveStores(s.stores.All()); err != nil {
		s.stores.Replace(before)
		return fmt.Errorf("persist stores: %w", err)
	}
	return nil
}

// bindProfile decodes a profile body. Omitted enabled and search pattern
// fields keep their defaults.
func bindProfile(c *gin.Context) (models.StoreProfile, bool) {
	profile := models.StoreProfile{
		SearchURLPattern: models.DefaultSearchURLPattern,
		Enabled:          true,
	}
	if err := c.ShouldBindJSON(&profile); err != nil {
		respondError(c, invalidInput(err))
		return models.StoreProfile{}, false
	}
	return profile, true
}

func bindIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, invalidInput(fmt.Errorf("invalid store index %q", c.Param("index"))))
		return 0, false
	}
	return index, true
}
