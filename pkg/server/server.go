package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/elonfeng/aiscout/internal/logging"
	"github.com/elonfeng/aiscout/internal/store"
	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/ranking"
	"github.com/elonfeng/aiscout/pkg/search"
)

// Error codes returned in the "error" field of failure responses.
const (
	CodeBadRequest  = "bad_request"
	CodeNotFound    = "not_found"
	CodeRateLimited = "rate_limited"
	CodeInternal    = "internal_error"
)

// Options configures the HTTP API.
type Options struct {
	Store   store.Store
	Ranker  *ranking.Ranker
	Weekly  ranking.WeeklyOptions
	Limiter *Limiter
	Port    int
	Logger  *log.Logger
	Now     func() time.Time
}

// Server provides the read-only HTTP API.
type Server struct {
	store    store.Store
	searcher *search.Searcher
	weekly   ranking.WeeklyOptions
	limiter  *Limiter
	port     int
	logger   *log.Logger
	now      func() time.Time
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Response is the envelope of every API response.
type Response struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// New creates a new HTTP server.
func New(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		searcher: search.New(opts.Ranker),
		weekly:   opts.Weekly,
		limiter:  opts.Limiter,
		port:     opts.Port,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.port == 0 {
		s.port = 8080
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	if s.limiter != nil {
		r.Use(s.rateLimit())
	}

	r.GET("/health", s.handleHealth)

	products := r.Group("/api/products")
	products.GET("/search", s.handleSearch)
	products.GET("/trending", s.handleTrending)
	products.GET("/weekly-top", s.handleWeeklyTop)
	products.GET("/dark-horses", s.handleDarkHorses)
	products.GET("/:id", s.handleProduct)

	r.GET("/api/blogs", s.handleBlogs)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			fail(c, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSearch(c *gin.Context) {
	page, ok := intParam(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := intParam(c, "limit", search.DefaultLimit)
	if !ok {
		return
	}
	records, ok := s.products(c)
	if !ok {
		return
	}

	q := search.Query{
		Keyword:    c.Query("keyword"),
		Categories: search.ParseCategories(c.Query("categories")),
		Type:       c.Query("type"),
		SortBy:     c.Query("sort_by"),
		Page:       page,
		Limit:      limit,
	}.Normalize()
	res := s.searcher.Search(records, q, s.now())

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    res.Products,
		Pagination: &Pagination{
			Page:  q.Page,
			Limit: q.Limit,
			Total: res.Total,
			Pages: search.Pages(res.Total, q.Limit),
		},
	})
}

func (s *Server) handleTrending(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	records, ok := s.products(c)
	if !ok {
		return
	}
	list(c, head(ranking.Trending(records), limit))
}

func (s *Server) handleWeeklyTop(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	records, ok := s.products(c)
	if !ok {
		return
	}
	list(c, ranking.WeeklyTop(records, limit, s.now()))
}

func (s *Server) handleDarkHorses(c *gin.Context) {
	opts := s.weekly
	limit, ok := intParam(c, "limit", opts.Limit)
	if !ok {
		return
	}
	minIndex, ok := intParam(c, "min_index", opts.MinIndex)
	if !ok {
		return
	}
	opts.Limit = min(limit, search.MaxLimit)
	opts.MinIndex = minIndex

	records, ok := s.products(c)
	if !ok {
		return
	}
	list(c, ranking.WeeklyDarkHorses(records, opts, s.now()))
}

func (s *Server) handleProduct(c *gin.Context) {
	p, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, CodeNotFound, "product not found")
		return
	}
	if err != nil {
		s.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: p})
}

func (s *Server) handleBlogs(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	records, err := s.store.List(c.Request.Context(), store.ListOpts{ContentTypes: []string{"blog", "news"}})
	if err != nil {
		s.internal(c, err)
		return
	}
	blogs := search.FilterMarket(records, c.Query("market"))
	list(c, head(ranking.Recency(blogs), limit))
}

// products loads the product listings, excluding news and blog entries.
func (s *Server) products(c *gin.Context) ([]product.Product, bool) {
	records, err := s.store.Load(c.Request.Context())
	if err != nil {
		s.internal(c, err)
		return nil, false
	}
	return search.Products(records), true
}

func (s *Server) internal(c *gin.Context, err error) {
	s.logger.Error("request failed", "path", c.Request.URL.Path, "err", err)
	fail(c, http.StatusInternalServerError, CodeInternal, "internal error")
}

func list(c *gin.Context, records []product.Product) {
	if records == nil {
		records = []product.Product{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Success: false, Error: code, Message: message})
}

// intParam reads a non-negative integer query parameter. A malformed value
// writes a 400 and reports false.
func intParam(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fail(c, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return n, true
}

func limitParam(c *gin.Context) (int, bool) {
	n, ok := intParam(c, "limit", search.DefaultLimit)
	if !ok {
		return 0, false
	}
	if n == 0 {
		n = search.DefaultLimit
	}
	return min(n, search.MaxLimit), true
}

func head(records []product.Product, n int) []product.Product {
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}
