// Package search filters, sorts and pages the canonical product list.
package search

import (
	"strings"
	"time"

	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/ranking"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	TypeAll      = "all"
	TypeHardware = "hardware"
	TypeSoftware = "software"
)

// Query is one search request.
type Query struct {
	Keyword    string
	Categories []product.Category
	Type       string
	SortBy     string
	Page       int
	Limit      int
}

// Normalize fills defaults: page 1, limit DefaultLimit capped at MaxLimit,
// sort "trending".
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if strings.TrimSpace(q.SortBy) == "" {
		q.SortBy = string(ranking.ModeTrending)
	}
	return q
}

// Result is one page plus the size of the full filtered set.
type Result struct {
	Products []product.Product `json:"products"`
	Total    int               `json:"total"`
}

// Searcher runs queries against a record snapshot.
type Searcher struct {
	ranker *ranking.Ranker
}

// New creates a Searcher sorting through ranker.
func New(ranker *ranking.Ranker) *Searcher {
	if ranker == nil {
		ranker = ranking.NewRanker(ranking.Weights{})
	}
	return &Searcher{ranker: ranker}
}

// Search filters by keyword, category and type, sorts by q.SortBy and
// returns the requested page. Total counts the filtered set before paging.
func (s *Searcher) Search(records []product.Product, q Query, now time.Time) Result {
	q = q.Normalize()

	var matched []product.Product
	for i := range records {
		p := &records[i]
		if !MatchesKeyword(p, q.Keyword) {
			continue
		}
		if len(q.Categories) > 0 && !product.CategoriesOverlap(p.Categories, q.Categories) {
			continue
		}
		if !MatchesType(p, q.Type) {
			continue
		}
		matched = append(matched, *p)
	}

	sorted := s.ranker.Sort(matched, ranking.ResolveMode(q.SortBy), now)
	return Result{Products: Paginate(sorted, q.Page, q.Limit), Total: len(sorted)}
}

// MatchesKeyword does case-insensitive substring matching over the primary
// text fields and their English variants. An empty keyword matches all.
func MatchesKeyword(p *product.Product, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return true
	}
	fields := []string{
		p.Name, p.Description, p.WhyMatters, p.LatestNews, p.SourceTitle,
		p.Extra.SearchKeyword, p.DescriptionEn, p.WhyMattersEn,
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), kw) {
			return true
		}
	}
	return false
}

// MatchesType applies the product type filter; "all" or empty matches all.
func MatchesType(p *product.Product, typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case TypeHardware:
		return p.HasHardwareSignal()
	case TypeSoftware:
		return !p.HasHardwareSignal()
	default:
		return true
	}
}

// Paginate returns records[(page-1)*limit : page*limit], empty when the
// page is out of range.
func Paginate(records []product.Product, page, limit int) []product.Product {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	start := (page - 1) * limit
	if start >= len(records) {
		return []product.Product{}
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// Pages is the number of pages of size limit needed for total records.
func Pages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ParseCategories splits a comma separated list into vocabulary tags,
// skipping unknown ones.
func ParseCategories(s string) []product.Category {
	var out []product.Category
	for _, part := range strings.Split(s, ",") {
		if c, ok := product.ParseCategory(part); ok {
			out = append(out, c)
		}
	}
	return out
}
