// Package signal normalizes heterogeneous product fields into typed signals
// the scorer and rankers consume.
package signal

import (
	"strings"
	"time"

	"github.com/elonfeng/aiscout/pkg/product"
)

// GrowthMetrics are the extra.metrics_delta keys that count toward growth.
var GrowthMetrics = []string{"stars", "votes", "likes", "downloads", "weekly_users", "points", "comments"}

// DefaultPremiumSources are sources whose listings are a quality signal on
// their own: curation, product discovery sites, accelerators, press and
// exhibitions.
var DefaultPremiumSources = []string{
	"curated", "producthunt", "product_hunt", "ycombinator", "yc",
	"techcrunch", "36kr", "theinformation", "exhibition", "ces",
}

// Signals is the typed view of one record at an evaluation time.
type Signals struct {
	FundingMillions float64
	FreshAt         time.Time
	HasFreshDate    bool
	AgeDays         float64
	Growth          float64
	SourceTier      int
	FundingNews     bool
	TreasureScore   float64
}

// Extractor reads signals off records. The zero value uses the default
// premium source set.
type Extractor struct {
	premium map[string]int
}

// NewExtractor builds an Extractor with the given premium sources; an empty
// list selects DefaultPremiumSources.
func NewExtractor(premiumSources []string) *Extractor {
	if len(premiumSources) == 0 {
		premiumSources = DefaultPremiumSources
	}
	premium := make(map[string]int, len(premiumSources))
	for _, s := range premiumSources {
		premium[strings.ToLower(strings.TrimSpace(s))] = 1
	}
	return &Extractor{premium: premium}
}

// Extract reads all signals of p as of now.
func (e *Extractor) Extract(p *product.Product, now time.Time) Signals {
	s := Signals{
		FundingMillions: FundingMillions(p),
		Growth:          GrowthDelta(p),
		SourceTier:      e.SourceTier(p.Source),
		FundingNews:     p.Extra.IsFundingNews != nil && *p.Extra.IsFundingNews,
		TreasureScore:   p.TreasureScore,
	}
	if t, ok := FreshnessDate(p); ok {
		s.FreshAt = t
		s.HasFreshDate = true
		s.AgeDays = AgeDays(t, now)
	}
	return s
}

// SourceTier returns the reputation bonus of a source, 0 for ordinary ones.
func (e *Extractor) SourceTier(source string) int {
	if e == nil || e.premium == nil {
		return NewExtractor(nil).SourceTier(source)
	}
	return e.premium[strings.ToLower(strings.TrimSpace(source))]
}

// GrowthDelta sums the non-negative deltas of GrowthMetrics.
func GrowthDelta(p *product.Product) float64 {
	total := 0.0
	for _, m := range GrowthMetrics {
		if d := p.Extra.MetricsDelta[m]; d > 0 {
			total += d
		}
	}
	return total
}
