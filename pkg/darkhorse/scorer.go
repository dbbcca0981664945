// Package darkhorse assigns the 0-5 opportunity index to product records.
package darkhorse

import (
	"sort"
	"time"

	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/signal"
)

const (
	MinIndex = 0
	MaxIndex = 5

	DefaultFreshDays         = 30
	DefaultTreasureThreshold = 60
)

// Breakdown shows how each rule contributed to an index.
type Breakdown struct {
	Funding     int `json:"funding"`
	Quality     int `json:"quality"`
	Freshness   int `json:"freshness"`
	Growth      int `json:"growth"`
	SourceTier  int `json:"source_tier"`
	FundingNews int `json:"funding_news"`
	Index       int `json:"index"`
}

// Scorer applies the fixed additive rules. It holds no per-batch state, so
// a record's score never depends on the other records in the batch.
type Scorer struct {
	extractor         *signal.Extractor
	freshDays         float64
	treasureThreshold float64
}

// NewScorer creates a scorer. Zero values select the defaults.
func NewScorer(extractor *signal.Extractor, freshDays, treasureThreshold float64) *Scorer {
	if extractor == nil {
		extractor = signal.NewExtractor(nil)
	}
	if freshDays <= 0 {
		freshDays = DefaultFreshDays
	}
	if treasureThreshold <= 0 {
		treasureThreshold = DefaultTreasureThreshold
	}
	return &Scorer{
		extractor:         extractor,
		freshDays:         freshDays,
		treasureThreshold: treasureThreshold,
	}
}

// Explain evaluates every rule against p at now.
func (s *Scorer) Explain(p *product.Product, now time.Time) Breakdown {
	sig := s.extractor.Extract(p, now)
	var b Breakdown

	switch {
	case sig.FundingMillions >= 10:
		b.Funding = 2
	case sig.FundingMillions >= 1:
		b.Funding = 1
	}
	if sig.TreasureScore >= s.treasureThreshold {
		b.Quality = 1
	}
	if sig.HasFreshDate && sig.AgeDays <= s.freshDays {
		b.Freshness = 1
	}
	if sig.Growth > 0 {
		b.Growth = 1
	}
	b.SourceTier = sig.SourceTier
	if sig.FundingNews {
		b.FundingNews = 1
	}

	b.Index = Clamp(b.Funding + b.Quality + b.Freshness + b.Growth + b.SourceTier + b.FundingNews)
	return b
}

// Score returns the index of p at now.
func (s *Scorer) Score(p *product.Product, now time.Time) int {
	return s.Explain(p, now).Index
}

// Apply annotates p in place. Curated indexes are kept as the curator set
// them, only clamped into range.
func (s *Scorer) Apply(p *product.Product, now time.Time) {
	if p.IsCurated() {
		p.DarkHorseIndex = Clamp(p.DarkHorseIndex)
		return
	}
	p.DarkHorseIndex = s.Score(p, now)
	p.ScoreProvenance = product.ProvenanceDerived
}

// Detect scores a copy of records. With applyToAll every record is returned
// annotated; otherwise only those with an index of at least minIndex.
func (s *Scorer) Detect(records []product.Product, minIndex int, applyToAll bool, now time.Time) []product.Product {
	out := make([]product.Product, 0, len(records))
	for i := range records {
		p := records[i]
		s.Apply(&p, now)
		if applyToAll || p.DarkHorseIndex >= minIndex {
			out = append(out, p)
		}
	}
	return out
}

// Top scores records, keeps those with an index of at least minIndex and
// returns at most limit of them ordered by (index, treasure score, final or
// trending score), all descending.
func (s *Scorer) Top(records []product.Product, limit, minIndex int, now time.Time) []product.Product {
	out := s.Detect(records, minIndex, false, now)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.DarkHorseIndex != b.DarkHorseIndex {
			return a.DarkHorseIndex > b.DarkHorseIndex
		}
		if a.TreasureScore != b.TreasureScore {
			return a.TreasureScore > b.TreasureScore
		}
		return a.RankScore() > b.RankScore()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Clamp bounds an index to [MinIndex, MaxIndex].
func Clamp(v int) int {
	if v < MinIndex {
		return MinIndex
	}
	if v > MaxIndex {
		return MaxIndex
	}
	return v
}
