// Package ranking produces ordered views over the canonical product list.
// Every function returns a new slice and leaves scores untouched.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/elonfeng/aiscout/pkg/darkhorse"
	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/signal"
)

// Mode selects a sort order.
type Mode string

const (
	ModeTrending  Mode = "trending"
	ModeRecency   Mode = "recency"
	ModeComposite Mode = "composite"
	ModeFunding   Mode = "funding"
)

// ResolveMode maps current and historical mode names onto a Mode.
// Unrecognized names fall back to composite.
func ResolveMode(name string) Mode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trending", "score", "hot":
		return ModeTrending
	case "recency", "date", "latest", "new":
		return ModeRecency
	case "funding":
		return ModeFunding
	default:
		return ModeComposite
	}
}

// Weights tunes the composite blend.
type Weights struct {
	Hot          float64 `yaml:"hot_weight"`
	Recency      float64 `yaml:"recency_weight"`
	DarkHorse    float64 `yaml:"dark_horse_weight"`
	HalfLifeDays float64 `yaml:"half_life_days"`
}

// DefaultWeights balances hotness and recency equally with a one week
// recency half-life.
func DefaultWeights() Weights {
	return Weights{Hot: 0.5, Recency: 0.5, DarkHorse: 0, HalfLifeDays: 7}
}

// Ranker sorts records by mode.
type Ranker struct {
	weights Weights
}

// NewRanker creates a ranker; a zero Weights selects DefaultWeights.
func NewRanker(w Weights) *Ranker {
	if w.Hot+w.Recency+w.DarkHorse == 0 {
		d := DefaultWeights()
		w.Hot, w.Recency, w.DarkHorse = d.Hot, d.Recency, d.DarkHorse
	}
	if w.HalfLifeDays <= 0 {
		w.HalfLifeDays = DefaultWeights().HalfLifeDays
	}
	return &Ranker{weights: w}
}

// Sort orders records by the resolved mode.
func (r *Ranker) Sort(records []product.Product, mode Mode, now time.Time) []product.Product {
	switch mode {
	case ModeTrending:
		return Trending(records)
	case ModeRecency:
		return Recency(records)
	case ModeFunding:
		return Funding(records)
	default:
		return r.Composite(records, now)
	}
}

func clone(records []product.Product) []product.Product {
	out := make([]product.Product, len(records))
	copy(out, records)
	return out
}

// laterFirst orders parsed dates newest first with unparseable ones last.
// It returns (less, decided).
func laterFirst(a, b *product.Product, date func(*product.Product) (time.Time, bool)) (bool, bool) {
	ta, oka := date(a)
	tb, okb := date(b)
	switch {
	case oka && okb:
		if ta.Equal(tb) {
			return false, false
		}
		return ta.After(tb), true
	case oka != okb:
		return oka, true
	}
	return false, false
}

// Trending sorts by hotness, then most recent first-seen date, then name.
func Trending(records []product.Product) []product.Product {
	out := clone(records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if ha, hb := a.HotnessScore(), b.HotnessScore(); ha != hb {
			return ha > hb
		}
		if less, ok := laterFirst(a, b, signal.FirstSeenDate); ok {
			return less
		}
		return a.Name < b.Name
	})
	return out
}

// Recency sorts by discovery date, unparseable dates last, then hotness.
func Recency(records []product.Product) []product.Product {
	out := clone(records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if less, ok := laterFirst(a, b, signal.DiscoveryDate); ok {
			return less
		}
		if ha, hb := a.HotnessScore(), b.HotnessScore(); ha != hb {
			return ha > hb
		}
		return a.Name < b.Name
	})
	return out
}

// Funding sorts by parsed funding amount, then hotness.
func Funding(records []product.Product) []product.Product {
	out := clone(records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if fa, fb := signal.FundingMillions(a), signal.FundingMillions(b); fa != fb {
			return fa > fb
		}
		if ha, hb := a.HotnessScore(), b.HotnessScore(); ha != hb {
			return ha > hb
		}
		return a.Name < b.Name
	})
	return out
}

// CompositeScore blends hotness normalized against maxHot, recency decayed
// by half-life, and the dark horse index.
func (r *Ranker) CompositeScore(p *product.Product, maxHot float64, now time.Time) float64 {
	hot := 0.0
	if maxHot > 0 {
		hot = math.Max(p.HotnessScore(), 0) / maxHot
	}
	recency := 0.0
	if t, ok := signal.DiscoveryDate(p); ok {
		recency = math.Pow(0.5, signal.AgeDays(t, now)/r.weights.HalfLifeDays)
	}
	dh := float64(darkhorse.Clamp(p.DarkHorseIndex)) / darkhorse.MaxIndex
	return r.weights.Hot*hot + r.weights.Recency*recency + r.weights.DarkHorse*dh
}

// Composite sorts by CompositeScore, recomputed on every call.
func (r *Ranker) Composite(records []product.Product, now time.Time) []product.Product {
	maxHot := 0.0
	for i := range records {
		maxHot = math.Max(maxHot, records[i].HotnessScore())
	}

	type scored struct {
		p     product.Product
		score float64
	}
	keyed := make([]scored, len(records))
	for i := range records {
		keyed[i] = scored{p: records[i], score: r.CompositeScore(&records[i], maxHot, now)}
	}
	sort.SliceStable(keyed, func(i, j int) bool {
		if keyed[i].score != keyed[j].score {
			return keyed[i].score > keyed[j].score
		}
		return keyed[i].p.Name < keyed[j].p.Name
	})

	out := make([]product.Product, len(keyed))
	for i := range keyed {
		out[i] = keyed[i].p
	}
	return out
}
