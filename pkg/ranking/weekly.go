package ranking

import (
	"sort"
	"time"

	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/signal"
)

const (
	DefaultFreshDays  = 7
	DefaultStickyDays = 21
)

// WeeklyOptions configures WeeklyDarkHorses.
type WeeklyOptions struct {
	MinIndex int
	Limit    int
	// FreshDays bounds "this week": a record discovered exactly FreshDays
	// ago is still fresh.
	FreshDays float64
	// StickyDays breaks index ties among stale records when nothing is
	// fresh: of two equal indexes, the one discovered within StickyDays
	// comes first.
	StickyDays float64
}

func (o WeeklyOptions) withDefaults() WeeklyOptions {
	if o.FreshDays <= 0 {
		o.FreshDays = DefaultFreshDays
	}
	if o.StickyDays <= 0 {
		o.StickyDays = DefaultStickyDays
	}
	return o
}

// WeeklyDarkHorses picks the week's dark horses. When any candidate is
// fresh, only fresh candidates are eligible, even if fewer than Limit
// qualify; stale records appear only when nothing is fresh.
func WeeklyDarkHorses(candidates []product.Product, opts WeeklyOptions, now time.Time) []product.Product {
	opts = opts.withDefaults()

	var fresh, stale []product.Product
	for i := range candidates {
		t, ok := signal.DiscoveryDate(&candidates[i])
		if ok && signal.WithinDays(t, now, opts.FreshDays) {
			fresh = append(fresh, candidates[i])
		} else {
			stale = append(stale, candidates[i])
		}
	}

	var pool []product.Product
	var recent func(*product.Product) bool
	if len(fresh) > 0 {
		pool = atLeast(fresh, opts.MinIndex)
	} else {
		pool = atLeast(stale, opts.MinIndex)
		recent = func(p *product.Product) bool {
			t, ok := signal.DiscoveryDate(p)
			return ok && signal.WithinDays(t, now, opts.StickyDays)
		}
	}

	sortDarkHorses(pool, recent)
	if opts.Limit > 0 && len(pool) > opts.Limit {
		pool = pool[:opts.Limit]
	}
	return pool
}

func atLeast(records []product.Product, minIndex int) []product.Product {
	var out []product.Product
	for i := range records {
		if records[i].DarkHorseIndex >= minIndex {
			out = append(out, records[i])
		}
	}
	return out
}

// sortDarkHorses orders by index, then recent (when set), then funding,
// then quality scores.
func sortDarkHorses(records []product.Product, recent func(*product.Product) bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		if a.DarkHorseIndex != b.DarkHorseIndex {
			return a.DarkHorseIndex > b.DarkHorseIndex
		}
		if recent != nil {
			if ra, rb := recent(a), recent(b); ra != rb {
				return ra
			}
		}
		if fa, fb := signal.FundingMillions(a), signal.FundingMillions(b); fa != fb {
			return fa > fb
		}
		if a.TreasureScore != b.TreasureScore {
			return a.TreasureScore > b.TreasureScore
		}
		if ra, rb := a.RankScore(), b.RankScore(); ra != rb {
			return ra > rb
		}
		return a.Name < b.Name
	})
}

// WeeklyTop returns the best-scored records of the current ISO week, or of
// the most recent week that has any records.
func WeeklyTop(records []product.Product, limit int, now time.Time) []product.Product {
	byWeek := make(map[string][]product.Product)
	latest := ""
	for i := range records {
		t, ok := signal.DiscoveryDate(&records[i])
		if !ok {
			continue
		}
		key := signal.WeekKey(t)
		byWeek[key] = append(byWeek[key], records[i])
		if key > latest {
			latest = key
		}
	}

	week := byWeek[signal.WeekKey(now)]
	if len(week) == 0 {
		week = byWeek[latest]
	}

	sort.SliceStable(week, func(i, j int) bool {
		a, b := &week[i], &week[j]
		if ra, rb := a.RankScore(), b.RankScore(); ra != rb {
			return ra > rb
		}
		if ha, hb := a.HotnessScore(), b.HotnessScore(); ha != hb {
			return ha > hb
		}
		return a.Name < b.Name
	})
	if limit > 0 && len(week) > limit {
		week = week[:limit]
	}
	return week
}
