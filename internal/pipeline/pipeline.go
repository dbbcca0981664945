// Package pipeline runs the batch reconciliation pass over the product
// collection.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/aiscout/internal/logging"
	"github.com/elonfeng/aiscout/internal/store"
	"github.com/elonfeng/aiscout/pkg/darkhorse"
	"github.com/elonfeng/aiscout/pkg/dedup"
	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/region"
	"github.com/elonfeng/aiscout/pkg/search"
	"github.com/elonfeng/aiscout/pkg/signal"
)

// Options controls a Run.
type Options struct {
	// DryRun computes everything and writes nothing.
	DryRun bool
	Now    time.Time
}

// Report counts what a reconcile pass changed.
type Report struct {
	Input             int            `json:"input"`
	Output            int            `json:"output"`
	Blocked           int            `json:"blocked"`
	Backfilled        int            `json:"backfilled"`
	Rescored          int            `json:"rescored"`
	Dedup             dedup.Stats    `json:"dedup"`
	RegionsChanged    int            `json:"regions_changed"`
	CountriesChanged  int            `json:"countries_changed"`
	IDsAssigned       int            `json:"ids_assigned"`
	NeedsVerification int            `json:"needs_verification"`
	Week              string         `json:"week"`
	WeekCount         int            `json:"week_count"`
	Issues            []region.Issue `json:"issues,omitempty"`
	DryRun            bool           `json:"dry_run"`
}

// Reconciler owns the stages of a reconcile pass.
type Reconciler struct {
	store     store.Store
	scorer    *darkhorse.Scorer
	blocklist *dedup.Blocklist
	logger    *log.Logger
}

// New creates a Reconciler. A nil scorer or blocklist selects defaults.
func New(s store.Store, scorer *darkhorse.Scorer, blocklist *dedup.Blocklist, logger *log.Logger) *Reconciler {
	if scorer == nil {
		scorer = darkhorse.NewScorer(nil, 0, 0)
	}
	if blocklist == nil {
		blocklist = dedup.NewBlocklist(nil, nil)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Reconciler{store: s, scorer: scorer, blocklist: blocklist, logger: logger}
}

// Run loads the collection and the weekly pool, reconciles, and unless
// opts.DryRun replaces the collection and the current week's snapshot.
func (r *Reconciler) Run(ctx context.Context, opts Options) (Report, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	records, err := r.store.Load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load products: %w", err)
	}
	pool, err := r.store.LoadWeeks(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load weekly pool: %w", err)
	}

	out, rep := r.Reconcile(records, pool, now)
	week := ThisWeek(out, now)
	rep.Week, rep.WeekCount = signal.WeekKey(now), len(week)
	rep.DryRun = opts.DryRun

	r.logger.Info("reconciled",
		"input", rep.Input, "output", rep.Output, "blocked", rep.Blocked,
		"backfilled", rep.Backfilled, "duplicates", rep.Dedup.SameDomain+rep.Dedup.SameName,
		"issues", len(rep.Issues), "dry_run", opts.DryRun)

	if opts.DryRun {
		return rep, nil
	}
	if err := r.store.Save(ctx, out); err != nil {
		return rep, fmt.Errorf("save products: %w", err)
	}
	if len(week) > 0 {
		if err := r.store.SaveWeek(ctx, rep.Week, week); err != nil {
			return rep, fmt.Errorf("save week %s: %w", rep.Week, err)
		}
	}
	return rep, nil
}

// Reconcile runs every stage over a copy of records and returns the new
// collection. pool is the weekly snapshot history used for backfill.
func (r *Reconciler) Reconcile(records, pool []product.Product, now time.Time) ([]product.Product, Report) {
	rep := Report{Input: len(records)}

	out := make([]product.Product, len(records))
	copy(out, records)
	for i := range out {
		out[i].Categories = product.NormalizeCategories(out[i].Categories)
	}

	out, rep.Blocked = r.blocklist.Filter(out)
	out, rep.Backfilled = dedup.Backfill(out, pool)

	for i := range out {
		before := out[i].DarkHorseIndex
		r.scorer.Apply(&out[i], now)
		if out[i].DarkHorseIndex != before {
			rep.Rescored++
		}
	}

	d := dedup.Deduplicator{Exempt: exemptFromDomain}
	out, rep.Dedup = d.Dedup(out)

	for i := range out {
		p := &out[i]
		if product.DomainKey(p.Website) == "" && p.IsCurated() {
			p.NeedsVerification = true
		}
		if region.ApplyRegion(p) {
			rep.RegionsChanged++
		}
		if region.ApplyCountry(p) {
			rep.CountriesChanged++
		}
		if p.EnsureID() {
			rep.IDsAssigned++
		}
		if p.NeedsVerification {
			rep.NeedsVerification++
		}
	}

	rep.Issues = region.Validate(out)
	rep.Output = len(out)
	return out, rep
}

// exemptFromDomain keeps curated entries and news/blog articles that have no
// usable website instead of dropping them in the domain pass.
func exemptFromDomain(p *product.Product) bool {
	return p.IsCurated() || search.IsBlog(p)
}

// Merge folds freshly collected records into the collection. Records whose
// identity already exists fill missing fields of the stored one and refresh
// its counters, upstream scores and curated index; new identities are
// appended with discovered_at stamped if it is missing.
func Merge(existing, incoming []product.Product, now time.Time) ([]product.Product, int) {
	merged, _ := dedup.Backfill(existing, incoming)

	known := make(map[string]bool, len(merged))
	at := make(map[string]int, len(merged))
	for i := range merged {
		key := merged[i].IdentityKey()
		known[key] = true
		at[key] = i
	}
	for i := range incoming {
		if j, ok := at[incoming[i].IdentityKey()]; ok {
			refresh(&merged[j], &incoming[i])
		}
	}
	added := 0
	stamp := now.UTC().Format(time.RFC3339)
	for i := range incoming {
		p := incoming[i]
		key := p.IdentityKey()
		if key != "" && known[key] {
			continue
		}
		if !product.Present(p.DiscoveredAt) {
			p.DiscoveredAt = stamp
		}
		if key != "" {
			known[key] = true
		}
		merged = append(merged, p)
		added++
	}
	return merged, added
}

// refresh copies what a later collection knows better onto the stored
// record. Zero upstream scores mean "not reported" and never overwrite.
func refresh(dst, src *product.Product) {
	if len(src.Extra.Metrics) > 0 {
		updateMetrics(dst, src.Extra.Metrics)
	}
	if src.IsCurated() {
		dst.DarkHorseIndex = src.DarkHorseIndex
		dst.ScoreProvenance = src.ScoreProvenance
	}
	for _, f := range []struct{ to, from *float64 }{
		{&dst.HotScore, &src.HotScore},
		{&dst.TrendingScore, &src.TrendingScore},
		{&dst.FinalScore, &src.FinalScore},
		{&dst.TreasureScore, &src.TreasureScore},
	} {
		if *f.from != 0 {
			*f.to = *f.from
		}
	}
}

// updateMetrics records the change of each counter since the stored value
// and keeps the latest counters.
func updateMetrics(p *product.Product, latest map[string]float64) {
	delta := make(map[string]float64, len(latest))
	for k, v := range latest {
		if prev, ok := p.Extra.Metrics[k]; ok {
			delta[k] = v - prev
		}
	}
	metrics := make(map[string]float64, len(latest))
	for k, v := range latest {
		metrics[k] = v
	}
	p.Extra.Metrics = metrics
	if len(delta) > 0 {
		p.Extra.MetricsDelta = delta
	}
}

// ThisWeek returns the records discovered in the ISO week containing now.
func ThisWeek(records []product.Product, now time.Time) []product.Product {
	key := signal.WeekKey(now)
	var out []product.Product
	for i := range records {
		t, ok := signal.DiscoveryDate(&records[i])
		if ok && signal.WeekKey(t) == key {
			out = append(out, records[i])
		}
	}
	return out
}
