package dedup

import "github.com/elonfeng/aiscout/pkg/product"

func poolScore(p *product.Product) int {
	score := 0
	if product.Present(p.SourceURL) {
		score += 3
	}
	if !product.IsPlaceholderWebsite(p.Website) {
		score += 2
	}
	if product.Present(p.SourceTitle) {
		score++
	}
	return score
}

// NeedsBackfill reports whether p lacks a source URL or a usable website.
func NeedsBackfill(p *product.Product) bool {
	return !product.Present(p.SourceURL) || product.IsPlaceholderWebsite(p.Website)
}

// Backfill fills missing source_url, website and source_title on records
// from the best pool entry with the same name key. Populated valid fields
// are never overwritten. Returns the updated copy and how many records
// changed.
func Backfill(records, pool []product.Product) ([]product.Product, int) {
	best := make(map[string]*product.Product)
	for i := range pool {
		cand := &pool[i]
		key := product.NameKey(cand.Name)
		if key == "" {
			continue
		}
		if cur, ok := best[key]; !ok || poolScore(cand) > poolScore(cur) {
			best[key] = cand
		}
	}

	out := make([]product.Product, len(records))
	copy(out, records)
	filled := 0
	for i := range out {
		p := &out[i]
		if !NeedsBackfill(p) {
			continue
		}
		cand, ok := best[product.NameKey(p.Name)]
		if !ok {
			continue
		}
		changed := false
		if !product.Present(p.SourceURL) && product.Present(cand.SourceURL) {
			p.SourceURL = cand.SourceURL
			changed = true
		}
		if product.IsPlaceholderWebsite(p.Website) && !product.IsPlaceholderWebsite(cand.Website) {
			p.Website = cand.Website
			changed = true
		}
		if !product.Present(p.SourceTitle) && product.Present(cand.SourceTitle) {
			p.SourceTitle = cand.SourceTitle
			changed = true
		}
		if changed {
			filled++
		}
	}
	return out, filled
}
