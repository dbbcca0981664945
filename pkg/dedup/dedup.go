// Package dedup resolves product identity and collapses duplicate records
// from different sources into one canonical record per identity.
package dedup

import "github.com/elonfeng/aiscout/pkg/product"

// QualityScore ranks duplicate variants against each other. It is not the
// dark horse index, only a tie-break for which variant survives.
func QualityScore(p *product.Product) int {
	score := p.DarkHorseIndex * 10
	if product.Present(p.LogoURL) {
		score += 3
	}
	if product.Present(p.WhyMatters) {
		score += 2
	}
	if product.Present(p.FundingTotal) {
		score++
	}
	if product.Present(p.SourceURL) {
		score++
	}
	if product.Present(p.Description) {
		score++
	}
	return score
}

// Stats counts what a deduplication pass removed.
type Stats struct {
	NoDomain    int `json:"no_domain"`
	SameDomain  int `json:"same_domain"`
	SameName    int `json:"same_name"`
	ExemptKept  int `json:"exempt_kept"`
	InputCount  int `json:"input"`
	OutputCount int `json:"output"`
}

// Deduplicator collapses duplicates in two passes, by domain then by name.
type Deduplicator struct {
	// Exempt, when set, lets records without a usable domain skip the
	// domain pass instead of being dropped. They still take part in the
	// name pass.
	Exempt func(*product.Product) bool
}

// Dedup runs a Deduplicator with no exemptions.
func Dedup(records []product.Product) []product.Product {
	out, _ := (&Deduplicator{}).Dedup(records)
	return out
}

// Dedup returns at most one record per identity. Within a collision the
// variant with the higher QualityScore wins; ties keep the first seen. The
// loser is discarded whole, never merged field by field.
func (d *Deduplicator) Dedup(records []product.Product) ([]product.Product, Stats) {
	st := Stats{InputCount: len(records)}

	byDomain := make([]product.Product, 0, len(records))
	seen := make(map[string]int)
	for i := range records {
		p := records[i]
		key := product.DomainKey(p.Website)
		if key == "" {
			if d.Exempt != nil && d.Exempt(&p) {
				st.ExemptKept++
				byDomain = append(byDomain, p)
			} else {
				st.NoDomain++
			}
			continue
		}
		if at, ok := seen[key]; ok {
			st.SameDomain++
			if QualityScore(&p) > QualityScore(&byDomain[at]) {
				byDomain[at] = p
			}
			continue
		}
		seen[key] = len(byDomain)
		byDomain = append(byDomain, p)
	}

	out := make([]product.Product, 0, len(byDomain))
	seen = make(map[string]int)
	for i := range byDomain {
		p := byDomain[i]
		key := product.NameKey(p.Name)
		if key == "" {
			out = append(out, p)
			continue
		}
		if at, ok := seen[key]; ok {
			st.SameName++
			if QualityScore(&p) > QualityScore(&out[at]) {
				out[at] = p
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, p)
	}

	st.OutputCount = len(out)
	return out, st
}
