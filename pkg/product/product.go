package product

import "encoding/json"

// Provenance records who set a product's dark horse index.
type Provenance string

const (
	ProvenanceDerived Provenance = "derived"
	ProvenanceCurated Provenance = "curated"
)

// SourceCurated is the source tag of hand-maintained seed entries.
const SourceCurated = "curated"

// Product is the canonical record shared by every stage of the pipeline.
//
// Fields this package does not know about are kept on decode and written
// back on encode in their original position, so records owned partly by
// other tools survive a load/save round trip.
type Product struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name"`
	Website       string     `json:"website"`
	LogoURL       string     `json:"logo_url,omitempty"`
	Description   string     `json:"description,omitempty"`
	DescriptionEn string     `json:"description_en,omitempty"`
	WhyMatters    string     `json:"why_matters,omitempty"`
	WhyMattersEn  string     `json:"why_matters_en,omitempty"`
	LatestNews    string     `json:"latest_news,omitempty"`
	FundingTotal  string     `json:"funding_total,omitempty"`
	Pricing       string     `json:"pricing,omitempty"`
	Valuation     string     `json:"valuation,omitempty"`
	Categories    []Category `json:"categories,omitempty"`
	ContentType   string     `json:"content_type,omitempty"`

	DarkHorseIndex  int        `json:"dark_horse_index"`
	ScoreProvenance Provenance `json:"score_provenance,omitempty"`
	TreasureScore   float64    `json:"treasure_score,omitempty"`
	HotScore        float64    `json:"hot_score,omitempty"`
	FinalScore      float64    `json:"final_score,omitempty"`
	TrendingScore   float64    `json:"trending_score,omitempty"`

	Source      string `json:"source,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	SourceTitle string `json:"source_title,omitempty"`

	DiscoveredAt string `json:"discovered_at,omitempty"`
	FirstSeen    string `json:"first_seen,omitempty"`
	PublishedAt  string `json:"published_at,omitempty"`

	Region         string `json:"region,omitempty"`
	RegionSource   string `json:"region_source,omitempty"`
	Market         string `json:"market,omitempty"`
	CountryCode    string `json:"country_code,omitempty"`
	CountryName    string `json:"country_name,omitempty"`
	CountrySource  string `json:"country_source,omitempty"`
	CompanyCountry string `json:"company_country,omitempty"`

	IsHardware       *bool  `json:"is_hardware,omitempty"`
	HardwareCategory string `json:"hardware_category,omitempty"`
	FormFactor       string `json:"form_factor,omitempty"`

	NeedsVerification bool   `json:"needs_verification,omitempty"`
	AlertedAt         string `json:"alerted_at,omitempty"`

	Extra Extra `json:"extra,omitzero"`

	rest map[string]json.RawMessage
	keys []string
}

// IsCurated reports whether the dark horse index was set by a curator and
// must survive rescoring untouched.
func (p *Product) IsCurated() bool {
	return p.ScoreProvenance == ProvenanceCurated
}

// HotnessScore is the precomputed trend signal used by trending sorts:
// trending_score, then hot_score, then final_score.
func (p *Product) HotnessScore() float64 {
	switch {
	case p.TrendingScore != 0:
		return p.TrendingScore
	case p.HotScore != 0:
		return p.HotScore
	default:
		return p.FinalScore
	}
}

// RankScore is final_score with trending_score as fallback.
func (p *Product) RankScore() float64 {
	if p.FinalScore != 0 {
		return p.FinalScore
	}
	return p.TrendingScore
}

// HasHardwareSignal reports whether any hardware marker is set.
func (p *Product) HasHardwareSignal() bool {
	if p.IsHardware != nil {
		return *p.IsHardware
	}
	if p.HasCategory(CategoryHardware) {
		return true
	}
	return p.HardwareCategory != "" || p.FormFactor != ""
}

// HasCategory reports whether c is one of the product's categories.
func (p *Product) HasCategory(c Category) bool {
	for _, have := range p.Categories {
		if have == c {
			return true
		}
	}
	return false
}
