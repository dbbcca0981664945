package darkhorse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/aiscout/pkg/product"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestExplain(t *testing.T) {
	s := NewScorer(nil, 0, 0)
	yes := true

	tests := []struct {
		name string
		p    product.Product
		want Breakdown
	}{
		{
			name: "nothing known",
			p:    product.Product{Name: "Plain"},
			want: Breakdown{},
		},
		{
			name: "seed funding, fresh",
			p:    product.Product{FundingTotal: "$2M", DiscoveredAt: "2026-10-01"},
			want: Breakdown{Funding: 1, Freshness: 1, Index: 2},
		},
		{
			name: "everything fires and clamps",
			p: func() product.Product {
				p := product.Product{
					Source:        "techcrunch",
					FundingTotal:  "$40M",
					TreasureScore: 80,
					FirstSeen:     "2026-10-14",
				}
				p.Extra.IsFundingNews = &yes
				p.Extra.MetricsDelta = map[string]float64{"stars": 12}
				return p
			}(),
			want: Breakdown{Funding: 2, Quality: 1, Freshness: 1, Growth: 1, SourceTier: 1, FundingNews: 1, Index: 5},
		},
		{
			name: "stale with placeholder funding",
			p:    product.Product{FundingTotal: "undisclosed", PublishedAt: "2026-01-01"},
			want: Breakdown{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Explain(&tt.p, now))
		})
	}
}

func TestFreshnessBoundary(t *testing.T) {
	s := NewScorer(nil, 30, 0)
	edge := product.Product{DiscoveredAt: now.AddDate(0, 0, -30).Format(time.RFC3339)}
	past := product.Product{DiscoveredAt: now.AddDate(0, 0, -31).Format(time.RFC3339)}
	assert.Equal(t, 1, s.Score(&edge, now))
	assert.Equal(t, 0, s.Score(&past, now))
}

func TestApplyKeepsCuratedIndex(t *testing.T) {
	s := NewScorer(nil, 0, 0)

	curated := product.Product{Name: "Hand picked", DarkHorseIndex: 7, ScoreProvenance: product.ProvenanceCurated}
	s.Apply(&curated, now)
	assert.Equal(t, 5, curated.DarkHorseIndex)
	assert.Equal(t, product.ProvenanceCurated, curated.ScoreProvenance)

	derived := product.Product{Name: "Scored", DarkHorseIndex: 4}
	s.Apply(&derived, now)
	assert.Zero(t, derived.DarkHorseIndex)
	assert.Equal(t, product.ProvenanceDerived, derived.ScoreProvenance)
}

func TestScoreIsIndependentOfBatch(t *testing.T) {
	s := NewScorer(nil, 0, 0)
	p := product.Product{Name: "Solo", FundingTotal: "$15M", DiscoveredAt: "2026-10-10"}

	alone := s.Detect([]product.Product{p}, 0, true, now)
	crowd := s.Detect([]product.Product{
		{Name: "Big", FundingTotal: "$900M"},
		p,
		{Name: "Small"},
	}, 0, true, now)
	require.Len(t, alone, 1)
	require.Len(t, crowd, 3)
	assert.Equal(t, alone[0].DarkHorseIndex, crowd[1].DarkHorseIndex)
}

func TestTop(t *testing.T) {
	s := NewScorer(nil, 0, 0)
	records := []product.Product{
		{Name: "Low", DiscoveredAt: "2026-10-14"},
		{Name: "Mid", FundingTotal: "$20M", DiscoveredAt: "2026-10-14", TreasureScore: 10},
		{Name: "MidBetter", FundingTotal: "$20M", DiscoveredAt: "2026-10-14", TreasureScore: 40},
		{Name: "High", ScoreProvenance: product.ProvenanceCurated, DarkHorseIndex: 5},
	}

	top := s.Top(records, 3, 2, now)
	names := make([]string, len(top))
	for i, p := range top {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"High", "MidBetter", "Mid"}, names)
	assert.Equal(t, "Low", records[0].Name, "input is not reordered")
	assert.Zero(t, records[1].DarkHorseIndex, "input is not annotated")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-3))
	assert.Equal(t, 3, Clamp(3))
	assert.Equal(t, 5, Clamp(9))
}
