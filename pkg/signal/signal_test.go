package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/aiscout/pkg/product"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestParseFundingMillions(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$1B", 1000},
		{"$10M", 10},
		{"$12M Series A", 12},
		{"$500K seed", 0.5},
		{"2.5 billion", 2500},
		{"1.2亿", 120},
		{"3,000 万", 30},
		{"TBD", 0},
		{"raised a lot", 0},
		{"5 minutes ago", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseFundingMillions(tt.in), 1e-9)
		})
	}
}

func TestFundingMillionsPrefersStructuredAmount(t *testing.T) {
	amount := product.Number(25)
	p := product.Product{FundingTotal: "$3M"}
	p.Extra.FundingAmount = &amount
	assert.Equal(t, 25.0, FundingMillions(&p))

	zero := product.Number(0)
	p.Extra.FundingAmount = &zero
	assert.Zero(t, FundingMillions(&p))

	p.Extra.FundingAmount = nil
	assert.Equal(t, 3.0, FundingMillions(&p))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2026-10-14", "2026-10-14T09:00:00Z", "2026-10-14T09:00:00", "Wed, 14 Oct 2026 09:00:00 GMT"} {
		got, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, 2026, got.Year(), s)
		assert.Equal(t, time.October, got.Month(), s)
		assert.Equal(t, 14, got.Day(), s)
	}
	for _, s := range []string{"", "TBD", "garbage", "未知"} {
		_, ok := ParseDate(s)
		assert.False(t, ok, s)
	}
}

func TestDateFallbacks(t *testing.T) {
	p := product.Product{DiscoveredAt: "bad", FirstSeen: "2026-10-01", PublishedAt: "2026-09-01"}

	d, ok := DiscoveryDate(&p)
	require.True(t, ok)
	assert.Equal(t, "2026-10-01", d.Format("2006-01-02"))

	f, ok := FreshnessDate(&p)
	require.True(t, ok)
	assert.Equal(t, "2026-10-01", f.Format("2006-01-02"))

	_, ok = DiscoveryDate(&product.Product{})
	assert.False(t, ok)
}

func TestAgeAndWindows(t *testing.T) {
	assert.Equal(t, 2.0, AgeDays(now.Add(-48*time.Hour), now))
	assert.Zero(t, AgeDays(now.Add(time.Hour), now), "future dates are age 0")
	assert.True(t, WithinDays(now.AddDate(0, 0, -7), now, 7), "boundary is inclusive")
	assert.False(t, WithinDays(now.AddDate(0, 0, -8), now, 7))
}

func TestWeekKey(t *testing.T) {
	assert.Equal(t, "2026_42", WeekKey(now))
	assert.Equal(t, "2026_53", WeekKey(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026_01", WeekKey(time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)))
}

func TestExtract(t *testing.T) {
	yes := true
	p := product.Product{
		Source:       "TechCrunch ",
		FundingTotal: "$20M",
		FirstSeen:    "2026-10-10",
		PublishedAt:  "2026-01-01",
	}
	p.TreasureScore = 70
	p.Extra.IsFundingNews = &yes
	p.Extra.MetricsDelta = map[string]float64{"stars": 10, "points": -5, "forks": 100}

	s := NewExtractor(nil).Extract(&p, now)
	assert.Equal(t, 20.0, s.FundingMillions)
	assert.Equal(t, 10.0, s.Growth)
	assert.Equal(t, 1, s.SourceTier)
	assert.True(t, s.FundingNews)
	assert.True(t, s.HasFreshDate)
	assert.InDelta(t, 5.5, s.AgeDays, 1e-9)
	assert.Equal(t, 70.0, s.TreasureScore)
}

func TestSourceTier(t *testing.T) {
	custom := NewExtractor([]string{"Launchpad"})
	assert.Equal(t, 1, custom.SourceTier("launchpad"))
	assert.Zero(t, custom.SourceTier("techcrunch"))

	var zero *Extractor
	assert.Equal(t, 1, zero.SourceTier("curated"))
}
