package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/aiscout/internal/store"
	"github.com/elonfeng/aiscout/pkg/darkhorse"
	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/signal"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

const batch = `[
  {"name": "Acme", "website": "https://acme.ai", "description": "agents", "discovered_at": "2026-10-14"},
  {"name": "Acme AI", "website": "https://www.acme.ai/pricing", "logo_url": "https://acme.ai/logo.png",
   "why_matters": "fast", "funding_total": "$20M", "source_url": "https://news.test/acme", "discovered_at": "2026-10-14"},
  {"name": "Forked", "website": "https://github.com/forked/forked", "source": "github", "discovered_at": "2026-10-14"},
  {"name": "Curio", "source": "curated", "dark_horse_index": 4, "score_provenance": "curated", "discovered_at": "2026-10-13"},
  {"name": "Zeta", "website": "https://zeta.io", "region": "🇨🇳", "country_code": "CN", "discovered_at": "2026-09-01"},
  {"name": "Orphan", "discovered_at": "2026-10-14"}
]`

func decodeBatch(t *testing.T) []product.Product {
	t.Helper()
	var records []product.Product
	require.NoError(t, json.Unmarshal([]byte(batch), &records))
	return records
}

func byName(records []product.Product) map[string]product.Product {
	m := make(map[string]product.Product, len(records))
	for _, p := range records {
		m[p.Name] = p
	}
	return m
}

func TestReconcile(t *testing.T) {
	r := New(nil, nil, nil, nil)
	out, rep := r.Reconcile(decodeBatch(t), nil, now)

	assert.Equal(t, 6, rep.Input)
	assert.Equal(t, 1, rep.Blocked)
	assert.Equal(t, 1, rep.Dedup.SameDomain)
	assert.Equal(t, 1, rep.Dedup.NoDomain)
	assert.Equal(t, 1, rep.Dedup.ExemptKept)
	assert.Equal(t, 3, rep.Output)
	assert.Equal(t, 3, rep.IDsAssigned)

	got := byName(out)
	require.Contains(t, got, "Acme AI", "richer duplicate wins")
	assert.NotContains(t, got, "Acme")
	assert.NotContains(t, got, "Forked")
	assert.NotContains(t, got, "Orphan")

	curio := got["Curio"]
	assert.Equal(t, 4, curio.DarkHorseIndex)
	assert.True(t, curio.NeedsVerification)

	zeta := got["Zeta"]
	assert.Equal(t, "🇨🇳", zeta.Region)
	assert.Empty(t, zeta.CountryCode, "region tag is never a country source")
	assert.Equal(t, "unknown", zeta.CountrySource)

	for _, p := range out {
		assert.GreaterOrEqual(t, p.DarkHorseIndex, darkhorse.MinIndex)
		assert.LessOrEqual(t, p.DarkHorseIndex, darkhorse.MaxIndex)
		assert.NotEmpty(t, p.ID)
	}
}

func TestReconcileIsStable(t *testing.T) {
	r := New(nil, nil, nil, nil)
	first, _ := r.Reconcile(decodeBatch(t), nil, now)
	second, rep := r.Reconcile(first, nil, now)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].DarkHorseIndex, second[i].DarkHorseIndex)
	}
	assert.Zero(t, rep.IDsAssigned)
	assert.Zero(t, rep.Rescored)
}

func TestReconcileBackfillsFromPool(t *testing.T) {
	records := []product.Product{{Name: "Nova", Website: "unknown", DiscoveredAt: "2026-10-14"}}
	pool := []product.Product{{Name: "nova", Website: "https://nova.so", SourceURL: "https://news.test/nova"}}

	out, rep := New(nil, nil, nil, nil).Reconcile(records, pool, now)
	require.Len(t, out, 1)
	assert.Equal(t, 1, rep.Backfilled)
	assert.Equal(t, "https://nova.so", out[0].Website)
	assert.Equal(t, "https://news.test/nova", out[0].SourceURL)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, decodeBatch(t)))

	r := New(s, nil, nil, nil)
	rep, err := r.Run(ctx, Options{DryRun: true, Now: now})
	require.NoError(t, err)
	assert.True(t, rep.DryRun)
	assert.Equal(t, 3, rep.Output)

	stored, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 6)
	weeks, err := s.Weeks(ctx)
	require.NoError(t, err)
	assert.Empty(t, weeks)

	rep, err = r.Run(ctx, Options{Now: now})
	require.NoError(t, err)
	stored, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	weeks, err = s.Weeks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{signal.WeekKey(now)}, weeks)
	assert.Equal(t, 2, rep.WeekCount)
}

func TestMerge(t *testing.T) {
	existing := []product.Product{{Name: "Acme", Website: "https://acme.ai", DiscoveredAt: "2026-09-01"}}
	incoming := []product.Product{
		{Name: "Acme", Website: "https://acme.ai", SourceURL: "https://news.test/acme"},
		{Name: "Fresh", Website: "https://fresh.dev"},
		{Name: "Fresh", Website: "https://fresh.dev"},
	}

	merged, added := Merge(existing, incoming, now)
	require.Len(t, merged, 2)
	assert.Equal(t, 1, added)
	assert.Equal(t, "https://news.test/acme", merged[0].SourceURL)
	assert.Equal(t, "2026-09-01", merged[0].DiscoveredAt)
	assert.Equal(t, "2026-10-15T12:00:00Z", merged[1].DiscoveredAt)
}

func TestMergeTracksMetricDeltas(t *testing.T) {
	existing := []product.Product{{Name: "Acme", Website: "https://acme.ai"}}
	existing[0].Extra.Metrics = map[string]float64{"points": 40}

	incoming := []product.Product{{Name: "Acme", Website: "https://acme.ai"}}
	incoming[0].Extra.Metrics = map[string]float64{"points": 95, "comments": 12}

	merged, added := Merge(existing, incoming, now)
	require.Len(t, merged, 1)
	assert.Zero(t, added)
	assert.Equal(t, map[string]float64{"points": 55}, merged[0].Extra.MetricsDelta)
	assert.Equal(t, 95.0, merged[0].Extra.Metrics["points"])
	assert.Equal(t, 40.0, existing[0].Extra.Metrics["points"], "input is not mutated")
}

func TestMergeRefreshesCuratedIndexAndScores(t *testing.T) {
	existing := []product.Product{
		{Name: "Curio", Website: "https://curio.ai", Source: "curated", DarkHorseIndex: 3, ScoreProvenance: product.ProvenanceCurated},
		{Name: "Quill", Website: "https://quill.legal", DarkHorseIndex: 2, HotScore: 40, FinalScore: 70, TreasureScore: 55},
	}
	incoming := []product.Product{
		{Name: "Curio", Website: "https://curio.ai", Source: "curated", DarkHorseIndex: 5, ScoreProvenance: product.ProvenanceCurated},
		{Name: "Quill", Website: "https://quill.legal", DarkHorseIndex: 4, HotScore: 95, TrendingScore: 80},
	}

	merged, added := Merge(existing, incoming, now)
	require.Len(t, merged, 2)
	assert.Zero(t, added)

	curio := merged[0]
	assert.Equal(t, 5, curio.DarkHorseIndex, "curator edits win")
	assert.True(t, curio.IsCurated())

	quill := merged[1]
	assert.Equal(t, 2, quill.DarkHorseIndex, "a derived index is left to the scorer")
	assert.Equal(t, 95.0, quill.HotScore)
	assert.Equal(t, 80.0, quill.TrendingScore)
	assert.Equal(t, 70.0, quill.FinalScore, "unreported scores are kept")
	assert.Equal(t, 55.0, quill.TreasureScore)

	assert.Equal(t, 3, existing[0].DarkHorseIndex, "input is not mutated")
}

func TestThisWeek(t *testing.T) {
	records := []product.Product{
		{Name: "a", DiscoveredAt: "2026-10-12"},
		{Name: "b", DiscoveredAt: "2026-10-11"},
		{Name: "c", DiscoveredAt: "not a date"},
	}
	got := ThisWeek(records, now)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
}
