package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/aiscout/pkg/product"
)

const fixture = `[
  {"name": "Alpha", "id": "a1", "website": "https://alpha.ai", "x_owner": {"team": "growth"}, "source": "curated", "dark_horse_index": 4, "score_provenance": "curated"},
  {"name": "Beta", "id": "b1", "website": "https://beta.io", "content_type": "news", "source": "techcrunch", "dark_horse_index": 2},
  {"name": "Gamma", "id": "c1", "website": "https://gamma.dev", "content_type": "blog", "source": "36kr", "dark_horse_index": 5}
]`

func loadFixture(t *testing.T) []product.Product {
	t.Helper()
	var records []product.Product
	require.NoError(t, json.Unmarshal([]byte(fixture), &records))
	return records
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ss, err := NewSQLiteStore(filepath.Join(t.TempDir(), "aiscout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })
	return map[string]Store{"json": fs, "sqlite": ss}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, s.Save(ctx, loadFixture(t)))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, []string{got[0].Name, got[1].Name, got[2].Name})

			raw, ok := got[0].Unknown("x_owner")
			require.True(t, ok)
			assert.JSONEq(t, `{"team":"growth"}`, string(raw))

			out, err := json.Marshal(got[0])
			require.NoError(t, err)
			assert.Equal(t,
				`{"name":"Alpha","id":"a1","website":"https://alpha.ai","x_owner":{"team":"growth"},"source":"curated","dark_horse_index":4,"score_provenance":"curated"}`,
				string(out))
		})
	}
}

func TestStoreGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, loadFixture(t)))

			p, err := s.Get(ctx, "b1")
			require.NoError(t, err)
			assert.Equal(t, "Beta", p.Name)

			_, err = s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts ListOpts
		want []string
	}{
		{name: "all", opts: ListOpts{}, want: []string{"Alpha", "Beta", "Gamma"}},
		{name: "by source", opts: ListOpts{Source: "36kr"}, want: []string{"Gamma"}},
		{name: "content types", opts: ListOpts{ContentTypes: []string{"news", "blog"}}, want: []string{"Beta", "Gamma"}},
		{name: "min index", opts: ListOpts{MinIndex: 4}, want: []string{"Alpha", "Gamma"}},
		{name: "limit", opts: ListOpts{Limit: 2}, want: []string{"Alpha", "Beta"}},
	}

	for name, s := range openStores(t) {
		require.NoError(t, s.Save(ctx, loadFixture(t)))
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := s.List(ctx, tt.opts)
				require.NoError(t, err)
				var names []string
				for _, p := range got {
					names = append(names, p.Name)
				}
				assert.Equal(t, tt.want, names)
			})
		}
	}
}

func TestStoreWeeks(t *testing.T) {
	ctx := context.Background()
	records := loadFixture(t)
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveWeek(ctx, "2026_40", records[:1]))
			require.NoError(t, s.SaveWeek(ctx, "2026_42", records[1:]))
			require.NoError(t, s.SaveWeek(ctx, "2026_42", records[2:]))
			require.Error(t, s.SaveWeek(ctx, "", records))

			weeks, err := s.Weeks(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"2026_42", "2026_40"}, weeks)

			pool, err := s.LoadWeeks(ctx)
			require.NoError(t, err)
			require.Len(t, pool, 2)
			assert.Equal(t, "Gamma", pool[0].Name)
			assert.Equal(t, "Alpha", pool[1].Name)
		})
	}
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), loadFixture(t)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "products.json", entries[0].Name())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("mongo", t.TempDir(), "")
	assert.Error(t, err)
}

func TestReviewQueue(t *testing.T) {
	q := NewReviewQueue(t.TempDir())

	require.NoError(t, q.Add(
		PendingReview{Name: "Alpha", Reason: "llm timeout", QueuedAt: "2026-10-14"},
		PendingReview{Name: "Beta", Reason: "empty answer", QueuedAt: "2026-10-14"},
	))
	require.NoError(t, q.Add(PendingReview{Name: "Alpha", Reason: "unknown label", QueuedAt: "2026-10-15"}))

	got, err := q.List()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Name)
	assert.Equal(t, "unknown label", got[0].Reason)
	assert.Equal(t, "Beta", got[1].Name)
}

func TestReviewQueueKeepsForeignFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, pendingReviewFile)
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"name": "Alpha", "reviewer": "ann", "reason": "llm timeout", "notes": {"priority": 1}, "queued_at": "2026-10-14"}
]`), 0o644))

	q := NewReviewQueue(dir)
	require.NoError(t, q.Add(PendingReview{Name: "Beta", Reason: "empty answer", QueuedAt: "2026-10-15"}))
	require.NoError(t, q.Add(PendingReview{Name: "Alpha", Reason: "unknown label", QueuedAt: "2026-10-15"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []product.Object
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)

	alpha := entries[0]
	assert.Equal(t, []string{"name", "reviewer", "reason", "notes", "queued_at"}, alpha.Keys())
	reviewer, _ := alpha.Get("reviewer")
	assert.JSONEq(t, `"ann"`, string(reviewer))
	notes, _ := alpha.Get("notes")
	assert.JSONEq(t, `{"priority": 1}`, string(notes))
	reason, _ := alpha.Get("reason")
	assert.JSONEq(t, `"unknown label"`, string(reason))

	names, err := q.Names()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Alpha": true, "Beta": true}, names)
}

func TestUsageMetrics(t *testing.T) {
	m := NewUsageMetrics(t.TempDir())
	m.now = func() time.Time { return time.Date(2026, 10, 15, 23, 30, 0, 0, time.FixedZone("X", -5*3600)) }

	require.NoError(t, m.Add("openai", "classify", map[string]int64{CounterChatRequests: 1, CounterInputTokens: 120}))
	require.NoError(t, m.Add("openai", "classify", map[string]int64{CounterChatRequests: 1, CounterOutputTokens: 30}))

	report, err := m.Report()
	require.NoError(t, err)
	got := report["2026-10-16"]["openai"]["classify"]
	assert.Equal(t, int64(2), got[CounterChatRequests])
	assert.Equal(t, int64(120), got[CounterInputTokens])
	assert.Equal(t, int64(30), got[CounterOutputTokens])
}

func TestUsageMetricsKeepsForeignValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, usageFile)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "2026-10-16": {"openai": {"classify": {"chat_requests": 3, "cost_usd": 0.12}}, "note": "manual"},
  "_schema": 2
}`), 0o644))

	m := NewUsageMetrics(dir)
	m.now = func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }
	require.NoError(t, m.Add("openai", "classify", map[string]int64{CounterChatRequests: 1, CounterInputTokens: 10}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var root product.Object
	require.NoError(t, json.Unmarshal(data, &root))
	assert.Equal(t, []string{"2026-10-16", "_schema"}, root.Keys())

	dayRaw, _ := root.Get("2026-10-16")
	assert.JSONEq(t, `{
  "openai": {"classify": {"chat_requests": 4, "cost_usd": 0.12, "input_tokens": 10}},
  "note": "manual"
}`, string(dayRaw))

	report, err := m.Report()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{CounterChatRequests: 4, CounterInputTokens: 10}, report["2026-10-16"]["openai"]["classify"])
}
