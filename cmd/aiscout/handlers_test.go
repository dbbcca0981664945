package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/source"
)

func TestSelectSources(t *testing.T) {
	all := []source.Source{
		source.NewSeeds(nil),
		source.NewHackerNews(10, nil),
		source.NewGitHub("", 10),
	}

	got, err := selectSources(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = selectSources(all, []string{" HN ", "seeds"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "curated", got[0].Name())
	assert.Equal(t, "hackernews", got[1].Name())

	_, err = selectSources(all, []string{"reddit"})
	assert.EqualError(t, err, "no matching sources for: reddit")
}

func TestDiscovered(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "-", discovered(&product.Product{}, now))
	assert.Equal(t, "2 days ago", discovered(&product.Product{DiscoveredAt: "2026-10-13T12:00:00Z"}, now))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
