package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/aiscout/pkg/dedup"
	"github.com/elonfeng/aiscout/pkg/product"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>AI Wire</title>
<item>
  <title>Acme raises $20M to build AI agents for accountants</title>
  <link>https://wire.test/acme</link>
  <description><![CDATA[<p>The <b>agentic</b> bookkeeping startup</p>]]></description>
  <category>developer</category>
  <pubDate>Wed, 14 Oct 2026 09:00:00 GMT</pubDate>
</item>
<item>
  <title>Local bakery opens second shop</title>
  <link>https://wire.test/bakery</link>
  <pubDate>Wed, 14 Oct 2026 10:00:00 GMT</pubDate>
</item>
<item>
  <title>Old LLM news</title>
  <link>https://wire.test/old</link>
  <pubDate>Tue, 01 Sep 2026 10:00:00 GMT</pubDate>
</item>
</channel></rss>`

func TestRSSCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	rss := NewRSS([]RSSFeed{
		{Name: "broken", URL: srv.URL + "/broken"},
		{Name: "aiwire", URL: srv.URL + "/feed", Market: "us"},
	}, NewFilter(nil, nil), nil)
	rss.now = func() time.Time { return now }

	records, err := rss.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	p := records[0]
	assert.Equal(t, "Acme raises $20M to build AI agents for accountants", p.Name)
	assert.Equal(t, "The agentic bookkeeping startup", p.Description)
	assert.Equal(t, "news", p.ContentType)
	assert.Equal(t, "aiwire", p.Source)
	assert.Equal(t, "https://wire.test/acme", p.SourceURL)
	assert.Equal(t, "us", p.Extra.NewsMarket)
	assert.Equal(t, "2026-10-14T09:00:00Z", p.PublishedAt)
	require.NotNil(t, p.Extra.IsFundingNews)
	assert.True(t, *p.Extra.IsFundingNews)
	require.NotNil(t, p.Extra.FundingAmount)
	assert.Equal(t, product.Number(20), *p.Extra.FundingAmount)
	assert.Equal(t, []product.Category{product.CategoryCoding}, p.Categories)
}

func TestHackerNewsCollect(t *testing.T) {
	stories := map[int]hnStory{
		1: {ID: 1, Type: "story", Title: "Show HN: Quill – an AI copilot for contracts", URL: "https://quill.legal", Score: 120, Descendants: 40, Time: now.Add(-time.Hour).Unix()},
		2: {ID: 2, Type: "story", Title: "OpenAI ships a new model", URL: "https://blog.test/model", Score: 300, Time: now.Unix()},
		3: {ID: 3, Type: "story", Title: "Ask HN: favorite keyboards?", Score: 10, Time: now.Unix()},
		4: {ID: 4, Type: "comment", Title: "LLM comment", Time: now.Unix()},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/showstories.json":
			json.NewEncoder(w).Encode([]int{1})
		case "/topstories.json":
			json.NewEncoder(w).Encode([]int{1, 2, 3, 4})
		default:
			var id int
			if _, err := fmt.Sscanf(r.URL.Path, "/item/%d.json", &id); err != nil {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(stories[id])
		}
	}))
	defer srv.Close()

	hn := NewHackerNews(10, NewFilter(nil, nil))
	hn.baseURL = srv.URL
	hn.now = func() time.Time { return now }

	records, err := hn.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	sort.Slice(records, func(i, j int) bool { return records[i].Name > records[j].Name })

	launch := records[0]
	assert.Equal(t, "Quill", launch.Name)
	assert.Equal(t, "an AI copilot for contracts", launch.Description)
	assert.Equal(t, "https://quill.legal", launch.Website)
	assert.Equal(t, "https://news.ycombinator.com/item?id=1", launch.SourceURL)
	assert.Empty(t, launch.ContentType)
	assert.Equal(t, 120.0, launch.Extra.Metrics["points"])
	assert.Equal(t, 40.0, launch.Extra.Metrics["comments"])

	news := records[1]
	assert.Equal(t, "OpenAI ships a new model", news.Name)
	assert.Equal(t, "news", news.ContentType)
	assert.Equal(t, "https://blog.test/model", news.SourceURL)
}

func TestGitHubCollect(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"total_count": 2, "items": [
			{"name": "glyph", "full_name": "acme/glyph", "html_url": "https://github.com/acme/glyph",
			 "homepage": "https://glyph.dev", "description": "Agentic code review",
			 "stargazers_count": 850, "forks_count": 30, "topics": ["llm", "developer", "code"],
			 "created_at": "2026-10-12T09:00:00Z"},
			{"name": "dotfiles", "full_name": "acme/dotfiles", "html_url": "https://github.com/acme/dotfiles",
			 "homepage": "", "stargazers_count": 900}
		]}`)
	}))
	defer srv.Close()

	gh := NewGitHub("", 10)
	gh.baseURL = srv.URL
	gh.now = func() time.Time { return now }

	records, err := gh.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1, "repos without a homepage are skipped")
	assert.Contains(t, query, "created:>2026-10-08")

	p := records[0]
	assert.Equal(t, "glyph", p.Name)
	assert.Equal(t, "https://glyph.dev", p.Website)
	assert.Equal(t, "https://github.com/acme/glyph", p.SourceURL)
	assert.Equal(t, "github-launch", p.Source)
	assert.False(t, dedup.NewBlocklist(nil, nil).Blocked(&p))
	assert.Equal(t, []product.Category{product.CategoryCoding}, p.Categories)
	assert.Equal(t, 850.0, p.HotScore)
	assert.Equal(t, 850.0, p.Extra.Metrics["stars"])
	assert.Equal(t, "2026-10-12T09:00:00Z", p.PublishedAt)
}

func TestGitHubStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	gh := NewGitHub("token", 0)
	gh.baseURL = srv.URL
	_, err := gh.Collect(context.Background())
	assert.EqualError(t, err, "github API status 403")
}

func TestLoadSeeds(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "seeds.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- name: Curio
  website: https://curio.ai
  dark_horse_index: 4
  categories: [agent, coding]
  exhibitor_booth: "A12"
- name: Listed
  source: producthunt
  website: https://listed.app
- website: https://nameless.ai
`), 0o644))
	jsonPath := filepath.Join(dir, "extra.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"name":"Beam","website":"https://beam.so"}]`), 0o644))

	seeds := NewSeeds([]string{yamlPath, filepath.Join(dir, "missing.yaml"), jsonPath})
	records, err := seeds.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	curio := records[0]
	assert.Equal(t, "curated", curio.Source)
	assert.True(t, curio.IsCurated())
	assert.Equal(t, 4, curio.DarkHorseIndex)
	booth, ok := curio.Unknown("exhibitor_booth")
	require.True(t, ok)
	assert.JSONEq(t, `"A12"`, string(booth))

	assert.Equal(t, "producthunt", records[1].Source)
	assert.False(t, records[1].IsCurated())
	assert.Equal(t, "Beam", records[2].Name)
}

func TestLoadSeedsRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":`), 0o644))
	_, err := LoadSeeds(path)
	assert.Error(t, err)
}

func TestWebsiteResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			fmt.Fprint(w, `<html><body>
				<a href="/about">About</a>
				<a href="https://twitter.com/acme">Twitter</a>
				<a href="https://github.com/acme/acme">Code</a>
				<a href="https://www.acme.ai/signup?ref=wire">Acme</a>
				<a href="https://other.io">Other</a>
			</body></html>`)
		case "/empty":
			fmt.Fprint(w, `<html><body><a href="/home">Home</a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	resolver := NewWebsiteResolver(nil, 10, nil)

	site, err := resolver.Resolve(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, "https://www.acme.ai", site)

	_, err = resolver.Resolve(context.Background(), srv.URL+"/empty")
	assert.ErrorIs(t, err, ErrNoWebsite)

	records := []product.Product{
		{Name: "Acme", Website: "TBD", SourceURL: srv.URL + "/article"},
		{Name: "Ghost", SourceURL: srv.URL + "/empty"},
		{Name: "Story", ContentType: "news", SourceURL: srv.URL + "/article"},
		{Name: "Known", Website: "https://known.dev"},
	}
	resolved, unresolved := resolver.Apply(context.Background(), records)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 1, unresolved)
	assert.Equal(t, "https://www.acme.ai", records[0].Website)
	assert.Equal(t, "unknown", records[1].Website)
	assert.True(t, records[1].NeedsVerification)
	assert.Empty(t, records[2].Website)
	assert.Equal(t, "https://known.dev", records[3].Website)
}

func TestFilter(t *testing.T) {
	f := NewFilter([]string{"vibe coding"}, []string{"crypto"})

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "default keyword", text: "A new LLM for lawyers", want: true},
		{name: "extra keyword", text: "Vibe coding is here", want: true},
		{name: "chinese keyword", text: "一家大模型创业公司", want: true},
		{name: "excluded", text: "AI agent for crypto trading", want: false},
		{name: "unrelated", text: "Best pizza in town", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.MatchesAI(tt.text))
		})
	}
}
