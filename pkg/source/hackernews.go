package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/elonfeng/aiscout/pkg/product"
)

const hnBaseURL = "https://hacker-news.firebaseio.com/v0"

// launchExpr matches "Show HN: Name – tagline" style launch posts.
var launchExpr = regexp.MustCompile(`^(?i:show|launch) HN:\s*(.+?)(?:\s+[-–—|:]\s+(.*))?$`)

// HackerNews turns AI launch posts into product records and other AI
// stories into news records.
type HackerNews struct {
	client  *http.Client
	baseURL string
	limit   int
	filter  *Filter
	now     func() time.Time
}

// NewHackerNews creates a new HN collector.
func NewHackerNews(limit int, filter *Filter) *HackerNews {
	if limit <= 0 {
		limit = 100
	}
	return &HackerNews{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: hnBaseURL,
		limit:   limit,
		filter:  filter,
		now:     time.Now,
	}
}

func (h *HackerNews) Name() string { return "hackernews" }

func (h *HackerNews) Collect(ctx context.Context) ([]product.Product, error) {
	ids, err := h.fetchIDs(ctx, "showstories")
	if err != nil {
		return nil, err
	}
	top, err := h.fetchIDs(ctx, "topstories")
	if err != nil {
		return nil, err
	}
	ids = append(ids, top...)
	if len(ids) > h.limit {
		ids = ids[:h.limit]
	}

	var (
		mu      sync.Mutex
		records []product.Product
		seen    = make(map[int]bool)
		wg      sync.WaitGroup
		sem     = make(chan struct{}, 10) // concurrency limit
	)

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			story, err := h.fetchItem(ctx, id)
			if err != nil || story == nil {
				return
			}
			if h.filter != nil && !h.filter.MatchesAI(story.Title+" "+story.URL) {
				return
			}

			p := h.toProduct(story)
			mu.Lock()
			records = append(records, p)
			mu.Unlock()
		}(id)
	}

	wg.Wait()
	return records, nil
}

func (h *HackerNews) toProduct(story *hnStory) product.Product {
	discussion := fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
	p := product.Product{
		Name:         story.Title,
		SourceURL:    discussion,
		SourceTitle:  story.Title,
		Source:       "hackernews",
		HotScore:     float64(story.Score),
		DiscoveredAt: h.now().UTC().Format(time.RFC3339),
		PublishedAt:  time.Unix(story.Time, 0).UTC().Format(time.RFC3339),
	}
	p.Extra.Metrics = map[string]float64{
		"points":   float64(story.Score),
		"comments": float64(story.Descendants),
	}

	if m := launchExpr.FindStringSubmatch(strings.TrimSpace(story.Title)); m != nil {
		p.Name = strings.TrimSpace(m[1])
		p.Description = strings.TrimSpace(m[2])
		p.Website = story.URL
		return p
	}

	p.ContentType = "news"
	p.Extra.NewsMarket = "us"
	if story.URL != "" {
		p.SourceURL = story.URL
	}
	return p
}

type hnStory struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Descendants int    `json:"descendants"`
	Type        string `json:"type"`
}

func (h *HackerNews) fetchIDs(ctx context.Context, list string) ([]int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/"+list+".json", nil)
	if err != nil {
		return nil, fmt.Errorf("create hn request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hn %s: %w", list, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hn %s status %d", list, resp.StatusCode)
	}

	var ids []int
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("decode hn %s: %w", list, err)
	}
	return ids, nil
}

func (h *HackerNews) fetchItem(ctx context.Context, id int) (*hnStory, error) {
	url := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create hn item request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hn item %d: %w", id, err)
	}
	defer resp.Body.Close()

	var story hnStory
	if err := json.NewDecoder(resp.Body).Decode(&story); err != nil {
		return nil, fmt.Errorf("decode hn item %d: %w", id, err)
	}

	if story.Type != "story" {
		return nil, nil
	}
	return &story, nil
}
