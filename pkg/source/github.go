package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/elonfeng/aiscout/pkg/product"
)

const githubBaseURL = "https://api.github.com"

// githubLaunchSource tags records from this collector. Plain "github" is a
// blocked source: those listings are repositories, these are the products
// behind them.
const githubLaunchSource = "github-launch"

// GitHub collects newly created AI repositories that ship a product
// homepage. Repositories without one are skipped.
type GitHub struct {
	client  *http.Client
	baseURL string
	token   string
	limit   int
	now     func() time.Time
}

// NewGitHub creates a new GitHub collector.
func NewGitHub(token string, limit int) *GitHub {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return &GitHub{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: githubBaseURL,
		token:   token,
		limit:   limit,
		now:     time.Now,
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) Collect(ctx context.Context) ([]product.Product, error) {
	// AI repos created in the last 7 days, most starred first.
	since := g.now().AddDate(0, 0, -7).Format("2006-01-02")
	query := fmt.Sprintf("created:>%s (topic:ai OR topic:llm OR topic:agents OR topic:generative-ai OR topic:chatgpt)", since)

	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", fmt.Sprint(g.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search/repositories?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch github repositories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github API status %d", resp.StatusCode)
	}

	var result ghSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode github response: %w", err)
	}

	stamp := g.now().UTC().Format(time.RFC3339)
	var records []product.Product
	for _, repo := range result.Items {
		if product.IsPlaceholderWebsite(repo.Homepage) {
			continue
		}
		records = append(records, g.toProduct(repo, stamp))
	}
	return records, nil
}

func (g *GitHub) toProduct(repo ghRepo, stamp string) product.Product {
	var cats []product.Category
	for _, topic := range repo.Topics {
		if c, ok := product.ParseCategory(topic); ok && c != product.CategoryOther {
			cats = append(cats, c)
		}
	}

	p := product.Product{
		Name:         repo.Name,
		Website:      repo.Homepage,
		Description:  truncate(repo.Description, 280),
		Categories:   product.NormalizeCategories(cats),
		Source:       githubLaunchSource,
		SourceURL:    repo.HTMLURL,
		SourceTitle:  repo.FullName,
		HotScore:     float64(repo.Stars),
		DiscoveredAt: stamp,
		PublishedAt:  repo.CreatedAt.UTC().Format(time.RFC3339),
	}
	p.Extra.Metrics = map[string]float64{
		"stars": float64(repo.Stars),
		"forks": float64(repo.Forks),
	}
	return p
}

type ghSearchResult struct {
	TotalCount int      `json:"total_count"`
	Items      []ghRepo `json:"items"`
}

type ghRepo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	HTMLURL     string    `json:"html_url"`
	Homepage    string    `json:"homepage"`
	Description string    `json:"description"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	Topics      []string  `json:"topics"`
	CreatedAt   time.Time `json:"created_at"`
}
