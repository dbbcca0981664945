package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/signal"
)

// RSSFeed is a named RSS/Atom feed URL.
type RSSFeed struct {
	Name        string
	URL         string
	Market      string
	ContentType string // "news" when empty
}

var fundingNewsExpr = regexp.MustCompile(`(?i)\b(raises?|raised|funding|seed round|series [a-e]|investment)\b|融资|获投|完成.{0,6}轮`)

// RSS collects AI news and blog posts from RSS/Atom feeds.
type RSS struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []RSSFeed
	filter *Filter
	maxAge time.Duration
	logger *log.Logger
	now    func() time.Time
}

// NewRSS creates a new RSS collector.
func NewRSS(feeds []RSSFeed, filter *Filter, logger *log.Logger) *RSS {
	return &RSS{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		filter: filter,
		maxAge: 72 * time.Hour,
		logger: logger,
		now:    time.Now,
	}
}

func (r *RSS) Name() string { return "rss" }

// Collect fetches every feed. A failing feed is logged and skipped.
func (r *RSS) Collect(ctx context.Context) ([]product.Product, error) {
	var all []product.Product
	for _, feed := range r.feeds {
		records, err := r.collectFeed(ctx, feed)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("rss feed failed", "feed", feed.Name, "err", err)
			}
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

func (r *RSS) collectFeed(ctx context.Context, feed RSSFeed) ([]product.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	now := r.now().UTC()
	cutoff := now.Add(-r.maxAge)
	contentType := feed.ContentType
	if contentType == "" {
		contentType = "news"
	}

	var records []product.Product
	for _, entry := range parsed.Items {
		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}
		if published.Before(cutoff) {
			continue
		}

		summary := plainText(entry.Description)
		if r.filter != nil && !r.filter.MatchesAI(entry.Title+" "+summary) {
			continue
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		p := product.Product{
			Name:         strings.TrimSpace(entry.Title),
			Description:  truncate(summary, 500),
			ContentType:  contentType,
			Source:       feed.Name,
			SourceURL:    link,
			SourceTitle:  strings.TrimSpace(entry.Title),
			DiscoveredAt: now.Format(time.RFC3339),
			PublishedAt:  published.Format(time.RFC3339),
		}
		for _, c := range entry.Categories {
			if cat, ok := product.ParseCategory(c); ok {
				p.Categories = append(p.Categories, cat)
			}
		}
		p.Extra.NewsMarket = feed.Market
		if fundingNewsExpr.MatchString(entry.Title) {
			yes := true
			p.Extra.IsFundingNews = &yes
			if m := signal.ParseFundingMillions(entry.Title); m > 0 {
				amount := product.Number(m)
				p.Extra.FundingAmount = &amount
			}
		}
		records = append(records, p)
	}

	return records, nil
}

// plainText strips markup from a feed description.
func plainText(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
