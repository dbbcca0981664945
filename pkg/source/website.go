package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/elonfeng/aiscout/pkg/dedup"
	"github.com/elonfeng/aiscout/pkg/product"
)

// ErrNoWebsite is returned when a source page links to no usable site.
var ErrNoWebsite = errors.New("no outbound website link")

// Hosts that are never a product's own website.
var nonProductHosts = []string{
	"twitter.com", "x.com", "linkedin.com", "facebook.com", "youtube.com",
	"instagram.com", "t.me", "weibo.com", "news.ycombinator.com",
	"crunchbase.com", "wikipedia.org", "apple.com", "play.google.com",
}

// WebsiteResolver looks up a missing product website by reading the
// record's source page and taking the first outbound link.
type WebsiteResolver struct {
	client    *http.Client
	blocklist *dedup.Blocklist
	limit     int
	logger    *log.Logger
}

// NewWebsiteResolver creates a resolver that fetches at most limit pages
// per call to Apply.
func NewWebsiteResolver(blocklist *dedup.Blocklist, limit int, logger *log.Logger) *WebsiteResolver {
	if blocklist == nil {
		blocklist = dedup.NewBlocklist(nil, nil)
	}
	return &WebsiteResolver{
		client:    &http.Client{Timeout: 15 * time.Second},
		blocklist: blocklist,
		limit:     limit,
		logger:    logger,
	}
}

// Resolve returns the origin (scheme://host) of the first link on pageURL
// that points off-site to something other than a social or blocked host.
func (w *WebsiteResolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	page, err := url.Parse(pageURL)
	if err != nil || page.Host == "" {
		return "", fmt.Errorf("parse source url %q: %w", pageURL, ErrNoWebsite)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}

	pageDomain := product.DomainKey(page.Host)
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		link, err := page.Parse(strings.TrimSpace(href))
		if err != nil || (link.Scheme != "http" && link.Scheme != "https") {
			return true
		}
		domain := product.DomainKey(link.Host)
		if domain == "" || domain == pageDomain || strings.HasSuffix(domain, "."+pageDomain) {
			return true
		}
		if isNonProductHost(domain) || w.blocklist.Blocked(&product.Product{Website: link.Host}) {
			return true
		}
		found = link.Scheme + "://" + link.Host
		return false
	})
	if found == "" {
		return "", ErrNoWebsite
	}
	return found, nil
}

// Apply resolves websites for product records that lack one. Records that
// cannot be resolved get the "unknown" marker and needs_verification.
// News and blog records are skipped.
func (w *WebsiteResolver) Apply(ctx context.Context, records []product.Product) (resolved, unresolved int) {
	attempts := 0
	for i := range records {
		p := &records[i]
		if p.ContentType == "news" || p.ContentType == "blog" || !product.IsPlaceholderWebsite(p.Website) {
			continue
		}
		if w.limit > 0 && attempts >= w.limit {
			break
		}
		attempts++

		site, err := w.Resolve(ctx, p.SourceURL)
		if err != nil {
			if w.logger != nil {
				w.logger.Debug("website unresolved", "name", p.Name, "err", err)
			}
			p.Website = "unknown"
			p.NeedsVerification = true
			unresolved++
			continue
		}
		p.Website = site
		resolved++
	}
	return resolved, unresolved
}

func isNonProductHost(domain string) bool {
	for _, h := range nonProductHosts {
		if domain == h || strings.HasSuffix(domain, "."+h) {
			return true
		}
	}
	return false
}
