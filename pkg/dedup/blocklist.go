package dedup

import (
	"strings"

	"github.com/elonfeng/aiscout/pkg/product"
)

// DefaultBlockedSources are code hosting platforms whose listings are
// repositories rather than products.
var DefaultBlockedSources = []string{"github", "gitlab", "huggingface", "sourceforge", "bitbucket"}

// DefaultBlockedDomains are matched as substrings of the website domain.
var DefaultBlockedDomains = []string{
	"github.com", "github.io", "gitlab.com", "huggingface.co",
	"bitbucket.org", "sourceforge.net", "vercel.app", "netlify.app",
}

// Blocklist drops records by source name or website domain.
type Blocklist struct {
	sources map[string]bool
	domains []string
}

// NewBlocklist creates a blocklist; nil slices select the defaults.
func NewBlocklist(sources, domains []string) *Blocklist {
	if sources == nil {
		sources = DefaultBlockedSources
	}
	if domains == nil {
		domains = DefaultBlockedDomains
	}
	b := &Blocklist{sources: make(map[string]bool, len(sources))}
	for _, s := range sources {
		b.sources[strings.ToLower(strings.TrimSpace(s))] = true
	}
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			b.domains = append(b.domains, d)
		}
	}
	return b
}

// Blocked reports whether p comes from a blocked source or domain.
func (b *Blocklist) Blocked(p *product.Product) bool {
	if b.sources[strings.ToLower(strings.TrimSpace(p.Source))] {
		return true
	}
	domain := product.DomainKey(p.Website)
	if domain == "" {
		return false
	}
	for _, d := range b.domains {
		if strings.Contains(domain, d) {
			return true
		}
	}
	return false
}

// Filter returns the records that are not blocked and how many were dropped.
func (b *Blocklist) Filter(records []product.Product) ([]product.Product, int) {
	out := make([]product.Product, 0, len(records))
	for i := range records {
		if b.Blocked(&records[i]) {
			continue
		}
		out = append(out, records[i])
	}
	return out, len(records) - len(out)
}
