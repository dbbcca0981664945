package product

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// idNamespace scopes product IDs derived from identity keys.
var idNamespace = uuid.MustParse("6f1c3a52-8f4e-4c1b-9a57-2d0e5b7c9a11")

// NameKey lower-cases name and strips everything outside [a-z0-9].
func NameKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DomainKey returns the lower-cased host of website without a leading
// "www.", or "" when website is missing or unparseable.
func DomainKey(website string) string {
	website = strings.TrimSpace(website)
	if IsPlaceholder(website) {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" || !strings.Contains(host, ".") {
		return ""
	}
	return host
}

// IdentityKey is the normalized domain, else the normalized name.
func (p *Product) IdentityKey() string {
	if d := DomainKey(p.Website); d != "" {
		return "domain:" + d
	}
	if n := NameKey(p.Name); n != "" {
		return "name:" + n
	}
	return ""
}

// EnsureID assigns a deterministic ID derived from the identity key when
// the record has none. Returns true if an ID was assigned.
func (p *Product) EnsureID() bool {
	if p.ID != "" {
		return false
	}
	key := p.IdentityKey()
	if key == "" {
		key = "raw:" + p.Name + "|" + p.SourceURL
	}
	p.ID = uuid.NewSHA1(idNamespace, []byte(key)).String()
	return true
}
