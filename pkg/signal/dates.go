package signal

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/elonfeng/aiscout/pkg/product"
)

// ParseDate parses an ISO-8601 date or timestamp, "Z"-suffixed or not.
// Anything else reports ok=false instead of an error.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if product.IsPlaceholder(s) {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func firstDate(fields ...string) (time.Time, bool) {
	for _, f := range fields {
		if t, ok := ParseDate(f); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// FreshnessDate is the first parseable of first_seen, published_at,
// discovered_at.
func FreshnessDate(p *product.Product) (time.Time, bool) {
	return firstDate(p.FirstSeen, p.PublishedAt, p.DiscoveredAt)
}

// DiscoveryDate is the first parseable of discovered_at, first_seen,
// published_at.
func DiscoveryDate(p *product.Product) (time.Time, bool) {
	return firstDate(p.DiscoveredAt, p.FirstSeen, p.PublishedAt)
}

// FirstSeenDate is the first parseable of first_seen, discovered_at,
// published_at.
func FirstSeenDate(p *product.Product) (time.Time, bool) {
	return firstDate(p.FirstSeen, p.DiscoveredAt, p.PublishedAt)
}

// AgeDays is the age of t at now in fractional days; future dates are 0.
func AgeDays(t, now time.Time) float64 {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d.Hours() / 24
}

// WithinDays reports whether t is no older than days at now (inclusive).
func WithinDays(t, now time.Time, days float64) bool {
	return AgeDays(t, now) <= days
}

// WeekKey returns the ISO week of t as "YYYY_WW".
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d_%02d", year, week)
}
