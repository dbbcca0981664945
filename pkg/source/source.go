// Package source collects raw product and news records from external feeds
// and curated seed lists.
package source

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/elonfeng/aiscout/pkg/product"
)

const userAgent = "aiscout/1.0"

// Source is the interface every collector must implement.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]product.Product, error)
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxLen])) + "..."
}
