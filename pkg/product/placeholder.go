package product

import "strings"

var placeholders = map[string]bool{
	"":              true,
	"unknown":       true,
	"tbd":           true,
	"tba":           true,
	"n/a":           true,
	"na":            true,
	"none":          true,
	"null":          true,
	"nil":           true,
	"-":             true,
	"--":            true,
	"?":             true,
	"undisclosed":   true,
	"not disclosed": true,
	"未公开":           true,
	"未披露":           true,
	"暂无":            true,
	"未知":            true,
	"待定":            true,
	"无":             true,
}

// IsPlaceholder reports whether s is semantically absent ("TBD", "N/A", "未公开", ...).
func IsPlaceholder(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

// Present is the inverse of IsPlaceholder.
func Present(s string) bool {
	return !IsPlaceholder(s)
}

// IsPlaceholderWebsite reports whether website cannot identify a product.
func IsPlaceholderWebsite(website string) bool {
	if IsPlaceholder(website) {
		return true
	}
	return DomainKey(website) == ""
}
