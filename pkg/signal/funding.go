package signal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/elonfeng/aiscout/pkg/product"
)

var fundingExpr = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(?:(billion|bn|b|million|mn|m|thousand|k)\b|(亿|万))`)

var unitMillions = map[string]float64{
	"billion":  1000,
	"bn":       1000,
	"b":        1000,
	"million":  1,
	"mn":       1,
	"m":        1,
	"thousand": 0.001,
	"k":        0.001,
	"亿":        100,
	"万":        0.01,
}

// ParseFundingMillions extracts the first suffixed amount in text as
// millions of US dollars: "$1B" -> 1000, "$10M" -> 10, "$500K" -> 0.5.
// Text without a recognizable amount yields 0.
func ParseFundingMillions(text string) float64 {
	if product.IsPlaceholder(text) {
		return 0
	}
	m := fundingExpr.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	unit := strings.ToLower(m[2])
	if unit == "" {
		unit = m[3]
	}
	return n * unitMillions[unit]
}

// FundingMillions prefers the structured extra.funding_amount over parsing
// funding_total.
func FundingMillions(p *product.Product) float64 {
	if p.Extra.FundingAmount != nil {
		if v := float64(*p.Extra.FundingAmount); v > 0 {
			return v
		}
		return 0
	}
	return ParseFundingMillions(p.FundingTotal)
}
