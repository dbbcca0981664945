package search

import (
	"strings"

	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/region"
)

const (
	MarketCN     = "cn"
	MarketUS     = "us"
	MarketGlobal = "global"
	MarketHybrid = "hybrid"
)

var sourceMarket = map[string]string{
	"36kr":        MarketCN,
	"huxiu":       MarketCN,
	"jiqizhixin":  MarketCN,
	"qbitai":      MarketCN,
	"leiphone":    MarketCN,
	"ithome":      MarketCN,
	"sspai":       MarketCN,
	"techcrunch":  MarketUS,
	"theverge":    MarketUS,
	"the verge":   MarketUS,
	"venturebeat": MarketUS,
	"wired":       MarketUS,
	"producthunt": MarketUS,
	"ycombinator": MarketUS,
	"hackernews":  MarketUS,
}

func normalizeMarket(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cn", "china", "中国", "🇨🇳":
		return MarketCN
	case "us", "usa", "united states", "美国", "🇺🇸":
		return MarketUS
	case "global":
		return MarketGlobal
	}
	return ""
}

// InferMarket picks the market of a news or blog record: source table,
// then extra.news_market, then market, then text cues, else global.
func InferMarket(p *product.Product) string {
	if m, ok := sourceMarket[strings.ToLower(strings.TrimSpace(p.Source))]; ok {
		return m
	}
	if m := normalizeMarket(p.Extra.NewsMarket); m != "" {
		return m
	}
	if m := normalizeMarket(p.Market); m != "" {
		return m
	}
	text := p.Name + " " + p.SourceTitle + " " + p.Description
	switch {
	case strings.Contains(text, string(region.BucketCN)):
		return MarketCN
	case strings.Contains(text, string(region.BucketUS)):
		return MarketUS
	}
	if b, _, ok := region.InferFromText(text); ok {
		switch b {
		case region.BucketCN:
			return MarketCN
		case region.BucketUS:
			return MarketUS
		}
	}
	return MarketGlobal
}

// FilterMarket restricts records to "cn" or "us". Any other value,
// including "hybrid", returns records unchanged.
func FilterMarket(records []product.Product, market string) []product.Product {
	m := strings.ToLower(strings.TrimSpace(market))
	if m != MarketCN && m != MarketUS {
		return records
	}
	var out []product.Product
	for i := range records {
		if InferMarket(&records[i]) == m {
			out = append(out, records[i])
		}
	}
	return out
}

// IsBlog reports whether the record is a news or blog entry rather than a
// product listing.
func IsBlog(p *product.Product) bool {
	switch strings.ToLower(strings.TrimSpace(p.ContentType)) {
	case "blog", "news":
		return true
	}
	return false
}

// Blogs returns the news and blog subset.
func Blogs(records []product.Product) []product.Product {
	var out []product.Product
	for i := range records {
		if IsBlog(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// Products returns the records that are product listings.
func Products(records []product.Product) []product.Product {
	out := make([]product.Product, 0, len(records))
	for i := range records {
		if !IsBlog(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
