package region

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/elonfeng/aiscout/pkg/product"
)

var tldCountry = map[string]string{
	"us": "US", "ca": "CA",
	"cn": "CN", "hk": "HK",
	"jp": "JP", "kr": "KR",
	"sg": "SG", "my": "MY", "id": "ID", "th": "TH", "vn": "VN", "ph": "PH",
	"uk": "GB", "eu": "EU", "de": "DE", "fr": "FR", "it": "IT", "es": "ES", "pt": "PT",
	"nl": "NL", "be": "BE", "at": "AT", "ch": "CH", "se": "SE", "no": "NO", "dk": "DK",
	"fi": "FI", "ie": "IE", "pl": "PL", "cz": "CZ",
}

type placeCue struct {
	keyword string
	country string
}

// placeCues are matched case-insensitively; the earliest occurrence in the
// text wins. Latin cues only match whole words.
var placeCues = []placeCue{
	{"silicon valley", "US"}, {"san francisco", "US"}, {"new york", "US"}, {"seattle", "US"},
	{"boston", "US"}, {"palo alto", "US"}, {"硅谷", "US"}, {"旧金山", "US"}, {"美国", "US"},
	{"beijing", "CN"}, {"shanghai", "CN"}, {"shenzhen", "CN"}, {"hangzhou", "CN"},
	{"北京", "CN"}, {"上海", "CN"}, {"深圳", "CN"}, {"杭州", "CN"}, {"广州", "CN"}, {"中国", "CN"},
	{"tokyo", "JP"}, {"japan", "JP"}, {"东京", "JP"}, {"日本", "JP"},
	{"seoul", "KR"}, {"korea", "KR"}, {"首尔", "KR"}, {"韩国", "KR"},
	{"singapore", "SG"}, {"新加坡", "SG"},
	{"london", "GB"}, {"berlin", "DE"}, {"munich", "DE"}, {"germany", "DE"}, {"paris", "FR"},
	{"france", "FR"}, {"stockholm", "SE"}, {"amsterdam", "NL"}, {"europe", "EU"},
	{"伦敦", "GB"}, {"英国", "GB"}, {"柏林", "DE"}, {"德国", "DE"}, {"巴黎", "FR"}, {"法国", "FR"}, {"欧洲", "EU"},
}

// placeExprs holds a word-boundary pattern per Latin cue, parallel to
// placeCues; CJK cues have nil and match as substrings.
var placeExprs = compilePlaceCues(placeCues)

func compilePlaceCues(cues []placeCue) []*regexp.Regexp {
	exprs := make([]*regexp.Regexp, len(cues))
	for i, cue := range cues {
		if isLatin(cue.keyword) {
			exprs[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(cue.keyword) + `\b`)
		}
	}
	return exprs
}

func isLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// cueIndex is the first position of cue i in lower, or -1.
func cueIndex(lower string, i int) int {
	if expr := placeExprs[i]; expr != nil {
		if loc := expr.FindStringIndex(lower); loc != nil {
			return loc[0]
		}
		return -1
	}
	return strings.Index(lower, placeCues[i].keyword)
}

// InferFromDomain maps the website's country-code TLD to a bucket.
func InferFromDomain(website string) (Bucket, string, bool) {
	domain := product.DomainKey(website)
	if domain == "" {
		return "", "", false
	}
	tld := domain[strings.LastIndex(domain, ".")+1:]
	code, ok := tldCountry[tld]
	if !ok {
		return "", "", false
	}
	b, ok := BucketForCountry(code)
	if !ok {
		return "", "", false
	}
	return b, "tld:." + tld, true
}

// InferFromText looks for place names, then Japanese or Korean script, in
// the free-text fields. Reasons start with "text".
func InferFromText(texts ...string) (Bucket, string, bool) {
	text := strings.Join(texts, " ")
	lower := strings.ToLower(text)

	bestAt := -1
	var best placeCue
	for i, cue := range placeCues {
		at := cueIndex(lower, i)
		if at >= 0 && (bestAt < 0 || at < bestAt) {
			bestAt, best = at, cue
		}
	}
	if bestAt >= 0 {
		if b, ok := BucketForCountry(best.country); ok {
			return b, "text:place:" + best.keyword, true
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			return BucketJPKR, "text:script:kana", true
		case unicode.Is(unicode.Hangul, r):
			return BucketJPKR, "text:script:hangul", true
		}
	}
	return "", "", false
}

// InferRegion tries the domain TLD first, which wins outright, then the
// free text. No match returns ok=false rather than a guess.
func InferRegion(website, description, whyMatters string) (Bucket, string, bool) {
	if b, reason, ok := InferFromDomain(website); ok {
		return b, reason, true
	}
	return InferFromText(description, whyMatters)
}

// ApplyRegion bucketizes an existing region or infers a missing one. A raw
// region that cannot be bucketized is removed and kept in extra.region_raw.
// Returns true when p changed.
func ApplyRegion(p *product.Product) bool {
	if strings.TrimSpace(p.Region) != "" {
		b, ok := Bucketize(p.Region)
		if ok {
			if string(b) == p.Region {
				return false
			}
			p.Region = string(b)
			return true
		}
		p.Extra.SetString("region_raw", p.Region)
		p.Region, p.RegionSource = "", ""
		return true
	}
	b, reason, ok := InferRegion(p.Website, p.Description, p.WhyMatters)
	if !ok {
		return false
	}
	p.Region, p.RegionSource = string(b), reason
	return true
}
