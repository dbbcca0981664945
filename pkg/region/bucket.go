// Package region infers coarse geographic buckets for display and resolves
// company countries from explicit, trusted fields only.
package region

import "strings"

// Bucket is a multi-country display grouping.
type Bucket string

const (
	BucketUS   Bucket = "🇺🇸"
	BucketCN   Bucket = "🇨🇳"
	BucketEU   Bucket = "🇪🇺"
	BucketJPKR Bucket = "🇯🇵🇰🇷"
	BucketSEA  Bucket = "🇸🇬"
)

// AllBuckets is the closed set of buckets.
func AllBuckets() []Bucket {
	return []Bucket{BucketUS, BucketCN, BucketEU, BucketJPKR, BucketSEA}
}

var countryBucket = map[string]Bucket{
	"US": BucketUS, "CA": BucketUS,
	"CN": BucketCN, "HK": BucketCN, "MO": BucketCN,
	"JP": BucketJPKR, "KR": BucketJPKR,
	"SG": BucketSEA, "MY": BucketSEA, "ID": BucketSEA, "TH": BucketSEA, "VN": BucketSEA, "PH": BucketSEA,
	"GB": BucketEU, "IE": BucketEU, "DE": BucketEU, "FR": BucketEU, "IT": BucketEU, "ES": BucketEU,
	"PT": BucketEU, "NL": BucketEU, "BE": BucketEU, "LU": BucketEU, "AT": BucketEU, "CH": BucketEU,
	"SE": BucketEU, "NO": BucketEU, "DK": BucketEU, "FI": BucketEU, "IS": BucketEU, "PL": BucketEU,
	"CZ": BucketEU, "SK": BucketEU, "HU": BucketEU, "RO": BucketEU, "BG": BucketEU, "GR": BucketEU,
	"HR": BucketEU, "SI": BucketEU, "EE": BucketEU, "LV": BucketEU, "LT": BucketEU, "EU": BucketEU,
}

// BucketForCountry folds an ISO 3166 alpha-2 code into its bucket.
func BucketForCountry(code string) (Bucket, bool) {
	b, ok := countryBucket[strings.ToUpper(strings.TrimSpace(code))]
	return b, ok
}

// Bucketize folds a raw region value (bucket, flag emoji, ISO code or
// country name) into a bucket. Empty or unrecognized input is absent.
func Bucketize(raw string) (Bucket, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, b := range AllBuckets() {
		if raw == string(b) {
			return b, true
		}
	}
	if code, ok := flagCode(raw); ok {
		return BucketForCountry(code)
	}
	if len(raw) == 2 {
		if b, ok := BucketForCountry(raw); ok {
			return b, true
		}
	}
	if code, ok := NormalizeCountry(raw); ok {
		return BucketForCountry(code)
	}
	return "", false
}

// flagCode decodes the first regional-indicator pair of s ("🇩🇪" -> "DE").
func flagCode(s string) (string, bool) {
	var letters []rune
	for _, r := range s {
		if r < 0x1F1E6 || r > 0x1F1FF {
			if len(letters) > 0 {
				break
			}
			continue
		}
		letters = append(letters, 'A'+(r-0x1F1E6))
		if len(letters) == 2 {
			return string(letters), true
		}
	}
	return "", false
}
