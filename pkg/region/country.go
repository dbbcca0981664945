package region

import (
	"strings"

	"github.com/elonfeng/aiscout/pkg/product"
)

// SourceUnknown marks a country that could not be resolved.
const SourceUnknown = "unknown"

var countryNames = map[string]string{
	"united states": "US", "united states of america": "US", "usa": "US", "u.s.": "US", "america": "US", "美国": "US",
	"canada": "CA", "加拿大": "CA",
	"china": "CN", "people's republic of china": "CN", "prc": "CN", "中国": "CN", "中国大陆": "CN",
	"hong kong": "HK", "香港": "HK",
	"japan": "JP", "日本": "JP",
	"south korea": "KR", "korea": "KR", "republic of korea": "KR", "韩国": "KR",
	"singapore": "SG", "新加坡": "SG",
	"united kingdom": "GB", "uk": "GB", "great britain": "GB", "england": "GB", "英国": "GB",
	"germany": "DE", "德国": "DE",
	"france": "FR", "法国": "FR",
	"netherlands": "NL", "荷兰": "NL",
	"sweden": "SE", "瑞典": "SE",
	"switzerland": "CH", "瑞士": "CH",
	"spain": "ES", "italy": "IT", "ireland": "IE", "finland": "FI", "denmark": "DK",
	"norway": "NO", "poland": "PL", "austria": "AT", "belgium": "BE",
	"israel": "IL", "以色列": "IL",
	"india": "IN", "印度": "IN",
	"australia": "AU", "澳大利亚": "AU",
	"united arab emirates": "AE", "uae": "AE",
	"indonesia": "ID", "vietnam": "VN", "thailand": "TH", "malaysia": "MY", "philippines": "PH",
}

var countryDisplay = map[string]string{
	"US": "United States", "CA": "Canada", "CN": "China", "HK": "Hong Kong", "JP": "Japan",
	"KR": "South Korea", "SG": "Singapore", "GB": "United Kingdom", "DE": "Germany", "FR": "France",
	"NL": "Netherlands", "SE": "Sweden", "CH": "Switzerland", "ES": "Spain", "IT": "Italy",
	"IE": "Ireland", "FI": "Finland", "DK": "Denmark", "NO": "Norway", "PL": "Poland",
	"AT": "Austria", "BE": "Belgium", "IL": "Israel", "IN": "India", "AU": "Australia",
	"AE": "United Arab Emirates", "ID": "Indonesia", "VN": "Vietnam", "TH": "Thailand",
	"MY": "Malaysia", "PH": "Philippines",
}

// NormalizeCountry maps an ISO code, flag or country name to an ISO code.
func NormalizeCountry(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if product.IsPlaceholder(s) {
		return "", false
	}
	if code, ok := flagCode(s); ok {
		return code, true
	}
	if len(s) == 2 {
		code := strings.ToUpper(s)
		if _, ok := countryDisplay[code]; ok {
			return code, true
		}
	}
	code, ok := countryNames[strings.ToLower(s)]
	return code, ok
}

// CountryName returns the English display name of an ISO code.
func CountryName(code string) string {
	return countryDisplay[code]
}

const sourceCompanyCountry = "explicit:company_country"

// trustedCountrySource reports whether a country_source tag ties
// country_code to verified provenance.
func trustedCountrySource(src string) bool {
	src = strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(src, "explicit:") || strings.HasPrefix(src, "verified:")
}

// ResolveCountry returns the company country of p and where it came from.
// Only company_country, or a country_code whose country_source marks it as
// explicit or verified, is trusted. Region tags, market hints and legacy
// country names are never used.
func ResolveCountry(p *product.Product) (string, string) {
	if code, ok := NormalizeCountry(p.CompanyCountry); ok {
		return code, sourceCompanyCountry
	}
	// A code stamped from company_country is only as good as that field.
	if trustedCountrySource(p.CountrySource) && !strings.EqualFold(strings.TrimSpace(p.CountrySource), sourceCompanyCountry) {
		if code, ok := NormalizeCountry(p.CountryCode); ok {
			return code, p.CountrySource
		}
	}
	return "", SourceUnknown
}

// ApplyCountry writes the resolved country onto p. An unresolved country
// clears code and name so no region-derived guess survives.
func ApplyCountry(p *product.Product) bool {
	code, src := ResolveCountry(p)
	name := CountryName(code)
	changed := p.CountryCode != code || p.CountrySource != src || p.CountryName != name
	p.CountryCode, p.CountrySource, p.CountryName = code, src, name
	return changed
}
