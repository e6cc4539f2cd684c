package pricing

import "strings"

// standardVATRateBps holds the standard VAT rate per EU member state in basis
// points. Countries absent from this table are outside the VAT-applicable set
// and are charged 0%.
var standardVATRateBps = map[string]int{
	"AT": 2000,
	"BE": 2100,
	"BG": 2000,
	"CY": 1900,
	"CZ": 2100,
	"DE": 1900,
	"DK": 2500,
	"EE": 2200,
	"ES": 2100,
	"FI": 2550,
	"FR": 2000,
	"GR": 2400,
	"HR": 2500,
	"HU": 2700,
	"IE": 2300,
	"IT": 2200,
	"LT": 2100,
	"LU": 1700,
	"LV": 2100,
	"MT": 1800,
	"NL": 2100,
	"PL": 2300,
	"PT": 2300,
	"RO": 1900,
	"SE": 2500,
	"SI": 2200,
	"SK": 2300,
}

// IsVATApplicable reports whether the country belongs to the VAT-applicable set.
func IsVATApplicable(country string) bool {
	_, ok := standardVATRateBps[normalizeCountry(country)]
	return ok
}

// FallbackRateBps returns the static standard rate for the country.
func FallbackRateBps(country string) (int, bool) {
	rate, ok := standardVATRateBps[normalizeCountry(country)]
	return rate, ok
}

func normalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}
