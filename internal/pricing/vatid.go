package pricing

import (
	"regexp"
	"strings"
)

// vatIDPatterns maps each EU member state to the format of its VAT
// identification number, matched against the normalized id without the
// country prefix.
var vatIDPatterns = map[string]*regexp.Regexp{
	"AT": regexp.MustCompile(`^U\d{8}$`),
	"BE": regexp.MustCompile(`^[01]\d{9}$`),
	"BG": regexp.MustCompile(`^\d{9,10}$`),
	"CY": regexp.MustCompile(`^\d{8}[A-Z]$`),
	"CZ": regexp.MustCompile(`^\d{8,10}$`),
	"DE": regexp.MustCompile(`^\d{9}$`),
	"DK": regexp.MustCompile(`^\d{8}$`),
	"EE": regexp.MustCompile(`^\d{9}$`),
	"ES": regexp.MustCompile(`^[A-Z0-9]\d{7}[A-Z0-9]$`),
	"FI": regexp.MustCompile(`^\d{8}$`),
	"FR": regexp.MustCompile(`^[A-Z0-9]{2}\d{9}$`),
	"GR": regexp.MustCompile(`^\d{9}$`),
	"HR": regexp.MustCompile(`^\d{11}$`),
	"HU": regexp.MustCompile(`^\d{8}$`),
	"IE": regexp.MustCompile(`^\d{7}[A-Z]{1,2}$|^\d[A-Z+*]\d{5}[A-Z]$`),
	"IT": regexp.MustCompile(`^\d{11}$`),
	"LT": regexp.MustCompile(`^(\d{9}|\d{12})$`),
	"LU": regexp.MustCompile(`^\d{8}$`),
	"LV": regexp.MustCompile(`^\d{11}$`),
	"MT": regexp.MustCompile(`^\d{8}$`),
	"NL": regexp.MustCompile(`^\d{9}B\d{2}$`),
	"PL": regexp.MustCompile(`^\d{10}$`),
	"PT": regexp.MustCompile(`^\d{9}$`),
	"RO": regexp.MustCompile(`^\d{2,10}$`),
	"SE": regexp.MustCompile(`^\d{12}$`),
	"SI": regexp.MustCompile(`^\d{8}$`),
	"SK": regexp.MustCompile(`^\d{10}$`),
}

// VATIDResult carries the outcome of a VAT id format check.
type VATIDResult struct {
	Valid        bool
	NormalizedID string
}

// ValidateVATID checks the id against the country's format. Validation is
// purely syntactic; a registry lookup failure upstream must degrade to "not
// reverse-charged" rather than block checkout, so this function never errors.
func ValidateVATID(vatID, country string) VATIDResult {
	cc := normalizeCountry(country)
	pattern, ok := vatIDPatterns[cc]
	if !ok {
		return VATIDResult{}
	}

	normalized := normalizeVATID(vatID)
	if normalized == "" {
		return VATIDResult{}
	}

	// Greece uses the EL prefix on VAT numbers.
	prefix := cc
	if cc == "GR" {
		prefix = "EL"
	}
	body := strings.TrimPrefix(normalized, prefix)
	if body == normalized {
		return VATIDResult{}
	}
	if !pattern.MatchString(body) {
		return VATIDResult{}
	}
	return VATIDResult{Valid: true, NormalizedID: prefix + body}
}

func normalizeVATID(vatID string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(vatID))
	cleaned = strings.NewReplacer(" ", "", ".", "", "-", "").Replace(cleaned)
	return cleaned
}
