package pricing

import "testing"

func TestValidateVATID(t *testing.T) {
	cases := []struct {
		name       string
		vatID      string
		country    string
		valid      bool
		normalized string
	}{
		{name: "german id", vatID: "DE123456789", country: "DE", valid: true, normalized: "DE123456789"},
		{name: "german id with spacing", vatID: "de 123.456-789", country: "DE", valid: true, normalized: "DE123456789"},
		{name: "german id too short", vatID: "DE1234", country: "DE"},
		{name: "missing country prefix", vatID: "123456789", country: "DE"},
		{name: "wrong prefix for country", vatID: "FR12345678901", country: "DE"},
		{name: "french id", vatID: "FRXX123456789", country: "FR", valid: true, normalized: "FRXX123456789"},
		{name: "dutch id", vatID: "NL123456789B01", country: "NL", valid: true, normalized: "NL123456789B01"},
		{name: "greek id uses EL prefix", vatID: "EL123456789", country: "GR", valid: true, normalized: "EL123456789"},
		{name: "non-eu country", vatID: "US123456789", country: "US"},
		{name: "empty id", vatID: "", country: "DE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateVATID(tc.vatID, tc.country)
			if result.Valid != tc.valid {
				t.Fatalf("expected valid=%v, got %v", tc.valid, result.Valid)
			}
			if tc.valid && result.NormalizedID != tc.normalized {
				t.Fatalf("expected normalized %q, got %q", tc.normalized, result.NormalizedID)
			}
		})
	}
}
