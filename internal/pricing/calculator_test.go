package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/craftworkhq/settlement-backend/pkg/config"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
)

func newTestCalculator(lookup RateLookup) *Calculator {
	return NewCalculator(config.PricingConfig{PlatformFeeBps: 500, Currency: "EUR"}, lookup, nil)
}

func TestComputeBreakdownEUConsumer(t *testing.T) {
	calc := newTestCalculator(nil)

	breakdown, err := calc.ComputeBreakdown(context.Background(), Input{
		BaseCents:    10000,
		BuyerCountry: "DE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.PlatformFeeCents != 500 {
		t.Fatalf("expected fee 500, got %d", breakdown.PlatformFeeCents)
	}
	if breakdown.VATRateBps != 1900 {
		t.Fatalf("expected rate 1900, got %d", breakdown.VATRateBps)
	}
	if breakdown.VATCents != 1995 {
		t.Fatalf("expected vat 1995, got %d", breakdown.VATCents)
	}
	if breakdown.TotalCents != 12495 {
		t.Fatalf("expected total 12495, got %d", breakdown.TotalCents)
	}
	if breakdown.SellerEarningsCents != 9500 {
		t.Fatalf("expected earnings 9500, got %d", breakdown.SellerEarningsCents)
	}
	if breakdown.ReverseChargeApplied || breakdown.FallbackApplied {
		t.Fatal("expected no reverse charge or fallback for a plain consumer order")
	}
	if breakdown.Currency != enums.CurrencyEUR {
		t.Fatalf("expected EUR, got %s", breakdown.Currency)
	}
}

func TestComputeBreakdownReverseCharge(t *testing.T) {
	calc := newTestCalculator(nil)

	breakdown, err := calc.ComputeBreakdown(context.Background(), Input{
		BaseCents:    10000,
		BuyerCountry: "DE",
		BuyerVATID:   "DE 123 456 789",
		IsBusiness:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !breakdown.ReverseChargeApplied {
		t.Fatal("expected reverse charge")
	}
	if breakdown.VATCents != 0 {
		t.Fatalf("expected vat 0, got %d", breakdown.VATCents)
	}
	if breakdown.TotalCents != 10500 {
		t.Fatalf("expected total 10500, got %d", breakdown.TotalCents)
	}
	if breakdown.BuyerVATID != "DE123456789" {
		t.Fatalf("expected normalized vat id, got %q", breakdown.BuyerVATID)
	}
	if breakdown.LegalNote == "" {
		t.Fatal("expected legal note on reverse-charged breakdown")
	}
}

func TestComputeBreakdownInvalidVATIDFallsBackToRate(t *testing.T) {
	calc := newTestCalculator(nil)

	breakdown, err := calc.ComputeBreakdown(context.Background(), Input{
		BaseCents:    10000,
		BuyerCountry: "DE",
		BuyerVATID:   "DE12",
		IsBusiness:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.ReverseChargeApplied {
		t.Fatal("expected no reverse charge for malformed vat id")
	}
	if breakdown.VATCents != 1995 {
		t.Fatalf("expected vat 1995, got %d", breakdown.VATCents)
	}
}

func TestComputeBreakdownOutsideVATSet(t *testing.T) {
	calc := newTestCalculator(nil)

	breakdown, err := calc.ComputeBreakdown(context.Background(), Input{
		BaseCents:    10000,
		BuyerCountry: "US",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.VATRateBps != 0 || breakdown.VATCents != 0 {
		t.Fatalf("expected no vat outside the applicable set, got rate=%d vat=%d", breakdown.VATRateBps, breakdown.VATCents)
	}
	if breakdown.TotalCents != 10500 {
		t.Fatalf("expected total 10500, got %d", breakdown.TotalCents)
	}
}

func TestComputeBreakdownRejectsNonPositiveBase(t *testing.T) {
	calc := newTestCalculator(nil)

	for _, base := range []int64{0, -100} {
		_, err := calc.ComputeBreakdown(context.Background(), Input{BaseCents: base, BuyerCountry: "DE"})
		if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for base %d, got %v", base, err)
		}
	}
}

type stubRateLookup struct {
	rate int
	err  error
}

func (s *stubRateLookup) StandardRateBps(_ context.Context, _ string) (int, error) {
	return s.rate, s.err
}

func TestComputeBreakdownLookupFailureUsesFallback(t *testing.T) {
	calc := newTestCalculator(&stubRateLookup{err: errors.New("rates service down")})

	breakdown, err := calc.ComputeBreakdown(context.Background(), Input{
		BaseCents:    10000,
		BuyerCountry: "DE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !breakdown.FallbackApplied {
		t.Fatal("expected fallback flag when lookup fails")
	}
	if breakdown.VATRateBps != 1900 {
		t.Fatalf("expected static fallback rate 1900, got %d", breakdown.VATRateBps)
	}
}

func TestComputeBreakdownLookupOverridesStatic(t *testing.T) {
	calc := newTestCalculator(&stubRateLookup{rate: 2000})

	breakdown, err := calc.ComputeBreakdown(context.Background(), Input{
		BaseCents:    10000,
		BuyerCountry: "DE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.VATRateBps != 2000 {
		t.Fatalf("expected looked-up rate 2000, got %d", breakdown.VATRateBps)
	}
	if breakdown.FallbackApplied {
		t.Fatal("expected no fallback flag on successful lookup")
	}
}

func TestComputeBreakdownDeterministic(t *testing.T) {
	calc := newTestCalculator(nil)
	input := Input{BaseCents: 3333, BuyerCountry: "FR"}

	first, err := calc.ComputeBreakdown(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := calc.ComputeBreakdown(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *first != *second {
		t.Fatalf("expected identical breakdowns, got %+v vs %+v", first, second)
	}
}
