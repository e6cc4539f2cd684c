package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/craftworkhq/settlement-backend/pkg/config"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
)

// ReverseChargeNote is the fixed legal wording attached to reverse-charged
// invoices.
const ReverseChargeNote = "VAT reverse charged to recipient under Article 196, Council Directive 2006/112/EC"

// RateLookup resolves the live standard VAT rate for a country in basis
// points. Implementations may call an external rates service; failures
// degrade to the static table and never block checkout.
type RateLookup interface {
	StandardRateBps(ctx context.Context, country string) (int, error)
}

// Input describes one pricing request.
type Input struct {
	BaseCents    int64
	BuyerCountry string
	BuyerVATID   string
	IsBusiness   bool
}

// Breakdown is the deterministic pricing result. Amounts are minor units,
// rounded half-up at each step so they match what the processor charges.
type Breakdown struct {
	BaseCents            int64
	PlatformFeeCents     int64
	VATRateBps           int
	VATCents             int64
	TotalCents           int64
	SellerEarningsCents  int64
	Currency             enums.Currency
	ReverseChargeApplied bool
	FallbackApplied      bool
	BuyerCountry         string
	BuyerVATID           string
	LegalNote            string
}

// Calculator computes locked pricing snapshots. It is stateless and safe for
// concurrent use, so the same instance serves both checkout previews and the
// authoritative lock at order creation.
type Calculator struct {
	feeBps   int
	currency enums.Currency
	lookup   RateLookup
	logg     *logger.Logger
}

func NewCalculator(cfg config.PricingConfig, lookup RateLookup, logg *logger.Logger) *Calculator {
	currency, err := enums.ParseCurrency(cfg.Currency)
	if err != nil {
		currency = enums.CurrencyEUR
	}
	return &Calculator{
		feeBps:   cfg.PlatformFeeBps,
		currency: currency,
		lookup:   lookup,
		logg:     logg,
	}
}

// ComputeBreakdown derives the platform fee, VAT, total, and seller net for
// the given base price. It performs no I/O beyond the optional rate lookup
// and has no side effects.
func (c *Calculator) ComputeBreakdown(ctx context.Context, input Input) (*Breakdown, error) {
	if input.BaseCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
	}

	country := normalizeCountry(input.BuyerCountry)

	base := decimal.New(input.BaseCents, -2)
	feeRate := decimal.New(int64(c.feeBps), -4)
	fee := base.Mul(feeRate).Round(2)
	taxable := base.Add(fee)

	breakdown := &Breakdown{
		BaseCents:        input.BaseCents,
		PlatformFeeCents: toCents(fee),
		Currency:         c.currency,
		BuyerCountry:     country,
	}

	rateBps := 0
	switch {
	case !IsVATApplicable(country):
		// Outside the VAT-applicable set; nothing to charge.

	case input.IsBusiness:
		result := ValidateVATID(input.BuyerVATID, country)
		if result.Valid {
			breakdown.ReverseChargeApplied = true
			breakdown.BuyerVATID = result.NormalizedID
			breakdown.LegalNote = ReverseChargeNote
			break
		}
		rateBps, breakdown.FallbackApplied = c.resolveRate(ctx, country)

	default:
		rateBps, breakdown.FallbackApplied = c.resolveRate(ctx, country)
	}

	rate := decimal.New(int64(rateBps), -4)
	vat := taxable.Mul(rate).Round(2)
	total := taxable.Add(vat).Round(2)
	earnings := base.Sub(fee).Round(2)

	breakdown.VATRateBps = rateBps
	breakdown.VATCents = toCents(vat)
	breakdown.TotalCents = toCents(total)
	breakdown.SellerEarningsCents = toCents(earnings)
	return breakdown, nil
}

// resolveRate returns the standard rate for the country, preferring the live
// lookup when configured. The bool reports whether a lookup failure forced a
// fall back to the static table or to 0%.
func (c *Calculator) resolveRate(ctx context.Context, country string) (int, bool) {
	if c.lookup != nil {
		rate, err := c.lookup.StandardRateBps(ctx, country)
		if err == nil {
			return rate, false
		}
		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "country", country), "vat rate lookup failed, using fallback")
		}
		if rate, ok := FallbackRateBps(country); ok {
			return rate, true
		}
		return 0, true
	}
	if rate, ok := FallbackRateBps(country); ok {
		return rate, false
	}
	return 0, true
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}
