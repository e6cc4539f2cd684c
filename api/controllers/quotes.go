package controllers

import (
	"net/http"

	"github.com/craftworkhq/settlement-backend/api/responses"
	"github.com/craftworkhq/settlement-backend/api/validators"
	"github.com/craftworkhq/settlement-backend/internal/pricing"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
)

type quoteRequest struct {
	BaseCents    int64  `json:"base_cents" validate:"required,gt=0"`
	BuyerCountry string `json:"buyer_country" validate:"required,len=2"`
	BuyerVATID   string `json:"buyer_vat_id,omitempty"`
	IsBusiness   bool   `json:"is_business"`
}

type quoteResponse struct {
	BaseCents            int64  `json:"base_cents"`
	PlatformFeeCents     int64  `json:"platform_fee_cents"`
	VATRateBps           int    `json:"vat_rate_bps"`
	VATCents             int64  `json:"vat_cents"`
	TotalCents           int64  `json:"total_cents"`
	SellerEarningsCents  int64  `json:"seller_earnings_cents"`
	Currency             string `json:"currency"`
	ReverseChargeApplied bool   `json:"reverse_charge_applied"`
	LegalNote            string `json:"legal_note,omitempty"`
}

// Quote previews the pricing breakdown a checkout would lock. The response
// is deterministic: the same request always prices the same.
func Quote(calc *pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := calc.ComputeBreakdown(r.Context(), pricing.Input{
			BaseCents:    req.BaseCents,
			BuyerCountry: req.BuyerCountry,
			BuyerVATID:   req.BuyerVATID,
			IsBusiness:   req.IsBusiness,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quoteResponse{
			BaseCents:            breakdown.BaseCents,
			PlatformFeeCents:     breakdown.PlatformFeeCents,
			VATRateBps:           breakdown.VATRateBps,
			VATCents:             breakdown.VATCents,
			TotalCents:           breakdown.TotalCents,
			SellerEarningsCents:  breakdown.SellerEarningsCents,
			Currency:             string(breakdown.Currency),
			ReverseChargeApplied: breakdown.ReverseChargeApplied,
			LegalNote:            breakdown.LegalNote,
		})
	}
}
