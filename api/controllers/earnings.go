package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/api/responses"
	"github.com/craftworkhq/settlement-backend/api/validators"
	"github.com/craftworkhq/settlement-backend/internal/earnings"
	"github.com/craftworkhq/settlement-backend/internal/payouts"
	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
)

type payoutAccountRequest struct {
	Destination string `json:"destination" validate:"required"`
	Verified    bool   `json:"verified"`
}

type earningsView struct {
	SellerID       uuid.UUID `json:"seller_id"`
	PendingCents   int64     `json:"pending_cents"`
	AvailableCents int64     `json:"available_cents"`
}

// SellerEarnings returns the seller's pending and available balances.
func SellerEarnings(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Balance(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, earningsView{
			SellerID:       sellerID,
			PendingCents:   balance.PendingCents,
			AvailableCents: balance.AvailableCents,
		})
	}
}

// UpsertPayoutAccount stores the seller's payout destination. Releases stay
// deferred until a verified destination exists.
func UpsertPayoutAccount(repo payouts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req payoutAccountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account := &models.PayoutAccount{
			SellerID:    sellerID,
			Destination: req.Destination,
			Verified:    req.Verified,
		}
		if req.Verified {
			now := time.Now()
			account.VerifiedAt = &now
		}
		if err := repo.Upsert(r.Context(), account); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"seller_id":   sellerID,
			"destination": account.Destination,
			"verified":    account.Verified,
		})
	}
}

func parseSellerID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "sellerID")
	sellerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id must be a uuid")
	}
	return sellerID, nil
}
