package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/api/responses"
	"github.com/craftworkhq/settlement-backend/api/validators"
	internalorders "github.com/craftworkhq/settlement-backend/internal/orders"
	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
)

type createOrderRequest struct {
	BuyerID      string `json:"buyer_id" validate:"required,uuid"`
	SellerID     string `json:"seller_id" validate:"required,uuid"`
	GigID        string `json:"gig_id" validate:"required,uuid"`
	Type         string `json:"type,omitempty"`
	BaseCents    int64  `json:"base_cents" validate:"required,gt=0"`
	BuyerCountry string `json:"buyer_country" validate:"required,len=2"`
	BuyerVATID   string `json:"buyer_vat_id,omitempty"`
	IsBusiness   bool   `json:"is_business"`
	PaymentRef   string `json:"payment_ref" validate:"required"`
}

type transitionRequest struct {
	To     string  `json:"to" validate:"required"`
	Reason *string `json:"reason,omitempty"`
}

type orderView struct {
	ID                  uuid.UUID  `json:"id"`
	BuyerID             uuid.UUID  `json:"buyer_id"`
	SellerID            uuid.UUID  `json:"seller_id"`
	GigID               uuid.UUID  `json:"gig_id"`
	Type                string     `json:"type"`
	Status              string     `json:"status"`
	EscrowStatus        string     `json:"escrow_status"`
	Currency            string     `json:"currency"`
	BaseCents           int64      `json:"base_cents"`
	PlatformFeeCents    int64      `json:"platform_fee_cents"`
	VATCents            int64      `json:"vat_cents"`
	TotalCents          int64      `json:"total_cents"`
	SellerEarningsCents int64      `json:"seller_earnings_cents"`
	AuthorizedCents     int64      `json:"authorized_cents"`
	EscrowCents         int64      `json:"escrow_cents"`
	PendingReleaseCents int64      `json:"pending_release_cents"`
	ReleasedCents       int64      `json:"released_cents"`
	PricingLockedAt     *time.Time `json:"pricing_locked_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func newOrderView(order *models.Order) orderView {
	return orderView{
		ID:                  order.ID,
		BuyerID:             order.BuyerID,
		SellerID:            order.SellerID,
		GigID:               order.GigID,
		Type:                string(order.Type),
		Status:              string(order.Status),
		EscrowStatus:        string(order.EscrowStatus),
		Currency:            string(order.Currency),
		BaseCents:           order.BaseCents,
		PlatformFeeCents:    order.PlatformFeeCents,
		VATCents:            order.VATCents,
		TotalCents:          order.TotalCents,
		SellerEarningsCents: order.SellerEarningsCents,
		AuthorizedCents:     order.AuthorizedCents,
		EscrowCents:         order.EscrowCents,
		PendingReleaseCents: order.PendingReleaseCents,
		ReleasedCents:       order.ReleasedCents,
		PricingLockedAt:     order.PricingLockedAt,
		CompletedAt:         order.CompletedAt,
		CancelledAt:         order.CancelledAt,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
}

// CreateOrder opens an order in pending with a draft pricing snapshot.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		buyerID, _ := uuid.Parse(req.BuyerID)
		sellerID, _ := uuid.Parse(req.SellerID)
		gigID, _ := uuid.Parse(req.GigID)

		orderType := enums.OrderTypeSimple
		if req.Type != "" {
			parsed, err := enums.ParseOrderType(req.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type"))
				return
			}
			orderType = parsed
		}

		order, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			BuyerID:      buyerID,
			SellerID:     sellerID,
			GigID:        gigID,
			Type:         orderType,
			BaseCents:    req.BaseCents,
			BuyerCountry: req.BuyerCountry,
			BuyerVATID:   req.BuyerVATID,
			IsBusiness:   req.IsBusiness,
			PaymentRef:   req.PaymentRef,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(order))
	}
}

// GetOrder returns the order with its milestones and timeline.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrderDetail(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// TransitionOrder applies a non-financial lifecycle move. Financial edges go
// through the settlement endpoints.
func TransitionOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		to, err := enums.ParseOrderStatus(req.To)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		actorType, actorID, err := actorFromHeaders(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			To:      to,
			Actor:   actorType,
			ActorID: actorID,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderID")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid")
	}
	return orderID, nil
}

func actorFromHeaders(r *http.Request) (enums.ActorType, *uuid.UUID, error) {
	rawType := strings.TrimSpace(r.Header.Get("X-Actor-Type"))
	if rawType == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Type header required")
	}
	actorType, err := enums.ParseActorType(rawType)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor type")
	}

	var actorID *uuid.UUID
	if raw := strings.TrimSpace(r.Header.Get("X-Actor-Id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id must be a uuid")
		}
		actorID = &parsed
	}
	return actorType, actorID, nil
}
