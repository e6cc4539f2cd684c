package controllers

import (
	"net/http"

	"github.com/craftworkhq/settlement-backend/api/responses"
	"github.com/craftworkhq/settlement-backend/api/validators"
	"github.com/craftworkhq/settlement-backend/internal/settlement"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
)

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type reconcileRequest struct {
	Operation string `json:"operation" validate:"required"`
}

type settlementView struct {
	Order     orderView      `json:"order"`
	Milestone *milestoneView `json:"milestone,omitempty"`
}

type milestoneView struct {
	ID            string `json:"id"`
	Stage         string `json:"stage"`
	PercentBps    int    `json:"percent_bps"`
	AmountCents   int64  `json:"amount_cents"`
	PaymentStatus string `json:"payment_status"`
}

func newSettlementView(result *settlement.Result) settlementView {
	view := settlementView{Order: newOrderView(result.Order)}
	if result.Milestone != nil {
		view.Milestone = &milestoneView{
			ID:            result.Milestone.ID.String(),
			Stage:         string(result.Milestone.Stage),
			PercentBps:    result.Milestone.PercentBps,
			AmountCents:   result.Milestone.AmountCents,
			PaymentStatus: string(result.Milestone.PaymentStatus),
		}
	}
	return view
}

// settlementOp wraps one orchestrator entry point as an HTTP handler.
func settlementOp(logg *logger.Logger, fn func(r *http.Request, actor settlement.Actor) (*settlement.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorType, actorID, err := actorFromHeaders(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := fn(r, settlement.Actor{Type: actorType, ID: actorID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSettlementView(result))
	}
}

// AcceptOrder authorizes the accept-stage hold and moves the order to accepted.
func AcceptOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return settlementOp(logg, func(r *http.Request, actor settlement.Actor) (*settlement.Result, error) {
		orderID, err := parseOrderID(r)
		if err != nil {
			return nil, err
		}
		return svc.Authorize(r.Context(), orderID, actor)
	})
}

// StartOrder captures the escrow share and moves the order to started.
func StartOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return settlementOp(logg, func(r *http.Request, actor settlement.Actor) (*settlement.Result, error) {
		orderID, err := parseOrderID(r)
		if err != nil {
			return nil, err
		}
		return svc.CaptureEscrow(r.Context(), orderID, actor)
	})
}

// DeliverOrder records delivery and reserves its share for release.
func DeliverOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return settlementOp(logg, func(r *http.Request, actor settlement.Actor) (*settlement.Result, error) {
		orderID, err := parseOrderID(r)
		if err != nil {
			return nil, err
		}
		return svc.RecordDelivery(r.Context(), orderID, actor)
	})
}

// ReviewOrder records the buyer's review and reserves its share for release.
func ReviewOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return settlementOp(logg, func(r *http.Request, actor settlement.Actor) (*settlement.Result, error) {
		orderID, err := parseOrderID(r)
		if err != nil {
			return nil, err
		}
		return svc.RecordReview(r.Context(), orderID, actor)
	})
}

// ReleaseOrderFunds pays the seller everything held for the order.
func ReleaseOrderFunds(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return settlementOp(logg, func(r *http.Request, actor settlement.Actor) (*settlement.Result, error) {
		orderID, err := parseOrderID(r)
		if err != nil {
			return nil, err
		}
		return svc.ReleaseFunds(r.Context(), orderID, actor)
	})
}

// CancelOrder refunds everything unreleased and closes the order.
func CancelOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return settlementOp(logg, func(r *http.Request, actor settlement.Actor) (*settlement.Result, error) {
		orderID, err := parseOrderID(r)
		if err != nil {
			return nil, err
		}
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		reason, err := enums.ParseCancelReason(req.Reason)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cancel reason")
		}
		return svc.Cancel(r.Context(), orderID, reason, actor)
	})
}

// ReconcileOrder replays a possibly half-committed operation. Operator only.
func ReconcileOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reconcileRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Reconcile(r.Context(), orderID, settlement.Operation(req.Operation))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result == nil {
			responses.WriteSuccess(w, map[string]string{"outcome": "already_consistent"})
			return
		}
		responses.WriteSuccess(w, newSettlementView(result))
	}
}

// OrderPaymentStatus reports the stage-by-stage financial snapshot.
func OrderPaymentStatus(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.GetPaymentStatus(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
