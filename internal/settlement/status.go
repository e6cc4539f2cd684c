package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/internal/ledger"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
)

// StageStatus is one row of the payment-status projection: a milestone stage
// with its share, amount, and processor-side state.
type StageStatus struct {
	Stage         enums.MilestoneStage         `json:"stage"`
	PercentBps    int                          `json:"percent_bps"`
	AmountCents   int64                        `json:"amount_cents"`
	PaymentStatus enums.MilestonePaymentStatus `json:"payment_status"`
	TriggeredBy   enums.ActorType              `json:"triggered_by"`
	OccurredAt    time.Time                    `json:"occurred_at"`
}

// TimelineEntry is one lifecycle transition in the order's history.
type TimelineEntry struct {
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Actor      enums.ActorType   `json:"actor"`
	Reason     *string           `json:"reason,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// PaymentStatus is the full financial snapshot of an order.
type PaymentStatus struct {
	OrderID             uuid.UUID          `json:"order_id"`
	Status              enums.OrderStatus  `json:"status"`
	EscrowStatus        enums.EscrowStatus `json:"escrow_status"`
	Currency            enums.Currency     `json:"currency"`
	TotalCents          int64              `json:"total_cents"`
	AuthorizedCents     int64              `json:"authorized_cents"`
	EscrowCents         int64              `json:"escrow_cents"`
	PendingReleaseCents int64              `json:"pending_release_cents"`
	ReleasedCents       int64              `json:"released_cents"`
	ProcessedBps        int                `json:"processed_bps"`
	Stages              []StageStatus      `json:"stages"`
	Timeline            []TimelineEntry    `json:"timeline"`
}

// GetPaymentStatus assembles the stage-by-stage financial view of an order.
// It is a pure read and takes no lock.
func (s *service) GetPaymentStatus(ctx context.Context, orderID uuid.UUID) (*PaymentStatus, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}

	entries, err := s.ledger.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	events, err := s.orders.ListEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := &PaymentStatus{
		OrderID:             order.ID,
		Status:              order.Status,
		EscrowStatus:        order.EscrowStatus,
		Currency:            order.Currency,
		TotalCents:          order.TotalCents,
		AuthorizedCents:     order.AuthorizedCents,
		EscrowCents:         order.EscrowCents,
		PendingReleaseCents: order.PendingReleaseCents,
		ReleasedCents:       order.ReleasedCents,
		Stages:              make([]StageStatus, 0, len(entries)),
		Timeline:            make([]TimelineEntry, 0, len(events)),
	}

	var processed int
	for _, entry := range entries {
		status.Stages = append(status.Stages, StageStatus{
			Stage:         entry.Stage,
			PercentBps:    entry.PercentBps,
			AmountCents:   entry.AmountCents,
			PaymentStatus: entry.PaymentStatus,
			TriggeredBy:   entry.TriggeredBy,
			OccurredAt:    entry.CreatedAt,
		})
		if entry.PaymentStatus.HoldsFunds() || entry.PaymentStatus == enums.MilestonePaymentStatusReleased {
			processed += ledger.PercentBps(entry.Stage)
		}
	}
	status.ProcessedBps = processed

	for _, event := range events {
		status.Timeline = append(status.Timeline, TimelineEntry{
			FromStatus: event.FromStatus,
			ToStatus:   event.ToStatus,
			Actor:      event.Actor,
			Reason:     event.Reason,
			OccurredAt: event.CreatedAt,
		})
	}
	return status, nil
}
