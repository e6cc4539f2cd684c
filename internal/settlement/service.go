package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/internal/earnings"
	"github.com/craftworkhq/settlement-backend/internal/ledger"
	"github.com/craftworkhq/settlement-backend/internal/orders"
	"github.com/craftworkhq/settlement-backend/internal/payments"
	"github.com/craftworkhq/settlement-backend/internal/payouts"
	"github.com/craftworkhq/settlement-backend/pkg/config"
	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
	"github.com/craftworkhq/settlement-backend/pkg/metrics"
	"github.com/craftworkhq/settlement-backend/pkg/outbox"
	"github.com/craftworkhq/settlement-backend/pkg/outbox/payloads"
)

// Operation names one orchestrator entry point, used for idempotency keys,
// metrics labels, and reconciliation.
type Operation string

const (
	OpAuthorize      Operation = "authorize"
	OpCaptureEscrow  Operation = "capture_escrow"
	OpRecordDelivery Operation = "record_delivery"
	OpRecordReview   Operation = "record_review"
	OpReleaseFunds   Operation = "release_funds"
	OpCancel         Operation = "cancel"
)

// Actor identifies who triggered a settlement operation.
type Actor struct {
	Type enums.ActorType
	ID   *uuid.UUID
}

// Result reports the outcome of a settlement operation.
type Result struct {
	Order     *models.Order
	Milestone *models.Milestone
}

// statusPreconditions maps each operation to the order statuses it may run
// from. Legality of the lifecycle edge is enforced here, not in the ledger.
var statusPreconditions = map[Operation][]enums.OrderStatus{
	OpAuthorize: {
		enums.OrderStatusPending,
	},
	OpCaptureEscrow: {
		enums.OrderStatusAccepted,
		enums.OrderStatusRequirementsSubmitted,
		enums.OrderStatusStarted,
	},
	OpRecordDelivery: {
		enums.OrderStatusStarted,
		enums.OrderStatusHalfwayDone,
		enums.OrderStatusRequestedRevision,
	},
	OpRecordReview: {
		enums.OrderStatusDelivered,
		enums.OrderStatusWaitingReview,
	},
	OpReleaseFunds: {
		enums.OrderStatusWaitingReview,
		enums.OrderStatusReadyForPayment,
	},
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the escrow settlement orchestrator: the only component that
// calls the payment processor, and the only writer of financial order state
// and ledger entries.
type Service interface {
	Authorize(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error)
	CaptureEscrow(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error)
	RecordDelivery(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error)
	RecordReview(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error)
	ReleaseFunds(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason enums.CancelReason, actor Actor) (*Result, error)
	Reconcile(ctx context.Context, orderID uuid.UUID, op Operation) (*Result, error)
	GetPaymentStatus(ctx context.Context, orderID uuid.UUID) (*PaymentStatus, error)
}

type service struct {
	orders    orders.Repository
	ledger    ledger.Service
	earnings  earnings.Service
	payouts   payouts.Resolver
	processor payments.Processor
	tx        txRunner
	outbox    outboxPublisher
	locker    OrderLocker
	metrics   *metrics.SettlementMetrics
	logg      *logger.Logger
	keyPrefix string
}

// ServiceParams wires the orchestrator dependencies.
type ServiceParams struct {
	Orders            orders.Repository
	Ledger            ledger.Service
	Earnings          earnings.Service
	Payouts           payouts.Resolver
	Processor         payments.Processor
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Locker            OrderLocker
	Metrics           *metrics.SettlementMetrics
	Logger            *logger.Logger
	Config            config.SettlementConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, errors.New("order repository required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger service required")
	}
	if params.Earnings == nil {
		return nil, errors.New("earnings service required")
	}
	if params.Payouts == nil {
		return nil, errors.New("payout resolver required")
	}
	if params.Processor == nil {
		return nil, errors.New("payment processor required")
	}
	if params.TransactionRunner == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	if params.Locker == nil {
		return nil, errors.New("order locker required")
	}
	prefix := params.Config.ProcessorPrefix
	if prefix == "" {
		prefix = "settle"
	}
	return &service{
		orders:    params.Orders,
		ledger:    params.Ledger,
		earnings:  params.Earnings,
		payouts:   params.Payouts,
		processor: params.Processor,
		tx:        params.TransactionRunner,
		outbox:    params.Outbox,
		locker:    params.Locker,
		metrics:   params.Metrics,
		logg:      params.Logger,
		keyPrefix: prefix,
	}, nil
}

// Authorize places a hold for the accepted-stage share when the seller
// accepts the order, and locks the pricing snapshot.
func (s *service) Authorize(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error) {
	return s.run(ctx, OpAuthorize, orderID, func(ctx context.Context, order *models.Order) (*Result, error) {
		if err := s.guardStage(ctx, order, OpAuthorize, enums.MilestoneStageAccepted, ""); err != nil {
			return nil, err
		}
		if order.PaymentRef == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no payment reference from checkout")
		}

		amount := ledger.AmountForStage(order.TotalCents, enums.MilestoneStageAccepted)
		result, err := s.processor.Authorize(ctx, payments.AuthorizeParams{
			OrderID:        order.ID,
			SourceID:       order.PaymentRef,
			AmountCents:    amount,
			Currency:       string(order.Currency),
			IdempotencyKey: s.idempotencyKey(order.ID, enums.MilestoneStageAccepted),
			Note:           "order accept hold",
		})
		if err != nil {
			return nil, s.recordDecline(ctx, order, enums.MilestoneStageAccepted, amount, actor, err)
		}

		now := time.Now()
		var milestone *models.Milestone
		err = s.commit(ctx, OpAuthorize, order, result.Reference, func(tx *gorm.DB) error {
			// payment_ref keeps the checkout source; the hold reference lives
			// on the milestone row and the accepted event.
			updates := map[string]any{
				"status":           enums.OrderStatusAccepted,
				"authorized_cents": amount,
			}
			if order.PricingLockedAt == nil {
				updates["pricing_locked_at"] = now
			}
			if err := s.applyOrder(ctx, tx, order, updates); err != nil {
				return err
			}
			milestone, err = s.ledger.WithTx(tx).RecordStage(ctx, ledger.RecordStageInput{
				OrderID:       order.ID,
				Stage:         enums.MilestoneStageAccepted,
				TotalCents:    order.TotalCents,
				Currency:      order.Currency,
				PaymentStatus: enums.MilestonePaymentStatusAuthorized,
				TriggeredBy:   actor.Type,
				PaymentRef:    &result.Reference,
				AuthorizedAt:  &now,
			})
			if err != nil {
				return err
			}
			if err := s.appendEvent(ctx, tx, order, enums.OrderStatusAccepted, actor, nil); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderAccepted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.OrderAcceptedEvent{
					OrderID:         order.ID,
					SellerID:        order.SellerID,
					AuthorizedCents: amount,
					PaymentRef:      result.Reference,
				},
				Version: 1,
			})
		})
		if err != nil {
			return nil, err
		}

		order.Status = enums.OrderStatusAccepted
		order.AuthorizedCents = amount
		if order.PricingLockedAt == nil {
			order.PricingLockedAt = &now
		}
		return &Result{Order: order, Milestone: milestone}, nil
	})
}

// CaptureEscrow captures half the order total into escrow when work starts
// and accrues the seller's pending earnings.
func (s *service) CaptureEscrow(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error) {
	return s.run(ctx, OpCaptureEscrow, orderID, func(ctx context.Context, order *models.Order) (*Result, error) {
		if err := s.guardStage(ctx, order, OpCaptureEscrow, enums.MilestoneStageInEscrow, enums.MilestoneStageAccepted); err != nil {
			return nil, err
		}

		amount := ledger.AmountForStage(order.TotalCents, enums.MilestoneStageInEscrow)
		result, err := s.processor.Capture(ctx, payments.CaptureParams{
			OrderID:        order.ID,
			SourceID:       order.PaymentRef,
			AmountCents:    amount,
			Currency:       string(order.Currency),
			IdempotencyKey: s.idempotencyKey(order.ID, enums.MilestoneStageInEscrow),
			Note:           "escrow capture",
		})
		if err != nil {
			return nil, s.recordDecline(ctx, order, enums.MilestoneStageInEscrow, amount, actor, err)
		}

		now := time.Now()
		chargeRef := result.Reference
		newStatus := enums.OrderStatusStarted
		var milestone *models.Milestone
		err = s.commit(ctx, OpCaptureEscrow, order, chargeRef, func(tx *gorm.DB) error {
			updates := map[string]any{
				"status":        newStatus,
				"escrow_status": enums.EscrowStatusPartial,
				"escrow_cents":  amount,
				"charge_ref":    chargeRef,
			}
			if err := s.applyOrder(ctx, tx, order, updates); err != nil {
				return err
			}
			milestone, err = s.ledger.WithTx(tx).RecordStage(ctx, ledger.RecordStageInput{
				OrderID:       order.ID,
				Stage:         enums.MilestoneStageInEscrow,
				TotalCents:    order.TotalCents,
				Currency:      order.Currency,
				PaymentStatus: enums.MilestonePaymentStatusHeldInEscrow,
				TriggeredBy:   actor.Type,
				PaymentRef:    &order.PaymentRef,
				ChargeRef:     &chargeRef,
				CapturedAt:    &now,
			})
			if err != nil {
				return err
			}
			if err := s.earnings.WithTx(tx).Accrue(ctx, order.SellerID, amount); err != nil {
				return err
			}
			if order.Status != newStatus {
				if err := s.appendEvent(ctx, tx, order, newStatus, actor, nil); err != nil {
					return err
				}
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventEscrowFunded,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.EscrowFundedEvent{
					OrderID:     order.ID,
					EscrowCents: amount,
					ChargeRef:   chargeRef,
				},
				Version: 1,
			})
		})
		if err != nil {
			return nil, err
		}

		order.Status = newStatus
		order.EscrowStatus = enums.EscrowStatusPartial
		order.EscrowCents = amount
		order.ChargeRef = &chargeRef
		return &Result{Order: order, Milestone: milestone}, nil
	})
}

// RecordDelivery reserves the delivery share of the escrowed funds. No
// processor call happens; delivery is a client-side fact.
func (s *service) RecordDelivery(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error) {
	return s.run(ctx, OpRecordDelivery, orderID, func(ctx context.Context, order *models.Order) (*Result, error) {
		existing, err := s.ledger.FindStage(ctx, order.ID, enums.MilestoneStageDelivered)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.PaymentStatus != enums.MilestonePaymentStatusFailed {
			// Re-delivery after a revision moves the status back without a
			// second ledger entry.
			if order.Status == enums.OrderStatusRequestedRevision {
				return s.statusOnlyTransition(ctx, order, enums.OrderStatusDelivered, actor, existing)
			}
			return nil, alreadyProcessed(enums.MilestoneStageDelivered)
		}
		if err := s.guardStage(ctx, order, OpRecordDelivery, enums.MilestoneStageDelivered, enums.MilestoneStageInEscrow); err != nil {
			return nil, err
		}

		amount := ledger.AmountForStage(order.TotalCents, enums.MilestoneStageDelivered)
		pending := order.PendingReleaseCents + amount
		var milestone *models.Milestone
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			updates := map[string]any{
				"status":                enums.OrderStatusDelivered,
				"pending_release_cents": pending,
			}
			if err := s.applyOrder(ctx, tx, order, updates); err != nil {
				return err
			}
			milestone, err = s.ledger.WithTx(tx).RecordStage(ctx, ledger.RecordStageInput{
				OrderID:       order.ID,
				Stage:         enums.MilestoneStageDelivered,
				TotalCents:    order.TotalCents,
				Currency:      order.Currency,
				PaymentStatus: enums.MilestonePaymentStatusPendingRelease,
				TriggeredBy:   actor.Type,
			})
			if err != nil {
				return err
			}
			if err := s.appendEvent(ctx, tx, order, enums.OrderStatusDelivered, actor, nil); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderDelivered,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.OrderDeliveredEvent{
					OrderID:             order.ID,
					SellerID:            order.SellerID,
					PendingReleaseCents: pending,
				},
				Version: 1,
			})
		})
		if err != nil {
			return nil, err
		}

		order.Status = enums.OrderStatusDelivered
		order.PendingReleaseCents = pending
		return &Result{Order: order, Milestone: milestone}, nil
	})
}

// RecordReview reserves the review share once the buyer reviews the
// delivered work. No processor call happens.
func (s *service) RecordReview(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error) {
	return s.run(ctx, OpRecordReview, orderID, func(ctx context.Context, order *models.Order) (*Result, error) {
		if err := s.guardStage(ctx, order, OpRecordReview, enums.MilestoneStageReviewed, enums.MilestoneStageDelivered); err != nil {
			return nil, err
		}

		amount := ledger.AmountForStage(order.TotalCents, enums.MilestoneStageReviewed)
		pending := order.PendingReleaseCents + amount
		var milestone *models.Milestone
		var err error
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			updates := map[string]any{
				"status":                enums.OrderStatusReadyForPayment,
				"pending_release_cents": pending,
			}
			if err := s.applyOrder(ctx, tx, order, updates); err != nil {
				return err
			}
			milestone, err = s.ledger.WithTx(tx).RecordStage(ctx, ledger.RecordStageInput{
				OrderID:       order.ID,
				Stage:         enums.MilestoneStageReviewed,
				TotalCents:    order.TotalCents,
				Currency:      order.Currency,
				PaymentStatus: enums.MilestonePaymentStatusPendingRelease,
				TriggeredBy:   actor.Type,
			})
			if err != nil {
				return err
			}
			if err := s.appendEvent(ctx, tx, order, enums.OrderStatusReadyForPayment, actor, nil); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderReviewed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.OrderReviewedEvent{
					OrderID: order.ID,
					BuyerID: order.BuyerID,
				},
				Version: 1,
			})
		})
		if err != nil {
			return nil, err
		}

		order.Status = enums.OrderStatusReadyForPayment
		order.PendingReleaseCents = pending
		return &Result{Order: order, Milestone: milestone}, nil
	})
}

// ReleaseFunds transfers every held and pending amount to the seller in one
// processor call and writes the terminal completed entry for the literal sum.
func (s *service) ReleaseFunds(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error) {
	return s.run(ctx, OpReleaseFunds, orderID, func(ctx context.Context, order *models.Order) (*Result, error) {
		if err := s.guardStage(ctx, order, OpReleaseFunds, enums.MilestoneStageCompleted, enums.MilestoneStageInEscrow); err != nil {
			return nil, err
		}

		destination, err := s.payouts.Destination(ctx, order.SellerID)
		if err != nil {
			return nil, err
		}
		if destination == "" {
			return nil, pkgerrors.New(pkgerrors.CodePayoutMissing, "seller has no verified payout destination")
		}

		held, err := s.ledger.HeldEntries(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if len(held) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStageOrder, "no held funds to release")
		}
		sum := ledger.SumAmounts(held)

		result, err := s.processor.Transfer(ctx, payments.TransferParams{
			OrderID:        order.ID,
			Destination:    destination,
			AmountCents:    sum,
			Currency:       string(order.Currency),
			IdempotencyKey: s.idempotencyKey(order.ID, enums.MilestoneStageCompleted),
			Note:           "order settlement payout",
		})
		if err != nil {
			return nil, s.operationFailure(ctx, OpReleaseFunds, order, err)
		}

		now := time.Now()
		transferRef := result.Reference
		var milestone *models.Milestone
		err = s.commit(ctx, OpReleaseFunds, order, transferRef, func(tx *gorm.DB) error {
			updates := map[string]any{
				"status":                enums.OrderStatusCompleted,
				"escrow_status":         enums.EscrowStatusReleased,
				"escrow_cents":          0,
				"pending_release_cents": 0,
				"released_cents":        sum,
				"transfer_ref":          transferRef,
				"completed_at":          now,
			}
			if err := s.applyOrder(ctx, tx, order, updates); err != nil {
				return err
			}
			txLedger := s.ledger.WithTx(tx)
			ids := make([]uuid.UUID, 0, len(held))
			for _, entry := range held {
				ids = append(ids, entry.ID)
			}
			if err := txLedger.MarkReleased(ctx, ids, transferRef, now); err != nil {
				return err
			}
			milestone, err = txLedger.RecordStage(ctx, ledger.RecordStageInput{
				OrderID:       order.ID,
				Stage:         enums.MilestoneStageCompleted,
				TotalCents:    order.TotalCents,
				AmountCents:   &sum,
				Currency:      order.Currency,
				PaymentStatus: enums.MilestonePaymentStatusReleased,
				TriggeredBy:   actor.Type,
				TransferRef:   &transferRef,
				ReleasedAt:    &now,
			})
			if err != nil {
				return err
			}
			if err := s.earnings.WithTx(tx).Release(ctx, order.SellerID, sum); err != nil {
				return err
			}
			if err := s.appendEvent(ctx, tx, order, enums.OrderStatusCompleted, actor, nil); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventFundsReleased,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.FundsReleasedEvent{
					OrderID:       order.ID,
					SellerID:      order.SellerID,
					ReleasedCents: sum,
					TransferRef:   transferRef,
					ReleasedAt:    now,
				},
				Version: 1,
			})
		})
		if err != nil {
			return nil, err
		}

		order.Status = enums.OrderStatusCompleted
		order.EscrowStatus = enums.EscrowStatusReleased
		order.EscrowCents = 0
		order.PendingReleaseCents = 0
		order.ReleasedCents = sum
		order.TransferRef = &transferRef
		order.CompletedAt = &now
		return &Result{Order: order, Milestone: milestone}, nil
	})
}

// Cancel refunds every captured-but-unreleased amount in one processor call
// and closes the order. Cancellation after a committed release is rejected.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, reason enums.CancelReason, actor Actor) (*Result, error) {
	return s.run(ctx, OpCancel, orderID, func(ctx context.Context, order *models.Order) (*Result, error) {
		if !reason.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cancel reason")
		}
		if order.EscrowStatus == enums.EscrowStatusReleased {
			return nil, pkgerrors.New(pkgerrors.CodeReleased, "funds already released to seller")
		}
		if order.Status.IsTerminal() {
			return nil, alreadyProcessed(enums.MilestoneStageCancelled)
		}

		refundable, err := s.ledger.RefundableEntries(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		sum := ledger.SumAmounts(refundable)

		var refundRef string
		if sum > 0 {
			if order.ChargeRef == nil {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refundable funds without a charge reference")
			}
			result, err := s.processor.Refund(ctx, payments.RefundParams{
				PaymentRef:     *order.ChargeRef,
				AmountCents:    sum,
				Currency:       string(order.Currency),
				IdempotencyKey: s.idempotencyKey(order.ID, enums.MilestoneStageRefunded),
				Reason:         string(reason),
			})
			if err != nil {
				return nil, s.operationFailure(ctx, OpCancel, order, err)
			}
			refundRef = result.Reference
		}

		now := time.Now()
		reasonText := string(reason)
		var milestone *models.Milestone
		err = s.commit(ctx, OpCancel, order, refundRef, func(tx *gorm.DB) error {
			updates := map[string]any{
				"status":                enums.OrderStatusCancelled,
				"escrow_cents":          0,
				"pending_release_cents": 0,
				"cancelled_at":          now,
			}
			if sum > 0 {
				updates["escrow_status"] = enums.EscrowStatusRefunded
				updates["refund_ref"] = refundRef
			}
			if err := s.applyOrder(ctx, tx, order, updates); err != nil {
				return err
			}
			txLedger := s.ledger.WithTx(tx)
			if sum > 0 {
				ids := make([]uuid.UUID, 0, len(refundable))
				for _, entry := range refundable {
					ids = append(ids, entry.ID)
				}
				if err := txLedger.MarkRefunded(ctx, ids, refundRef, now); err != nil {
					return err
				}
			}
			input := ledger.RecordStageInput{
				OrderID:       order.ID,
				Stage:         enums.MilestoneStageCancelled,
				TotalCents:    order.TotalCents,
				AmountCents:   &sum,
				Currency:      order.Currency,
				PaymentStatus: enums.MilestonePaymentStatusCancelled,
				TriggeredBy:   actor.Type,
				Note:          &reasonText,
				RefundedAt:    &now,
			}
			if sum > 0 {
				input.RefundRef = &refundRef
			}
			milestone, err = txLedger.RecordStage(ctx, input)
			if err != nil {
				return err
			}
			if sum > 0 {
				if err := s.earnings.WithTx(tx).Reverse(ctx, order.SellerID, sum); err != nil {
					return err
				}
			}
			if err := s.appendEvent(ctx, tx, order, enums.OrderStatusCancelled, actor, &reasonText); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.OrderCancelledEvent{
					OrderID:       order.ID,
					Reason:        reason,
					RefundedCents: sum,
					RefundRef:     refundRef,
					CancelledAt:   now,
				},
				Version: 1,
			})
		})
		if err != nil {
			return nil, err
		}

		order.Status = enums.OrderStatusCancelled
		order.EscrowCents = 0
		order.PendingReleaseCents = 0
		order.CancelledAt = &now
		if sum > 0 {
			order.EscrowStatus = enums.EscrowStatusRefunded
			order.RefundRef = &refundRef
		}
		return &Result{Order: order, Milestone: milestone}, nil
	})
}

// Reconcile replays an operation whose processor call may have succeeded
// while the local commit failed. Replaying is safe: the processor sees the
// original idempotency key and returns the prior result instead of moving
// funds again. An AlreadyProcessed outcome means the ledger caught up.
func (s *service) Reconcile(ctx context.Context, orderID uuid.UUID, op Operation) (*Result, error) {
	var (
		result *Result
		err    error
	)
	actor := Actor{Type: enums.ActorTypeSystem}
	switch op {
	case OpAuthorize:
		result, err = s.Authorize(ctx, orderID, actor)
	case OpCaptureEscrow:
		result, err = s.CaptureEscrow(ctx, orderID, actor)
	case OpRecordDelivery:
		result, err = s.RecordDelivery(ctx, orderID, actor)
	case OpRecordReview:
		result, err = s.RecordReview(ctx, orderID, actor)
	case OpReleaseFunds:
		result, err = s.ReleaseFunds(ctx, orderID, actor)
	case OpCancel:
		// The original reason was lost with the failed commit; the replay is
		// recorded as a platform cancellation.
		result, err = s.Cancel(ctx, orderID, enums.CancelReasonSystem, actor)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("operation %q cannot be reconciled", op))
	}
	switch {
	case err == nil:
		s.metrics.IncReconciliation("replayed")
		return result, nil
	case pkgerrors.Is(err, pkgerrors.CodeAlreadyDone):
		s.metrics.IncReconciliation("already_consistent")
		return nil, nil
	default:
		s.metrics.IncReconciliation("failed")
		return nil, err
	}
}

// run wraps an operation with the per-order lock, load, metrics, and timing.
func (s *service) run(ctx context.Context, op Operation, orderID uuid.UUID, fn func(context.Context, *models.Order) (*Result, error)) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	start := time.Now()
	s.metrics.IncOperation(string(op))

	lock, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderBusy) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "another settlement operation holds this order")
		}
		return nil, err
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, orderID.String()), "failed to release order lock")
		}
	}()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(ctx, map[string]any{
			"order_id":  orderID.String(),
			"operation": string(op),
		})
	}

	result, err := fn(logCtx, order)
	s.metrics.ObserveDuration(string(op), time.Since(start))
	if err != nil {
		s.metrics.IncFailure(string(op), failureCode(err))
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(logCtx, "settlement operation committed")
	}
	return result, nil
}

// guardStage enforces idempotency, table ordering, and the order-status
// precondition, in that priority, with no side effects on failure.
func (s *service) guardStage(ctx context.Context, order *models.Order, op Operation, stage, priorStage enums.MilestoneStage) error {
	existing, err := s.ledger.FindStage(ctx, order.ID, stage)
	if err != nil {
		return err
	}
	if existing != nil && existing.PaymentStatus != enums.MilestonePaymentStatusFailed {
		return alreadyProcessed(stage)
	}
	if priorStage != "" {
		prior, err := s.ledger.FindStage(ctx, order.ID, priorStage)
		if err != nil {
			return err
		}
		if prior == nil || prior.PaymentStatus == enums.MilestonePaymentStatusFailed {
			return pkgerrors.New(pkgerrors.CodeStageOrder, fmt.Sprintf("stage %s requires %s first", stage, priorStage)).
				WithDetails(map[string]any{"stage": stage, "requires": priorStage})
		}
	}
	allowed := statusPreconditions[op]
	for _, status := range allowed {
		if order.Status == status {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order status %s does not permit %s", order.Status, op)).
		WithDetails(map[string]any{"status": order.Status, "operation": op})
}

// commit runs the local transaction that must follow a successful processor
// call. On failure it flags a partial commit for reconciliation instead of
// surfacing a plain error.
func (s *service) commit(ctx context.Context, op Operation, order *models.Order, processorRef string, fn func(tx *gorm.DB) error) error {
	err := s.tx.WithTx(ctx, fn)
	if err == nil {
		return nil
	}

	s.metrics.IncPartialCommit(string(op))
	if s.logg != nil {
		fields := map[string]any{
			"order_id":      order.ID.String(),
			"operation":     string(op),
			"processor_ref": processorRef,
		}
		s.logg.Error(s.logg.WithFields(ctx, fields), "processor call succeeded but local commit failed", err)
	}

	// Operator-visible alert, best effort in its own transaction.
	alertErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPartialCommit,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PartialCommitEvent{
				OrderID:      order.ID,
				Operation:    string(op),
				ProcessorRef: processorRef,
				DetectedAt:   time.Now(),
			},
			Version: 1,
		})
	})
	if alertErr != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to queue partial-commit alert", alertErr)
	}

	return pkgerrors.Wrap(pkgerrors.CodePartialCommit, err, "settlement committed at processor but not locally")
}

// recordDecline persists a failed ledger entry for a processor decline and
// returns the decline. Non-decline processor errors pass through untouched.
func (s *service) recordDecline(ctx context.Context, order *models.Order, stage enums.MilestoneStage, amount int64, actor Actor, cause error) error {
	if !pkgerrors.Is(cause, pkgerrors.CodeDeclined) {
		return cause
	}
	now := time.Now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.ledger.WithTx(tx).RecordStage(ctx, ledger.RecordStageInput{
			OrderID:       order.ID,
			Stage:         stage,
			TotalCents:    order.TotalCents,
			AmountCents:   &amount,
			Currency:      order.Currency,
			PaymentStatus: enums.MilestonePaymentStatusFailed,
			TriggeredBy:   actor.Type,
			FailedAt:      &now,
		})
		return err
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "failed to record declined ledger entry", err)
	}
	return cause
}

// operationFailure logs a processor failure with full reconciliation context.
func (s *service) operationFailure(ctx context.Context, op Operation, order *models.Order, cause error) error {
	if s.logg != nil {
		fields := map[string]any{
			"order_id":    order.ID.String(),
			"operation":   string(op),
			"payment_ref": order.PaymentRef,
		}
		s.logg.Error(s.logg.WithFields(ctx, fields), "payment processor call failed", cause)
	}
	return cause
}

func (s *service) statusOnlyTransition(ctx context.Context, order *models.Order, to enums.OrderStatus, actor Actor, milestone *models.Milestone) (*Result, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.applyOrder(ctx, tx, order, map[string]any{"status": to}); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, order, to, actor, nil)
	})
	if err != nil {
		return nil, err
	}
	order.Status = to
	return &Result{Order: order, Milestone: milestone}, nil
}

// applyOrder performs the optimistic versioned update and keeps the
// in-memory version in sync.
func (s *service) applyOrder(ctx context.Context, tx *gorm.DB, order *models.Order, updates map[string]any) error {
	ok, err := s.orders.WithTx(tx).UpdateVersioned(ctx, order.ID, order.Version, updates)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
	}
	order.Version++
	return nil
}

func (s *service) appendEvent(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor Actor, reason *string) error {
	return s.orders.WithTx(tx).AppendEvent(ctx, &models.OrderEvent{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   to,
		Actor:      actor.Type,
		ActorID:    actor.ID,
		Reason:     reason,
	})
}

func (s *service) idempotencyKey(orderID uuid.UUID, stage enums.MilestoneStage) string {
	return fmt.Sprintf("%s-%s-%s", s.keyPrefix, orderID, stage)
}

func alreadyProcessed(stage enums.MilestoneStage) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyDone, fmt.Sprintf("stage %s already processed", stage)).
		WithDetails(map[string]any{"stage": stage})
}

func actorRef(actor Actor) *outbox.ActorRef {
	ref := &outbox.ActorRef{Type: actor.Type}
	if actor.ID != nil {
		ref.ActorID = *actor.ID
	}
	return ref
}

func failureCode(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
