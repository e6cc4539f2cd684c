package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/internal/ledger"
	"github.com/craftworkhq/settlement-backend/internal/pricing"
	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/outbox"
	"github.com/craftworkhq/settlement-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// nonFinancialTargets are the statuses an order may reach without touching
// money. Financial transitions are owned by the settlement orchestrator and
// rejected here.
var nonFinancialTargets = map[enums.OrderStatus]struct{}{
	enums.OrderStatusRequirementsSubmitted: {},
	enums.OrderStatusHalfwayDone:           {},
	enums.OrderStatusRequestedRevision:     {},
	enums.OrderStatusWaitingReview:         {},
}

// Service creates orders and applies non-financial lifecycle transitions.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type service struct {
	repo    Repository
	ledger  ledger.Service
	pricing *pricing.Calculator
	tx      txRunner
	outbox  outboxPublisher
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo              Repository
	Ledger            ledger.Service
	Pricing           *pricing.Calculator
	TransactionRunner txRunner
	Outbox            outboxPublisher
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("order repository required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger service required")
	}
	if params.Pricing == nil {
		return nil, errors.New("pricing calculator required")
	}
	if params.TransactionRunner == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &service{
		repo:    params.Repo,
		ledger:  params.Ledger,
		pricing: params.Pricing,
		tx:      params.TransactionRunner,
		outbox:  params.Outbox,
	}, nil
}

// CreateOrder opens an order in pending with a draft pricing snapshot and a
// zero-amount order_placed ledger entry. The snapshot becomes immutable at
// first successful authorization.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil || input.SellerID == uuid.Nil || input.GigID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer, seller, and gig ids are required")
	}
	if input.PaymentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference from checkout is required")
	}
	orderType := input.Type
	if orderType == "" {
		orderType = enums.OrderTypeSimple
	}
	if !orderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}

	breakdown, err := s.pricing.ComputeBreakdown(ctx, pricing.Input{
		BaseCents:    input.BaseCents,
		BuyerCountry: input.BuyerCountry,
		BuyerVATID:   input.BuyerVATID,
		IsBusiness:   input.IsBusiness,
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		BuyerID:              input.BuyerID,
		SellerID:             input.SellerID,
		GigID:                input.GigID,
		Status:               enums.OrderStatusPending,
		Type:                 orderType,
		BaseCents:            breakdown.BaseCents,
		PlatformFeeCents:     breakdown.PlatformFeeCents,
		VATRateBps:           breakdown.VATRateBps,
		VATCents:             breakdown.VATCents,
		TotalCents:           breakdown.TotalCents,
		SellerEarningsCents:  breakdown.SellerEarningsCents,
		Currency:             breakdown.Currency,
		ReverseChargeApplied: breakdown.ReverseChargeApplied,
		VATFallbackApplied:   breakdown.FallbackApplied,
		BuyerCountry:         breakdown.BuyerCountry,
		PaymentRef:           input.PaymentRef,
		EscrowStatus:         enums.EscrowStatusNone,
	}
	if breakdown.BuyerVATID != "" {
		order.BuyerVATID = &breakdown.BuyerVATID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		_, err := s.ledger.WithTx(tx).RecordStage(ctx, ledger.RecordStageInput{
			OrderID:       order.ID,
			Stage:         enums.MilestoneStageOrderPlaced,
			TotalCents:    order.TotalCents,
			Currency:      order.Currency,
			PaymentStatus: enums.MilestonePaymentStatusPending,
			TriggeredBy:   enums.ActorTypeBuyer,
		})
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ActorID: input.BuyerID, Type: enums.ActorTypeBuyer},
			Data: payloads.OrderPlacedEvent{
				OrderID:    order.ID,
				BuyerID:    order.BuyerID,
				SellerID:   order.SellerID,
				TotalCents: order.TotalCents,
				Currency:   order.Currency,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Transition applies a non-financial status change under the order's
// optimistic version guard.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if _, ok := nonFinancialTargets[input.To]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status change requires settlement")
	}
	if !input.Actor.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid actor type")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if !CanTransition(order.Status, input.To) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "illegal order status transition").
			WithDetails(map[string]any{"from": order.Status, "to": input.To})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		ok, err := txRepo.UpdateVersioned(ctx, order.ID, order.Version, map[string]any{
			"status": input.To,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
		}
		return txRepo.AppendEvent(ctx, &models.OrderEvent{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   input.To,
			Actor:      input.Actor,
			ActorID:    input.ActorID,
			Reason:     input.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = input.To
	order.Version++
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) GetOrderDetail(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDWithMilestones(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}
