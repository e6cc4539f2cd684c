package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
)

// holdingStatuses are the payment statuses whose entries still tie up buyer
// funds inside the platform.
var holdingStatuses = []enums.MilestonePaymentStatus{
	enums.MilestonePaymentStatusCaptured,
	enums.MilestonePaymentStatusHeldInEscrow,
	enums.MilestonePaymentStatusPendingRelease,
}

// refundableStatuses are the payment statuses a cancellation refunds.
var refundableStatuses = []enums.MilestonePaymentStatus{
	enums.MilestonePaymentStatusCaptured,
	enums.MilestonePaymentStatusHeldInEscrow,
}

// Service records and queries milestone ledger entries. Entries are append
// only; the only mutation after insert is moving into a terminal payment
// status.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordStage(ctx context.Context, input RecordStageInput) (*models.Milestone, error)
	FindStage(ctx context.Context, orderID uuid.UUID, stage enums.MilestoneStage) (*models.Milestone, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error)
	HeldEntries(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error)
	RefundableEntries(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error)
	MarkReleased(ctx context.Context, ids []uuid.UUID, transferRef string, at time.Time) error
	MarkRefunded(ctx context.Context, ids []uuid.UUID, refundRef string, at time.Time) error
}

// RecordStageInput captures the immutable data a ledger entry requires. When
// AmountCents is nil the amount is derived from TotalCents and the stage's
// table share.
type RecordStageInput struct {
	OrderID       uuid.UUID
	Stage         enums.MilestoneStage
	TotalCents    int64
	AmountCents   *int64
	Currency      enums.Currency
	PaymentStatus enums.MilestonePaymentStatus
	TriggeredBy   enums.ActorType
	PaymentRef    *string
	ChargeRef     *string
	TransferRef   *string
	RefundRef     *string
	Note          *string
	AuthorizedAt  *time.Time
	CapturedAt    *time.Time
	ReleasedAt    *time.Time
	RefundedAt    *time.Time
	FailedAt      *time.Time
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordStage(ctx context.Context, input RecordStageInput) (*models.Milestone, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Stage.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid milestone stage")
	}
	if !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid milestone payment status")
	}
	if !input.TriggeredBy.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid actor type")
	}

	amount := AmountForStage(input.TotalCents, input.Stage)
	if input.AmountCents != nil {
		amount = *input.AmountCents
	}
	if amount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone amount must not be negative")
	}

	entry := &models.Milestone{
		OrderID:       input.OrderID,
		Stage:         input.Stage,
		PercentBps:    PercentBps(input.Stage),
		AmountCents:   amount,
		Currency:      input.Currency,
		PaymentStatus: input.PaymentStatus,
		PaymentRef:    input.PaymentRef,
		ChargeRef:     input.ChargeRef,
		TransferRef:   input.TransferRef,
		RefundRef:     input.RefundRef,
		TriggeredBy:   input.TriggeredBy,
		Note:          input.Note,
		AuthorizedAt:  input.AuthorizedAt,
		CapturedAt:    input.CapturedAt,
		ReleasedAt:    input.ReleasedAt,
		RefundedAt:    input.RefundedAt,
		FailedAt:      input.FailedAt,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) FindStage(ctx context.Context, orderID uuid.UUID, stage enums.MilestoneStage) (*models.Milestone, error) {
	entry, err := s.repo.GetByOrderAndStage(ctx, orderID, stage)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error) {
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) HeldEntries(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error) {
	return s.repo.ListByStatuses(ctx, orderID, holdingStatuses)
}

func (s *service) RefundableEntries(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error) {
	return s.repo.ListByStatuses(ctx, orderID, refundableStatuses)
}

func (s *service) MarkReleased(ctx context.Context, ids []uuid.UUID, transferRef string, at time.Time) error {
	for _, id := range ids {
		err := s.repo.UpdateStatus(ctx, id, enums.MilestonePaymentStatusReleased, map[string]any{
			"transfer_ref": transferRef,
			"released_at":  at,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) MarkRefunded(ctx context.Context, ids []uuid.UUID, refundRef string, at time.Time) error {
	for _, id := range ids {
		err := s.repo.UpdateStatus(ctx, id, enums.MilestonePaymentStatusRefunded, map[string]any{
			"refund_ref":  refundRef,
			"refunded_at": at,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SumAmounts totals the amounts of the given entries.
func SumAmounts(entries []models.Milestone) int64 {
	var sum int64
	for _, entry := range entries {
		sum += entry.AmountCents
	}
	return sum
}
