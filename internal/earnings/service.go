package earnings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
)

// Service maintains seller earning balances. Accruals land in pending on
// escrow capture; release moves pending into available; reverse unwinds an
// accrual on refund, clamped at zero so a partial refund can never drive the
// balance negative.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Accrue(ctx context.Context, sellerID uuid.UUID, amountCents int64) error
	Release(ctx context.Context, sellerID uuid.UUID, amountCents int64) error
	Reverse(ctx context.Context, sellerID uuid.UUID, amountCents int64) error
	Balance(ctx context.Context, sellerID uuid.UUID) (*models.SellerEarning, error)
}

type service struct {
	repo Repository
}

// NewService wires an earnings service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("earnings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Accrue(ctx context.Context, sellerID uuid.UUID, amountCents int64) error {
	return s.adjust(ctx, sellerID, amountCents, func(earning *models.SellerEarning, amount int64) {
		earning.PendingCents += amount
	})
}

func (s *service) Release(ctx context.Context, sellerID uuid.UUID, amountCents int64) error {
	return s.adjust(ctx, sellerID, amountCents, func(earning *models.SellerEarning, amount int64) {
		moved := amount
		if moved > earning.PendingCents {
			moved = earning.PendingCents
		}
		earning.PendingCents -= moved
		earning.AvailableCents += amount
	})
}

func (s *service) Reverse(ctx context.Context, sellerID uuid.UUID, amountCents int64) error {
	return s.adjust(ctx, sellerID, amountCents, func(earning *models.SellerEarning, amount int64) {
		earning.PendingCents -= amount
		if earning.PendingCents < 0 {
			earning.PendingCents = 0
		}
	})
}

func (s *service) Balance(ctx context.Context, sellerID uuid.UUID) (*models.SellerEarning, error) {
	earning, err := s.repo.Get(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.SellerEarning{SellerID: sellerID}, nil
		}
		return nil, err
	}
	return earning, nil
}

func (s *service) adjust(ctx context.Context, sellerID uuid.UUID, amountCents int64, apply func(*models.SellerEarning, int64)) error {
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if amountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if amountCents == 0 {
		return nil
	}
	earning, err := s.repo.GetForUpdate(ctx, sellerID)
	if err != nil {
		return err
	}
	apply(earning, amountCents)
	return s.repo.Upsert(ctx, earning)
}
