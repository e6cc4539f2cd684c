package earnings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
)

type stubEarningsRepo struct {
	rows map[uuid.UUID]*models.SellerEarning
}

func newStubEarningsRepo() *stubEarningsRepo {
	return &stubEarningsRepo{rows: map[uuid.UUID]*models.SellerEarning{}}
}

func (r *stubEarningsRepo) WithTx(_ *gorm.DB) Repository { return r }

func (r *stubEarningsRepo) GetForUpdate(_ context.Context, sellerID uuid.UUID) (*models.SellerEarning, error) {
	if row, ok := r.rows[sellerID]; ok {
		return row, nil
	}
	row := &models.SellerEarning{ID: uuid.New(), SellerID: sellerID}
	r.rows[sellerID] = row
	return row, nil
}

func (r *stubEarningsRepo) Upsert(_ context.Context, earning *models.SellerEarning) error {
	r.rows[earning.SellerID] = earning
	return nil
}

func (r *stubEarningsRepo) Get(_ context.Context, sellerID uuid.UUID) (*models.SellerEarning, error) {
	if row, ok := r.rows[sellerID]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestAccrueReleaseLifecycle(t *testing.T) {
	repo := newStubEarningsRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("setup error: %v", err)
	}
	sellerID := uuid.New()
	ctx := context.Background()

	if err := svc.Accrue(ctx, sellerID, 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, _ := svc.Balance(ctx, sellerID)
	if balance.PendingCents != 10000 || balance.AvailableCents != 0 {
		t.Fatalf("expected pending 10000, got %+v", balance)
	}

	if err := svc.Release(ctx, sellerID, 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, _ = svc.Balance(ctx, sellerID)
	if balance.PendingCents != 0 || balance.AvailableCents != 10000 {
		t.Fatalf("expected available 10000, got %+v", balance)
	}
}

func TestReverseClampsAtZero(t *testing.T) {
	repo := newStubEarningsRepo()
	svc, _ := NewService(repo)
	sellerID := uuid.New()
	ctx := context.Background()

	if err := svc.Accrue(ctx, sellerID, 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Reverse(ctx, sellerID, 8000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, _ := svc.Balance(ctx, sellerID)
	if balance.PendingCents != 0 {
		t.Fatalf("expected pending clamped at 0, got %d", balance.PendingCents)
	}
}

func TestAdjustValidation(t *testing.T) {
	svc, _ := NewService(newStubEarningsRepo())
	ctx := context.Background()

	if err := svc.Accrue(ctx, uuid.Nil, 100); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil seller, got %v", err)
	}
	if err := svc.Accrue(ctx, uuid.New(), -1); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
	if err := svc.Accrue(ctx, uuid.New(), 0); err != nil {
		t.Fatalf("zero amount should be a no-op, got %v", err)
	}
}

func TestBalanceForUnknownSellerIsZero(t *testing.T) {
	svc, _ := NewService(newStubEarningsRepo())

	balance, err := svc.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.PendingCents != 0 || balance.AvailableCents != 0 {
		t.Fatalf("expected zero balances, got %+v", balance)
	}
}
