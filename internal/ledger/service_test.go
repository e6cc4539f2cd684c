package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
)

type stubLedgerRepo struct {
	entries []models.Milestone
	updated map[uuid.UUID]enums.MilestonePaymentStatus
}

func (r *stubLedgerRepo) WithTx(_ *gorm.DB) Repository { return r }

func (r *stubLedgerRepo) Create(_ context.Context, entry *models.Milestone) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubLedgerRepo) GetByOrderAndStage(_ context.Context, orderID uuid.UUID, stage enums.MilestoneStage) (*models.Milestone, error) {
	for i := range r.entries {
		if r.entries[i].OrderID == orderID && r.entries[i].Stage == stage {
			return &r.entries[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubLedgerRepo) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]models.Milestone, error) {
	var out []models.Milestone
	for _, entry := range r.entries {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *stubLedgerRepo) ListByStatuses(_ context.Context, orderID uuid.UUID, statuses []enums.MilestonePaymentStatus) ([]models.Milestone, error) {
	var out []models.Milestone
	for _, entry := range r.entries {
		if entry.OrderID != orderID {
			continue
		}
		for _, status := range statuses {
			if entry.PaymentStatus == status {
				out = append(out, entry)
				break
			}
		}
	}
	return out, nil
}

func (r *stubLedgerRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.MilestonePaymentStatus, _ map[string]any) error {
	if r.updated == nil {
		r.updated = map[uuid.UUID]enums.MilestonePaymentStatus{}
	}
	r.updated[id] = status
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries[i].PaymentStatus = status
		}
	}
	return nil
}

func TestRecordStageDerivesAmountFromTable(t *testing.T) {
	repo := &stubLedgerRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("setup error: %v", err)
	}

	entry, err := svc.RecordStage(context.Background(), RecordStageInput{
		OrderID:       uuid.New(),
		Stage:         enums.MilestoneStageInEscrow,
		TotalCents:    20000,
		Currency:      enums.CurrencyEUR,
		PaymentStatus: enums.MilestonePaymentStatusHeldInEscrow,
		TriggeredBy:   enums.ActorTypeSeller,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.AmountCents != 10000 {
		t.Fatalf("expected escrow amount 10000, got %d", entry.AmountCents)
	}
	if entry.PercentBps != 5000 {
		t.Fatalf("expected 5000 bps, got %d", entry.PercentBps)
	}
}

func TestRecordStageHonorsExplicitAmount(t *testing.T) {
	repo := &stubLedgerRepo{}
	svc, _ := NewService(repo)

	amount := int64(18000)
	entry, err := svc.RecordStage(context.Background(), RecordStageInput{
		OrderID:       uuid.New(),
		Stage:         enums.MilestoneStageCompleted,
		TotalCents:    20000,
		AmountCents:   &amount,
		Currency:      enums.CurrencyEUR,
		PaymentStatus: enums.MilestonePaymentStatusReleased,
		TriggeredBy:   enums.ActorTypeBuyer,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.AmountCents != 18000 {
		t.Fatalf("expected literal amount 18000, got %d", entry.AmountCents)
	}
}

func TestRecordStageValidation(t *testing.T) {
	repo := &stubLedgerRepo{}
	svc, _ := NewService(repo)

	_, err := svc.RecordStage(context.Background(), RecordStageInput{
		Stage:         enums.MilestoneStageAccepted,
		PaymentStatus: enums.MilestonePaymentStatusAuthorized,
		TriggeredBy:   enums.ActorTypeSeller,
	})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing order id, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatal("expected no entry persisted on validation failure")
	}
}

func TestFindStageReturnsNilWhenAbsent(t *testing.T) {
	repo := &stubLedgerRepo{}
	svc, _ := NewService(repo)

	entry, err := svc.FindStage(context.Background(), uuid.New(), enums.MilestoneStageAccepted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Fatal("expected nil entry for unseen stage")
	}
}

func TestHeldEntriesAndMarkReleased(t *testing.T) {
	orderID := uuid.New()
	repo := &stubLedgerRepo{
		entries: []models.Milestone{
			{ID: uuid.New(), OrderID: orderID, Stage: enums.MilestoneStageInEscrow, AmountCents: 10000, PaymentStatus: enums.MilestonePaymentStatusHeldInEscrow},
			{ID: uuid.New(), OrderID: orderID, Stage: enums.MilestoneStageDelivered, AmountCents: 4000, PaymentStatus: enums.MilestonePaymentStatusPendingRelease},
			{ID: uuid.New(), OrderID: orderID, Stage: enums.MilestoneStageAccepted, AmountCents: 2000, PaymentStatus: enums.MilestonePaymentStatusAuthorized},
		},
	}
	svc, _ := NewService(repo)

	held, err := svc.HeldEntries(context.Background(), orderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(held) != 2 {
		t.Fatalf("expected 2 holding entries, got %d", len(held))
	}
	if SumAmounts(held) != 14000 {
		t.Fatalf("expected held sum 14000, got %d", SumAmounts(held))
	}

	ids := []uuid.UUID{held[0].ID, held[1].ID}
	if err := svc.MarkReleased(context.Background(), ids, "tr-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range ids {
		if repo.updated[id] != enums.MilestonePaymentStatusReleased {
			t.Fatalf("expected entry %s marked released", id)
		}
	}
}
