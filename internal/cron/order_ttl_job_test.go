package cron

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/internal/settlement"
	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
)

type fakeStalledReader struct {
	cutoff time.Time
	orders []models.Order
}

func (r *fakeStalledReader) FindStalledPending(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	r.cutoff = cutoff
	return r.orders, nil
}

type fakeCanceller struct {
	cancelled []uuid.UUID
	errs      map[uuid.UUID]error
}

func (c *fakeCanceller) Cancel(_ context.Context, orderID uuid.UUID, reason enums.CancelReason, actor settlement.Actor) (*settlement.Result, error) {
	if err, ok := c.errs[orderID]; ok {
		return nil, err
	}
	if reason != enums.CancelReasonTimeout {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unexpected reason")
	}
	if actor.Type != enums.ActorTypeSystem {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unexpected actor")
	}
	c.cancelled = append(c.cancelled, orderID)
	return &settlement.Result{}, nil
}

type fakeNotifier struct {
	notified []uuid.UUID
	events   []enums.OutboxEventType
}

func (n *fakeNotifier) Notify(_ context.Context, userID, _ uuid.UUID, event enums.OutboxEventType, _ any) {
	n.notified = append(n.notified, userID)
	n.events = append(n.events, event)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestOrderTTLJobCancelsStalledOrders(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	buyerA, buyerB := uuid.New(), uuid.New()
	stalled := []models.Order{
		{ID: uuid.New(), BuyerID: buyerA, Status: enums.OrderStatusPending},
		{ID: uuid.New(), BuyerID: buyerB, Status: enums.OrderStatusPending},
	}
	reader := &fakeStalledReader{orders: stalled}
	canceller := &fakeCanceller{}
	notifier := &fakeNotifier{}

	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger:     testLogger(),
		Reader:     reader,
		Settlement: canceller,
		Notifier:   notifier,
		TTL:        72 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	job.(*orderTTLJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := reader.cutoff, now.Add(-72*time.Hour); !got.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", got, want)
	}
	if len(canceller.cancelled) != 2 {
		t.Fatalf("cancelled %d orders, want 2", len(canceller.cancelled))
	}
	if len(notifier.notified) != 2 {
		t.Fatalf("notified %d buyers, want 2", len(notifier.notified))
	}
	if notifier.notified[0] != buyerA || notifier.notified[1] != buyerB {
		t.Fatalf("notified wrong buyers: %v", notifier.notified)
	}
	for _, event := range notifier.events {
		if event != enums.EventOrderCancelled {
			t.Fatalf("unexpected notification event %s", event)
		}
	}
}

func TestOrderTTLJobToleratesRacedOrders(t *testing.T) {
	racedID := uuid.New()
	failedID := uuid.New()
	reader := &fakeStalledReader{orders: []models.Order{
		{ID: racedID},
		{ID: failedID},
	}}
	canceller := &fakeCanceller{errs: map[uuid.UUID]error{
		racedID:  pkgerrors.New(pkgerrors.CodeAlreadyDone, "cancelled elsewhere"),
		failedID: pkgerrors.New(pkgerrors.CodeInternal, "boom"),
	}}

	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger:     testLogger(),
		Reader:     reader,
		Settlement: canceller,
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected aggregated error for the hard failure")
	}
}
