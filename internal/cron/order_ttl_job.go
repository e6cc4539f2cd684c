package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/craftworkhq/settlement-backend/internal/notifications"
	"github.com/craftworkhq/settlement-backend/internal/settlement"
	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
	"github.com/craftworkhq/settlement-backend/pkg/outbox/payloads"
)

const defaultPendingOrderTTL = 72 * time.Hour

type stalledOrderReader interface {
	FindStalledPending(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, orderID uuid.UUID, reason enums.CancelReason, actor settlement.Actor) (*settlement.Result, error)
}

// OrderTTLJobParams configure the stale pending order sweeper. Notifier is
// optional; when set, the buyer is told their order timed out.
type OrderTTLJobParams struct {
	Logger     *logger.Logger
	Reader     stalledOrderReader
	Settlement orderCanceller
	Notifier   notifications.Dispatcher
	TTL        time.Duration
}

// NewOrderTTLJob builds the cron job that cancels orders the seller never
// accepted. Cancellation goes through the settlement service so the ledger
// and timeline stay consistent.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stalled order reader required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderTTLJob{
		logg:       params.Logger,
		reader:     params.Reader,
		settlement: params.Settlement,
		notifier:   params.Notifier,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

type orderTTLJob struct {
	logg       *logger.Logger
	reader     stalledOrderReader
	settlement orderCanceller
	notifier   notifications.Dispatcher
	ttl        time.Duration
	now        func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stalled, err := j.reader.FindStalledPending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stalled pending orders: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, order := range stalled {
		result, err := j.settlement.Cancel(ctx, order.ID, enums.CancelReasonTimeout, settlement.Actor{Type: enums.ActorTypeSystem})
		switch {
		case err == nil:
			cancelled++
			j.notifyCancelled(ctx, order, result)
		case pkgerrors.Is(err, pkgerrors.CodeAlreadyDone), pkgerrors.Is(err, pkgerrors.CodeConflict):
			// Cancelled elsewhere or currently locked; the next cycle picks
			// it up if it is still stalled.
		default:
			errs = append(errs, fmt.Errorf("cancel stalled order %s: %w", order.ID, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"stalled":   len(stalled),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "stalled pending order sweep complete")
	return multierr.Combine(errs...)
}

func (j *orderTTLJob) notifyCancelled(ctx context.Context, order models.Order, result *settlement.Result) {
	if j.notifier == nil {
		return
	}
	cancelledAt := j.now().UTC()
	if result != nil && result.Order != nil {
		cancelledAt = result.Order.UpdatedAt
	}
	j.notifier.Notify(ctx, order.BuyerID, order.ID, enums.EventOrderCancelled, payloads.OrderCancelledEvent{
		OrderID:     order.ID,
		Reason:      enums.CancelReasonTimeout,
		CancelledAt: cancelledAt,
	})
}
