package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
	"github.com/craftworkhq/settlement-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Dispatcher delivers user-facing notifications. Delivery is fire and
// forget: failures are logged and never surface to the caller, so settlement
// is never blocked by a notification problem.
type Dispatcher interface {
	Notify(ctx context.Context, userID, orderID uuid.UUID, event enums.OutboxEventType, payload any)
}

type dispatcher struct {
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewDispatcher wires an outbox-backed notification dispatcher.
func NewDispatcher(tx txRunner, ob outboxPublisher, logg *logger.Logger) (Dispatcher, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if ob == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &dispatcher{tx: tx, outbox: ob, logg: logg}, nil
}

func (d *dispatcher) Notify(ctx context.Context, userID, orderID uuid.UUID, event enums.OutboxEventType, payload any) {
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     event,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{ActorID: userID, Type: enums.ActorTypeSystem},
			Data:          payload,
			Version:       1,
		})
	})
	if err != nil && d.logg != nil {
		fields := map[string]any{
			"user_id":    userID.String(),
			"order_id":   orderID.String(),
			"event_type": event,
		}
		d.logg.Error(d.logg.WithFields(ctx, fields), "notification dispatch failed", err)
	}
}
