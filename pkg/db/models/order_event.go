package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// OrderEvent is one append-only entry in an order's status timeline.
type OrderEvent struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:order_status;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:order_status;not null"`
	Actor      enums.ActorType   `gorm:"column:actor;type:actor_type;not null"`
	ActorID    *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	Reason     *string           `gorm:"column:reason"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
