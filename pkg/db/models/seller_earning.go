package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerEarning tracks a seller's accrued balances. Pending cents accumulate
// on escrow capture, move to available on release, and reverse on refund.
type SellerEarning struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null;unique"`
	PendingCents   int64     `gorm:"column:pending_cents;not null;default:0"`
	AvailableCents int64     `gorm:"column:available_cents;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
