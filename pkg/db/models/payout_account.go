package models

import (
	"time"

	"github.com/google/uuid"
)

// PayoutAccount stores a seller's payout destination at the processor.
type PayoutAccount struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;unique"`
	Destination string     `gorm:"column:destination;not null"`
	Verified    bool       `gorm:"column:verified;not null;default:false"`
	VerifiedAt  *time.Time `gorm:"column:verified_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
