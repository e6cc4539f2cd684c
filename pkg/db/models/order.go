package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// Order is the settlement view of a purchase. The pricing snapshot columns are
// written once at checkout and locked at first authorization; after that they
// must never be re-derived.
type Order struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID  uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	GigID    uuid.UUID `gorm:"column:gig_id;type:uuid;not null"`

	Status enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Type   enums.OrderType   `gorm:"column:type;type:order_type;not null;default:'simple'"`

	// Locked pricing snapshot.
	BaseCents            int64          `gorm:"column:base_cents;not null"`
	PlatformFeeCents     int64          `gorm:"column:platform_fee_cents;not null"`
	VATRateBps           int            `gorm:"column:vat_rate_bps;not null;default:0"`
	VATCents             int64          `gorm:"column:vat_cents;not null;default:0"`
	TotalCents           int64          `gorm:"column:total_cents;not null"`
	SellerEarningsCents  int64          `gorm:"column:seller_earnings_cents;not null"`
	Currency             enums.Currency `gorm:"column:currency;type:text;not null;default:'EUR'"`
	ReverseChargeApplied bool           `gorm:"column:reverse_charge_applied;not null;default:false"`
	VATFallbackApplied   bool           `gorm:"column:vat_fallback_applied;not null;default:false"`
	BuyerCountry         string         `gorm:"column:buyer_country;type:text;not null"`
	BuyerVATID           *string        `gorm:"column:buyer_vat_id"`
	PricingLockedAt      *time.Time     `gorm:"column:pricing_locked_at"`

	// Processor references established at checkout and during settlement.
	PaymentRef  string  `gorm:"column:payment_ref;not null"`
	ChargeRef   *string `gorm:"column:charge_ref"`
	TransferRef *string `gorm:"column:transfer_ref"`
	RefundRef   *string `gorm:"column:refund_ref"`

	EscrowStatus enums.EscrowStatus `gorm:"column:escrow_status;type:escrow_status;not null;default:'none'"`

	// Cached projection of the milestone ledger; rewritten inside every
	// settlement transaction, never authoritative.
	AuthorizedCents     int64 `gorm:"column:authorized_cents;not null;default:0"`
	EscrowCents         int64 `gorm:"column:escrow_cents;not null;default:0"`
	PendingReleaseCents int64 `gorm:"column:pending_release_cents;not null;default:0"`
	ReleasedCents       int64 `gorm:"column:released_cents;not null;default:0"`

	// Optimistic concurrency guard for settlement updates.
	Version int64 `gorm:"column:version;not null;default:0"`

	Events     []OrderEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Milestones []Milestone  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
