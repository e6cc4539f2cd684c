package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// OrderPlacedEvent is emitted when a priced order is created.
type OrderPlacedEvent struct {
	OrderID    uuid.UUID      `json:"order_id"`
	BuyerID    uuid.UUID      `json:"buyer_id"`
	SellerID   uuid.UUID      `json:"seller_id"`
	TotalCents int64          `json:"total_cents"`
	Currency   enums.Currency `json:"currency"`
}

// OrderAcceptedEvent is emitted when the seller accepts and payment is authorized.
type OrderAcceptedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	SellerID        uuid.UUID `json:"seller_id"`
	AuthorizedCents int64     `json:"authorized_cents"`
	PaymentRef      string    `json:"payment_ref"`
}

// EscrowFundedEvent signals that work started and funds were captured into escrow.
type EscrowFundedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	EscrowCents int64     `json:"escrow_cents"`
	ChargeRef   string    `json:"charge_ref"`
}

// OrderDeliveredEvent is emitted when the seller marks the order delivered.
type OrderDeliveredEvent struct {
	OrderID             uuid.UUID `json:"order_id"`
	SellerID            uuid.UUID `json:"seller_id"`
	PendingReleaseCents int64     `json:"pending_release_cents"`
}

// OrderReviewedEvent is emitted when the buyer reviews the delivered work.
type OrderReviewedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
}

// FundsReleasedEvent reports the payout to the seller.
type FundsReleasedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	ReleasedCents int64     `json:"released_cents"`
	TransferRef   string    `json:"transfer_ref"`
	ReleasedAt    time.Time `json:"released_at"`
}

// OrderCancelledEvent is emitted when an order is cancelled and held funds refunded.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID          `json:"order_id"`
	Reason        enums.CancelReason `json:"reason"`
	RefundedCents int64              `json:"refunded_cents"`
	RefundRef     string             `json:"refund_ref,omitempty"`
	CancelledAt   time.Time          `json:"cancelled_at"`
}

// OrderDisputedEvent freezes the ledger until the dispute resolves.
type OrderDisputedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	RaisedBy    uuid.UUID `json:"raised_by"`
	FrozenCents int64     `json:"frozen_cents"`
}

// PartialCommitEvent flags an order whose processor call succeeded but whose
// local commit failed, so operators can watch reconciliation progress.
type PartialCommitEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	Operation    string    `json:"operation"`
	ProcessorRef string    `json:"processor_ref"`
	DetectedAt   time.Time `json:"detected_at"`
}
