package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// Milestone records one immutable payment event tied to an order stage.
// Rows are only updated to move into a terminal payment status; amounts and
// stage are never edited after insert. Stage uniqueness per order is enforced
// by ux_milestones_order_stage.
type Milestone struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_milestones_order_stage,priority:1"`

	Stage         enums.MilestoneStage         `gorm:"column:stage;type:milestone_stage;not null;uniqueIndex:ux_milestones_order_stage,priority:2"`
	PercentBps    int                          `gorm:"column:percent_bps;not null"`
	AmountCents   int64                        `gorm:"column:amount_cents;not null"`
	Currency      enums.Currency               `gorm:"column:currency;type:text;not null"`
	PaymentStatus enums.MilestonePaymentStatus `gorm:"column:payment_status;type:milestone_payment_status;not null;default:'pending'"`

	PaymentRef  *string `gorm:"column:payment_ref"`
	ChargeRef   *string `gorm:"column:charge_ref"`
	TransferRef *string `gorm:"column:transfer_ref"`
	RefundRef   *string `gorm:"column:refund_ref"`

	TriggeredBy enums.ActorType `gorm:"column:triggered_by;type:actor_type;not null"`
	Note        *string         `gorm:"column:note"`

	AuthorizedAt *time.Time `gorm:"column:authorized_at"`
	CapturedAt   *time.Time `gorm:"column:captured_at"`
	ReleasedAt   *time.Time `gorm:"column:released_at"`
	RefundedAt   *time.Time `gorm:"column:refunded_at"`
	FailedAt     *time.Time `gorm:"column:failed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
