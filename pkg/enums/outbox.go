package enums

// OutboxEventType enumerates the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventOrderPlaced    OutboxEventType = "settlement.order_placed"
	EventOrderAccepted  OutboxEventType = "settlement.order_accepted"
	EventEscrowFunded   OutboxEventType = "settlement.escrow_funded"
	EventOrderDelivered OutboxEventType = "settlement.order_delivered"
	EventOrderReviewed  OutboxEventType = "settlement.order_reviewed"
	EventFundsReleased  OutboxEventType = "settlement.funds_released"
	EventOrderCancelled OutboxEventType = "settlement.order_cancelled"
	EventOrderDisputed  OutboxEventType = "settlement.order_disputed"
	EventPartialCommit  OutboxEventType = "settlement.partial_commit"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderAccepted,
	EventEscrowFunded,
	EventOrderDelivered,
	EventOrderReviewed,
	EventFundsReleased,
	EventOrderCancelled,
	EventOrderDisputed,
	EventPartialCommit,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateMilestone OutboxAggregateType = "milestone"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	switch t {
	case AggregateOrder, AggregateMilestone:
		return true
	default:
		return false
	}
}
