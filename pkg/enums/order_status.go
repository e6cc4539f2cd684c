package enums

import "fmt"

// OrderStatus tracks the lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusPending               OrderStatus = "pending"
	OrderStatusAccepted              OrderStatus = "accepted"
	OrderStatusRequirementsSubmitted OrderStatus = "requirements_submitted"
	OrderStatusStarted               OrderStatus = "started"
	OrderStatusHalfwayDone           OrderStatus = "halfway_done"
	OrderStatusDelivered             OrderStatus = "delivered"
	OrderStatusRequestedRevision     OrderStatus = "requested_revision"
	OrderStatusWaitingReview         OrderStatus = "waiting_review"
	OrderStatusReadyForPayment       OrderStatus = "ready_for_payment"
	OrderStatusCompleted             OrderStatus = "completed"
	OrderStatusCancelled             OrderStatus = "cancelled"
	OrderStatusDisputed              OrderStatus = "disputed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusRequirementsSubmitted,
	OrderStatusStarted,
	OrderStatusHalfwayDone,
	OrderStatusDelivered,
	OrderStatusRequestedRevision,
	OrderStatusWaitingReview,
	OrderStatusReadyForPayment,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusDisputed,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order can no longer change state.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
