package orders

import (
	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// transitions is the closed set of legal forward edges in the order
// lifecycle. Cancellation and dispute are handled separately because they are
// reachable from every non-terminal state.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusAccepted,
	},
	enums.OrderStatusAccepted: {
		enums.OrderStatusRequirementsSubmitted,
		enums.OrderStatusStarted,
	},
	enums.OrderStatusRequirementsSubmitted: {
		enums.OrderStatusStarted,
	},
	enums.OrderStatusStarted: {
		enums.OrderStatusHalfwayDone,
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusHalfwayDone: {
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusRequestedRevision,
		enums.OrderStatusWaitingReview,
	},
	// The only cycle in the machine: a revision sends the order back to
	// delivered once the seller re-submits.
	enums.OrderStatusRequestedRevision: {
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusWaitingReview: {
		enums.OrderStatusReadyForPayment,
		enums.OrderStatusCompleted,
	},
	enums.OrderStatusReadyForPayment: {
		enums.OrderStatusCompleted,
	},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to enums.OrderStatus) bool {
	if from == to {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == enums.OrderStatusCancelled || to == enums.OrderStatusDisputed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given one.
func NextStatuses(from enums.OrderStatus) []enums.OrderStatus {
	if from.IsTerminal() {
		return nil
	}
	out := append([]enums.OrderStatus{}, transitions[from]...)
	out = append(out, enums.OrderStatusCancelled, enums.OrderStatusDisputed)
	return out
}
