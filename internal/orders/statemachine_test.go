package orders

import (
	"testing"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

func TestCanTransitionForwardEdges(t *testing.T) {
	legal := []struct {
		from, to enums.OrderStatus
	}{
		{enums.OrderStatusPending, enums.OrderStatusAccepted},
		{enums.OrderStatusAccepted, enums.OrderStatusRequirementsSubmitted},
		{enums.OrderStatusAccepted, enums.OrderStatusStarted},
		{enums.OrderStatusRequirementsSubmitted, enums.OrderStatusStarted},
		{enums.OrderStatusStarted, enums.OrderStatusHalfwayDone},
		{enums.OrderStatusStarted, enums.OrderStatusDelivered},
		{enums.OrderStatusHalfwayDone, enums.OrderStatusDelivered},
		{enums.OrderStatusDelivered, enums.OrderStatusRequestedRevision},
		{enums.OrderStatusRequestedRevision, enums.OrderStatusDelivered},
		{enums.OrderStatusDelivered, enums.OrderStatusWaitingReview},
		{enums.OrderStatusWaitingReview, enums.OrderStatusReadyForPayment},
		{enums.OrderStatusWaitingReview, enums.OrderStatusCompleted},
		{enums.OrderStatusReadyForPayment, enums.OrderStatusCompleted},
	}
	for _, edge := range legal {
		if !CanTransition(edge.from, edge.to) {
			t.Fatalf("expected %s -> %s to be legal", edge.from, edge.to)
		}
	}

	illegal := []struct {
		from, to enums.OrderStatus
	}{
		{enums.OrderStatusPending, enums.OrderStatusStarted},
		{enums.OrderStatusPending, enums.OrderStatusDelivered},
		{enums.OrderStatusAccepted, enums.OrderStatusPending},
		{enums.OrderStatusDelivered, enums.OrderStatusStarted},
		{enums.OrderStatusWaitingReview, enums.OrderStatusDelivered},
		{enums.OrderStatusCompleted, enums.OrderStatusCancelled},
		{enums.OrderStatusCancelled, enums.OrderStatusAccepted},
		{enums.OrderStatusPending, enums.OrderStatusPending},
	}
	for _, edge := range illegal {
		if CanTransition(edge.from, edge.to) {
			t.Fatalf("expected %s -> %s to be illegal", edge.from, edge.to)
		}
	}
}

func TestCancelAndDisputeReachableFromNonTerminal(t *testing.T) {
	from := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusAccepted,
		enums.OrderStatusStarted,
		enums.OrderStatusDelivered,
		enums.OrderStatusWaitingReview,
		enums.OrderStatusReadyForPayment,
	}
	for _, status := range from {
		if !CanTransition(status, enums.OrderStatusCancelled) {
			t.Fatalf("expected %s -> cancelled to be legal", status)
		}
		if !CanTransition(status, enums.OrderStatusDisputed) {
			t.Fatalf("expected %s -> disputed to be legal", status)
		}
	}
	if CanTransition(enums.OrderStatusCompleted, enums.OrderStatusDisputed) {
		t.Fatal("completed orders cannot move to disputed")
	}
}
