package orders

import (
	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// CreateOrderInput captures everything needed to open an order with a draft
// pricing snapshot.
type CreateOrderInput struct {
	BuyerID      uuid.UUID
	SellerID     uuid.UUID
	GigID        uuid.UUID
	Type         enums.OrderType
	BaseCents    int64
	BuyerCountry string
	BuyerVATID   string
	IsBusiness   bool
	PaymentRef   string
}

// TransitionInput carries a non-financial status change request.
type TransitionInput struct {
	OrderID uuid.UUID
	To      enums.OrderStatus
	Actor   enums.ActorType
	ActorID *uuid.UUID
	Reason  *string
}
