package payments

import (
	"context"

	"github.com/google/uuid"
)

// ProcessorResult is the normalized outcome of a payment processor call.
type ProcessorResult struct {
	Reference   string
	Status      string
	AmountCents int64
	Currency    string
}

// AuthorizeParams places a hold on the buyer's payment method without
// capturing funds.
type AuthorizeParams struct {
	OrderID        uuid.UUID
	SourceID       string
	CustomerID     string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
	Note           string
}

// CaptureParams charges the escrow share against the buyer's stored payment
// source. The accept hold stays an authorization; Square completes a
// delayed-capture payment only at its full authorized amount, so the escrow
// capture is an immediately captured payment of its own rather than a
// completion of the hold.
type CaptureParams struct {
	OrderID        uuid.UUID
	SourceID       string
	CustomerID     string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
	Note           string
}

// TransferParams pays a seller out of the platform account.
type TransferParams struct {
	OrderID        uuid.UUID
	Destination    string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
	Note           string
}

// RefundParams returns captured funds to the buyer.
type RefundParams struct {
	PaymentRef     string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
	Reason         string
}

// Processor abstracts the external payment provider. Operations that create
// money movement take a caller-supplied idempotency key; replaying a call
// with the same key returns the original result instead of moving funds
// twice, which is what reconciliation relies on.
type Processor interface {
	Authorize(ctx context.Context, params AuthorizeParams) (*ProcessorResult, error)
	Capture(ctx context.Context, params CaptureParams) (*ProcessorResult, error)
	Transfer(ctx context.Context, params TransferParams) (*ProcessorResult, error)
	Refund(ctx context.Context, params RefundParams) (*ProcessorResult, error)
	Lookup(ctx context.Context, reference string) (*ProcessorResult, error)
}
