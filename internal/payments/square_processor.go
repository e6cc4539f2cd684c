package payments

import (
	"context"
	"fmt"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
	"github.com/craftworkhq/settlement-backend/pkg/square"
)

// SquareProcessor adapts the Square client to the Processor interface.
type SquareProcessor struct {
	client *square.Client
}

func NewSquareProcessor(client *square.Client) *SquareProcessor {
	return &SquareProcessor{client: client}
}

var _ Processor = (*SquareProcessor)(nil)

func (p *SquareProcessor) Authorize(ctx context.Context, params AuthorizeParams) (*ProcessorResult, error) {
	payment, err := p.client.AuthorizePayment(ctx, square.PaymentAuthorizeParams{
		AmountCents:    params.AmountCents,
		Currency:       params.Currency,
		LocationID:     p.client.LocationID(),
		CustomerID:     params.CustomerID,
		SourceID:       params.SourceID,
		IdempotencyKey: params.IdempotencyKey,
		Note:           params.Note,
		ReferenceID:    params.OrderID.String(),
	})
	if err != nil {
		return nil, err
	}
	return paymentResult(payment), nil
}

func (p *SquareProcessor) Capture(ctx context.Context, params CaptureParams) (*ProcessorResult, error) {
	payment, err := p.client.ChargePayment(ctx, square.PaymentChargeParams{
		AmountCents:    params.AmountCents,
		Currency:       params.Currency,
		LocationID:     p.client.LocationID(),
		CustomerID:     params.CustomerID,
		SourceID:       params.SourceID,
		IdempotencyKey: params.IdempotencyKey,
		Note:           params.Note,
		ReferenceID:    params.OrderID.String(),
	})
	if err != nil {
		return nil, err
	}
	result := paymentResult(payment)
	if err := verifyCapturedAmount(result, params.AmountCents); err != nil {
		return nil, err
	}
	return result, nil
}

// verifyCapturedAmount rejects a capture whose processor-side amount differs
// from the requested one, so the ledger never records a hold the processor
// did not take.
func verifyCapturedAmount(result *ProcessorResult, requested int64) error {
	if result == nil || result.AmountCents != requested {
		var got int64
		if result != nil {
			got = result.AmountCents
		}
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("captured amount %d does not match requested %d", got, requested))
	}
	return nil
}

func (p *SquareProcessor) Transfer(ctx context.Context, params TransferParams) (*ProcessorResult, error) {
	payment, err := p.client.CreatePayout(ctx, square.PayoutParams{
		AmountCents:    params.AmountCents,
		Currency:       params.Currency,
		LocationID:     p.client.LocationID(),
		Destination:    params.Destination,
		IdempotencyKey: params.IdempotencyKey,
		Note:           params.Note,
		ReferenceID:    params.OrderID.String(),
	})
	if err != nil {
		return nil, err
	}
	return paymentResult(payment), nil
}

func (p *SquareProcessor) Refund(ctx context.Context, params RefundParams) (*ProcessorResult, error) {
	refund, err := p.client.RefundPayment(ctx, square.RefundParams{
		PaymentID:      params.PaymentRef,
		AmountCents:    params.AmountCents,
		Currency:       params.Currency,
		IdempotencyKey: params.IdempotencyKey,
		Reason:         params.Reason,
	})
	if err != nil {
		return nil, err
	}
	result := &ProcessorResult{
		Reference: refund.GetID(),
		Status:    derefString(refund.GetStatus()),
	}
	if money := refund.GetAmountMoney(); money != nil {
		if amount := money.GetAmount(); amount != nil {
			result.AmountCents = *amount
		}
		if currency := money.GetCurrency(); currency != nil {
			result.Currency = string(*currency)
		}
	}
	return result, nil
}

func (p *SquareProcessor) Lookup(ctx context.Context, reference string) (*ProcessorResult, error) {
	payment, err := p.client.GetPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	return paymentResult(payment), nil
}

func paymentResult(payment *sq.Payment) *ProcessorResult {
	if payment == nil {
		return &ProcessorResult{}
	}
	result := &ProcessorResult{
		Reference: derefString(payment.GetID()),
		Status:    derefString(payment.GetStatus()),
	}
	if money := payment.GetAmountMoney(); money != nil {
		if amount := money.GetAmount(); amount != nil {
			result.AmountCents = *amount
		}
		if currency := money.GetCurrency(); currency != nil {
			result.Currency = string(*currency)
		}
	}
	return result
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
