package enums

import "fmt"

// CancelReason records why an order ended before completion.
type CancelReason string

const (
	CancelReasonBuyerRequest  CancelReason = "buyer_request"
	CancelReasonSellerRequest CancelReason = "seller_request"
	CancelReasonTimeout       CancelReason = "timeout"
	CancelReasonDispute       CancelReason = "dispute"
	// CancelReasonSystem marks platform-initiated cancellations, such as a
	// reconciliation replay where the original reason was never persisted.
	CancelReasonSystem CancelReason = "system"
)

var validCancelReasons = []CancelReason{
	CancelReasonBuyerRequest,
	CancelReasonSellerRequest,
	CancelReasonTimeout,
	CancelReasonDispute,
	CancelReasonSystem,
}

// String implements fmt.Stringer.
func (r CancelReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known CancelReason.
func (r CancelReason) IsValid() bool {
	for _, candidate := range validCancelReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseCancelReason converts raw input into a CancelReason.
func ParseCancelReason(value string) (CancelReason, error) {
	for _, candidate := range validCancelReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancel reason %q", value)
}
