package enums

import "fmt"

// EscrowStatus summarizes how much of an order's money the platform holds.
type EscrowStatus string

const (
	EscrowStatusNone     EscrowStatus = "none"
	EscrowStatusPartial  EscrowStatus = "partial"
	EscrowStatusFull     EscrowStatus = "full"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

var validEscrowStatuses = []EscrowStatus{
	EscrowStatusNone,
	EscrowStatusPartial,
	EscrowStatusFull,
	EscrowStatusReleased,
	EscrowStatusRefunded,
}

// String implements fmt.Stringer.
func (s EscrowStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EscrowStatus.
func (s EscrowStatus) IsValid() bool {
	for _, candidate := range validEscrowStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEscrowStatus converts raw input into an EscrowStatus.
func ParseEscrowStatus(value string) (EscrowStatus, error) {
	for _, candidate := range validEscrowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow status %q", value)
}
