package enums

import "fmt"

// MilestonePaymentStatus mirrors the processor-side state of a ledger entry.
type MilestonePaymentStatus string

const (
	MilestonePaymentStatusPending        MilestonePaymentStatus = "pending"
	MilestonePaymentStatusAuthorized     MilestonePaymentStatus = "authorized"
	MilestonePaymentStatusCaptured       MilestonePaymentStatus = "captured"
	MilestonePaymentStatusHeldInEscrow   MilestonePaymentStatus = "held_in_escrow"
	MilestonePaymentStatusPendingRelease MilestonePaymentStatus = "pending_release"
	MilestonePaymentStatusReleased       MilestonePaymentStatus = "released"
	MilestonePaymentStatusRefunded       MilestonePaymentStatus = "refunded"
	MilestonePaymentStatusFailed         MilestonePaymentStatus = "failed"
	MilestonePaymentStatusCancelled      MilestonePaymentStatus = "cancelled"
)

var validMilestonePaymentStatuses = []MilestonePaymentStatus{
	MilestonePaymentStatusPending,
	MilestonePaymentStatusAuthorized,
	MilestonePaymentStatusCaptured,
	MilestonePaymentStatusHeldInEscrow,
	MilestonePaymentStatusPendingRelease,
	MilestonePaymentStatusReleased,
	MilestonePaymentStatusRefunded,
	MilestonePaymentStatusFailed,
	MilestonePaymentStatusCancelled,
}

// String implements fmt.Stringer.
func (s MilestonePaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MilestonePaymentStatus.
func (s MilestonePaymentStatus) IsValid() bool {
	for _, candidate := range validMilestonePaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// HoldsFunds reports whether money recorded under this status is still
// captured by the platform and eligible for release or refund.
func (s MilestonePaymentStatus) HoldsFunds() bool {
	switch s {
	case MilestonePaymentStatusCaptured, MilestonePaymentStatusHeldInEscrow, MilestonePaymentStatusPendingRelease:
		return true
	default:
		return false
	}
}

// ParseMilestonePaymentStatus converts raw input into a MilestonePaymentStatus.
func ParseMilestonePaymentStatus(value string) (MilestonePaymentStatus, error) {
	for _, candidate := range validMilestonePaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid milestone payment status %q", value)
}
