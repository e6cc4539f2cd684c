package enums

import "fmt"

// MilestoneStage identifies which payment phase a ledger entry belongs to.
type MilestoneStage string

const (
	MilestoneStageOrderPlaced MilestoneStage = "order_placed"
	MilestoneStageAccepted    MilestoneStage = "accepted"
	MilestoneStageInEscrow    MilestoneStage = "in_escrow"
	MilestoneStageDelivered   MilestoneStage = "delivered"
	MilestoneStageReviewed    MilestoneStage = "reviewed"
	MilestoneStageCompleted   MilestoneStage = "completed"
	MilestoneStageCancelled   MilestoneStage = "cancelled"
	MilestoneStageRefunded    MilestoneStage = "refunded"
	MilestoneStageDisputed    MilestoneStage = "disputed"
)

var validMilestoneStages = []MilestoneStage{
	MilestoneStageOrderPlaced,
	MilestoneStageAccepted,
	MilestoneStageInEscrow,
	MilestoneStageDelivered,
	MilestoneStageReviewed,
	MilestoneStageCompleted,
	MilestoneStageCancelled,
	MilestoneStageRefunded,
	MilestoneStageDisputed,
}

// String implements fmt.Stringer.
func (s MilestoneStage) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MilestoneStage.
func (s MilestoneStage) IsValid() bool {
	for _, candidate := range validMilestoneStages {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the stage closes the order's payment lifecycle.
func (s MilestoneStage) IsTerminal() bool {
	switch s {
	case MilestoneStageCompleted, MilestoneStageCancelled, MilestoneStageRefunded:
		return true
	default:
		return false
	}
}

// ParseMilestoneStage converts raw input into a MilestoneStage.
func ParseMilestoneStage(value string) (MilestoneStage, error) {
	for _, candidate := range validMilestoneStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid milestone stage %q", value)
}
