package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// stageTable fixes the share of the order total attached to each financial
// stage, in basis points. The completed stage carries no share of its own;
// its amount is derived from the entries still awaiting release.
var stageTable = []struct {
	stage enums.MilestoneStage
	bps   int
}{
	{enums.MilestoneStageOrderPlaced, 0},
	{enums.MilestoneStageAccepted, 1000},
	{enums.MilestoneStageInEscrow, 5000},
	{enums.MilestoneStageDelivered, 2000},
	{enums.MilestoneStageReviewed, 2000},
	{enums.MilestoneStageCompleted, 0},
}

// StageIndex returns the position of a stage in table order.
func StageIndex(stage enums.MilestoneStage) (int, bool) {
	for i, entry := range stageTable {
		if entry.stage == stage {
			return i, true
		}
	}
	return 0, false
}

// PercentBps returns the stage's share of the order total in basis points.
func PercentBps(stage enums.MilestoneStage) int {
	for _, entry := range stageTable {
		if entry.stage == stage {
			return entry.bps
		}
	}
	return 0
}

// CumulativePercentBps returns the prefix sum of shares up to and including
// the stage, used to report how much of the order has been processed.
func CumulativePercentBps(stage enums.MilestoneStage) int {
	sum := 0
	for _, entry := range stageTable {
		sum += entry.bps
		if entry.stage == stage {
			return sum
		}
	}
	return 0
}

// AmountForStage computes the stage amount in minor units, rounded half-up.
func AmountForStage(totalCents int64, stage enums.MilestoneStage) int64 {
	bps := PercentBps(stage)
	if bps == 0 {
		return 0
	}
	total := decimal.New(totalCents, -2)
	share := decimal.New(int64(bps), -4)
	return total.Mul(share).Round(2).Shift(2).IntPart()
}

// StageBefore reports whether stage a precedes stage b in table order.
// Stages outside the table have no ordering.
func StageBefore(a, b enums.MilestoneStage) bool {
	ai, aok := StageIndex(a)
	bi, bok := StageIndex(b)
	return aok && bok && ai < bi
}
