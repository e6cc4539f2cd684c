package ledger

import (
	"testing"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

func TestAmountForStage(t *testing.T) {
	cases := []struct {
		stage  enums.MilestoneStage
		total  int64
		amount int64
	}{
		{enums.MilestoneStageOrderPlaced, 20000, 0},
		{enums.MilestoneStageAccepted, 20000, 2000},
		{enums.MilestoneStageInEscrow, 20000, 10000},
		{enums.MilestoneStageDelivered, 20000, 4000},
		{enums.MilestoneStageReviewed, 20000, 4000},
		{enums.MilestoneStageCompleted, 20000, 0},
		// 10% of 33.33 is 3.333, rounded half-up to 3.33
		{enums.MilestoneStageAccepted, 3333, 333},
		// 50% of 33.35 is 16.675, rounded half-up to 16.68
		{enums.MilestoneStageInEscrow, 3335, 1668},
	}

	for _, tc := range cases {
		if got := AmountForStage(tc.total, tc.stage); got != tc.amount {
			t.Fatalf("stage %s of total %d: expected %d, got %d", tc.stage, tc.total, tc.amount, got)
		}
	}
}

func TestCumulativePercentBps(t *testing.T) {
	cases := []struct {
		stage enums.MilestoneStage
		bps   int
	}{
		{enums.MilestoneStageOrderPlaced, 0},
		{enums.MilestoneStageAccepted, 1000},
		{enums.MilestoneStageInEscrow, 6000},
		{enums.MilestoneStageDelivered, 8000},
		{enums.MilestoneStageReviewed, 10000},
		{enums.MilestoneStageCompleted, 10000},
	}

	for _, tc := range cases {
		if got := CumulativePercentBps(tc.stage); got != tc.bps {
			t.Fatalf("stage %s: expected cumulative %d, got %d", tc.stage, tc.bps, got)
		}
	}
}

func TestStageBefore(t *testing.T) {
	if !StageBefore(enums.MilestoneStageAccepted, enums.MilestoneStageInEscrow) {
		t.Fatal("accepted should precede in_escrow")
	}
	if StageBefore(enums.MilestoneStageDelivered, enums.MilestoneStageInEscrow) {
		t.Fatal("delivered should not precede in_escrow")
	}
	if StageBefore(enums.MilestoneStageCancelled, enums.MilestoneStageAccepted) {
		t.Fatal("terminal stages have no table ordering")
	}
}
