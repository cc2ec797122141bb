package models_test

import (
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"github.com/shopspring/decimal"
)

func TestHandoverCannotExceedAvailableAmount(t *testing.T) {
	ctx := startIntegrationEnv(t)
	ctx, school := createTestSchool(t, ctx, "Handover School")
	schoolId := school.ID.String()

	var owner models.User
	if err := config.GetDB().WithContext(ctx).Where("school_id = ?", schoolId).First(&owner).Error; err != nil {
		t.Fatalf("fetch owner user: %v", err)
	}

	student := createTestStudent(t, ctx, schoolId, "ADM-4001")

	// Collect 50,000 across two payments.
	for _, amount := range []int64{20000, 30000} {
		if _, err := models.RecordFeePayment(ctx, schoolId, &models.NewFeePayment{
			StudentId:  student.ID,
			AmountPaid: decimal.NewFromInt(amount),
			Method:     models.PaymentMethodCash,
		}); err != nil {
			t.Fatalf("RecordFeePayment(%d): %v", amount, err)
		}
	}

	// Prior handover of 20,000 leaves 30,000 available.
	first, err := models.SubmitFeeHandover(ctx, schoolId, owner.ID, &models.NewFeeHandover{
		AmountSubmitted: decimal.NewFromInt(20000),
	})
	if err != nil {
		t.Fatalf("SubmitFeeHandover(20000): %v", err)
	}
	if first.TotalCollectedAtTime.Cmp(decimal.NewFromInt(50000)) != 0 {
		t.Fatalf("first handover snapshot total collected = %s; want 50000", first.TotalCollectedAtTime)
	}
	if first.BackupAmount.Cmp(decimal.NewFromInt(30000)) != 0 {
		t.Fatalf("first handover backup = %s; want 30000", first.BackupAmount)
	}

	// 35,000 exceeds the 30,000 still in hand.
	_, err = models.SubmitFeeHandover(ctx, schoolId, owner.ID, &models.NewFeeHandover{
		AmountSubmitted: decimal.NewFromInt(35000),
	})
	if err == nil {
		t.Fatalf("over-handover accepted; want rejection")
	}
	if !strings.Contains(err.Error(), "exceeds available amount") {
		t.Fatalf("over-handover error = %q; want 'exceeds available amount'", err)
	}

	// Exactly the available 30,000 drains the drawer.
	second, err := models.SubmitFeeHandover(ctx, schoolId, owner.ID, &models.NewFeeHandover{
		AmountSubmitted: decimal.NewFromInt(30000),
	})
	if err != nil {
		t.Fatalf("SubmitFeeHandover(30000): %v", err)
	}
	if second.BackupAmount.Cmp(decimal.Zero) != 0 {
		t.Fatalf("second handover backup = %s; want 0", second.BackupAmount)
	}

	// The summary is tenant-wide regardless of pagination.
	_, _, summary, err := models.PaginateFeeHandovers(ctx, schoolId, 1, 1)
	if err != nil {
		t.Fatalf("PaginateFeeHandovers: %v", err)
	}
	if summary.TotalCollected.Cmp(decimal.NewFromInt(50000)) != 0 {
		t.Fatalf("summary total collected = %s; want 50000", summary.TotalCollected)
	}
	if summary.TotalHandedOver.Cmp(decimal.NewFromInt(50000)) != 0 {
		t.Fatalf("summary total handed over = %s; want 50000", summary.TotalHandedOver)
	}
	if summary.AvailableAmount.Cmp(decimal.Zero) != 0 {
		t.Fatalf("summary available = %s; want 0", summary.AvailableAmount)
	}
}
