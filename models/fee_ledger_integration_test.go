package models_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/shopspring/decimal"
)

func TestInvoicePartialThenPaidThenOverpayRejected(t *testing.T) {
	ctx := startIntegrationEnv(t)
	ctx, school := createTestSchool(t, ctx, "Ledger School")
	schoolId := school.ID.String()

	student := createTestStudent(t, ctx, schoolId, "ADM-0001")

	structure, err := models.CreateFeeStructure(ctx, schoolId, &models.NewFeeStructure{
		Name:      "Monthly Tuition",
		Amount:    decimal.NewFromInt(5000),
		Frequency: models.FeeFrequencyMonthly,
	})
	if err != nil {
		t.Fatalf("CreateFeeStructure: %v", err)
	}

	invoice, err := models.CreateFeeInvoice(ctx, schoolId, &models.NewFeeInvoice{
		StudentId:      student.ID,
		FeeStructureId: structure.ID,
		DueDate:        time.Now().AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("CreateFeeInvoice: %v", err)
	}
	if invoice.Status != models.InvoiceStatusPending {
		t.Fatalf("new invoice status = %s; want PENDING", invoice.Status)
	}
	if invoice.Amount.Cmp(decimal.NewFromInt(5000)) != 0 {
		t.Fatalf("invoice amount = %s; want 5000", invoice.Amount)
	}

	// 2000 of 5000 paid: PARTIAL.
	if _, err := models.RecordFeePayment(ctx, schoolId, &models.NewFeePayment{
		StudentId:  student.ID,
		InvoiceId:  &invoice.ID,
		AmountPaid: decimal.NewFromInt(2000),
		Method:     models.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("RecordFeePayment(2000): %v", err)
	}
	invoice, err = models.GetFeeInvoice(ctx, schoolId, invoice.ID)
	if err != nil {
		t.Fatalf("GetFeeInvoice after partial: %v", err)
	}
	if invoice.Status != models.InvoiceStatusPartial {
		t.Fatalf("status after 2000 = %s; want PARTIAL", invoice.Status)
	}
	if invoice.TotalPaid.Cmp(decimal.NewFromInt(2000)) != 0 {
		t.Fatalf("total paid = %s; want 2000", invoice.TotalPaid)
	}
	if invoice.Remaining.Cmp(decimal.NewFromInt(3000)) != 0 {
		t.Fatalf("remaining = %s; want 3000", invoice.Remaining)
	}

	// Remaining 3000 paid: PAID.
	if _, err := models.RecordFeePayment(ctx, schoolId, &models.NewFeePayment{
		StudentId:  student.ID,
		InvoiceId:  &invoice.ID,
		AmountPaid: decimal.NewFromInt(3000),
		Method:     models.PaymentMethodBankTransfer,
	}); err != nil {
		t.Fatalf("RecordFeePayment(3000): %v", err)
	}
	invoice, err = models.GetFeeInvoice(ctx, schoolId, invoice.ID)
	if err != nil {
		t.Fatalf("GetFeeInvoice after full: %v", err)
	}
	if invoice.Status != models.InvoiceStatusPaid {
		t.Fatalf("status after 5000 = %s; want PAID", invoice.Status)
	}

	// Even one more unit over the invoice amount is rejected.
	_, err = models.RecordFeePayment(ctx, schoolId, &models.NewFeePayment{
		StudentId:  student.ID,
		InvoiceId:  &invoice.ID,
		AmountPaid: decimal.NewFromInt(1),
		Method:     models.PaymentMethodCash,
	})
	if err == nil {
		t.Fatalf("overpayment accepted; want rejection")
	}
	if !strings.Contains(err.Error(), "exceeds remaining amount") {
		t.Fatalf("overpayment error = %q; want 'exceeds remaining amount'", err)
	}
}

func TestCrossTenantInvoiceIsolation(t *testing.T) {
	ctx := startIntegrationEnv(t)

	ctxA, schoolA := createTestSchool(t, ctx, "North Campus")
	ctxB, schoolB := createTestSchool(t, ctx, "South Campus")

	student := createTestStudent(t, ctxA, schoolA.ID.String(), "ADM-1001")
	structure, err := models.CreateFeeStructure(ctxA, schoolA.ID.String(), &models.NewFeeStructure{
		Name:      "Annual Fee",
		Amount:    decimal.NewFromInt(12000),
		Frequency: models.FeeFrequencyAnnual,
	})
	if err != nil {
		t.Fatalf("CreateFeeStructure: %v", err)
	}
	invoice, err := models.CreateFeeInvoice(ctxA, schoolA.ID.String(), &models.NewFeeInvoice{
		StudentId:      student.ID,
		FeeStructureId: structure.ID,
		DueDate:        time.Now().AddDate(0, 0, 30),
	})
	if err != nil {
		t.Fatalf("CreateFeeInvoice: %v", err)
	}

	// Same numeric id through tenant B looks like it does not exist.
	_, err = models.GetFeeInvoice(ctxB, schoolB.ID.String(), invoice.ID)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("cross-tenant GetFeeInvoice error = %v; want record not found", err)
	}

	// Paying it through tenant B must fail the same way, not touch the invoice.
	studentB := createTestStudent(t, ctxB, schoolB.ID.String(), "ADM-1001")
	_, err = models.RecordFeePayment(ctxB, schoolB.ID.String(), &models.NewFeePayment{
		StudentId:  studentB.ID,
		InvoiceId:  &invoice.ID,
		AmountPaid: decimal.NewFromInt(100),
		Method:     models.PaymentMethodCash,
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("cross-tenant RecordFeePayment error = %v; want record not found", err)
	}

	got, err := models.GetFeeInvoice(ctxA, schoolA.ID.String(), invoice.ID)
	if err != nil {
		t.Fatalf("GetFeeInvoice (owner): %v", err)
	}
	if got.TotalPaid.Cmp(decimal.Zero) != 0 {
		t.Fatalf("invoice gained payments across tenants: total paid = %s", got.TotalPaid)
	}
}

func TestDeleteFeeStructureReferencedByInvoices(t *testing.T) {
	ctx := startIntegrationEnv(t)
	ctx, school := createTestSchool(t, ctx, "Guard School")
	schoolId := school.ID.String()

	student := createTestStudent(t, ctx, schoolId, "ADM-2001")
	structure, err := models.CreateFeeStructure(ctx, schoolId, &models.NewFeeStructure{
		Name:      "Exam Fee",
		Amount:    decimal.NewFromInt(1500),
		Frequency: models.FeeFrequencyOneTime,
	})
	if err != nil {
		t.Fatalf("CreateFeeStructure: %v", err)
	}

	if _, err := models.CreateFeeInvoice(ctx, schoolId, &models.NewFeeInvoice{
		StudentId:      student.ID,
		FeeStructureId: structure.ID,
		DueDate:        time.Now().AddDate(0, 0, 14),
	}); err != nil {
		t.Fatalf("CreateFeeInvoice: %v", err)
	}

	_, err = models.DeleteFeeStructure(ctx, schoolId, structure.ID)
	if err == nil {
		t.Fatalf("DeleteFeeStructure succeeded; want reference guard rejection")
	}
	if !strings.Contains(err.Error(), "referenced by 1 invoice") {
		t.Fatalf("delete error = %q; want referenced-by count", err)
	}
}

func TestConcurrentPaymentsGetDistinctReceiptNumbers(t *testing.T) {
	ctx := startIntegrationEnv(t)
	ctx, school := createTestSchool(t, ctx, "Receipt School")
	schoolId := school.ID.String()

	student := createTestStudent(t, ctx, schoolId, "ADM-3001")

	const n = 8
	var wg sync.WaitGroup
	receipts := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := models.RecordFeePayment(ctx, schoolId, &models.NewFeePayment{
				StudentId:  student.ID,
				AmountPaid: decimal.NewFromInt(int64(100 + i)),
				Method:     models.PaymentMethodCash,
				Remarks:    fmt.Sprintf("concurrent %d", i),
			})
			if err != nil {
				errs[i] = err
				return
			}
			receipts[i] = p.ReceiptNumber
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("RecordFeePayment #%d: %v", i, errs[i])
		}
		if receipts[i] == "" {
			t.Fatalf("payment #%d has empty receipt number", i)
		}
		if prev, dup := seen[receipts[i]]; dup {
			t.Fatalf("duplicate receipt number %q for payments #%d and #%d", receipts[i], prev, i)
		}
		seen[receipts[i]] = i
	}
}

func TestReceiptNumbersAreScopedPerTenant(t *testing.T) {
	ctx := startIntegrationEnv(t)

	ctxA, schoolA := createTestSchool(t, ctx, "East Campus")
	ctxB, schoolB := createTestSchool(t, ctx, "West Campus")
	studentA := createTestStudent(t, ctxA, schoolA.ID.String(), "ADM-5001")
	studentB := createTestStudent(t, ctxB, schoolB.ID.String(), "ADM-5001")

	payA, err := models.RecordFeePayment(ctxA, schoolA.ID.String(), &models.NewFeePayment{
		StudentId:  studentA.ID,
		AmountPaid: decimal.NewFromInt(1000),
		Method:     models.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("RecordFeePayment(tenant A): %v", err)
	}

	// Tenant B runs its own sequence: its first payment lands on the same
	// number as A's and must still be accepted.
	payB, err := models.RecordFeePayment(ctxB, schoolB.ID.String(), &models.NewFeePayment{
		StudentId:  studentB.ID,
		AmountPaid: decimal.NewFromInt(2000),
		Method:     models.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("RecordFeePayment(tenant B): %v", err)
	}
	if payA.ReceiptNumber != payB.ReceiptNumber {
		t.Fatalf("first receipts differ across tenants: A=%q B=%q (sequences should be independent)", payA.ReceiptNumber, payB.ReceiptNumber)
	}

	// And B keeps counting from its own position, not A's.
	payB2, err := models.RecordFeePayment(ctxB, schoolB.ID.String(), &models.NewFeePayment{
		StudentId:  studentB.ID,
		AmountPaid: decimal.NewFromInt(500),
		Method:     models.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("RecordFeePayment(tenant B, second): %v", err)
	}
	if payB2.ReceiptNumber == payB.ReceiptNumber {
		t.Fatalf("tenant B issued duplicate receipt %q", payB2.ReceiptNumber)
	}
}

func TestMissingReferencesReturnNotFound(t *testing.T) {
	ctx := startIntegrationEnv(t)
	ctx, school := createTestSchool(t, ctx, "Taxonomy School")
	schoolId := school.ID.String()

	student := createTestStudent(t, ctx, schoolId, "ADM-6001")

	_, err := models.CreateFeeInvoice(ctx, schoolId, &models.NewFeeInvoice{
		StudentId:      999999,
		FeeStructureId: 1,
		DueDate:        time.Now().AddDate(0, 1, 0),
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("CreateFeeInvoice(bogus student) error = %v; want record not found", err)
	}

	structure, err := models.CreateFeeStructure(ctx, schoolId, &models.NewFeeStructure{
		Name:      "Library Fee",
		Amount:    decimal.NewFromInt(800),
		Frequency: models.FeeFrequencyAnnual,
	})
	if err != nil {
		t.Fatalf("CreateFeeStructure: %v", err)
	}
	_ = structure

	_, err = models.CreateFeeInvoice(ctx, schoolId, &models.NewFeeInvoice{
		StudentId:      student.ID,
		FeeStructureId: 999999,
		DueDate:        time.Now().AddDate(0, 1, 0),
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("CreateFeeInvoice(bogus structure) error = %v; want record not found", err)
	}

	_, err = models.RecordFeePayment(ctx, schoolId, &models.NewFeePayment{
		StudentId:  999999,
		AmountPaid: decimal.NewFromInt(100),
		Method:     models.PaymentMethodCash,
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("RecordFeePayment(bogus student) error = %v; want record not found", err)
	}
}
