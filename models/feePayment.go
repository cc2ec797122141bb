package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type FeePayment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	SchoolId      string          `gorm:"not null;uniqueIndex:idx_fee_payments_school_receipt" json:"school_id" binding:"required"`
	StudentId     int             `gorm:"index;not null" json:"student_id" binding:"required"`
	InvoiceId     *int            `gorm:"index" json:"invoice_id"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount_paid"`
	Method        PaymentMethod   `gorm:"type:enum('CASH','CARD','BANK_TRANSFER','ONLINE','CHEQUE');not null;default:'CASH'" json:"method"`
	TransactionId string          `gorm:"size:100" json:"transaction_id"`
	Remarks       string          `gorm:"type:text" json:"remarks"`
	// Receipt numbers are unique per school, not globally: each tenant runs its
	// own sequence, so two schools can both issue RCP26010001.
	ReceiptNumber string          `gorm:"size:20;not null;uniqueIndex:idx_fee_payments_school_receipt" json:"receipt_number"`
	SequenceNo    int64           `gorm:"not null" json:"-"`
	PaidAt        time.Time       `gorm:"not null" json:"paid_at"`
	Student       *Student        `json:"student"`
	Invoice       *FeeInvoice     `gorm:"foreignKey:InvoiceId" json:"invoice"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFeePayment struct {
	StudentId     int             `json:"student_id" binding:"required"`
	InvoiceId     *int            `json:"invoice_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid" binding:"required"`
	Method        PaymentMethod   `json:"method" binding:"required"`
	TransactionId string          `json:"transaction_id"`
	Remarks       string          `json:"remarks"`
}

// Payments are immutable audit records: created once, never updated, and
// deletion is not exposed.

// formatReceiptNumber renders "RCP" + 2-digit year + 2-digit month + 4-digit
// zero-padded sequence. The format appears on printed receipts; don't change it.
// The sequence runs for the life of the tenant, so past 9999 the number widens
// to 5+ digits instead of wrapping: the RCPyymm prefix stays fixed-width and
// uniqueness wins over a fixed total length.
func formatReceiptNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("RCP%02d%02d%04d", t.Year()%100, int(t.Month()), seq)
}

func (input *NewFeePayment) validate(ctx context.Context, schoolId string) error {
	if input.AmountPaid.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if !input.Method.Valid() {
		return fmt.Errorf("invalid payment method")
	}
	if err := utils.ValidateResourceId[Student](ctx, schoolId, input.StudentId); err != nil {
		return fmt.Errorf("student not found: %w", utils.ErrorRecordNotFound)
	}
	return nil
}

// RecordFeePayment records a receipt and, when tied to an invoice, updates the
// invoice status in the same transaction. Retries once on
// ErrorConcurrentModification (duplicate receipt number from a concurrent
// writer) before surfacing the failure.
func RecordFeePayment(ctx context.Context, schoolId string, input *NewFeePayment) (*FeePayment, error) {
	payment, err := recordFeePayment(ctx, schoolId, input)
	if err == utils.ErrorConcurrentModification {
		payment, err = recordFeePayment(ctx, schoolId, input)
	}
	return payment, err
}

func recordFeePayment(ctx context.Context, schoolId string, input *NewFeePayment) (*FeePayment, error) {
	if err := input.validate(ctx, schoolId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	now := time.Now()

	seqNo, err := utils.GetSequence[FeePayment](ctx, schoolId)
	if err != nil {
		return nil, err
	}

	tx := db.Begin()

	var invoice *FeeInvoice
	if input.InvoiceId != nil {
		// lock the invoice row so concurrent payments against it serialize;
		// the remaining-balance check below then reads a stable sum
		var locked FeeInvoice
		if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("school_id = ?", schoolId).
			First(&locked, *input.InvoiceId).Error; err != nil {
			tx.Rollback()
			return nil, utils.ErrorRecordNotFound
		}
		invoice = &locked

		var totalPaid decimal.NullDecimal
		if err := tx.WithContext(ctx).Model(&FeePayment{}).
			Select("sum(amount_paid)").
			Where("school_id = ? AND invoice_id = ?", schoolId, invoice.ID).
			Scan(&totalPaid).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		paid := decimal.Zero
		if totalPaid.Valid {
			paid = totalPaid.Decimal
		}
		remaining := invoice.Amount.Sub(paid)
		if input.AmountPaid.Cmp(remaining) > 0 {
			tx.Rollback()
			return nil, fmt.Errorf("amount %s exceeds remaining amount (%s)", input.AmountPaid, remaining)
		}

		newTotalPaid := paid.Add(input.AmountPaid)
		newStatus := deriveInvoiceStatus(invoice.Amount, newTotalPaid, invoice.DueDate, now)
		if newStatus != invoice.Status {
			if err := tx.WithContext(ctx).Model(invoice).Update("status", newStatus).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	payment := FeePayment{
		SchoolId:      schoolId,
		StudentId:     input.StudentId,
		InvoiceId:     input.InvoiceId,
		AmountPaid:    input.AmountPaid,
		Method:        input.Method,
		TransactionId: input.TransactionId,
		Remarks:       input.Remarks,
		ReceiptNumber: formatReceiptNumber(now, seqNo),
		SequenceNo:    seqNo,
		PaidAt:        now,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ErrorConcurrentModification
		}
		return nil, err
	}

	if err := PublishNotification(ctx, tx, schoolId, now, payment.ID,
		NotificationReferenceTypeFeePayment, &payment, NotificationActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ErrorConcurrentModification
		}
		return nil, err
	}

	return GetFeePayment(ctx, schoolId, payment.ID)
}

func GetFeePayment(ctx context.Context, schoolId string, id int) (*FeePayment, error) {
	return utils.FetchModel[FeePayment](ctx, schoolId, id, "Student", "Invoice", "Invoice.FeeStructure")
}

func PaginateFeePayments(ctx context.Context, schoolId string, studentId int, invoiceId int, method PaymentMethod, fromDate *time.Time, toDate *time.Time, page int, pageSize int) ([]*FeePayment, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&FeePayment{}).Where("school_id = ?", schoolId)
	if studentId > 0 {
		dbCtx = dbCtx.Where("student_id = ?", studentId)
	}
	if invoiceId > 0 {
		dbCtx = dbCtx.Where("invoice_id = ?", invoiceId)
	}
	if method != "" {
		if !method.Valid() {
			return nil, nil, fmt.Errorf("invalid payment method")
		}
		dbCtx = dbCtx.Where("method = ?", method)
	}
	if fromDate != nil {
		dbCtx = dbCtx.Where("paid_at >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("paid_at <= ?", *toDate)
	}
	dbCtx = dbCtx.Preload("Student").Preload("Invoice").Order("paid_at DESC, id DESC")
	return FetchPage[FeePayment](dbCtx, page, pageSize)
}

// ReceiptPayload is the denormalized structure rendered into a receipt document.
type ReceiptPayload struct {
	Payment *FeePayment `json:"payment"`
	Student *Student    `json:"student"`
	School  *School     `json:"school"`
}

func GetReceiptPayload(ctx context.Context, schoolId string, paymentId int) (*ReceiptPayload, error) {
	payment, err := utils.FetchModel[FeePayment](ctx, schoolId, paymentId, "Invoice", "Invoice.FeeStructure")
	if err != nil {
		return nil, err
	}
	student, err := utils.FetchModel[Student](ctx, schoolId, payment.StudentId, "Class", "Section")
	if err != nil {
		return nil, err
	}
	school, err := GetSchoolById(ctx, schoolId)
	if err != nil {
		return nil, err
	}
	return &ReceiptPayload{Payment: payment, Student: student, School: school}, nil
}

// StudentFeeSummary aggregates a student's invoices using the same
// remaining-based classification as invoice listing.
type StudentFeeSummary struct {
	StudentId    int             `json:"student_id"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
	PaidCount    int             `json:"paid_count"`
	PartialCount int             `json:"partial_count"`
	PendingCount int             `json:"pending_count"`
	Invoices     []*FeeInvoice   `json:"invoices"`
}

func GetStudentFeeSummary(ctx context.Context, schoolId string, studentId int) (*StudentFeeSummary, error) {
	if err := utils.ValidateResourceId[Student](ctx, schoolId, studentId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var invoices []*FeeInvoice
	if err := db.WithContext(ctx).Where("school_id = ? AND student_id = ?", schoolId, studentId).
		Preload("FeeStructure").Preload("Payments").
		Order("issued_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}

	summary := StudentFeeSummary{
		StudentId:    studentId,
		TotalAmount:  decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
		Invoices:     invoices,
	}
	for _, invoice := range invoices {
		annotateInvoice(invoice)
		summary.TotalAmount = summary.TotalAmount.Add(invoice.Amount)
		summary.TotalPaid = summary.TotalPaid.Add(invoice.TotalPaid)
		summary.TotalPending = summary.TotalPending.Add(invoice.Remaining)
		switch {
		case invoice.Remaining.Cmp(decimal.Zero) <= 0:
			summary.PaidCount++
		case invoice.TotalPaid.Cmp(decimal.Zero) > 0:
			summary.PartialCount++
		default:
			summary.PendingCount++
		}
	}
	return &summary, nil
}
