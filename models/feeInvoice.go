package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/shopspring/decimal"
)

type FeeInvoice struct {
	ID             int             `gorm:"primary_key" json:"id"`
	SchoolId       string          `gorm:"index;not null" json:"school_id" binding:"required"`
	StudentId      int             `gorm:"index;not null" json:"student_id" binding:"required"`
	FeeStructureId int             `gorm:"index;not null" json:"fee_structure_id" binding:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	DueDate        time.Time       `gorm:"not null" json:"due_date" binding:"required"`
	Status         InvoiceStatus   `gorm:"type:enum('PENDING','PARTIAL','PAID','OVERDUE');not null;default:'PENDING'" json:"status"`
	IssuedAt       time.Time       `gorm:"not null" json:"issued_at"`
	Student        *Student        `json:"student"`
	FeeStructure   *FeeStructure   `json:"fee_structure"`
	Payments       []*FeePayment   `gorm:"foreignKey:InvoiceId" json:"payments"`

	// computed at read time, never persisted
	TotalPaid        decimal.Decimal `gorm:"-" json:"total_paid"`
	Remaining        decimal.Decimal `gorm:"-" json:"remaining"`
	CalculatedStatus InvoiceStatus   `gorm:"-" json:"calculated_status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFeeInvoice struct {
	StudentId      int              `json:"student_id" binding:"required"`
	FeeStructureId int              `json:"fee_structure_id" binding:"required"`
	AmountOverride *decimal.Decimal `json:"amount_override"`
	DueDate        time.Time        `json:"due_date" binding:"required"`
}

type UpdateFeeInvoiceInput struct {
	DueDate *time.Time       `json:"due_date"`
	Amount  *decimal.Decimal `json:"amount"`
}

// deriveInvoiceStatus recomputes status from the (amount, totalPaid, dueDate)
// triple. Payments dominate: a fully-paid invoice is PAID no matter the due
// date, and moving a due date into the future takes an unpaid invoice back
// from OVERDUE to PENDING.
func deriveInvoiceStatus(amount decimal.Decimal, totalPaid decimal.Decimal, dueDate time.Time, now time.Time) InvoiceStatus {
	if totalPaid.Cmp(amount) >= 0 {
		return InvoiceStatusPaid
	}
	if totalPaid.Cmp(decimal.Zero) > 0 {
		return InvoiceStatusPartial
	}
	if dueDate.Before(now) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusPending
}

func (input *NewFeeInvoice) validate(ctx context.Context, schoolId string) (*Student, *FeeStructure, error) {
	student, err := utils.FetchModel[Student](ctx, schoolId, input.StudentId)
	if err != nil {
		return nil, nil, fmt.Errorf("student not found: %w", utils.ErrorRecordNotFound)
	}
	feeStructure, err := utils.FetchModel[FeeStructure](ctx, schoolId, input.FeeStructureId)
	if err != nil {
		return nil, nil, fmt.Errorf("fee structure not found: %w", utils.ErrorRecordNotFound)
	}
	// structure must be global or match the student's class
	if feeStructure.ClassId != 0 && feeStructure.ClassId != student.ClassId {
		return nil, nil, fmt.Errorf("fee structure not found: %w", utils.ErrorRecordNotFound)
	}
	if input.AmountOverride != nil && input.AmountOverride.Cmp(decimal.Zero) <= 0 {
		return nil, nil, errors.New("amount must be positive")
	}
	return student, feeStructure, nil
}

func CreateFeeInvoice(ctx context.Context, schoolId string, input *NewFeeInvoice) (*FeeInvoice, error) {
	_, feeStructure, err := input.validate(ctx, schoolId)
	if err != nil {
		return nil, err
	}

	amount := feeStructure.Amount
	if input.AmountOverride != nil {
		amount = *input.AmountOverride
	}

	now := time.Now()
	invoice := FeeInvoice{
		SchoolId:       schoolId,
		StudentId:      input.StudentId,
		FeeStructureId: input.FeeStructureId,
		Amount:         amount,
		DueDate:        input.DueDate,
		Status:         deriveInvoiceStatus(amount, decimal.Zero, input.DueDate, now),
		IssuedAt:       now,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishNotification(ctx, tx, schoolId, now, invoice.ID,
		NotificationReferenceTypeFeeInvoice, &invoice, NotificationActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return GetFeeInvoice(ctx, schoolId, invoice.ID)
}

func GetFeeInvoice(ctx context.Context, schoolId string, id int) (*FeeInvoice, error) {
	invoice, err := utils.FetchModel[FeeInvoice](ctx, schoolId, id, "Student", "FeeStructure", "Payments")
	if err != nil {
		return nil, err
	}
	annotateInvoice(invoice)
	return invoice, nil
}

// annotateInvoice fills the computed fields from the preloaded payments.
func annotateInvoice(invoice *FeeInvoice) {
	totalPaid := decimal.Zero
	for _, p := range invoice.Payments {
		totalPaid = totalPaid.Add(p.AmountPaid)
	}
	invoice.TotalPaid = totalPaid
	invoice.Remaining = invoice.Amount.Sub(totalPaid)
	invoice.CalculatedStatus = deriveInvoiceStatus(invoice.Amount, totalPaid, invoice.DueDate, time.Now())
}

// PaginateFeeInvoices lists invoices with computed totals. search matches the
// student's name or admission number.
func PaginateFeeInvoices(ctx context.Context, schoolId string, search string, studentId int, classId int, status InvoiceStatus, page int, pageSize int) ([]*FeeInvoice, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&FeeInvoice{}).
		Where("fee_invoices.school_id = ?", schoolId)
	if studentId > 0 {
		dbCtx = dbCtx.Where("fee_invoices.student_id = ?", studentId)
	}
	if status != "" {
		if !status.Valid() {
			return nil, nil, errors.New("invalid status")
		}
		dbCtx = dbCtx.Where("fee_invoices.status = ?", status)
	}
	if search != "" || classId > 0 {
		dbCtx = dbCtx.Joins("JOIN students ON students.id = fee_invoices.student_id")
		if search != "" {
			dbCtx = dbCtx.Where("students.name LIKE ? OR students.admission_number LIKE ?", "%"+search+"%", "%"+search+"%")
		}
		if classId > 0 {
			dbCtx = dbCtx.Where("students.class_id = ?", classId)
		}
	}
	dbCtx = dbCtx.Preload("Student").Preload("FeeStructure").Preload("Payments").
		Order("fee_invoices.issued_at DESC, fee_invoices.id DESC")

	invoices, pageInfo, err := FetchPage[FeeInvoice](dbCtx, page, pageSize)
	if err != nil {
		return nil, nil, err
	}
	for _, invoice := range invoices {
		annotateInvoice(invoice)
	}
	return invoices, pageInfo, nil
}

// UpdateFeeInvoice patches the due date or amount and re-derives the status
// from payments and the new due date.
func UpdateFeeInvoice(ctx context.Context, schoolId string, id int, input *UpdateFeeInvoiceInput) (*FeeInvoice, error) {
	invoice, err := utils.FetchModel[FeeInvoice](ctx, schoolId, id, "Payments")
	if err != nil {
		return nil, err
	}

	annotateInvoice(invoice)

	amount := invoice.Amount
	if input.Amount != nil {
		if input.Amount.Cmp(decimal.Zero) <= 0 {
			return nil, errors.New("amount must be positive")
		}
		if input.Amount.Cmp(invoice.TotalPaid) < 0 {
			return nil, errors.New("amount is below the total already paid")
		}
		amount = *input.Amount
	}
	dueDate := invoice.DueDate
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}

	status := deriveInvoiceStatus(amount, invoice.TotalPaid, dueDate, time.Now())

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"amount":   amount,
		"due_date": dueDate,
		"status":   status,
	}).Error; err != nil {
		return nil, err
	}
	return GetFeeInvoice(ctx, schoolId, id)
}

func DeleteFeeInvoice(ctx context.Context, schoolId string, id int) (*FeeInvoice, error) {
	if config.StrictLedgerImmutability() {
		return nil, errors.New("invoice deletion is disabled")
	}

	invoice, err := utils.FetchModel[FeeInvoice](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}

	paymentCount, err := utils.ResourceCountWhere[FeePayment](ctx, schoolId, "invoice_id = ?", id)
	if err != nil {
		return nil, err
	}
	if paymentCount > 0 {
		return nil, errors.New("invoice has payments")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}
