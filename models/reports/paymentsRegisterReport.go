package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type PaymentRegisterRow struct {
	ReceiptNumber   string          `json:"receiptNumber"`
	PaidAt          time.Time       `json:"paidAt"`
	StudentName     string          `json:"studentName"`
	AdmissionNumber string          `json:"admissionNumber"`
	ClassName       string          `json:"className"`
	FeeName         *string         `json:"feeName,omitempty"`
	Method          string          `json:"method"`
	TransactionId   *string         `json:"transactionId,omitempty"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
}

// GetPaymentsRegisterReport lists every receipt in the date range with its
// student and fee context, oldest first. Raw SQL: the tenant filter is written
// explicitly because the tenant guard does not cover raw queries.
func GetPaymentsRegisterReport(ctx context.Context, fromDate time.Time, toDate time.Time) ([]*PaymentRegisterRow, error) {

	schoolId, ok := utils.GetSchoolIdFromContext(ctx)
	if !ok || schoolId == "" {
		return nil, errors.New("school id is required")
	}

	school, err := models.GetSchoolById(ctx, schoolId)
	if err != nil {
		return nil, err
	}
	from, err := utils.DateOnly(fromDate, school.Timezone)
	if err != nil {
		return nil, err
	}
	to, err := utils.DateOnly(toDate, school.Timezone)
	if err != nil {
		return nil, err
	}
	to = to.Add(24*time.Hour - time.Nanosecond)

	sql := `
SELECT
    fp.receipt_number,
    fp.paid_at,
    students.name AS student_name,
    students.admission_number,
    classes.name AS class_name,
    fee_structures.name AS fee_name,
    fp.method,
    fp.transaction_id,
    fp.amount_paid
FROM
    fee_payments fp
    INNER JOIN students ON students.id = fp.student_id
    LEFT JOIN classes ON classes.id = students.class_id
    LEFT JOIN fee_invoices ON fee_invoices.id = fp.invoice_id
    LEFT JOIN fee_structures ON fee_structures.id = fee_invoices.fee_structure_id
WHERE
    fp.school_id = @schoolId
    AND fp.paid_at BETWEEN @fromDate AND @toDate
ORDER BY
    fp.paid_at, fp.id;
`

	db := config.GetDB()
	var rows []*PaymentRegisterRow
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"schoolId": schoolId,
		"fromDate": from,
		"toDate":   to,
	}).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExportPaymentsRegisterExcel writes the register as an xlsx workbook.
func ExportPaymentsRegisterExcel(ctx context.Context, w io.Writer, fromDate time.Time, toDate time.Time) error {
	rows, err := GetPaymentsRegisterReport(ctx, fromDate, toDate)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Payments"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headers := []string{"Receipt No", "Date", "Student", "Admission No", "Class", "Fee", "Method", "Transaction Id", "Amount"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	total := decimal.Zero
	for i, row := range rows {
		rowNo := i + 2
		f.SetCellValue(sheet, "A"+fmt.Sprint(rowNo), row.ReceiptNumber)
		f.SetCellValue(sheet, "B"+fmt.Sprint(rowNo), row.PaidAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheet, "C"+fmt.Sprint(rowNo), row.StudentName)
		f.SetCellValue(sheet, "D"+fmt.Sprint(rowNo), row.AdmissionNumber)
		f.SetCellValue(sheet, "E"+fmt.Sprint(rowNo), row.ClassName)
		if row.FeeName != nil {
			f.SetCellValue(sheet, "F"+fmt.Sprint(rowNo), *row.FeeName)
		}
		f.SetCellValue(sheet, "G"+fmt.Sprint(rowNo), row.Method)
		if row.TransactionId != nil {
			f.SetCellValue(sheet, "H"+fmt.Sprint(rowNo), *row.TransactionId)
		}
		f.SetCellValue(sheet, "I"+fmt.Sprint(rowNo), row.AmountPaid.InexactFloat64())
		total = total.Add(row.AmountPaid)
	}

	totalRow := len(rows) + 2
	f.SetCellValue(sheet, "H"+fmt.Sprint(totalRow), "Total")
	f.SetCellValue(sheet, "I"+fmt.Sprint(totalRow), total.InexactFloat64())

	return f.Write(w)
}
