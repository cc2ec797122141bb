package reports

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/shopspring/decimal"
)

type CollectionByMonth struct {
	Month          string          `json:"month"`
	CollectedTotal decimal.Decimal `json:"collectedTotal"`
	ReceiptCount   int             `json:"receiptCount"`
}

type CollectionByMethod struct {
	Method         string          `json:"method"`
	CollectedTotal decimal.Decimal `json:"collectedTotal"`
	ReceiptCount   int             `json:"receiptCount"`
}

type OutstandingByClass struct {
	ClassId      int             `json:"classId"`
	ClassName    string          `json:"className"`
	InvoiceCount int             `json:"invoiceCount"`
	TotalBilled  decimal.Decimal `json:"totalBilled"`
	TotalPaid    decimal.Decimal `json:"totalPaid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

type FeeCollectionSummary struct {
	ByMonth  []*CollectionByMonth  `json:"byMonth"`
	ByMethod []*CollectionByMethod `json:"byMethod"`
	ByClass  []*OutstandingByClass `json:"byClass"`
}

// GetFeeCollectionSummary is the dashboard aggregation: per-month collections
// for the last 12 months, receipts grouped by method, and per-class
// billed-vs-paid outstanding.
func GetFeeCollectionSummary(ctx context.Context) (*FeeCollectionSummary, error) {

	schoolId, ok := utils.GetSchoolIdFromContext(ctx)
	if !ok || schoolId == "" {
		return nil, errors.New("school id is required")
	}

	db := config.GetDB()
	summary := FeeCollectionSummary{}

	byMonthSQL := `
SELECT
    DATE_FORMAT(paid_at, '%Y-%m') AS month,
    SUM(amount_paid) AS collected_total,
    COUNT(id) AS receipt_count
FROM
    fee_payments
WHERE
    school_id = @schoolId
    AND paid_at >= DATE_SUB(CURDATE(), INTERVAL 12 MONTH)
GROUP BY
    DATE_FORMAT(paid_at, '%Y-%m')
ORDER BY
    month;
`
	if err := db.WithContext(ctx).Raw(byMonthSQL, map[string]interface{}{
		"schoolId": schoolId,
	}).Scan(&summary.ByMonth).Error; err != nil {
		return nil, err
	}

	byMethodSQL := `
SELECT
    method,
    SUM(amount_paid) AS collected_total,
    COUNT(id) AS receipt_count
FROM
    fee_payments
WHERE
    school_id = @schoolId
GROUP BY
    method;
`
	if err := db.WithContext(ctx).Raw(byMethodSQL, map[string]interface{}{
		"schoolId": schoolId,
	}).Scan(&summary.ByMethod).Error; err != nil {
		return nil, err
	}

	byClassSQL := `
SELECT
    classes.id AS class_id,
    classes.name AS class_name,
    COUNT(fi.id) AS invoice_count,
    COALESCE(SUM(fi.amount), 0) AS total_billed,
    COALESCE(paid.total_paid, 0) AS total_paid,
    COALESCE(SUM(fi.amount), 0) - COALESCE(paid.total_paid, 0) AS outstanding
FROM
    classes
    LEFT JOIN students ON students.class_id = classes.id
    LEFT JOIN fee_invoices fi ON fi.student_id = students.id
    LEFT JOIN (
        SELECT
            students.class_id,
            SUM(fp.amount_paid) AS total_paid
        FROM
            fee_payments fp
            INNER JOIN fee_invoices ON fee_invoices.id = fp.invoice_id
            INNER JOIN students ON students.id = fp.student_id
        WHERE
            fp.school_id = @schoolId
        GROUP BY
            students.class_id
    ) paid ON paid.class_id = classes.id
WHERE
    classes.school_id = @schoolId
GROUP BY
    classes.id, classes.name, paid.total_paid
ORDER BY
    classes.name;
`
	if err := db.WithContext(ctx).Raw(byClassSQL, map[string]interface{}{
		"schoolId": schoolId,
	}).Scan(&summary.ByClass).Error; err != nil {
		return nil, err
	}

	return &summary, nil
}
