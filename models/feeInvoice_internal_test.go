package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDeriveInvoiceStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -10)
	future := now.AddDate(0, 0, 10)
	amount := decimal.NewFromInt(5000)

	cases := []struct {
		name      string
		totalPaid decimal.Decimal
		dueDate   time.Time
		want      InvoiceStatus
	}{
		{"unpaid before due date", decimal.Zero, future, InvoiceStatusPending},
		{"unpaid after due date", decimal.Zero, past, InvoiceStatusOverdue},
		{"partially paid before due date", decimal.NewFromInt(2000), future, InvoiceStatusPartial},
		{"partially paid after due date stays partial", decimal.NewFromInt(2000), past, InvoiceStatusPartial},
		{"fully paid", decimal.NewFromInt(5000), future, InvoiceStatusPaid},
		{"fully paid after due date stays paid", decimal.NewFromInt(5000), past, InvoiceStatusPaid},
		{"overpaid is still paid", decimal.NewFromInt(6000), past, InvoiceStatusPaid},
		{"due exactly now is not yet overdue", decimal.Zero, now, InvoiceStatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := deriveInvoiceStatus(amount, tc.totalPaid, tc.dueDate, now)
			if got != tc.want {
				t.Fatalf("deriveInvoiceStatus(%s paid, due %s) = %s; want %s",
					tc.totalPaid, tc.dueDate.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func TestDeriveInvoiceStatusDueDateMoveRevertsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(1000)

	before := deriveInvoiceStatus(amount, decimal.Zero, now.AddDate(0, 0, -1), now)
	if before != InvoiceStatusOverdue {
		t.Fatalf("past due date = %s; want OVERDUE", before)
	}
	after := deriveInvoiceStatus(amount, decimal.Zero, now.AddDate(0, 1, 0), now)
	if after != InvoiceStatusPending {
		t.Fatalf("due date moved out = %s; want PENDING", after)
	}
}

func TestFormatReceiptNumber(t *testing.T) {
	cases := []struct {
		t    time.Time
		seq  int64
		want string
	}{
		{time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 1, "RCP26010001"},
		{time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC), 42, "RCP26110042"},
		{time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), 9999, "RCP25099999"},
		{time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC), 12345, "RCP301212345"},
	}
	for _, tc := range cases {
		if got := formatReceiptNumber(tc.t, tc.seq); got != tc.want {
			t.Fatalf("formatReceiptNumber(%s, %d) = %q; want %q",
				tc.t.Format("2006-01"), tc.seq, got, tc.want)
		}
	}
}
