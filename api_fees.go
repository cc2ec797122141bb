package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"bitbucket.org/mmdatafocus/schoolfees_backend/models/reports"
	"github.com/gin-gonic/gin"
)

// Fee structures.

func createFeeStructureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		var input models.NewFeeStructure
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		feeStructure, err := models.CreateFeeStructure(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "createFeeStructureHandler", err)
			return
		}
		c.JSON(http.StatusCreated, feeStructure)
	}
}

func updateFeeStructureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.NewFeeStructure
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		feeStructure, err := models.UpdateFeeStructure(ctx, schoolId, id, &input)
		if err != nil {
			respondError(c, "updateFeeStructureHandler", err)
			return
		}
		c.JSON(http.StatusOK, feeStructure)
	}
}

func deleteFeeStructureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin) {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		feeStructure, err := models.DeleteFeeStructure(ctx, schoolId, id)
		if err != nil {
			respondError(c, "deleteFeeStructureHandler", err)
			return
		}
		c.JSON(http.StatusOK, feeStructure)
	}
}

func listFeeStructuresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		activeOnly, _ := strconv.ParseBool(c.DefaultQuery("activeOnly", "false"))
		feeStructures, err := models.ListFeeStructures(ctx, schoolId, intQuery(c, "classId"), activeOnly)
		if err != nil {
			respondError(c, "listFeeStructuresHandler", err)
			return
		}
		c.JSON(http.StatusOK, feeStructures)
	}
}

// Invoices.

func createInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		var input models.NewFeeInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invoice, err := models.CreateFeeInvoice(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "createInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		page, pageSize := paginationParams(c)
		invoices, pageInfo, err := models.PaginateFeeInvoices(ctx, schoolId,
			c.Query("search"), intQuery(c, "studentId"), intQuery(c, "classId"),
			models.InvoiceStatus(c.Query("status")), page, pageSize)
		if err != nil {
			respondError(c, "listInvoicesHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": invoices, "pageInfo": pageInfo})
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		invoice, err := models.GetFeeInvoice(ctx, schoolId, id)
		if err != nil {
			respondError(c, "getInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func updateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.UpdateFeeInvoiceInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invoice, err := models.UpdateFeeInvoice(ctx, schoolId, id, &input)
		if err != nil {
			respondError(c, "updateInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func deleteInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin) {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		invoice, err := models.DeleteFeeInvoice(ctx, schoolId, id)
		if err != nil {
			respondError(c, "deleteInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

// Payments.

func recordPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		var input models.NewFeePayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payment, err := models.RecordFeePayment(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "recordPaymentHandler", err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func listPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		fromDate, ok := dateQuery(c, "fromDate")
		if !ok {
			return
		}
		toDate, ok := dateQuery(c, "toDate")
		if !ok {
			return
		}
		page, pageSize := paginationParams(c)
		payments, pageInfo, err := models.PaginateFeePayments(ctx, schoolId,
			intQuery(c, "studentId"), intQuery(c, "invoiceId"),
			models.PaymentMethod(c.Query("method")), fromDate, toDate, page, pageSize)
		if err != nil {
			respondError(c, "listPaymentsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": payments, "pageInfo": pageInfo})
	}
}

func getReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		payload, err := models.GetReceiptPayload(ctx, schoolId, id)
		if err != nil {
			respondError(c, "getReceiptHandler", err)
			return
		}
		c.JSON(http.StatusOK, payload)
	}
}

func studentFeeSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		summary, err := models.GetStudentFeeSummary(ctx, schoolId, id)
		if err != nil {
			respondError(c, "studentFeeSummaryHandler", err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// Handovers.

func submitHandoverHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, userId, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		var input models.NewFeeHandover
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		handover, err := models.SubmitFeeHandover(ctx, schoolId, userId, &input)
		if err != nil {
			respondError(c, "submitHandoverHandler", err)
			return
		}
		c.JSON(http.StatusCreated, handover)
	}
}

func listHandoversHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		page, pageSize := paginationParams(c)
		handovers, pageInfo, summary, err := models.PaginateFeeHandovers(ctx, schoolId, page, pageSize)
		if err != nil {
			respondError(c, "listHandoversHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": handovers, "pageInfo": pageInfo, "summary": summary})
	}
}

func handoverSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		summary, err := models.GetHandoverSummary(ctx, schoolId, 5)
		if err != nil {
			respondError(c, "handoverSummaryHandler", err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// Reports.

func reportDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	fromDate, ok := dateQuery(c, "fromDate")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	toDate, ok := dateQuery(c, "toDate")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now
	if fromDate != nil {
		from = *fromDate
	}
	if toDate != nil {
		to = *toDate
	}
	return from, to, true
}

func paymentsRegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		from, to, ok := reportDateRange(c)
		if !ok {
			return
		}
		rows, err := reports.GetPaymentsRegisterReport(ctx, from, to)
		if err != nil {
			respondError(c, "paymentsRegisterHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func paymentsRegisterExcelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		from, to, ok := reportDateRange(c)
		if !ok {
			return
		}
		filename := fmt.Sprintf("payments-register-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102"))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		if err := reports.ExportPaymentsRegisterExcel(ctx, c.Writer, from, to); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
}

func feeCollectionSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		summary, err := reports.GetFeeCollectionSummary(ctx)
		if err != nil {
			respondError(c, "feeCollectionSummaryHandler", err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
