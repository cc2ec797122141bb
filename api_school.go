package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"github.com/gin-gonic/gin"
)

// Platform-admin surface: tenant provisioning and subscription reporting.

func createSchoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePlatformAdmin(c) {
			return
		}
		var input models.NewSchool
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		school, err := models.CreateSchool(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createSchoolHandler", err)
			return
		}
		c.JSON(http.StatusCreated, school)
	}
}

func listSchoolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePlatformAdmin(c) {
			return
		}
		schools, err := models.GetAllSchools(c.Request.Context())
		if err != nil {
			respondError(c, "listSchoolsHandler", err)
			return
		}
		c.JSON(http.StatusOK, schools)
	}
}

func subscriptionRevenueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePlatformAdmin(c) {
			return
		}
		ctx := c.Request.Context()
		monthly, activeCount, err := models.CalculateMonthlyRevenue(ctx)
		if err != nil {
			respondError(c, "subscriptionRevenueHandler", err)
			return
		}
		total, err := models.CalculateTotalRevenue(ctx)
		if err != nil {
			respondError(c, "subscriptionRevenueHandler", err)
			return
		}
		c.JSON(http.StatusOK, models.SubscriptionRevenue{
			MonthlyRevenue: monthly,
			TotalRevenue:   total,
			ActiveSchools:  activeCount,
		})
	}
}

func refreshSubscriptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePlatformAdmin(c) {
			return
		}
		changed, err := models.RefreshAllSubscriptionStatuses(c.Request.Context())
		if err != nil {
			respondError(c, "refreshSubscriptionsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}

// Tenant-facing school profile.

func getCurrentSchoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		// recompute on demand so the stored status never goes stale for readers
		school, err := models.UpdateSubscriptionStatus(ctx, schoolId)
		if err != nil {
			respondError(c, "getCurrentSchoolHandler", err)
			return
		}
		c.JSON(http.StatusOK, school)
	}
}

func updateCurrentSchoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin) {
			return
		}
		var input models.UpdateSchoolInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		school, err := models.UpdateSchool(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "updateCurrentSchoolHandler", err)
			return
		}
		c.JSON(http.StatusOK, school)
	}
}

func refreshCurrentSubscriptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		school, err := models.UpdateSubscriptionStatus(ctx, schoolId)
		if err != nil {
			respondError(c, "refreshCurrentSubscriptionHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"subscription_status": school.SubscriptionStatus,
			"next_billing_date":   school.NextBillingDate,
		})
	}
}

func toggleSchoolActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePlatformAdmin(c) {
			return
		}
		schoolId := c.Param("id")
		isActive, err := strconv.ParseBool(c.DefaultQuery("active", "true"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active"})
			return
		}
		ctx := c.Request.Context()
		school, err := models.GetSchoolById(ctx, schoolId)
		if err != nil {
			respondError(c, "toggleSchoolActiveHandler", err)
			return
		}
		school.IsActive = &isActive
		if err := models.SetSchoolActive(ctx, schoolId, isActive); err != nil {
			respondError(c, "toggleSchoolActiveHandler", err)
			return
		}
		c.JSON(http.StatusOK, school)
	}
}
