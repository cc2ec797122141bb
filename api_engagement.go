package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"github.com/gin-gonic/gin"
)

// Attendance.

func markAttendanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, userId, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleTeacher) {
			return
		}
		var input models.MarkAttendanceInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := models.MarkAttendance(ctx, schoolId, userId, &input)
		if err != nil {
			respondError(c, "markAttendanceHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func listAttendanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		classId := intQuery(c, "classId")
		if classId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "classId is required"})
			return
		}
		date, err := time.Parse("2006-01-02", c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		rows, err := models.ListAttendance(ctx, schoolId, classId, intQuery(c, "sectionId"), date)
		if err != nil {
			respondError(c, "listAttendanceHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func studentAttendanceSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		from, to, ok := reportDateRange(c)
		if !ok {
			return
		}
		summary, err := models.GetStudentAttendanceSummary(ctx, schoolId, id, from, to)
		if err != nil {
			respondError(c, "studentAttendanceSummaryHandler", err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// Leave requests.

func createLeaveRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		var input models.NewLeaveRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		request, err := models.CreateLeaveRequest(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "createLeaveRequestHandler", err)
			return
		}
		c.JSON(http.StatusCreated, request)
	}
}

func reviewLeaveRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, userId, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleTeacher) {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var body struct {
			Approve bool   `json:"approve"`
			Note    string `json:"note"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		request, err := models.ReviewLeaveRequest(ctx, schoolId, id, userId, body.Approve, body.Note)
		if err != nil {
			respondError(c, "reviewLeaveRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, request)
	}
}

func listLeaveRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		page, pageSize := paginationParams(c)
		requests, pageInfo, err := models.PaginateLeaveRequests(ctx, schoolId,
			intQuery(c, "studentId"), models.LeaveStatus(c.Query("status")), page, pageSize)
		if err != nil {
			respondError(c, "listLeaveRequestsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": requests, "pageInfo": pageInfo})
	}
}

// Announcements.

func publishAnnouncementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, userId, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin) {
			return
		}
		var input models.NewAnnouncement
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		announcement, err := models.PublishAnnouncement(ctx, schoolId, userId, &input)
		if err != nil {
			respondError(c, "publishAnnouncementHandler", err)
			return
		}
		c.JSON(http.StatusCreated, announcement)
	}
}

func deleteAnnouncementHandler() gin.HandlerFunc {
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
		announcement, err := models.DeleteAnnouncement(ctx, schoolId, id)
		if err != nil {
			respondError(c, "deleteAnnouncementHandler", err)
			return
		}
		c.JSON(http.StatusOK, announcement)
	}
}

func listAnnouncementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		page, pageSize := paginationParams(c)
		announcements, pageInfo, err := models.PaginateAnnouncements(ctx, schoolId,
			models.AnnouncementAudience(c.Query("audience")), page, pageSize)
		if err != nil {
			respondError(c, "listAnnouncementsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": announcements, "pageInfo": pageInfo})
	}
}

// In-app messages.

func listMessagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, userId, ok := requestScope(c)
		if !ok {
			return
		}
		unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unreadOnly", "false"))
		page, pageSize := paginationParams(c)
		messages, pageInfo, err := models.PaginateMessages(ctx, schoolId, userId, unreadOnly, page, pageSize)
		if err != nil {
			respondError(c, "listMessagesHandler", err)
			return
		}
		unread, err := models.CountUnreadMessages(ctx, schoolId, userId)
		if err != nil {
			respondError(c, "listMessagesHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": messages, "pageInfo": pageInfo, "unreadCount": unread})
	}
}

func markMessageReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, userId, ok := requestScope(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		message, err := models.MarkMessageRead(ctx, schoolId, userId, id)
		if err != nil {
			respondError(c, "markMessageReadHandler", err)
			return
		}
		c.JSON(http.StatusOK, message)
	}
}
