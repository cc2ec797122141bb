package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/gin-gonic/gin"
)

// requestScope resolves the authenticated caller's identity for tenant-scoped
// handlers. Fails with 401 when the auth middleware put no user in context.
func requestScope(c *gin.Context) (context.Context, string, int, bool) {
	ctx := c.Request.Context()
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, "", 0, false
	}
	schoolId, ok := utils.GetSchoolIdFromContext(ctx)
	if !ok || schoolId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, "", 0, false
	}
	return ctx, schoolId, userId, true
}

func requireRole(c *gin.Context, roles ...models.UserRole) bool {
	role, ok := utils.GetUserRoleFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	for _, r := range roles {
		if models.UserRole(role) == r {
			return true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	return false
}

// requirePlatformAdmin gates the cross-tenant admin surface.
func requirePlatformAdmin(c *gin.Context) bool {
	if isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context()); ok && isAdmin {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	return false
}

// respondError maps the model error taxonomy onto HTTP statuses:
// not-found -> 404, concurrent modification -> 409, anything else from the
// business layer -> 400 with the message verbatim.
func respondError(c *gin.Context, funcName string, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorConcurrentModification):
		logger := config.GetLogger()
		config.LogError(logger, "api", funcName, "concurrent modification", nil, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func paginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	return page, pageSize
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.Query(name))
	return v
}

func dateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &t, true
}
