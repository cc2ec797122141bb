package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"github.com/gin-gonic/gin"
)

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.Login(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func currentUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, userId, ok := requestScope(c)
		if !ok {
			return
		}
		user, err := models.GetUser(ctx, schoolId, userId)
		if err != nil {
			respondError(c, "currentUserHandler", err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
