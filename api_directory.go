package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"github.com/gin-gonic/gin"
)

// Staff accounts.

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin) {
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.CreateUser(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "createUserHandler", err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func updateUserHandler() gin.HandlerFunc {
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
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.UpdateUser(ctx, schoolId, id, &input)
		if err != nil {
			respondError(c, "updateUserHandler", err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		users, err := models.ListUsers(ctx, schoolId, models.UserRole(c.Query("role")))
		if err != nil {
			respondError(c, "listUsersHandler", err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func toggleUserActiveHandler() gin.HandlerFunc {
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
		isActive, err := strconv.ParseBool(c.DefaultQuery("active", "true"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active"})
			return
		}
		user, err := models.ToggleActiveUser(ctx, schoolId, id, isActive)
		if err != nil {
			respondError(c, "toggleUserActiveHandler", err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// Classes and sections.

func createClassHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin) {
			return
		}
		var input models.NewClass
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		class, err := models.CreateClass(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "createClassHandler", err)
			return
		}
		c.JSON(http.StatusCreated, class)
	}
}

func updateClassHandler() gin.HandlerFunc {
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
		var input models.NewClass
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		class, err := models.UpdateClass(ctx, schoolId, id, &input)
		if err != nil {
			respondError(c, "updateClassHandler", err)
			return
		}
		c.JSON(http.StatusOK, class)
	}
}

func deleteClassHandler() gin.HandlerFunc {
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
		class, err := models.DeleteClass(ctx, schoolId, id)
		if err != nil {
			respondError(c, "deleteClassHandler", err)
			return
		}
		c.JSON(http.StatusOK, class)
	}
}

func listClassesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		classes, err := models.ListClasses(ctx, schoolId)
		if err != nil {
			respondError(c, "listClassesHandler", err)
			return
		}
		c.JSON(http.StatusOK, classes)
	}
}

func createSectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin) {
			return
		}
		var input models.NewSection
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		section, err := models.CreateSection(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "createSectionHandler", err)
			return
		}
		c.JSON(http.StatusCreated, section)
	}
}

func updateSectionHandler() gin.HandlerFunc {
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
		var input models.NewSection
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		section, err := models.UpdateSection(ctx, schoolId, id, &input)
		if err != nil {
			respondError(c, "updateSectionHandler", err)
			return
		}
		c.JSON(http.StatusOK, section)
	}
}

func deleteSectionHandler() gin.HandlerFunc {
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
		section, err := models.DeleteSection(ctx, schoolId, id)
		if err != nil {
			respondError(c, "deleteSectionHandler", err)
			return
		}
		c.JSON(http.StatusOK, section)
	}
}

func listSectionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		sections, err := models.ListSections(ctx, schoolId, intQuery(c, "classId"))
		if err != nil {
			respondError(c, "listSectionsHandler", err)
			return
		}
		c.JSON(http.StatusOK, sections)
	}
}

// Subjects.

func createSubjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin) {
			return
		}
		var input models.NewSubject
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		subject, err := models.CreateSubject(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "createSubjectHandler", err)
			return
		}
		c.JSON(http.StatusCreated, subject)
	}
}

func updateSubjectHandler() gin.HandlerFunc {
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
		var input models.NewSubject
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		subject, err := models.UpdateSubject(ctx, schoolId, id, &input)
		if err != nil {
			respondError(c, "updateSubjectHandler", err)
			return
		}
		c.JSON(http.StatusOK, subject)
	}
}

func deleteSubjectHandler() gin.HandlerFunc {
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
		subject, err := models.DeleteSubject(ctx, schoolId, id)
		if err != nil {
			respondError(c, "deleteSubjectHandler", err)
			return
		}
		c.JSON(http.StatusOK, subject)
	}
}

func listSubjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		subjects, err := models.ListSubjects(ctx, schoolId, intQuery(c, "classId"))
		if err != nil {
			respondError(c, "listSubjectsHandler", err)
			return
		}
		c.JSON(http.StatusOK, subjects)
	}
}

// Students.

func createStudentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		if !requireRole(c, models.UserRoleAdmin, models.UserRoleAccountant) {
			return
		}
		var input models.NewStudent
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		student, err := models.CreateStudent(ctx, schoolId, &input)
		if err != nil {
			respondError(c, "createStudentHandler", err)
			return
		}
		c.JSON(http.StatusCreated, student)
	}
}

func updateStudentHandler() gin.HandlerFunc {
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
		var input models.NewStudent
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		student, err := models.UpdateStudent(ctx, schoolId, id, &input)
		if err != nil {
			respondError(c, "updateStudentHandler", err)
			return
		}
		c.JSON(http.StatusOK, student)
	}
}

func deleteStudentHandler() gin.HandlerFunc {
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
		student, err := models.DeleteStudent(ctx, schoolId, id)
		if err != nil {
			respondError(c, "deleteStudentHandler", err)
			return
		}
		c.JSON(http.StatusOK, student)
	}
}

func getStudentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		student, err := models.GetStudent(ctx, schoolId, id)
		if err != nil {
			respondError(c, "getStudentHandler", err)
			return
		}
		c.JSON(http.StatusOK, student)
	}
}

func listStudentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, schoolId, _, ok := requestScope(c)
		if !ok {
			return
		}
		page, pageSize := paginationParams(c)
		students, pageInfo, err := models.PaginateStudents(ctx, schoolId,
			intQuery(c, "classId"), intQuery(c, "sectionId"),
			c.Query("name"), c.Query("admissionNumber"), page, pageSize)
		if err != nil {
			respondError(c, "listStudentsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": students, "pageInfo": pageInfo})
	}
}
