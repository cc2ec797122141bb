package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/middlewares"
	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("schoolfees-backend")

// RateLimiter is a fixed-window per-IP limiter backed by Redis.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// PubSubPushEnvelope is the Pub/Sub push delivery wrapper.
type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func getRedisClient(redisAddress string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
}

func notificationPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope PubSubPushEnvelope
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "server.go", "notificationPushHandler", "io.ReadAll", nil, err)
			// Malformed request body: ack/drop to avoid infinite retries.
			c.Status(http.StatusNoContent)
			return
		}

		// byte slice unmarshalling handles base64 decoding.
		if err := json.Unmarshal(body, &envelope); err != nil {
			config.LogError(logger, "server.go", "notificationPushHandler", "Unmarshal body", body, err)
			c.Status(http.StatusNoContent)
			return
		}

		var m config.NotificationMessage
		if err := json.Unmarshal(envelope.Message.Data, &m); err != nil {
			config.LogError(logger, "server.go", "notificationPushHandler", "Unmarshal pubsub message", envelope.Message.Data, err)
			c.Status(http.StatusNoContent)
			return
		}

		// Basic validation to avoid retry loops on poisoned messages.
		if m.SchoolId == "" || m.ReferenceType == "" {
			config.LogError(logger, "server.go", "notificationPushHandler", "Invalid pubsub message (missing required fields)", m, fmt.Errorf("school_id/reference_type required"))
			c.Status(http.StatusNoContent)
			return
		}

		correlationID := m.CorrelationId
		if correlationID == "" {
			correlationID = envelope.Message.ID
		}

		// Best-effort lock per school; delivery is idempotent-enough without it.
		var lock *redislock.Lock
		if redisLock := config.GetRedisLock(); redisLock != nil {
			lock, err = redisLock.Obtain(c.Request.Context(), fmt.Sprintf("lock:%s", m.SchoolId), 30*time.Second, nil)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"field":      "notificationPushHandler",
					"school_id":  m.SchoolId,
					"message_id": envelope.Message.ID,
				}).Warn("could not obtain redis lock; proceeding without it: " + err.Error())
				lock = nil
			}
		}
		defer func() {
			if lock != nil {
				_ = lock.Release(c.Request.Context())
			}
		}()

		ctx := utils.SetSchoolIdInContext(c.Request.Context(), m.SchoolId)
		ctx = utils.SetUserNameInContext(ctx, "System")
		ctx = utils.SetCorrelationIdInContext(ctx, correlationID)

		db := config.GetDB()
		if err := models.ProcessNotification(ctx, db, m); err != nil {
			logger.WithFields(logrus.Fields{
				"field":          "notificationPushHandler",
				"school_id":      m.SchoolId,
				"reference_type": m.ReferenceType,
				"reference_id":   m.ReferenceId,
				"message_id":     envelope.Message.ID,
				"correlation_id": correlationID,
			}).Error("pubsub processing failed: " + err.Error())
			// Non-2xx tells Pub/Sub to retry (and potentially route to DLQ).
			c.Status(http.StatusInternalServerError)
			return
		}

		if m.ID > 0 {
			processedAt := time.Now().UTC()
			_ = db.WithContext(ctx).Model(&models.NotificationRecord{}).
				Where("id = ?", m.ID).
				Updates(map[string]interface{}{
					"is_processed": true,
					"processed_at": &processedAt,
				}).Error
		}

		c.Status(http.StatusNoContent)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func registerCustomValidations(logger *logrus.Logger) {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		logger.Warn("could not access gin binding validator engine")
		return
	}
	// `binding:"phone"` accepts any number NormalizePhone can render as E.164.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		_, err := utils.NormalizePhone(raw, "")
		return err == nil
	})
}

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/login", loginHandler())
	r.GET("/auth/me", currentUserHandler())

	// Platform admin (cross-tenant).
	admin := r.Group("/admin")
	{
		admin.POST("/schools", createSchoolHandler())
		admin.GET("/schools", listSchoolsHandler())
		admin.PUT("/schools/:id/active", toggleSchoolActiveHandler())
		admin.GET("/revenue", subscriptionRevenueHandler())
		admin.POST("/subscriptions/refresh", refreshSubscriptionsHandler())
	}

	// Tenant school profile.
	r.GET("/school", getCurrentSchoolHandler())
	r.PUT("/school", updateCurrentSchoolHandler())
	r.POST("/school/subscription/refresh", refreshCurrentSubscriptionHandler())

	// Directory.
	r.POST("/users", createUserHandler())
	r.GET("/users", listUsersHandler())
	r.PUT("/users/:id", updateUserHandler())
	r.PUT("/users/:id/active", toggleUserActiveHandler())

	r.POST("/classes", createClassHandler())
	r.GET("/classes", listClassesHandler())
	r.PUT("/classes/:id", updateClassHandler())
	r.DELETE("/classes/:id", deleteClassHandler())

	r.POST("/sections", createSectionHandler())
	r.GET("/sections", listSectionsHandler())
	r.PUT("/sections/:id", updateSectionHandler())
	r.DELETE("/sections/:id", deleteSectionHandler())

	r.POST("/subjects", createSubjectHandler())
	r.GET("/subjects", listSubjectsHandler())
	r.PUT("/subjects/:id", updateSubjectHandler())
	r.DELETE("/subjects/:id", deleteSubjectHandler())

	r.POST("/students", createStudentHandler())
	r.GET("/students", listStudentsHandler())
	r.GET("/students/:id", getStudentHandler())
	r.PUT("/students/:id", updateStudentHandler())
	r.DELETE("/students/:id", deleteStudentHandler())
	r.GET("/students/:id/fee-summary", studentFeeSummaryHandler())
	r.GET("/students/:id/attendance-summary", studentAttendanceSummaryHandler())

	// Fees.
	r.POST("/fee-structures", createFeeStructureHandler())
	r.GET("/fee-structures", listFeeStructuresHandler())
	r.PUT("/fee-structures/:id", updateFeeStructureHandler())
	r.DELETE("/fee-structures/:id", deleteFeeStructureHandler())

	r.POST("/invoices", createInvoiceHandler())
	r.GET("/invoices", listInvoicesHandler())
	r.GET("/invoices/:id", getInvoiceHandler())
	r.PUT("/invoices/:id", updateInvoiceHandler())
	r.DELETE("/invoices/:id", deleteInvoiceHandler())

	r.POST("/payments", recordPaymentHandler())
	r.GET("/payments", listPaymentsHandler())
	r.GET("/payments/:id/receipt", getReceiptHandler())

	r.POST("/handovers", submitHandoverHandler())
	r.GET("/handovers", listHandoversHandler())
	r.GET("/handovers/summary", handoverSummaryHandler())

	// Reports.
	r.GET("/reports/payments-register", paymentsRegisterHandler())
	r.GET("/reports/payments-register/export", paymentsRegisterExcelHandler())
	r.GET("/reports/fee-collection-summary", feeCollectionSummaryHandler())

	// Engagement.
	r.POST("/attendance", markAttendanceHandler())
	r.GET("/attendance", listAttendanceHandler())

	r.POST("/leave-requests", createLeaveRequestHandler())
	r.GET("/leave-requests", listLeaveRequestsHandler())
	r.PUT("/leave-requests/:id/review", reviewLeaveRequestHandler())

	r.POST("/announcements", publishAnnouncementHandler())
	r.GET("/announcements", listAnnouncementsHandler())
	r.DELETE("/announcements/:id", deleteAnnouncementHandler())

	r.GET("/messages", listMessagesHandler())
	r.PUT("/messages/:id/read", markMessageReadHandler())

	r.NoRoute(customNotFoundHandler)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	registerCustomValidations(logger)

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require explicit allowlist via CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	// Pub/Sub push carries Google's OIDC token, not an app JWT; keep it outside
	// the auth middleware.
	r.POST("/pubsub", notificationPushHandler())

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Background workers: outbox dispatcher publishes AFTER commit; the direct
	// processor is the no-Pub/Sub delivery path.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	if os.Getenv("PUBSUB_TOPIC") != "" {
		go NewNotifierDispatcher(db, logger).Run(workerCtx)
	}
	if shouldRunDirectNotifierProcessor() {
		go NewNotifierDirectProcessor(db, logger).Run(workerCtx)
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work mid-drain.
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if exists == 0 {
		if err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err(); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
