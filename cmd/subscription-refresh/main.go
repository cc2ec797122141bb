// subscription-refresh re-derives every school's subscription status from its
// next billing date. Run it daily (e.g. Cloud Scheduler -> Cloud Run job); the
// API also refreshes lazily on read, so a missed run only delays the stored value.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/subscription-refresh
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	logger := config.GetLogger()

	ctx := context.Background()
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	ctx = utils.SetUserNameInContext(ctx, "SubscriptionRefresh")

	changed, err := models.RefreshAllSubscriptionStatuses(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field": "subscription-refresh",
		}).Error("refresh failed: " + err.Error())
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"field":   "subscription-refresh",
		"changed": changed,
	}).Info("subscription statuses refreshed")
}
