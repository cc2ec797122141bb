package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublishNotification implements a transactional outbox: it writes the
// notification record inside the caller's DB transaction but does NOT publish
// to Pub/Sub. Publishing is performed asynchronously after commit, either by
// the Pub/Sub dispatcher or by the direct processor.
func PublishNotification(ctx context.Context, db *gorm.DB, schoolId string, eventDateTime time.Time, refId int, refType NotificationReferenceType, obj interface{}, msgAction NotificationAction) error {

	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	record := NotificationRecord{
		SchoolId:      schoolId,
		EventDateTime: eventDateTime,
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        msgAction,
		Payload:       payload,
		IsProcessed:   false,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return db.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
