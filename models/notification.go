package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"gorm.io/gorm"
)

// NotificationRecord is the transactional outbox row. Business writes insert
// one in the same transaction as the domain row; delivery happens after commit
// via the Pub/Sub dispatcher or the direct processor.
type NotificationRecord struct {
	ID            int                       `gorm:"primary_key" json:"id"`
	SchoolId      string                    `gorm:"size:64;not null;index" json:"school_id"`
	EventDateTime time.Time                 `gorm:"index;not null" json:"event_date_time"`
	ReferenceId   int                       `json:"reference_id"`
	ReferenceType NotificationReferenceType `gorm:"size:50;not null" json:"reference_type"`
	Action        NotificationAction        `gorm:"size:20;not null" json:"action"`
	Payload       []byte                    `gorm:"type:blob" json:"payload"`
	IsProcessed   bool                      `gorm:"index;not null" json:"is_processed"`

	PublishStatus    OutboxPublishStatus `gorm:"size:20;index;not null;default:'PENDING'" json:"publish_status"`
	PublishedAt      *time.Time          `gorm:"index" json:"published_at"`
	PubSubMessageId  *string             `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int                 `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time          `gorm:"index" json:"next_attempt_at"`
	LastPublishError *string             `gorm:"type:text" json:"last_publish_error"`
	LockedAt         *time.Time          `gorm:"index" json:"locked_at"`
	LockedBy         *string             `gorm:"size:100" json:"locked_by"`
	LastProcessError *string             `gorm:"type:text" json:"last_process_error"`
	ProcessedAt      *time.Time          `gorm:"index" json:"processed_at"`
	CorrelationId    string              `gorm:"size:64;index" json:"correlation_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToNotificationMessage(record NotificationRecord) config.NotificationMessage {
	return config.NotificationMessage{
		ID:            record.ID,
		SchoolId:      record.SchoolId,
		EventDateTime: record.EventDateTime,
		ReferenceId:   record.ReferenceId,
		ReferenceType: string(record.ReferenceType),
		Action:        string(record.Action),
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}

// ProcessNotification turns one outbox message into in-app messages for the
// relevant users. Delivery is at-least-once; duplicate messages are tolerated.
func ProcessNotification(ctx context.Context, db *gorm.DB, msg config.NotificationMessage) error {
	switch NotificationReferenceType(msg.ReferenceType) {
	case NotificationReferenceTypeFeeInvoice:
		var invoice FeeInvoice
		if err := json.Unmarshal(msg.Payload, &invoice); err != nil {
			return err
		}
		return deliverToRoles(ctx, db, msg,
			[]UserRole{UserRoleAdmin, UserRoleAccountant},
			"Invoice issued",
			fmt.Sprintf("Invoice of %s issued to student #%d, due %s",
				invoice.Amount, invoice.StudentId, invoice.DueDate.Format("2006-01-02")))

	case NotificationReferenceTypeFeePayment:
		var payment FeePayment
		if err := json.Unmarshal(msg.Payload, &payment); err != nil {
			return err
		}
		return deliverToRoles(ctx, db, msg,
			[]UserRole{UserRoleAdmin, UserRoleAccountant},
			"Payment received",
			fmt.Sprintf("Receipt %s: %s received from student #%d via %s",
				payment.ReceiptNumber, payment.AmountPaid, payment.StudentId, payment.Method))

	case NotificationReferenceTypeAnnouncement:
		var announcement Announcement
		if err := json.Unmarshal(msg.Payload, &announcement); err != nil {
			return err
		}
		roles := []UserRole{UserRoleAdmin, UserRoleAccountant, UserRoleTeacher, UserRoleParent}
		switch announcement.Audience {
		case AnnouncementAudienceTeachers:
			roles = []UserRole{UserRoleTeacher}
		case AnnouncementAudienceParents:
			roles = []UserRole{UserRoleParent}
		}
		return deliverToRoles(ctx, db, msg, roles, announcement.Title, announcement.Body)

	default:
		return fmt.Errorf("unknown reference type %q", msg.ReferenceType)
	}
}

func deliverToRoles(ctx context.Context, db *gorm.DB, msg config.NotificationMessage, roles []UserRole, title string, body string) error {
	var recipients []*User
	if err := db.WithContext(ctx).
		Where("school_id = ? AND role IN ? AND is_active = ?", msg.SchoolId, roles, true).
		Find(&recipients).Error; err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	messages := make([]*Message, 0, len(recipients))
	for _, recipient := range recipients {
		messages = append(messages, &Message{
			SchoolId:      msg.SchoolId,
			RecipientId:   recipient.ID,
			Title:         title,
			Body:          body,
			ReferenceType: NotificationReferenceType(msg.ReferenceType),
			ReferenceId:   msg.ReferenceId,
		})
	}
	return db.WithContext(ctx).Create(&messages).Error
}
