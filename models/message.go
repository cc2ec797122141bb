package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
)

// Message is an in-app notification delivered to a user, produced by the
// notification processor from outbox records.
type Message struct {
	ID            int                       `gorm:"primary_key" json:"id"`
	SchoolId      string                    `gorm:"index;not null" json:"school_id" binding:"required"`
	RecipientId   int                       `gorm:"index;not null" json:"recipient_id"`
	Title         string                    `gorm:"size:255;not null" json:"title"`
	Body          string                    `gorm:"type:text" json:"body"`
	ReferenceType NotificationReferenceType `gorm:"size:50" json:"reference_type"`
	ReferenceId   int                       `gorm:"default:0" json:"reference_id"`
	IsRead        *bool                     `gorm:"not null;default:false" json:"is_read"`
	CreatedAt     time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

func PaginateMessages(ctx context.Context, schoolId string, recipientId int, unreadOnly bool, page int, pageSize int) ([]*Message, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Message{}).
		Where("school_id = ? AND recipient_id = ?", schoolId, recipientId)
	if unreadOnly {
		dbCtx = dbCtx.Where("is_read = ?", false)
	}
	dbCtx = dbCtx.Order("created_at DESC, id DESC")
	return FetchPage[Message](dbCtx, page, pageSize)
}

func MarkMessageRead(ctx context.Context, schoolId string, recipientId int, id int) (*Message, error) {
	db := config.GetDB()
	var message Message
	if err := db.WithContext(ctx).
		Where("school_id = ? AND recipient_id = ?", schoolId, recipientId).
		First(&message, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := db.WithContext(ctx).Model(&message).Update("is_read", true).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func CountUnreadMessages(ctx context.Context, schoolId string, recipientId int) (int64, error) {
	return utils.ResourceCountWhere[Message](ctx, schoolId, "recipient_id = ? AND is_read = ?", recipientId, false)
}
