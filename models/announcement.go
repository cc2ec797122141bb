package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
)

type Announcement struct {
	ID          int                  `gorm:"primary_key" json:"id"`
	SchoolId    string               `gorm:"index;not null" json:"school_id" binding:"required"`
	Title       string               `gorm:"size:255;not null" json:"title" binding:"required"`
	Body        string               `gorm:"type:text;not null" json:"body" binding:"required"`
	Audience    AnnouncementAudience `gorm:"type:enum('ALL','TEACHERS','PARENTS');not null;default:'ALL'" json:"audience"`
	PublishedBy int                  `gorm:"not null" json:"published_by"`
	PublishedAt time.Time            `gorm:"not null" json:"published_at"`
	CreatedAt   time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAnnouncement struct {
	Title    string               `json:"title" binding:"required"`
	Body     string               `json:"body" binding:"required"`
	Audience AnnouncementAudience `json:"audience" binding:"required"`
}

// PublishAnnouncement stores the announcement and queues fan-out delivery to
// the audience's in-app messages via the notification outbox.
func PublishAnnouncement(ctx context.Context, schoolId string, publishedBy int, input *NewAnnouncement) (*Announcement, error) {
	if !input.Audience.Valid() {
		return nil, errors.New("invalid audience")
	}

	now := time.Now()
	announcement := Announcement{
		SchoolId:    schoolId,
		Title:       input.Title,
		Body:        input.Body,
		Audience:    input.Audience,
		PublishedBy: publishedBy,
		PublishedAt: now,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&announcement).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishNotification(ctx, tx, schoolId, now, announcement.ID,
		NotificationReferenceTypeAnnouncement, &announcement, NotificationActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &announcement, nil
}

func DeleteAnnouncement(ctx context.Context, schoolId string, id int) (*Announcement, error) {
	announcement, err := utils.FetchModel[Announcement](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(announcement).Error; err != nil {
		return nil, err
	}
	return announcement, nil
}

func PaginateAnnouncements(ctx context.Context, schoolId string, audience AnnouncementAudience, page int, pageSize int) ([]*Announcement, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Announcement{}).Where("school_id = ?", schoolId)
	if audience != "" {
		dbCtx = dbCtx.Where("audience = ? OR audience = ?", audience, AnnouncementAudienceAll)
	}
	dbCtx = dbCtx.Order("published_at DESC, id DESC")
	return FetchPage[Announcement](dbCtx, page, pageSize)
}
