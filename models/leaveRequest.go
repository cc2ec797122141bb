package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
)

type LeaveRequest struct {
	ID         int         `gorm:"primary_key" json:"id"`
	SchoolId   string      `gorm:"index;not null" json:"school_id" binding:"required"`
	StudentId  int         `gorm:"index;not null" json:"student_id" binding:"required"`
	FromDate   time.Time   `gorm:"type:date;not null" json:"from_date" binding:"required"`
	ToDate     time.Time   `gorm:"type:date;not null" json:"to_date" binding:"required"`
	Reason     string      `gorm:"type:text;not null" json:"reason" binding:"required"`
	Status     LeaveStatus `gorm:"type:enum('PENDING','APPROVED','REJECTED');not null;default:'PENDING'" json:"status"`
	ReviewedBy int         `gorm:"default:0" json:"reviewed_by"`
	ReviewedAt *time.Time  `json:"reviewed_at"`
	ReviewNote string      `gorm:"size:255" json:"review_note"`
	Student    *Student    `json:"student"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLeaveRequest struct {
	StudentId int       `json:"student_id" binding:"required"`
	FromDate  time.Time `json:"from_date" binding:"required"`
	ToDate    time.Time `json:"to_date" binding:"required"`
	Reason    string    `json:"reason" binding:"required"`
}

func CreateLeaveRequest(ctx context.Context, schoolId string, input *NewLeaveRequest) (*LeaveRequest, error) {
	if err := utils.ValidateResourceId[Student](ctx, schoolId, input.StudentId); err != nil {
		return nil, fmt.Errorf("student not found: %w", utils.ErrorRecordNotFound)
	}
	if input.ToDate.Before(input.FromDate) {
		return nil, errors.New("to_date is before from_date")
	}

	request := LeaveRequest{
		SchoolId:  schoolId,
		StudentId: input.StudentId,
		FromDate:  input.FromDate,
		ToDate:    input.ToDate,
		Reason:    input.Reason,
		Status:    LeaveStatusPending,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ReviewLeaveRequest approves or rejects a PENDING request. Reviewed requests
// are final.
func ReviewLeaveRequest(ctx context.Context, schoolId string, id int, reviewedBy int, approve bool, note string) (*LeaveRequest, error) {
	request, err := utils.FetchModel[LeaveRequest](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	if request.Status != LeaveStatusPending {
		return nil, errors.New("leave request already reviewed")
	}

	status := LeaveStatusRejected
	if approve {
		status = LeaveStatusApproved
	}
	now := time.Now()

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(request).Updates(map[string]interface{}{
		"status":      status,
		"reviewed_by": reviewedBy,
		"reviewed_at": now,
		"review_note": note,
	}).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func PaginateLeaveRequests(ctx context.Context, schoolId string, studentId int, status LeaveStatus, page int, pageSize int) ([]*LeaveRequest, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&LeaveRequest{}).Where("school_id = ?", schoolId)
	if studentId > 0 {
		dbCtx = dbCtx.Where("student_id = ?", studentId)
	}
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	dbCtx = dbCtx.Preload("Student").Order("created_at DESC, id DESC")
	return FetchPage[LeaveRequest](dbCtx, page, pageSize)
}
