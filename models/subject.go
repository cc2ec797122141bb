package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
)

type Subject struct {
	ID        int       `gorm:"primary_key" json:"id"`
	SchoolId  string    `gorm:"index;not null" json:"school_id" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Code      string    `gorm:"size:20" json:"code"`
	ClassId   int       `gorm:"index;default:0" json:"class_id"`
	TeacherId int       `gorm:"default:0" json:"teacher_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSubject struct {
	Name      string `json:"name" binding:"required"`
	Code      string `json:"code"`
	ClassId   int    `json:"class_id"`
	TeacherId int    `json:"teacher_id"`
}

func (input *NewSubject) validate(ctx context.Context, schoolId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Subject](ctx, schoolId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Subject](ctx, schoolId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Code != "" {
		if err := utils.ValidateUnique[Subject](ctx, schoolId, "code", input.Code, id); err != nil {
			return err
		}
	}
	if input.ClassId > 0 {
		if err := utils.ValidateResourceId[Class](ctx, schoolId, input.ClassId); err != nil {
			return fmt.Errorf("class not found: %w", utils.ErrorRecordNotFound)
		}
	}
	if input.TeacherId > 0 {
		count, err := utils.ResourceCountWhere[User](ctx, schoolId, "id = ? AND role = ?", input.TeacherId, UserRoleTeacher)
		if err != nil {
			return err
		}
		if count <= 0 {
			return fmt.Errorf("teacher not found: %w", utils.ErrorRecordNotFound)
		}
	}
	return nil
}

func CreateSubject(ctx context.Context, schoolId string, input *NewSubject) (*Subject, error) {
	if err := input.validate(ctx, schoolId, 0); err != nil {
		return nil, err
	}

	subject := Subject{
		SchoolId:  schoolId,
		Name:      input.Name,
		Code:      input.Code,
		ClassId:   input.ClassId,
		TeacherId: input.TeacherId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&subject).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func UpdateSubject(ctx context.Context, schoolId string, id int, input *NewSubject) (*Subject, error) {
	if err := input.validate(ctx, schoolId, id); err != nil {
		return nil, err
	}

	subject, err := utils.FetchModel[Subject](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(subject).Updates(map[string]interface{}{
		"name":       input.Name,
		"code":       input.Code,
		"class_id":   input.ClassId,
		"teacher_id": input.TeacherId,
	}).Error; err != nil {
		return nil, err
	}
	return subject, nil
}

func DeleteSubject(ctx context.Context, schoolId string, id int) (*Subject, error) {
	subject, err := utils.FetchModel[Subject](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(subject).Error; err != nil {
		return nil, err
	}
	return subject, nil
}

func ListSubjects(ctx context.Context, schoolId string, classId int) ([]*Subject, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("school_id = ?", schoolId)
	if classId > 0 {
		dbCtx = dbCtx.Where("class_id = ?", classId)
	}
	var subjects []*Subject
	if err := dbCtx.Order("name").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}
