package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
)

type Class struct {
	ID           int        `gorm:"primary_key" json:"id"`
	SchoolId     string     `gorm:"index;not null" json:"school_id" binding:"required"`
	Name         string     `gorm:"size:100;not null" json:"name" binding:"required"`
	AcademicYear string     `gorm:"size:20" json:"academic_year"`
	Sections     []*Section `json:"sections"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type Section struct {
	ID        int       `gorm:"primary_key" json:"id"`
	SchoolId  string    `gorm:"index;not null" json:"school_id" binding:"required"`
	ClassId   int       `gorm:"index;not null" json:"class_id" binding:"required"`
	Name      string    `gorm:"size:50;not null" json:"name" binding:"required"`
	TeacherId int       `gorm:"default:0" json:"teacher_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClass struct {
	Name         string `json:"name" binding:"required"`
	AcademicYear string `json:"academic_year"`
}

type NewSection struct {
	ClassId   int    `json:"class_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	TeacherId int    `json:"teacher_id"`
}

// Don't delete a class while students or sections reference it

func (input *NewClass) validate(ctx context.Context, schoolId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Class](ctx, schoolId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Class](ctx, schoolId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateClass(ctx context.Context, schoolId string, input *NewClass) (*Class, error) {
	if err := input.validate(ctx, schoolId, 0); err != nil {
		return nil, err
	}

	class := Class{
		SchoolId:     schoolId,
		Name:         input.Name,
		AcademicYear: input.AcademicYear,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&class).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

func UpdateClass(ctx context.Context, schoolId string, id int, input *NewClass) (*Class, error) {
	if err := input.validate(ctx, schoolId, id); err != nil {
		return nil, err
	}

	class, err := utils.FetchModel[Class](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(class).Updates(map[string]interface{}{
		"name":          input.Name,
		"academic_year": input.AcademicYear,
	}).Error; err != nil {
		return nil, err
	}
	return class, nil
}

func DeleteClass(ctx context.Context, schoolId string, id int) (*Class, error) {
	class, err := utils.FetchModel[Class](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}

	studentCount, err := utils.ResourceCountWhere[Student](ctx, schoolId, "class_id = ?", id)
	if err != nil {
		return nil, err
	}
	if studentCount > 0 {
		return nil, errors.New("class has enrolled students")
	}
	sectionCount, err := utils.ResourceCountWhere[Section](ctx, schoolId, "class_id = ?", id)
	if err != nil {
		return nil, err
	}
	if sectionCount > 0 {
		return nil, errors.New("class has sections")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(class).Error; err != nil {
		return nil, err
	}
	return class, nil
}

func GetClass(ctx context.Context, schoolId string, id int) (*Class, error) {
	return utils.FetchModel[Class](ctx, schoolId, id, "Sections")
}

func ListClasses(ctx context.Context, schoolId string) ([]*Class, error) {
	db := config.GetDB()
	var classes []*Class
	if err := db.WithContext(ctx).Where("school_id = ?", schoolId).
		Preload("Sections").Order("name").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (input *NewSection) validate(ctx context.Context, schoolId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Section](ctx, schoolId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Class](ctx, schoolId, input.ClassId); err != nil {
		return fmt.Errorf("class not found: %w", utils.ErrorRecordNotFound)
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
	// section name unique within the class
	var count int64
	var err error
	if id > 0 {
		count, err = utils.ResourceCountWhere[Section](ctx, schoolId, "class_id = ? AND name = ? AND NOT id = ?", input.ClassId, input.Name, id)
	} else {
		count, err = utils.ResourceCountWhere[Section](ctx, schoolId, "class_id = ? AND name = ?", input.ClassId, input.Name)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate name")
	}
	return nil
}

func CreateSection(ctx context.Context, schoolId string, input *NewSection) (*Section, error) {
	if err := input.validate(ctx, schoolId, 0); err != nil {
		return nil, err
	}

	section := Section{
		SchoolId:  schoolId,
		ClassId:   input.ClassId,
		Name:      input.Name,
		TeacherId: input.TeacherId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&section).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func UpdateSection(ctx context.Context, schoolId string, id int, input *NewSection) (*Section, error) {
	if err := input.validate(ctx, schoolId, id); err != nil {
		return nil, err
	}

	section, err := utils.FetchModel[Section](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(section).Updates(map[string]interface{}{
		"class_id":   input.ClassId,
		"name":       input.Name,
		"teacher_id": input.TeacherId,
	}).Error; err != nil {
		return nil, err
	}
	return section, nil
}

func DeleteSection(ctx context.Context, schoolId string, id int) (*Section, error) {
	section, err := utils.FetchModel[Section](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}

	studentCount, err := utils.ResourceCountWhere[Student](ctx, schoolId, "section_id = ?", id)
	if err != nil {
		return nil, err
	}
	if studentCount > 0 {
		return nil, errors.New("section has enrolled students")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

func ListSections(ctx context.Context, schoolId string, classId int) ([]*Section, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("school_id = ?", schoolId)
	if classId > 0 {
		dbCtx = dbCtx.Where("class_id = ?", classId)
	}
	var sections []*Section
	if err := dbCtx.Order("name").Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}
