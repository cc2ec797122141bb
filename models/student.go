package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
)

type Student struct {
	ID              int        `gorm:"primary_key" json:"id"`
	SchoolId        string     `gorm:"index;not null" json:"school_id" binding:"required"`
	AdmissionNumber string     `gorm:"size:50;not null" json:"admission_number" binding:"required"`
	Name            string     `gorm:"size:100;not null" json:"name" binding:"required"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	Gender          string     `gorm:"size:10" json:"gender"`
	ClassId         int        `gorm:"index;not null" json:"class_id" binding:"required"`
	SectionId       int        `gorm:"index;default:0" json:"section_id"`
	GuardianName    string     `gorm:"size:100" json:"guardian_name"`
	GuardianPhone   string     `gorm:"size:20" json:"guardian_phone"`
	GuardianEmail   string     `gorm:"size:100" json:"guardian_email"`
	Address         string     `gorm:"type:text" json:"address"`
	AdmissionDate   *time.Time `json:"admission_date"`
	IsActive        *bool      `gorm:"not null;default:true" json:"is_active"`
	Class           *Class     `json:"class"`
	Section         *Section   `json:"section"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStudent struct {
	AdmissionNumber string     `json:"admission_number" binding:"required"`
	Name            string     `json:"name" binding:"required"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	Gender          string     `json:"gender"`
	ClassId         int        `json:"class_id" binding:"required"`
	SectionId       int        `json:"section_id"`
	GuardianName    string     `json:"guardian_name"`
	GuardianPhone   string     `json:"guardian_phone" binding:"omitempty,phone"`
	GuardianEmail   string     `json:"guardian_email"`
	Address         string     `json:"address"`
	AdmissionDate   *time.Time `json:"admission_date"`
}

// Admission numbers are unique within a school.
// Don't delete a student with recorded payments; deactivate instead.

func (input *NewStudent) validate(ctx context.Context, schoolId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Student](ctx, schoolId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Student](ctx, schoolId, "admission_number", input.AdmissionNumber, id); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Class](ctx, schoolId, input.ClassId); err != nil {
		return fmt.Errorf("class not found: %w", utils.ErrorRecordNotFound)
	}
	if input.SectionId > 0 {
		count, err := utils.ResourceCountWhere[Section](ctx, schoolId, "id = ? AND class_id = ?", input.SectionId, input.ClassId)
		if err != nil {
			return err
		}
		if count <= 0 {
			return errors.New("section not found in class")
		}
	}
	return nil
}

func CreateStudent(ctx context.Context, schoolId string, input *NewStudent) (*Student, error) {
	if err := input.validate(ctx, schoolId, 0); err != nil {
		return nil, err
	}

	phone := input.GuardianPhone
	if phone != "" {
		var err error
		phone, err = utils.NormalizePhone(phone, "")
		if err != nil {
			return nil, errors.New("invalid guardian phone number")
		}
	}

	student := Student{
		SchoolId:        schoolId,
		AdmissionNumber: input.AdmissionNumber,
		Name:            input.Name,
		DateOfBirth:     input.DateOfBirth,
		Gender:          input.Gender,
		ClassId:         input.ClassId,
		SectionId:       input.SectionId,
		GuardianName:    input.GuardianName,
		GuardianPhone:   phone,
		GuardianEmail:   input.GuardianEmail,
		Address:         input.Address,
		AdmissionDate:   input.AdmissionDate,
		IsActive:        utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func UpdateStudent(ctx context.Context, schoolId string, id int, input *NewStudent) (*Student, error) {
	if err := input.validate(ctx, schoolId, id); err != nil {
		return nil, err
	}

	student, err := utils.FetchModel[Student](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}

	phone := input.GuardianPhone
	if phone != "" {
		phone, err = utils.NormalizePhone(phone, "")
		if err != nil {
			return nil, errors.New("invalid guardian phone number")
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(student).Updates(map[string]interface{}{
		"admission_number": input.AdmissionNumber,
		"name":             input.Name,
		"date_of_birth":    input.DateOfBirth,
		"gender":           input.Gender,
		"class_id":         input.ClassId,
		"section_id":       input.SectionId,
		"guardian_name":    input.GuardianName,
		"guardian_phone":   phone,
		"guardian_email":   input.GuardianEmail,
		"address":          input.Address,
		"admission_date":   input.AdmissionDate,
	}).Error; err != nil {
		return nil, err
	}
	return student, nil
}

func DeleteStudent(ctx context.Context, schoolId string, id int) (*Student, error) {
	student, err := utils.FetchModel[Student](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}

	paymentCount, err := utils.ResourceCountWhere[FeePayment](ctx, schoolId, "student_id = ?", id)
	if err != nil {
		return nil, err
	}
	if paymentCount > 0 {
		return nil, errors.New("student has recorded payments")
	}
	invoiceCount, err := utils.ResourceCountWhere[FeeInvoice](ctx, schoolId, "student_id = ?", id)
	if err != nil {
		return nil, err
	}
	if invoiceCount > 0 {
		return nil, errors.New("student has issued invoices")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(student).Error; err != nil {
		return nil, err
	}
	return student, nil
}

func ToggleActiveStudent(ctx context.Context, schoolId string, id int, isActive bool) (*Student, error) {
	student, err := utils.FetchModel[Student](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(student).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	return student, nil
}

func GetStudent(ctx context.Context, schoolId string, id int) (*Student, error) {
	return utils.FetchModel[Student](ctx, schoolId, id, "Class", "Section")
}

// PaginateStudents lists students filtered by class, section, name and
// admission number.
func PaginateStudents(ctx context.Context, schoolId string, classId int, sectionId int, name string, admissionNumber string, page int, pageSize int) ([]*Student, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("school_id = ?", schoolId)
	if classId > 0 {
		dbCtx = dbCtx.Where("class_id = ?", classId)
	}
	if sectionId > 0 {
		dbCtx = dbCtx.Where("section_id = ?", sectionId)
	}
	if name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+name+"%")
	}
	if admissionNumber != "" {
		dbCtx = dbCtx.Where("admission_number = ?", admissionNumber)
	}
	dbCtx = dbCtx.Preload("Class").Preload("Section").Order("name")
	return FetchPage[Student](dbCtx, page, pageSize)
}
