package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/shopspring/decimal"
)

type FeeStructure struct {
	ID           int             `gorm:"primary_key" json:"id"`
	SchoolId     string          `gorm:"index;not null" json:"school_id" binding:"required"`
	Name         string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description  string          `gorm:"type:text" json:"description"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount" binding:"required"`
	Frequency    FeeFrequency    `gorm:"type:enum('ONE_TIME','MONTHLY','QUARTERLY','ANNUAL');not null;default:'MONTHLY'" json:"frequency"`
	ClassId      int             `gorm:"index;default:0" json:"class_id"`
	AcademicYear string          `gorm:"size:20" json:"academic_year"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFeeStructure struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Frequency    FeeFrequency    `json:"frequency" binding:"required"`
	ClassId      int             `json:"class_id"`
	AcademicYear string          `json:"academic_year"`
}

func (input *NewFeeStructure) validate(ctx context.Context, schoolId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[FeeStructure](ctx, schoolId, id); err != nil {
			return err
		}
	}
	if !input.Frequency.Valid() {
		return errors.New("invalid frequency")
	}
	if input.Amount.Cmp(decimal.Zero) <= 0 {
		return errors.New("amount must be positive")
	}
	if err := utils.ValidateUnique[FeeStructure](ctx, schoolId, "name", input.Name, id); err != nil {
		return err
	}
	if input.ClassId > 0 {
		if err := utils.ValidateResourceId[Class](ctx, schoolId, input.ClassId); err != nil {
			return fmt.Errorf("class not found: %w", utils.ErrorRecordNotFound)
		}
	}
	return nil
}

func CreateFeeStructure(ctx context.Context, schoolId string, input *NewFeeStructure) (*FeeStructure, error) {
	if err := input.validate(ctx, schoolId, 0); err != nil {
		return nil, err
	}

	feeStructure := FeeStructure{
		SchoolId:     schoolId,
		Name:         input.Name,
		Description:  input.Description,
		Amount:       input.Amount,
		Frequency:    input.Frequency,
		ClassId:      input.ClassId,
		AcademicYear: input.AcademicYear,
		IsActive:     utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&feeStructure).Error; err != nil {
		return nil, err
	}
	return &feeStructure, nil
}

// UpdateFeeStructure changes the template only; invoices already issued from it
// keep the amount they were issued with.
func UpdateFeeStructure(ctx context.Context, schoolId string, id int, input *NewFeeStructure) (*FeeStructure, error) {
	if err := input.validate(ctx, schoolId, id); err != nil {
		return nil, err
	}

	feeStructure, err := utils.FetchModel[FeeStructure](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(feeStructure).Updates(map[string]interface{}{
		"name":          input.Name,
		"description":   input.Description,
		"amount":        input.Amount,
		"frequency":     input.Frequency,
		"class_id":      input.ClassId,
		"academic_year": input.AcademicYear,
	}).Error; err != nil {
		return nil, err
	}
	return feeStructure, nil
}

func DeleteFeeStructure(ctx context.Context, schoolId string, id int) (*FeeStructure, error) {
	feeStructure, err := utils.FetchModel[FeeStructure](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}

	invoiceCount, err := utils.ResourceCountWhere[FeeInvoice](ctx, schoolId, "fee_structure_id = ?", id)
	if err != nil {
		return nil, err
	}
	if invoiceCount > 0 {
		return nil, fmt.Errorf("fee structure is referenced by %d invoices", invoiceCount)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(feeStructure).Error; err != nil {
		return nil, err
	}
	return feeStructure, nil
}

func ToggleActiveFeeStructure(ctx context.Context, schoolId string, id int, isActive bool) (*FeeStructure, error) {
	feeStructure, err := utils.FetchModel[FeeStructure](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(feeStructure).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	return feeStructure, nil
}

func GetFeeStructure(ctx context.Context, schoolId string, id int) (*FeeStructure, error) {
	return utils.FetchModel[FeeStructure](ctx, schoolId, id)
}

func ListFeeStructures(ctx context.Context, schoolId string, classId int, activeOnly bool) ([]*FeeStructure, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("school_id = ?", schoolId)
	if classId > 0 {
		dbCtx = dbCtx.Where("class_id = ? OR class_id = 0", classId)
	}
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	var feeStructures []*FeeStructure
	if err := dbCtx.Order("name").Find(&feeStructures).Error; err != nil {
		return nil, err
	}
	return feeStructures, nil
}
