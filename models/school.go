package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// School is the tenant root. Every other table carries a school_id referencing
// this row; the tenant guard plugin scopes queries to it automatically.
type School struct {
	ID       uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name     string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email    string    `gorm:"size:255;not null" json:"email" binding:"required,email"`
	Phone    string    `gorm:"size:255;default:null" json:"phone"`
	Address  string    `gorm:"type:text;default:null" json:"address"`
	City     string    `gorm:"size:255;default:null" json:"city"`
	Timezone string    `gorm:"size:64;not null;default:'Asia/Yangon'" json:"timezone"`
	IsActive *bool     `gorm:"default:true" json:"is_active"`

	SubscriptionAmount    decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"subscription_amount"`
	SubscriptionStartDate *time.Time         `json:"subscription_start_date"`
	NextBillingDate       *time.Time         `json:"next_billing_date"`
	SubscriptionStatus    SubscriptionStatus `gorm:"type:enum('ACTIVE','DUE_SOON','EXPIRED','PENDING');not null;default:'PENDING'" json:"subscription_status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSchool struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Timezone string `json:"timezone"`

	SubscriptionAmount    decimal.Decimal `json:"subscription_amount"`
	SubscriptionStartDate *time.Time      `json:"subscription_start_date"`
	NextBillingDate       *time.Time      `json:"next_billing_date"`

	OwnerName     string `json:"owner_name" binding:"required"`
	OwnerEmail    string `json:"owner_email" binding:"required,email"`
	OwnerPassword string `json:"owner_password" binding:"required,min=8"`
}

// CreateSchool provisions a tenant. Platform-admin only.
// Bootstraps an Owner (admin) user and a default class + section so the school
// is usable immediately after signup.
func CreateSchool(ctx context.Context, input *NewSchool) (*School, error) {
	db := config.GetDB()

	timezone := "Asia/Yangon"
	if input.Timezone != "" {
		timezone = input.Timezone
	}

	school := School{
		ID:                    uuid.New(),
		Name:                  input.Name,
		Email:                 input.Email,
		Phone:                 input.Phone,
		Address:               input.Address,
		City:                  input.City,
		Timezone:              timezone,
		IsActive:              utils.NewTrue(),
		SubscriptionAmount:    input.SubscriptionAmount,
		SubscriptionStartDate: input.SubscriptionStartDate,
		NextBillingDate:       input.NextBillingDate,
		SubscriptionStatus:    DeriveSubscriptionStatus(input.NextBillingDate, time.Now()),
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&school).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	schoolId := school.ID.String()
	ctx = utils.SetSchoolIdInContext(ctx, schoolId)

	hashed, err := utils.HashPassword(input.OwnerPassword)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	owner := User{
		SchoolId: schoolId,
		Name:     input.OwnerName,
		Email:    input.OwnerEmail,
		Password: string(hashed),
		Role:     UserRoleAdmin,
		IsActive: utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&owner).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	class := Class{
		SchoolId: schoolId,
		Name:     "Default Class",
	}
	if err := tx.WithContext(ctx).Create(&class).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	section := Section{
		SchoolId: schoolId,
		ClassId:  class.ID,
		Name:     "A",
	}
	if err := tx.WithContext(ctx).Create(&section).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &school, nil
}

func GetSchoolById(ctx context.Context, schoolId string) (*School, error) {
	db := config.GetDB()
	var school School
	if err := db.WithContext(ctx).Where("id = ?", schoolId).First(&school).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &school, nil
}

type UpdateSchoolInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Timezone string `json:"timezone"`
}

func UpdateSchool(ctx context.Context, schoolId string, input *UpdateSchoolInput) (*School, error) {
	school, err := GetSchoolById(ctx, schoolId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	updates := map[string]interface{}{}
	if input.Name != "" {
		updates["name"] = input.Name
	}
	if input.Email != "" {
		updates["email"] = input.Email
	}
	if input.Phone != "" {
		updates["phone"] = input.Phone
	}
	if input.Address != "" {
		updates["address"] = input.Address
	}
	if input.City != "" {
		updates["city"] = input.City
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return nil, errors.New("invalid timezone")
		}
		updates["timezone"] = input.Timezone
	}
	if len(updates) == 0 {
		return school, nil
	}

	if err := db.WithContext(ctx).Model(school).Updates(updates).Error; err != nil {
		return nil, err
	}
	return school, nil
}

func SetSchoolActive(ctx context.Context, schoolId string, isActive bool) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&School{}).
		Where("id = ?", schoolId).
		Update("is_active", isActive).Error
}

func GetAllSchools(ctx context.Context) ([]*School, error) {
	db := config.GetDB()
	var schools []*School
	if err := db.WithContext(ctx).Find(&schools).Error; err != nil {
		return nil, err
	}
	return schools, nil
}
