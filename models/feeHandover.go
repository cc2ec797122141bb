package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeeHandover is an append-only ledger row: a human operator removed collected
// cash from circulation. No update or delete is exposed.
type FeeHandover struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	SchoolId             string          `gorm:"index;not null" json:"school_id" binding:"required"`
	SubmittedBy          int             `gorm:"not null" json:"submitted_by"`
	AmountSubmitted      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount_submitted"`
	TotalCollectedAtTime decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_collected_at_time"`
	BackupAmount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"backup_amount"`
	SubmittedAt          time.Time       `gorm:"not null" json:"submitted_at"`
	Submitter            *User           `gorm:"foreignKey:SubmittedBy" json:"submitter"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewFeeHandover struct {
	AmountSubmitted decimal.Decimal `json:"amount_submitted" binding:"required"`
}

type HandoverSummary struct {
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalHandedOver  decimal.Decimal `json:"total_handed_over"`
	AvailableAmount  decimal.Decimal `json:"available_amount"`
	RecentHandovers  []*FeeHandover  `json:"recent_handovers,omitempty"`
	PageSubmittedSum decimal.Decimal `json:"page_submitted_sum"`
}

func sumColumn[T any](tx *gorm.DB, ctx context.Context, schoolId string, column string) (decimal.Decimal, error) {
	var model T
	var total decimal.NullDecimal
	if err := tx.WithContext(ctx).Model(&model).
		Select("sum(" + column + ")").
		Where("school_id = ?", schoolId).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// SubmitFeeHandover appends a handover after re-checking the available amount
// inside a transaction that locks the school row. Concurrent handovers for the
// same school serialize on that lock; concurrent payments only grow the
// available amount, so the check stays safe.
func SubmitFeeHandover(ctx context.Context, schoolId string, submittedBy int, input *NewFeeHandover) (*FeeHandover, error) {
	if input.AmountSubmitted.Cmp(decimal.Zero) <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	// best-effort cross-node aid; the row lock below is the real guard
	lock, _ := utils.SchoolLock(ctx, schoolId, "handover", "models", "SubmitFeeHandover")
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	now := time.Now()

	tx := db.Begin()

	var school School
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", schoolId).First(&school).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}

	totalCollected, err := sumColumn[FeePayment](tx, ctx, schoolId, "amount_paid")
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	totalHandedOver, err := sumColumn[FeeHandover](tx, ctx, schoolId, "amount_submitted")
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	available := totalCollected.Sub(totalHandedOver)
	if input.AmountSubmitted.Cmp(available) > 0 {
		tx.Rollback()
		return nil, fmt.Errorf("amount %s exceeds available amount (%s)", input.AmountSubmitted, available)
	}

	handover := FeeHandover{
		SchoolId:             schoolId,
		SubmittedBy:          submittedBy,
		AmountSubmitted:      input.AmountSubmitted,
		TotalCollectedAtTime: totalCollected,
		BackupAmount:         available.Sub(input.AmountSubmitted),
		SubmittedAt:          now,
	}
	if err := tx.WithContext(ctx).Create(&handover).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &handover, nil
}

// PaginateFeeHandovers lists handovers newest first. The summary block is
// always computed tenant-wide, never from the rows of the current page.
func PaginateFeeHandovers(ctx context.Context, schoolId string, page int, pageSize int) ([]*FeeHandover, *PageInfo, *HandoverSummary, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&FeeHandover{}).
		Where("school_id = ?", schoolId).
		Preload("Submitter").
		Order("submitted_at DESC, id DESC")

	handovers, pageInfo, err := FetchPage[FeeHandover](dbCtx, page, pageSize)
	if err != nil {
		return nil, nil, nil, err
	}

	summary, err := GetHandoverSummary(ctx, schoolId, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	pageSum := decimal.Zero
	for _, h := range handovers {
		pageSum = pageSum.Add(h.AmountSubmitted)
	}
	summary.PageSubmittedSum = pageSum

	return handovers, pageInfo, summary, nil
}

// GetHandoverSummary is the authoritative tenant-wide reconciliation view.
// recentCount > 0 additionally loads that many most-recent handovers.
func GetHandoverSummary(ctx context.Context, schoolId string, recentCount int) (*HandoverSummary, error) {
	db := config.GetDB()

	totalCollected, err := sumColumn[FeePayment](db, ctx, schoolId, "amount_paid")
	if err != nil {
		return nil, err
	}
	totalHandedOver, err := sumColumn[FeeHandover](db, ctx, schoolId, "amount_submitted")
	if err != nil {
		return nil, err
	}

	summary := HandoverSummary{
		TotalCollected:   totalCollected,
		TotalHandedOver:  totalHandedOver,
		AvailableAmount:  totalCollected.Sub(totalHandedOver),
		PageSubmittedSum: decimal.Zero,
	}

	if recentCount > 0 {
		if err := db.WithContext(ctx).Where("school_id = ?", schoolId).
			Preload("Submitter").
			Order("submitted_at DESC, id DESC").
			Limit(recentCount).Find(&summary.RecentHandovers).Error; err != nil {
			return nil, err
		}
	}
	return &summary, nil
}
