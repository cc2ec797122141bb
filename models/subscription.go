package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"github.com/shopspring/decimal"
)

const dueSoonWindow = 7 * 24 * time.Hour

// DeriveSubscriptionStatus is a pure function of the next billing date.
func DeriveSubscriptionStatus(nextBillingDate *time.Time, now time.Time) SubscriptionStatus {
	if nextBillingDate == nil {
		return SubscriptionStatusPending
	}
	if nextBillingDate.Before(now) {
		return SubscriptionStatusExpired
	}
	if nextBillingDate.Before(now.Add(dueSoonWindow)) {
		return SubscriptionStatusDueSoon
	}
	return SubscriptionStatusActive
}

// UpdateSubscriptionStatus recomputes the school's subscription status and
// writes it back only when it changed.
func UpdateSubscriptionStatus(ctx context.Context, schoolId string) (*School, error) {
	school, err := GetSchoolById(ctx, schoolId)
	if err != nil {
		return nil, err
	}

	status := DeriveSubscriptionStatus(school.NextBillingDate, time.Now())
	if status == school.SubscriptionStatus {
		return school, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(school).Update("subscription_status", status).Error; err != nil {
		return nil, err
	}
	return school, nil
}

type SubscriptionRevenue struct {
	MonthlyRevenue decimal.Decimal `json:"monthly_revenue"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	ActiveSchools  int64           `json:"active_schools"`
}

// CalculateMonthlyRevenue sums subscription amounts over all ACTIVE schools.
// Platform-admin scope: runs without a tenant filter.
func CalculateMonthlyRevenue(ctx context.Context) (decimal.Decimal, int64, error) {
	db := config.GetDB()
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var total decimal.NullDecimal
	if err := db.WithContext(ctx).Model(&School{}).
		Select("sum(subscription_amount)").
		Where("subscription_status = ?", SubscriptionStatusActive).
		Scan(&total).Error; err != nil {
		return decimal.Zero, 0, err
	}
	var count int64
	if err := db.WithContext(ctx).Model(&School{}).
		Where("subscription_status = ?", SubscriptionStatusActive).
		Count(&count).Error; err != nil {
		return decimal.Zero, 0, err
	}
	if !total.Valid {
		return decimal.Zero, count, nil
	}
	return total.Decimal, count, nil
}

// CalculateTotalRevenue estimates lifetime revenue across all schools with a
// start date: elapsed whole 30-day periods since start (minimum 1) times the
// subscription amount. A coarse approximation, not calendar-month-accurate.
func CalculateTotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	db := config.GetDB()
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var schools []*School
	if err := db.WithContext(ctx).
		Where("subscription_start_date IS NOT NULL").
		Find(&schools).Error; err != nil {
		return decimal.Zero, err
	}

	now := time.Now()
	total := decimal.Zero
	for _, school := range schools {
		elapsedDays := int64(now.Sub(*school.SubscriptionStartDate).Hours() / 24)
		periods := elapsedDays / 30
		if periods < 1 {
			periods = 1
		}
		total = total.Add(school.SubscriptionAmount.Mul(decimal.NewFromInt(periods)))
	}
	return total, nil
}

// RefreshAllSubscriptionStatuses re-derives every school's status. Used by the
// scheduled refresher.
func RefreshAllSubscriptionStatuses(ctx context.Context) (int, error) {
	db := config.GetDB()
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var schools []*School
	if err := db.WithContext(ctx).Find(&schools).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	changed := 0
	for _, school := range schools {
		status := DeriveSubscriptionStatus(school.NextBillingDate, now)
		if status == school.SubscriptionStatus {
			continue
		}
		if err := db.WithContext(ctx).Model(school).Update("subscription_status", status).Error; err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}
