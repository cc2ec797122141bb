package models_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
)

func TestDeriveSubscriptionStatus(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	cases := []struct {
		name            string
		nextBillingDate *time.Time
		want            models.SubscriptionStatus
	}{
		{"no billing date yet", nil, models.SubscriptionStatusPending},
		{"billing date just passed", at(-time.Second), models.SubscriptionStatusExpired},
		{"billing date long past", at(-90 * 24 * time.Hour), models.SubscriptionStatusExpired},
		{"billing in three days", at(3 * 24 * time.Hour), models.SubscriptionStatusDueSoon},
		{"billing in exactly seven days minus a tick", at(7*24*time.Hour - time.Second), models.SubscriptionStatusDueSoon},
		{"billing in thirty days", at(30 * 24 * time.Hour), models.SubscriptionStatusActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := models.DeriveSubscriptionStatus(tc.nextBillingDate, now)
			if got != tc.want {
				t.Fatalf("DeriveSubscriptionStatus(%v) = %s; want %s", tc.nextBillingDate, got, tc.want)
			}
		})
	}
}
