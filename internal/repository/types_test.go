package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscription_ActualStatus(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		sub    *Subscription
		status string
		active bool
	}{
		{"active future", &Subscription{Status: SubscriptionStatusActive, EndDate: &future}, SubscriptionStatusActive, true},
		{"active past", &Subscription{Status: SubscriptionStatusActive, EndDate: &past}, SubscriptionStatusExpired, false},
		{"trial no end", &Subscription{Status: SubscriptionStatusTrial}, SubscriptionStatusTrial, true},
		{"disabled past", &Subscription{Status: SubscriptionStatusDisabled, EndDate: &past}, SubscriptionStatusDisabled, false},
		{"nil", nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.sub.ActualStatus(now))
			assert.Equal(t, tc.active, tc.sub.IsActive(now))
		})
	}
}

func TestServerSquad_IsFull(t *testing.T) {
	limit := int64(2)
	zero := int64(0)
	assert.False(t, (&ServerSquad{CurrentUsers: 10}).IsFull())
	assert.False(t, (&ServerSquad{MaxUsers: &zero, CurrentUsers: 10}).IsFull())
	assert.False(t, (&ServerSquad{MaxUsers: &limit, CurrentUsers: 1}).IsFull())
	assert.True(t, (&ServerSquad{MaxUsers: &limit, CurrentUsers: 2}).IsFull())
}

func TestPromoGroup_PeriodDiscountPercent(t *testing.T) {
	g := &PromoGroup{PeriodDiscounts: map[int]int{30: 15, 90: -5, 180: 150}}
	assert.Equal(t, 15, g.PeriodDiscountPercent(30))
	assert.Equal(t, 0, g.PeriodDiscountPercent(90))
	assert.Equal(t, 100, g.PeriodDiscountPercent(180))
	assert.Equal(t, 0, g.PeriodDiscountPercent(360))
	var nilGroup *PromoGroup
	assert.Equal(t, 0, nilGroup.PeriodDiscountPercent(30))
}
