package domain

import "time"

// SubscriptionStatus is the lifecycle state of a subscription record.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// PlanTier identifies the purchased plan.
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// Subscription is a billing record keyed by the mapped identity. It is
// read-only to this core; checkout flows elsewhere write it.
type Subscription struct {
	ID          string             `bson:"_id,omitempty" json:"id"`
	ProfileID   string             `bson:"profile_id" json:"profile_id"` // mapped UUID
	Tier        PlanTier           `bson:"plan_tier" json:"plan_tier"`
	Status      SubscriptionStatus `bson:"status" json:"status"`
	PeriodStart time.Time          `bson:"period_start" json:"period_start"`
	PeriodEnd   time.Time          `bson:"period_end" json:"period_end"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Entitles reports whether the record grants premium access at the given
// time: the subscription must be active, inside its period, and on a paid
// tier.
func (s *Subscription) Entitles(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != SubscriptionActive {
		return false
	}
	if !now.Before(s.PeriodEnd) {
		return false
	}
	return s.Tier == PlanPro || s.Tier == PlanEnterprise
}
