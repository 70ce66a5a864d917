// Package models contains the domain structures shared between services,
// handlers and the storage layer.
package models

import "time"

// Subscription status values for a tenant. Mutated only at signup (trial)
// and by the payment-webhook reconciliation.
const (
	SubscriptionStatusTrial    = "trial"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"
)

// User represents one tenant of the system. The subscription fields form
// the per-tenant subscription record reconciled by the payment webhook.
type User struct {
	UID                  string     // Stable tenant identifier
	Email                string
	Username             string
	PasswordHash         string
	Role                 string
	SubscriptionStatus   string // trial | active | inactive
	Plan                 string
	StripeCustomerID     string
	StripeSubscriptionID string
	TrialExpiresAt       *time.Time
	TrialLimit           int
	CreatedAt            time.Time
}

// SubscriptionInfo is the snapshot of a tenant's subscription state served
// to the UI and consulted by the subscription-status middleware.
type SubscriptionInfo struct {
	Status               string     `json:"status"`
	Plan                 string     `json:"plan,omitempty"`
	StripeCustomerID     string     `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty"`
	TrialExpiresAt       *time.Time `json:"trial_expires_at,omitempty"`
	TrialLimit           int        `json:"trial_limit,omitempty"`
}

// Blocked reports whether the tenant should be denied access to the
// authenticated API: inactive subscriptions and expired trials are blocked.
func (s *SubscriptionInfo) Blocked(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusActive:
		return false
	case SubscriptionStatusTrial:
		return s.TrialExpiresAt != nil && s.TrialExpiresAt.Before(now)
	default:
		return true
	}
}
