package model

import "time"

type SubscriptionStatus string

const (
	StatusTrial    SubscriptionStatus = "trial"
	StatusActive   SubscriptionStatus = "active"
	StatusInactive SubscriptionStatus = "inactive"
)

// QuotaProfile is the read-only slice of a user profile the relay needs for
// admission control. The billing layer owns the rest.
type QuotaProfile struct {
	Status   SubscriptionStatus `json:"subscription_status"`
	TrialEnd *time.Time         `json:"trial_end,omitempty"`
}
