package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status is the provider-reported lifecycle state of a subscription.
type Status string

const (
	StatusActive     Status = "active"
	StatusTrialing   Status = "trialing"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
)

// ParseStatus maps a stored or provider status string to Status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusIncomplete:
		return st, true
	default:
		return "", false
	}
}

func (s Status) String() string {
	return string(s)
}

// Subscription is the per-user billing state. Each user has at most one row;
// a user without a row is treated as DefaultSubscription.
type Subscription struct {
	UserID             uuid.UUID  `json:"user_id"`
	Plan               Plan       `json:"plan"`
	Status             Status     `json:"status"`
	CustomerRef        string     `json:"customer_ref,omitempty"`
	SubscriptionRef    string     `json:"subscription_ref,omitempty"`
	PriceRef           string     `json:"price_ref,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`
	CustomerEmail      string     `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DefaultSubscription returns the implicit free subscription of a user that
// has never checked out.
func DefaultSubscription(userID uuid.UUID) *Subscription {
	return &Subscription{
		UserID: userID,
		Plan:   PlanFree,
		Status: StatusActive,
	}
}

// IsTrialActive reports whether the subscription is trialing and the trial
// ends after now. Without a trial end there is no active trial.
func (s *Subscription) IsTrialActive(now time.Time) bool {
	return s.Status == StatusTrialing && s.TrialEnd != nil && now.Before(*s.TrialEnd)
}

// IsUsable reports whether the paid plan should be honored at now.
func (s *Subscription) IsUsable(now time.Time) bool {
	switch s.Status {
	case StatusActive:
		return true
	case StatusTrialing:
		// A trialing subscription without an end date stays usable.
		return s.TrialEnd == nil || now.Before(*s.TrialEnd)
	default:
		return false
	}
}
