package subscription

import (
	"math"
	"time"
)

// DaysUntilRenewal returns the number of days left in the current period,
// rounded up and never negative. The second result is false when the period
// end is unknown.
func (s *Subscription) DaysUntilRenewal(now time.Time) (int, bool) {
	if s.CurrentPeriodEnd == nil {
		return 0, false
	}
	remaining := s.CurrentPeriodEnd.Sub(now)
	if remaining <= 0 {
		return 0, true
	}
	return int(math.Ceil(remaining.Hours() / 24)), true
}

// StatusLabel returns a human readable status.
func StatusLabel(s Status) string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusTrialing:
		return "Trial"
	case StatusPastDue:
		return "Past Due"
	case StatusCanceled:
		return "Canceled"
	case StatusIncomplete:
		return "Incomplete"
	default:
		return "Unknown"
	}
}
