package profile

import "time"

// PlanType enumerates the purchasable plans.
type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanStarter PlanType = "starter"
	PlanMonthly PlanType = "monthly"
)

// MonthlyResetDays is the whole-day threshold after which a monthly plan's
// usage counter rolls over.
const MonthlyResetDays = 30

// Profile is the per-user row tracking payment status and analysis quota.
// Rows are created by a signup trigger outside this service; this service
// only mutates them.
type Profile struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	IsPaid               bool       `json:"is_paid"`
	StripeCustomerID     string     `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty"`
	AnalysisCount        int        `json:"analysis_count"`
	AnalysisLimit        int        `json:"analysis_limit"`
	LastAnalysisReset    *time.Time `json:"last_analysis_reset,omitempty"`
	PlanType             PlanType   `json:"plan_type"`
	PlanPurchasedAt      *time.Time `json:"plan_purchased_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Remaining returns the analyses left in the current cycle.
func (p *Profile) Remaining() int {
	r := p.AnalysisLimit - p.AnalysisCount
	if r < 0 {
		return 0
	}
	return r
}

// ResetDue reports whether a monthly plan's counter should roll over at now.
func (p *Profile) ResetDue(now time.Time) bool {
	if p.PlanType != PlanMonthly || p.LastAnalysisReset == nil {
		return false
	}
	days := int(now.Sub(*p.LastAnalysisReset).Hours() / 24)
	return days >= MonthlyResetDays
}
