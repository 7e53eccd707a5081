package profile

import "time"

// QuotaDecision is the outcome of a CanAnalyze check. Message is user-facing
// and distinguishes why analysis is blocked so the dashboard can prompt the
// right action (purchase, upgrade, or wait for the next cycle).
type QuotaDecision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

const (
	ReasonNotPaid          = "not_paid"
	ReasonNoLimit          = "no_limit_configured"
	ReasonStarterExhausted = "starter_exhausted"
	ReasonMonthlyExhausted = "monthly_exhausted"
)

// CanAnalyze decides whether a profile may start another analysis. A monthly
// plan whose reset is due counts as having a full quota again; the actual
// counter rollover happens inside IncrementUsage.
func CanAnalyze(p *Profile, now time.Time) QuotaDecision {
	if !p.IsPaid {
		return QuotaDecision{
			Allowed: false,
			Reason:  ReasonNotPaid,
			Message: "No active plan. Purchase a plan to analyze your throws.",
		}
	}

	if p.AnalysisLimit <= 0 {
		return QuotaDecision{
			Allowed: false,
			Reason:  ReasonNoLimit,
			Message: "Your plan has no analysis limit configured. Please contact support.",
		}
	}

	if p.ResetDue(now) {
		return QuotaDecision{Allowed: true, Remaining: p.AnalysisLimit}
	}

	if p.Remaining() > 0 {
		return QuotaDecision{Allowed: true, Remaining: p.Remaining()}
	}

	if p.PlanType == PlanStarter {
		return QuotaDecision{
			Allowed: false,
			Reason:  ReasonStarterExhausted,
			Message: "You've used all analyses in your Starter pack. Upgrade to the monthly plan for more.",
		}
	}

	return QuotaDecision{
		Allowed: false,
		Reason:  ReasonMonthlyExhausted,
		Message: "You've used all analyses for this billing cycle. Your quota resets next cycle.",
	}
}
