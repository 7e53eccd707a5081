package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func createProfile(plan PlanType, count, limit int, paid bool) *Profile {
	return &Profile{
		ID:            "user-123",
		Email:         "player@example.com",
		IsPaid:        paid,
		PlanType:      plan,
		AnalysisCount: count,
		AnalysisLimit: limit,
	}
}

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

// ==========================
// CanAnalyze Tests
// ==========================

func TestCanAnalyze(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		profile         *Profile
		expectAllowed   bool
		expectReason    string
		expectRemaining int
	}{
		{
			name:          "never purchased",
			profile:       createProfile(PlanFree, 0, 0, false),
			expectAllowed: false,
			expectReason:  ReasonNotPaid,
		},
		{
			name:          "paid but no limit configured",
			profile:       createProfile(PlanStarter, 0, 0, true),
			expectAllowed: false,
			expectReason:  ReasonNoLimit,
		},
		{
			name:          "starter plan exhausted",
			profile:       createProfile(PlanStarter, 3, 3, true),
			expectAllowed: false,
			expectReason:  ReasonStarterExhausted,
		},
		{
			name:          "monthly plan exhausted",
			profile:       createProfile(PlanMonthly, 12, 12, true),
			expectAllowed: false,
			expectReason:  ReasonMonthlyExhausted,
		},
		{
			name:            "monthly plan with quota left",
			profile:         createProfile(PlanMonthly, 5, 12, true),
			expectAllowed:   true,
			expectRemaining: 7,
		},
		{
			name:            "starter plan with quota left",
			profile:         createProfile(PlanStarter, 1, 3, true),
			expectAllowed:   true,
			expectRemaining: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := CanAnalyze(tt.profile, now)

			assert.Equal(t, tt.expectAllowed, decision.Allowed)
			assert.Equal(t, tt.expectReason, decision.Reason)
			if tt.expectAllowed {
				assert.Equal(t, tt.expectRemaining, decision.Remaining)
				assert.Empty(t, decision.Message)
			} else {
				assert.NotEmpty(t, decision.Message)
			}
		})
	}
}

func TestCanAnalyze_Messages(t *testing.T) {
	now := time.Now().UTC()

	starter := createProfile(PlanStarter, 3, 3, true)
	decision := CanAnalyze(starter, now)
	assert.Contains(t, decision.Message, "Upgrade")

	monthly := createProfile(PlanMonthly, 12, 12, true)
	decision = CanAnalyze(monthly, now)
	assert.Contains(t, decision.Message, "next cycle")
}

func TestCanAnalyze_MonthlyResetDue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Counter exhausted but the cycle rolled over 31 days ago: allowed again.
	p := createProfile(PlanMonthly, 12, 12, true)
	p.LastAnalysisReset = daysAgo(now, 31)

	decision := CanAnalyze(p, now)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 12, decision.Remaining)
}

// ==========================
// ResetDue Tests
// ==========================

func TestResetDue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		plan      PlanType
		lastReset *time.Time
		expected  bool
	}{
		{"monthly at 31 days", PlanMonthly, daysAgo(now, 31), true},
		{"monthly at exactly 30 days", PlanMonthly, daysAgo(now, 30), true},
		{"monthly at 29 days", PlanMonthly, daysAgo(now, 29), false},
		{"monthly with no reset stamp", PlanMonthly, nil, false},
		{"starter never resets", PlanStarter, daysAgo(now, 90), false},
		{"free never resets", PlanFree, daysAgo(now, 90), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := createProfile(tt.plan, 0, 3, true)
			p.LastAnalysisReset = tt.lastReset
			assert.Equal(t, tt.expected, p.ResetDue(now))
		})
	}
}

func TestRemaining_NeverNegative(t *testing.T) {
	p := createProfile(PlanStarter, 5, 3, true)
	assert.Equal(t, 0, p.Remaining())
}
