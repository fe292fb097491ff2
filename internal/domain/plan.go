package domain

import "strings"

// Period selects the accounting window for a plan's cap.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// PlanFree is the plan assigned to users without an active membership plan.
// The membership service reports "no plan" users with an empty or "none"
// plan name; both normalize to PlanFree.
const PlanFree = "Free"

// PlanPolicy couples a usage cap with the period it applies to. Capacity can
// be monthly while storage granularity stays daily, so consumption history is
// auditable by day regardless of period.
type PlanPolicy struct {
	Cap    int
	Period Period
}

// planPolicies is process-wide static configuration. It has no lifecycle
// beyond process start and is not persisted.
var planPolicies = map[string]PlanPolicy{
	"Standard": {Cap: 5, Period: PeriodDaily},
	"Pro":      {Cap: 50, Period: PeriodDaily},
	"Starter":  {Cap: 5, Period: PeriodMonthly},
}

// PolicyFor returns the policy for a plan name. Unknown or unconfigured plans
// resolve to a zero daily cap, which blocks all usage. That is the intended
// safe default, not an error.
func PolicyFor(plan string) PlanPolicy {
	if p, ok := planPolicies[plan]; ok {
		return p
	}
	return PlanPolicy{Cap: 0, Period: PeriodDaily}
}

// NormalizePlan maps the membership service's "no plan" sentinel to PlanFree.
func NormalizePlan(plan string) string {
	trimmed := strings.TrimSpace(plan)
	if trimmed == "" || strings.EqualFold(trimmed, "none") {
		return PlanFree
	}
	return trimmed
}

// IsNoPlan reports whether the raw plan value is the "no plan" sentinel.
func IsNoPlan(plan string) bool {
	trimmed := strings.TrimSpace(plan)
	return trimmed == "" || strings.EqualFold(trimmed, "none") || trimmed == PlanFree
}
