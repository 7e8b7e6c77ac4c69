package rewards

import "github.com/Kevin69007/appli-interne-cuspide-sub007/models"

// Default per-day accrual caps in reward units.
const (
	DefaultStandardCap int64 = 10000
	DefaultPremiumCap  int64 = 20000
)

// CapPolicy computes the maximum amount a user may accrue on one
// calendar day based on membership tier. Pure; no I/O. Callers must
// evaluate it fresh on every accrual attempt since tier can change
// between days.
type CapPolicy struct {
	standard int64
	premium  int64
}

// NewCapPolicy builds a policy from configured caps, falling back to
// defaults for non-positive values.
func NewCapPolicy(standard, premium int64) CapPolicy {
	if standard <= 0 {
		standard = DefaultStandardCap
	}
	if premium <= 0 {
		premium = DefaultPremiumCap
	}
	return CapPolicy{standard: standard, premium: premium}
}

// DailyCap returns the cap for the given tier. Unknown tiers are
// treated as standard.
func (p CapPolicy) DailyCap(tier string) int64 {
	if tier == models.TierPremium {
		return p.premium
	}
	return p.standard
}
