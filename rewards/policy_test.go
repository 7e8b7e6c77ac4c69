package rewards

import (
	"testing"

	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
)

func TestDailyCapByTier(t *testing.T) {
	policy := NewCapPolicy(10000, 20000)

	tests := []struct {
		tier string
		want int64
	}{
		{models.TierStandard, 10000},
		{models.TierPremium, 20000},
		{"", 10000},
		{"gold", 10000},
	}
	for _, tc := range tests {
		if got := policy.DailyCap(tc.tier); got != tc.want {
			t.Errorf("DailyCap(%q) = %d, want %d", tc.tier, got, tc.want)
		}
	}
}

func TestNewCapPolicyDefaults(t *testing.T) {
	policy := NewCapPolicy(0, 0)
	if got := policy.DailyCap(models.TierStandard); got != 10000 {
		t.Errorf("default standard cap = %d, want 10000", got)
	}
	if got := policy.DailyCap(models.TierPremium); got != 20000 {
		t.Errorf("default premium cap = %d, want 20000", got)
	}
}
