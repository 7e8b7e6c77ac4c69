package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	if c.AppPort != "8080" {
		t.Errorf("AppPort = %q, want 8080", c.AppPort)
	}
	if c.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", c.GinMode)
	}
	if c.RewardTimezone != "UTC" {
		t.Errorf("RewardTimezone = %q, want UTC", c.RewardTimezone)
	}
	if c.RewardDailyXP != 1000 || c.RewardDailyGems != 50 {
		t.Errorf("daily amounts = %d/%d, want 1000/50", c.RewardDailyXP, c.RewardDailyGems)
	}
	if c.RewardStandardCap != 10000 || c.RewardPremiumCap != 20000 {
		t.Errorf("caps = %d/%d, want 10000/20000", c.RewardStandardCap, c.RewardPremiumCap)
	}
	if c.RewardBackfillAmount != 500 {
		t.Errorf("RewardBackfillAmount = %d, want 500", c.RewardBackfillAmount)
	}
	if c.RewardBatchWorkers != 8 || c.RewardCreditAttempts != 3 {
		t.Errorf("workers/attempts = %d/%d, want 8/3", c.RewardBatchWorkers, c.RewardCreditAttempts)
	}
}

func TestApplyDefaultsKeepsExistingValues(t *testing.T) {
	c := AppConfig{AppPort: "9000", RewardDailyXP: 250, RewardTimezone: "America/New_York"}
	applyDefaults(&c)

	if c.AppPort != "9000" {
		t.Errorf("AppPort = %q, want preset 9000", c.AppPort)
	}
	if c.RewardDailyXP != 250 {
		t.Errorf("RewardDailyXP = %d, want preset 250", c.RewardDailyXP)
	}
	if c.RewardTimezone != "America/New_York" {
		t.Errorf("RewardTimezone = %q, want preset value", c.RewardTimezone)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REWARD_DAILY_XP", "2500")
	t.Setenv("REWARD_PREMIUM_CAP", "30000")
	t.Setenv("REWARD_TIMEZONE", "Europe/Paris")
	t.Setenv("ADMIN_USERNAMES", "root, ops ,")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.JWTSecret != "test-secret" {
		t.Errorf("JWTSecret = %q", c.JWTSecret)
	}
	if c.RewardDailyXP != 2500 {
		t.Errorf("RewardDailyXP = %d, want env override 2500", c.RewardDailyXP)
	}
	if c.RewardPremiumCap != 30000 {
		t.Errorf("RewardPremiumCap = %d, want env override 30000", c.RewardPremiumCap)
	}
	if c.RewardTimezone != "Europe/Paris" {
		t.Errorf("RewardTimezone = %q, want env override", c.RewardTimezone)
	}
	if !reflect.DeepEqual(c.AdminUsernames, []string{"root", "ops"}) {
		t.Errorf("AdminUsernames = %v, want trimmed [root ops]", c.AdminUsernames)
	}
	// Untouched fields keep their defaults.
	if c.RewardStandardCap != 10000 {
		t.Errorf("RewardStandardCap = %d, want default 10000", c.RewardStandardCap)
	}
}

func TestLoadJSONConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"app": {"AppPort": "8088", "AdminUsernames": ["admin"]},
		"rewards": {"DailyXP": 1500, "Timezone": "UTC", "StandardCap": 12000},
		"log": {"Level": "debug"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatalf("loadJSONConfig failed: %v", err)
	}
	if c.AppPort != "8088" {
		t.Errorf("AppPort = %q, want 8088", c.AppPort)
	}
	if c.RewardDailyXP != 1500 || c.RewardStandardCap != 12000 {
		t.Errorf("rewards section = %d/%d, want 1500/12000", c.RewardDailyXP, c.RewardStandardCap)
	}
	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", c.LogLevel)
	}
	if !reflect.DeepEqual(c.AdminUsernames, []string{"admin"}) {
		t.Errorf("AdminUsernames = %v", c.AdminUsernames)
	}
}

func TestLoadJSONConfigMissingFileIsIgnored(t *testing.T) {
	var c AppConfig
	if err := loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c); err != nil {
		t.Errorf("missing file returned error: %v", err)
	}
}

func TestLoadJSONConfigRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	var c AppConfig
	if err := loadJSONConfig(path, &c); err == nil {
		t.Error("malformed JSON did not return an error")
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{",,", []string{}},
		{"solo", []string{"solo"}},
	}
	for _, tc := range tests {
		if got := splitAndTrim(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitAndTrim(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
