package config

import "testing"

// Load must come back with defaults in a bare environment. Library code
// (redis client, token utils) reaches it lazily, so it can never exit the
// process; the JWT secret requirement is enforced at boot instead.
func TestLoadWithoutEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_PORT", "")

	cfg := Load()

	if cfg.AppPort != "8080" {
		t.Errorf("AppPort = %q, want 8080", cfg.AppPort)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Errorf("RateLimitPerMinute = %d, want 120", cfg.RateLimitPerMinute)
	}
	if !cfg.SchedulerEnabled {
		t.Error("SchedulerEnabled must default to true")
	}
	if cfg.StreakNotifyMinimum != 3 {
		t.Errorf("StreakNotifyMinimum = %d, want 3", cfg.StreakNotifyMinimum)
	}
	if cfg.DefaultTimezone != "Europe/Madrid" {
		t.Errorf("DefaultTimezone = %q, want Europe/Madrid", cfg.DefaultTimezone)
	}
}
