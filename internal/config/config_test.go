package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnBadTTLValues(t *testing.T) {
	t.Setenv("DASHBOARD_CACHE_TTL_SECONDS", "not-a-number")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	if cfg.DashboardCacheTTLSeconds != 60 {
		t.Fatalf("expected cache TTL fallback 60, got %d", cfg.DashboardCacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token TTL fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestAddress(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg := Load()
	if got := cfg.Address(); got != ":9090" {
		t.Fatalf("expected :9090, got %q", got)
	}
}
