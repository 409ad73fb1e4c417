package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"staydesk/internal/domain/pricing"
	"staydesk/internal/domain/tax"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "memory" || cfg.LockDriver != "memory" || cfg.NotifyDriver != "log" {
		t.Fatalf("unexpected drivers: %+v", cfg)
	}
	if cfg.Booking.LockTimeout != 10*time.Second || cfg.Booking.PendingExpiry != time.Hour {
		t.Fatalf("unexpected booking config: %+v", cfg.Booking)
	}
	if cfg.Pricing.Conflict != pricing.ConflictMax {
		t.Fatalf("conflict = %s", cfg.Pricing.Conflict)
	}
	if len(cfg.Pricing.WeekendDays) != 2 || cfg.Pricing.WeekendDays[0] != time.Friday || cfg.Pricing.WeekendDays[1] != time.Saturday {
		t.Fatalf("weekend days = %v", cfg.Pricing.WeekendDays)
	}
	if cfg.Tax.Mode != tax.ModeDisabled || cfg.Tax.Precision != 2 {
		t.Fatalf("unexpected tax config: %+v", cfg.Tax)
	}
	if len(cfg.RetryBackoff) != 3 || cfg.RetryBackoff[2] != 30*time.Second {
		t.Fatalf("backoff = %v", cfg.RetryBackoff)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TAX_MODE", "vat_inclusive")
	t.Setenv("TAX_ACCOMMODATION_RATE", "10")
	t.Setenv("TAX_ROUNDING", "per_total")
	t.Setenv("TAX_PRECISION", "3")
	t.Setenv("PRICING_CONFLICT", "sum")
	t.Setenv("PRICING_WEEKEND_DAYS", "Saturday, sun")
	t.Setenv("BOOKING_FORBID_SAME_DAY_TURNOVER", "yes")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	settings := cfg.EngineSettings()
	if settings.Tax.Mode != tax.ModeVATInclusive || settings.Tax.AccommodationRate.String() != "10" {
		t.Fatalf("tax settings = %+v", settings.Tax)
	}
	if settings.Tax.Precision != 3 || settings.Tax.Rounding != tax.RoundPerTotal {
		t.Fatalf("tax precision/rounding = %d %s", settings.Tax.Precision, settings.Tax.Rounding)
	}
	if settings.Pricing.Conflict != pricing.ConflictSum {
		t.Fatalf("conflict = %s", settings.Pricing.Conflict)
	}
	if got := settings.Pricing.WeekendDays; len(got) != 2 || got[0] != time.Saturday || got[1] != time.Sunday {
		t.Fatalf("weekend days = %v", got)
	}
	if !cfg.Booking.ForbidSameDayTurnover {
		t.Fatalf("expected same-day turnover to be forbidden")
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Fatalf("redis addr = %s", cfg.Redis.Addr)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"storage driver":  {"STORAGE_DRIVER", "postgres"},
		"mongo uri":       {"STORAGE_DRIVER", "mongo"},
		"conflict policy": {"PRICING_CONFLICT", "avg"},
		"weekday":         {"PRICING_WEEKEND_DAYS", "funday"},
		"tax mode":        {"TAX_MODE", "gst"},
		"negative rate":   {"TAX_EXTRAS_RATE", "-1"},
		"duration":        {"BOOKING_LOCK_TIMEOUT", "soon"},
		"lock ttl":        {"BOOKING_LOCK_TTL", "5s"},
		"boolean":         {"PRICING_WEEKEND", "maybe"},
		"backoff":         {"RETRY_BACKOFF", "1s,later"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("MONGO_URI", "")
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_ADDR=:9999\nOPERATOR_API_KEY=front-desk\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("HTTP_ADDR", ":7000")
	// registered for restore, then removed so the .env value applies
	t.Setenv("OPERATOR_API_KEY", "")
	os.Unsetenv("OPERATOR_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":7000" {
		t.Fatalf("environment must win over .env, got %s", cfg.HTTPAddr)
	}
	if cfg.OperatorAPIKey != "front-desk" {
		t.Fatalf("operator key = %q", cfg.OperatorAPIKey)
	}
}
