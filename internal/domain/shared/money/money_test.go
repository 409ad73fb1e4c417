package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	_, err := Must("10.00", "USD").Add(Must("10.00", "EUR"))
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestScaleAndRoundAreExact(t *testing.T) {
	// 0.1 + 0.2 style drift must not appear.
	total := Zero("usd")
	for i := 0; i < 10; i++ {
		var err error
		total, err = total.Add(Must("0.10", "USD"))
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if !total.Amount.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("total = %s, want 1", total.Amount)
	}
	scaled := Must("99.99", "USD").Scale(decimal.RequireFromString("0.15")).Round(2)
	if scaled.StringFixed(2) != "15.00" {
		t.Fatalf("scaled = %s, want 15.00", scaled.StringFixed(2))
	}
}

func TestNonNegative(t *testing.T) {
	m := Must("-5", "USD").NonNegative()
	if !m.IsZero() {
		t.Fatalf("expected zero, got %s", m.Amount)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("abc", "USD"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := Parse("1", "US"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}
