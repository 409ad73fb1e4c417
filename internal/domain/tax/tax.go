// Package tax turns a net subtotal into net, tax and gross amounts under the
// configured tax regime.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"staydesk/internal/domain/shared/fault"
	"staydesk/internal/domain/shared/money"
)

type Mode string

const (
	ModeDisabled          Mode = "disabled"
	ModeVATInclusive      Mode = "vat_inclusive"
	ModeSalesTaxExclusive Mode = "sales_tax_exclusive"
)

type Rounding string

const (
	RoundPerLine  Rounding = "per_line"
	RoundPerTotal Rounding = "per_total"
)

const DefaultPrecision int32 = 2

var hundred = decimal.NewFromInt(100)

// Config is the tax regime. Rates are percentages, e.g. 10 for 10%.
// Precision is the number of decimal places kept; 0 means whole currency
// units, so start from DefaultConfig to get the two-place default.
type Config struct {
	Mode              Mode
	AccommodationRate decimal.Decimal
	ExtrasRate        decimal.Decimal
	Rounding          Rounding
	Precision         int32
}

func DefaultConfig() Config {
	return Config{Mode: ModeDisabled, Rounding: RoundPerLine, Precision: DefaultPrecision}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeDisabled, ModeVATInclusive, ModeSalesTaxExclusive:
	default:
		return fmt.Errorf("tax: unknown mode %q", c.Mode)
	}
	switch c.Rounding {
	case RoundPerLine, RoundPerTotal:
	default:
		return fmt.Errorf("tax: unknown rounding %q", c.Rounding)
	}
	if c.AccommodationRate.IsNegative() || c.ExtrasRate.IsNegative() {
		return fmt.Errorf("tax: rates must not be negative")
	}
	if c.Precision < 0 {
		return fmt.Errorf("tax: precision must not be negative")
	}
	return nil
}

// Line is one taxable portion. Amount is what the calculator produced;
// NetOfTax and Tax split it (inclusive) or extend it (exclusive).
type Line struct {
	Amount   money.Money     `json:"amount"`
	Rate     decimal.Decimal `json:"rate"`
	NetOfTax money.Money     `json:"net_of_tax"`
	Tax      money.Money     `json:"tax"`
	Gross    money.Money     `json:"gross"`
}

type Breakdown struct {
	Mode          Mode        `json:"mode"`
	Rounding      Rounding    `json:"rounding"`
	Precision     int32       `json:"precision"`
	Accommodation Line        `json:"accommodation"`
	Extras        Line        `json:"extras"`
	TotalNet      money.Money `json:"total_net"`
	TotalTax      money.Money `json:"total_tax"`
	TotalGross    money.Money `json:"total_gross"`
}

type Engine struct{}

// ApplyTax computes the tax breakdown for the accommodation and extras portions.
// Under per_total rounding the lines carry unrounded amounts and only the
// totals are rounded.
func (Engine) ApplyTax(accommodation, extras money.Money, cfg Config) (Breakdown, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeDisabled
	}
	if cfg.Rounding == "" {
		cfg.Rounding = RoundPerLine
	}
	if err := cfg.Validate(); err != nil {
		return Breakdown{}, fault.Computation("tax config", err)
	}
	if accommodation.Currency != extras.Currency {
		return Breakdown{}, fault.Computation("tax currency", money.ErrCurrencyMismatch)
	}
	if accommodation.Amount.IsNegative() || extras.Amount.IsNegative() {
		return Breakdown{}, fault.Computation("tax input", money.ErrInvalidAmount)
	}

	out := Breakdown{Mode: cfg.Mode, Rounding: cfg.Rounding, Precision: cfg.Precision}
	out.Accommodation = line(accommodation, cfg.AccommodationRate, cfg)
	out.Extras = line(extras, cfg.ExtrasRate, cfg)

	currency := accommodation.Currency
	net, err := money.Sum(currency, out.Accommodation.NetOfTax, out.Extras.NetOfTax)
	if err != nil {
		return Breakdown{}, fault.Computation("tax sum", err)
	}
	tax, err := money.Sum(currency, out.Accommodation.Tax, out.Extras.Tax)
	if err != nil {
		return Breakdown{}, fault.Computation("tax sum", err)
	}
	out.TotalNet = net.Round(cfg.Precision)
	out.TotalTax = tax.Round(cfg.Precision)
	if cfg.Mode == ModeVATInclusive {
		// The guest pays exactly the inclusive amount; rounding goes to the net side.
		gross, _ := accommodation.Add(extras)
		out.TotalGross = gross.Round(cfg.Precision)
		out.TotalNet, _ = out.TotalGross.Sub(out.TotalTax)
	} else {
		out.TotalGross, _ = out.TotalNet.Add(out.TotalTax)
	}
	return out, nil
}

func line(amount money.Money, rate decimal.Decimal, cfg Config) Line {
	l := Line{Amount: amount, Rate: rate}
	var tax money.Money
	switch cfg.Mode {
	case ModeVATInclusive:
		// tax = amount - amount / (1 + r)
		divisor := decimal.NewFromInt(1).Add(rate.Div(hundred))
		netOfTax := money.Money{Amount: amount.Amount.DivRound(divisor, cfg.Precision+8), Currency: amount.Currency}
		tax, _ = amount.Sub(netOfTax)
	case ModeSalesTaxExclusive:
		tax = amount.Scale(rate.Div(hundred))
	default:
		tax = money.Zero(amount.Currency)
	}
	if cfg.Rounding == RoundPerLine {
		tax = tax.Round(cfg.Precision)
	}
	l.Tax = tax
	if cfg.Mode == ModeVATInclusive {
		l.NetOfTax, _ = amount.Sub(tax)
		l.Gross = amount
	} else {
		l.NetOfTax = amount
		l.Gross, _ = amount.Add(tax)
	}
	if cfg.Rounding == RoundPerLine {
		l.NetOfTax = l.NetOfTax.Round(cfg.Precision)
		l.Gross = l.Gross.Round(cfg.Precision)
	}
	return l
}
