package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/money"
)

var (
	ErrInvalidRule = errors.New("pricing: invalid rule")
)

type RuleKind string

const (
	RuleSeasonal RuleKind = "seasonal"
	RuleWeekend  RuleKind = "weekend"
	RuleHoliday  RuleKind = "holiday"
)

type ModifierType string

const (
	ModifierFixed   ModifierType = "fixed"
	ModifierPercent ModifierType = "percent"
)

type Operation string

const (
	OpIncrease Operation = "increase"
	OpDecrease Operation = "decrease"
	OpSet      Operation = "set"
)

// ConflictPolicy decides how weekend and holiday adjustments on the same night combine.
type ConflictPolicy string

const (
	// ConflictMax keeps whichever single adjustment yields the larger nightly price.
	ConflictMax ConflictPolicy = "max"
	// ConflictSum applies both adjustments on top of the seasonal rate.
	ConflictSum ConflictPolicy = "sum"
)

// Rule adjusts the nightly rate on the calendar days in [Start, End] (both inclusive).
type Rule struct {
	ID         string
	Kind       RuleKind
	Start      time.Time
	End        time.Time
	Weekdays   []time.Weekday
	Modifier   ModifierType
	Value      decimal.Decimal
	Operation  Operation
	RoomTypeID inventory.RoomTypeID
	Priority   int
}

func (r Rule) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return ErrInvalidRule
	}
	switch r.Kind {
	case RuleSeasonal, RuleWeekend, RuleHoliday:
	default:
		return ErrInvalidRule
	}
	switch r.Modifier {
	case ModifierFixed, ModifierPercent:
	default:
		return ErrInvalidRule
	}
	switch r.Operation {
	case OpIncrease, OpDecrease, OpSet:
	default:
		return ErrInvalidRule
	}
	if r.Value.IsNegative() {
		return ErrInvalidRule
	}
	return nil
}

// AppliesTo reports whether the rule covers date for the given room type.
func (r Rule) AppliesTo(typeID inventory.RoomTypeID, date time.Time) bool {
	if r.RoomTypeID != "" && r.RoomTypeID != typeID {
		return false
	}
	return !date.Before(r.Start) && !date.After(r.End)
}

func (r Rule) apply(base money.Money) money.Money {
	amount := money.Money{Amount: r.Value, Currency: base.Currency}
	if r.Modifier == ModifierPercent {
		amount = base.Scale(r.Value.Div(decimal.NewFromInt(100)))
	}
	switch r.Operation {
	case OpSet:
		return amount
	case OpDecrease:
		out, _ := base.Sub(amount)
		return out
	default:
		out, _ := base.Add(amount)
		return out
	}
}

// Policy is the typed pricing configuration assembled once per calculation.
type Policy struct {
	WeekendPricing bool
	HolidayPricing bool
	Conflict       ConflictPolicy
	WeekendDays    []time.Weekday
	Precision      int32
}

func DefaultPolicy() Policy {
	return Policy{
		WeekendPricing: true,
		HolidayPricing: true,
		Conflict:       ConflictMax,
		WeekendDays:    []time.Weekday{time.Friday, time.Saturday},
		Precision:      2,
	}
}

// Repository exposes the pricing reference data owned by the admin side.
type Repository interface {
	Rules(ctx context.Context, typeID inventory.RoomTypeID) ([]Rule, error)
	Extras(ctx context.Context) ([]Extra, error)
}

// ParseWeekday accepts full English day names ("friday") or their first three letters.
func ParseWeekday(raw string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || (len(name) == 3 && strings.HasPrefix(full, name)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, raw)
}
