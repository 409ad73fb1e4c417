package pricing

import (
	"fmt"

	"staydesk/internal/domain/shared/fault"
	"staydesk/internal/domain/shared/money"
)

type ExtraMode string

const (
	ModeFixed             ExtraMode = "fixed"
	ModePerPerson         ExtraMode = "per_person"
	ModePerNight          ExtraMode = "per_night"
	ModePerPersonPerNight ExtraMode = "per_person_per_night"
)

type ControlType string

const (
	ControlCheckbox ControlType = "checkbox"
	ControlQuantity ControlType = "quantity"
)

const DefaultMaxExtraQuantity = 100

// Extra is an optional add-on from the price list.
type Extra struct {
	ID        string
	Name      string
	UnitPrice money.Money
	Mode      ExtraMode
	Control   ControlType
}

// Selection is what the guest asked for.
type Selection struct {
	ExtraID  string `json:"extra_id"`
	Quantity int    `json:"quantity"`
}

// SelectedExtra is the priced snapshot stored on a booking so later price list
// edits never change historical totals.
type SelectedExtra struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Mode      ExtraMode   `json:"mode"`
	UnitPrice money.Money `json:"unit_price"`
	Quantity  int         `json:"quantity"`
	Total     money.Money `json:"total"`
}

type ExtrasPricer struct {
	MaxQuantity           int
	ChildrenCountAsGuests bool
}

// Guests returns the head count per-person extras are multiplied by.
func (p ExtrasPricer) Guests(adults, children int) int {
	if p.ChildrenCountAsGuests {
		return adults + children
	}
	return adults
}

// ExtraCost prices one extra for the whole stay.
func (p ExtrasPricer) ExtraCost(extra Extra, quantity, guests, nights int) (money.Money, error) {
	if err := p.ValidateQuantity(extra, quantity); err != nil {
		return money.Money{}, err
	}
	if quantity == 0 {
		return money.Zero(extra.UnitPrice.Currency), nil
	}
	unit := extra.UnitPrice
	switch extra.Mode {
	case ModeFixed:
		if extra.Control == ControlCheckbox {
			return unit, nil
		}
		return unit.Multiply(int64(quantity)), nil
	case ModePerPerson:
		return unit.Multiply(int64(guests) * int64(quantity)), nil
	case ModePerNight:
		return unit.Multiply(int64(nights) * int64(quantity)), nil
	case ModePerPersonPerNight:
		return unit.Multiply(int64(guests) * int64(nights) * int64(quantity)), nil
	default:
		return money.Money{}, fault.Computation("extra mode", fmt.Errorf("extra %s has unknown mode %q", extra.ID, extra.Mode))
	}
}

func (p ExtrasPricer) ValidateQuantity(extra Extra, quantity int) error {
	if quantity < 0 {
		return fault.Validation(fault.CodeQuantityOutOfRange, "extras."+extra.ID, "quantity must not be negative")
	}
	if extra.Control == ControlCheckbox {
		if quantity > 1 {
			return fault.Validation(fault.CodeQuantityOutOfRange, "extras."+extra.ID, "checkbox extras accept 0 or 1")
		}
		return nil
	}
	limit := p.MaxQuantity
	if limit <= 0 {
		limit = DefaultMaxExtraQuantity
	}
	if quantity > limit {
		return fault.Validation(fault.CodeQuantityOutOfRange, "extras."+extra.ID, fmt.Sprintf("quantity exceeds maximum of %d", limit))
	}
	return nil
}
