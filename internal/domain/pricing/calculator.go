package pricing

import (
	"fmt"
	"time"

	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/fault"
	"staydesk/internal/domain/shared/money"
)

const MaxChildAge = 17

// QuoteInput is a request to price a stay.
type QuoteInput struct {
	RoomID        inventory.RoomID
	Range         daterange.DateRange
	Adults        int
	ChildrenCount int
	ChildrenAges  []int
	Extras        []Selection
}

// Reference is the trusted data a quote is computed from.
type Reference struct {
	Room     inventory.Room
	RoomType inventory.RoomType
	Rules    []Rule
	Extras   []Extra
}

type ChildCharge struct {
	Age    int         `json:"age"`
	Free   bool        `json:"free"`
	Amount money.Money `json:"amount"`
}

// Breakdown is the pre-tax result of a price calculation.
type Breakdown struct {
	RoomID           string          `json:"room_id"`
	Currency         string          `json:"currency"`
	CheckIn          time.Time       `json:"check_in"`
	CheckOut         time.Time       `json:"check_out"`
	Nights           int             `json:"nights"`
	Adults           int             `json:"adults"`
	ChildrenAges     []int           `json:"children_ages"`
	NightlyRates     []NightRate     `json:"nightly_rates"`
	Children         []ChildCharge   `json:"children"`
	Extras           []SelectedExtra `json:"extras"`
	RoomSubtotal     money.Money     `json:"room_subtotal"`
	ChildrenSubtotal money.Money     `json:"children_subtotal"`
	ExtrasSubtotal   money.Money     `json:"extras_subtotal"`
	NetSubtotal      money.Money     `json:"net_subtotal"`
}

// AccommodationSubtotal is the taxable accommodation portion: room plus children.
func (b Breakdown) AccommodationSubtotal() money.Money {
	out, _ := b.RoomSubtotal.Add(b.ChildrenSubtotal)
	return out
}

// Calculator composes the rate table, child rates and extras into a net subtotal.
// It is pure: identical inputs always give an identical breakdown.
type Calculator struct {
	Policy Policy
	Extras ExtrasPricer
}

func NewCalculator(policy Policy, extras ExtrasPricer) Calculator {
	return Calculator{Policy: policy, Extras: extras}
}

func (c Calculator) Calculate(in QuoteInput, ref Reference) (Breakdown, error) {
	if ref.Room.ID == "" || ref.Room.ID != in.RoomID {
		return Breakdown{}, fault.Validation(fault.CodeInvalidRoomOrDates, "room_id", "room does not exist")
	}
	if ref.RoomType.ID == "" || ref.RoomType.ID != ref.Room.TypeID {
		return Breakdown{}, fault.Computation("resolve room type", fmt.Errorf("room %s references room type %q which is not loaded", ref.Room.ID, ref.Room.TypeID))
	}
	if err := c.validate(in, ref.RoomType); err != nil {
		return Breakdown{}, err
	}

	currency := ref.RoomType.BasePrice.Currency
	if currency == "" {
		return Breakdown{}, fault.Computation("resolve currency", fmt.Errorf("room type %s has no currency", ref.RoomType.ID))
	}
	nights := in.Range.Nights()
	table := NewRateTable(c.Policy, ref.Rules)

	b := Breakdown{
		RoomID:       string(ref.Room.ID),
		Currency:     currency,
		CheckIn:      in.Range.CheckIn,
		CheckOut:     in.Range.CheckOut,
		Nights:       nights,
		Adults:       in.Adults,
		ChildrenAges: append([]int(nil), in.ChildrenAges...),
	}

	roomSubtotal := money.Zero(currency)
	for _, night := range in.Range.EachNight() {
		rate := table.NightlyBaseRate(ref.Room, ref.RoomType, night)
		next, err := roomSubtotal.Add(rate.Amount)
		if err != nil {
			return Breakdown{}, fault.Computation("sum nightly rates", err)
		}
		roomSubtotal = next
		b.NightlyRates = append(b.NightlyRates, rate)
	}

	childrenSubtotal := money.Zero(currency)
	for _, age := range in.ChildrenAges {
		charge := ChildCharge{Age: age, Free: age <= ref.RoomType.ChildFreeAge, Amount: money.Zero(currency)}
		if !charge.Free {
			charge.Amount = ref.RoomType.ChildRate.Multiply(int64(nights))
			next, err := childrenSubtotal.Add(charge.Amount)
			if err != nil {
				return Breakdown{}, fault.Computation("sum child rates", err)
			}
			childrenSubtotal = next
		}
		b.Children = append(b.Children, charge)
	}

	extrasSubtotal, selected, err := c.priceExtras(in, ref.Extras, currency, nights)
	if err != nil {
		return Breakdown{}, err
	}
	b.Extras = selected

	net, err := money.Sum(currency, roomSubtotal, childrenSubtotal, extrasSubtotal)
	if err != nil {
		return Breakdown{}, fault.Computation("sum subtotals", err)
	}
	b.RoomSubtotal = roomSubtotal
	b.ChildrenSubtotal = childrenSubtotal
	b.ExtrasSubtotal = extrasSubtotal
	b.NetSubtotal = net
	return b, nil
}

func (c Calculator) priceExtras(in QuoteInput, catalog []Extra, currency string, nights int) (money.Money, []SelectedExtra, error) {
	byID := make(map[string]Extra, len(catalog))
	for _, e := range catalog {
		byID[e.ID] = e
	}
	guests := c.Extras.Guests(in.Adults, in.ChildrenCount)
	total := money.Zero(currency)
	var selected []SelectedExtra
	seen := make(map[string]bool, len(in.Extras))
	for _, sel := range in.Extras {
		extra, ok := byID[sel.ExtraID]
		if !ok {
			return money.Money{}, nil, fault.Validation(fault.CodeInvalidExtra, "extras", fmt.Sprintf("unknown extra %q", sel.ExtraID))
		}
		if seen[sel.ExtraID] {
			return money.Money{}, nil, fault.Validation(fault.CodeInvalidExtra, "extras", fmt.Sprintf("extra %q selected twice", sel.ExtraID))
		}
		seen[sel.ExtraID] = true
		cost, err := c.Extras.ExtraCost(extra, sel.Quantity, guests, nights)
		if err != nil {
			return money.Money{}, nil, err
		}
		if sel.Quantity == 0 {
			continue
		}
		next, err := total.Add(cost)
		if err != nil {
			return money.Money{}, nil, fault.Computation("sum extras", err)
		}
		total = next
		selected = append(selected, SelectedExtra{
			ID:        extra.ID,
			Name:      extra.Name,
			Mode:      extra.Mode,
			UnitPrice: extra.UnitPrice,
			Quantity:  sel.Quantity,
			Total:     cost,
		})
	}
	return total, selected, nil
}

func (c Calculator) validate(in QuoteInput, rt inventory.RoomType) error {
	if err := in.Range.Validate(); err != nil || in.Range.Nights() <= 0 {
		return fault.Validation(fault.CodeInvalidRoomOrDates, "check_out", "check-out must be after check-in")
	}
	if in.Adults < 1 {
		return fault.Validation(fault.CodeInvalidGuests, "adults", "at least one adult is required")
	}
	if in.Adults > rt.MaxAdults {
		return fault.Validation(fault.CodeCapacityExceeded, "adults", fmt.Sprintf("room type allows at most %d adults", rt.MaxAdults))
	}
	if in.ChildrenCount < 0 || in.ChildrenCount != len(in.ChildrenAges) {
		return fault.Validation(fault.CodeInvalidChildren, "children_ages", "an age is required for every child")
	}
	if in.ChildrenCount > rt.MaxChildren {
		return fault.Validation(fault.CodeCapacityExceeded, "children", fmt.Sprintf("room type allows at most %d children", rt.MaxChildren))
	}
	for _, age := range in.ChildrenAges {
		if age < 0 || age > MaxChildAge {
			return fault.Validation(fault.CodeInvalidChildren, "children_ages", fmt.Sprintf("child age %d out of range 0-%d", age, MaxChildAge))
		}
	}
	return nil
}
