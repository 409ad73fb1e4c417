package dto

import (
	"staydesk/internal/domain/pricing"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/tax"
)

type NightlyRate struct {
	Date   string   `json:"date"`
	Amount MoneyDTO `json:"amount"`
	Source string   `json:"source"`
	Rules  []string `json:"rules,omitempty"`
}

type ChildCharge struct {
	Age    int      `json:"age"`
	Free   bool     `json:"free"`
	Amount MoneyDTO `json:"amount"`
}

type ExtraLine struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Mode      string   `json:"mode"`
	UnitPrice MoneyDTO `json:"unit_price"`
	Quantity  int      `json:"quantity"`
	Total     MoneyDTO `json:"total"`
}

type Subtotals struct {
	Room     MoneyDTO `json:"room"`
	Children MoneyDTO `json:"children"`
	Extras   MoneyDTO `json:"extras"`
	Net      MoneyDTO `json:"net"`
}

type TaxPortion struct {
	Amount   MoneyDTO `json:"amount"`
	Rate     string   `json:"rate"`
	NetOfTax MoneyDTO `json:"net_of_tax"`
	Tax      MoneyDTO `json:"tax"`
	Gross    MoneyDTO `json:"gross"`
}

type TaxBreakdown struct {
	Mode          string     `json:"mode"`
	Rounding      string     `json:"rounding"`
	Accommodation TaxPortion `json:"accommodation"`
	Extras        TaxPortion `json:"extras"`
	TotalNet      MoneyDTO   `json:"total_net"`
	TotalTax      MoneyDTO   `json:"total_tax"`
	TotalGross    MoneyDTO   `json:"total_gross"`
}

type Quote struct {
	RoomID       string        `json:"room_id"`
	Currency     string        `json:"currency"`
	CheckIn      string        `json:"check_in"`
	CheckOut     string        `json:"check_out"`
	Nights       int           `json:"nights"`
	Adults       int           `json:"adults"`
	ChildrenAges []int         `json:"children_ages"`
	Nightly      []NightlyRate `json:"nightly"`
	Children     []ChildCharge `json:"children"`
	Extras       []ExtraLine   `json:"extras"`
	Subtotals    Subtotals     `json:"subtotals"`
	Tax          TaxBreakdown  `json:"tax"`
}

func MapQuote(price pricing.Breakdown, taxes tax.Breakdown) Quote {
	p := taxes.Precision
	q := Quote{
		RoomID:       price.RoomID,
		Currency:     price.Currency,
		CheckIn:      price.CheckIn.Format(daterange.DateLayout),
		CheckOut:     price.CheckOut.Format(daterange.DateLayout),
		Nights:       price.Nights,
		Adults:       price.Adults,
		ChildrenAges: append([]int{}, price.ChildrenAges...),
		Nightly:      make([]NightlyRate, 0, len(price.NightlyRates)),
		Children:     make([]ChildCharge, 0, len(price.Children)),
		Extras:       MapExtras(price.Extras, p),
		Subtotals: Subtotals{
			Room:     MapMoney(price.RoomSubtotal, p),
			Children: MapMoney(price.ChildrenSubtotal, p),
			Extras:   MapMoney(price.ExtrasSubtotal, p),
			Net:      MapMoney(price.NetSubtotal, p),
		},
		Tax: MapTax(taxes),
	}
	for _, n := range price.NightlyRates {
		q.Nightly = append(q.Nightly, NightlyRate{Date: n.Date.Format(daterange.DateLayout), Amount: MapMoney(n.Amount, p), Source: n.Source, Rules: n.RuleIDs})
	}
	for _, c := range price.Children {
		q.Children = append(q.Children, ChildCharge{Age: c.Age, Free: c.Free, Amount: MapMoney(c.Amount, p)})
	}
	return q
}

func MapExtras(extras []pricing.SelectedExtra, precision int32) []ExtraLine {
	out := make([]ExtraLine, 0, len(extras))
	for _, e := range extras {
		out = append(out, ExtraLine{
			ID:        e.ID,
			Name:      e.Name,
			Mode:      string(e.Mode),
			UnitPrice: MapMoney(e.UnitPrice, precision),
			Quantity:  e.Quantity,
			Total:     MapMoney(e.Total, precision),
		})
	}
	return out
}

func MapTax(b tax.Breakdown) TaxBreakdown {
	p := b.Precision
	portion := func(l tax.Line) TaxPortion {
		return TaxPortion{
			Amount:   MapMoney(l.Amount, p),
			Rate:     l.Rate.String(),
			NetOfTax: MapMoney(l.NetOfTax, p),
			Tax:      MapMoney(l.Tax, p),
			Gross:    MapMoney(l.Gross, p),
		}
	}
	return TaxBreakdown{
		Mode:          string(b.Mode),
		Rounding:      string(b.Rounding),
		Accommodation: portion(b.Accommodation),
		Extras:        portion(b.Extras),
		TotalNet:      MapMoney(b.TotalNet, p),
		TotalTax:      MapMoney(b.TotalTax, p),
		TotalGross:    MapMoney(b.TotalGross, p),
	}
}
