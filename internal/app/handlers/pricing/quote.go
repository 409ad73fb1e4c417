package pricing

import (
	"context"

	"staydesk/internal/app/dto"
	"staydesk/internal/app/handlers/support"
	"staydesk/internal/app/policies"
	"staydesk/internal/app/queries"
	"staydesk/internal/domain/inventory"
	domainpricing "staydesk/internal/domain/pricing"
)

const QuoteKey = "pricing.quote"

type QuoteQuery struct {
	RoomID       string
	CheckIn      string
	CheckOut     string
	Adults       int
	Children     int
	ChildrenAges []int
	Extras       []domainpricing.Selection
}

func (QuoteQuery) Key() string { return QuoteKey }

type QuoteHandler struct {
	Pricing policies.PricingPort
}

func (h *QuoteHandler) Handle(ctx context.Context, q QuoteQuery) (dto.Quote, error) {
	dr, err := support.ParseStay(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Quote{}, err
	}
	quote, err := h.Pricing.Quote(ctx, domainpricing.QuoteInput{
		RoomID:        inventory.RoomID(q.RoomID),
		Range:         dr,
		Adults:        q.Adults,
		ChildrenCount: q.Children,
		ChildrenAges:  q.ChildrenAges,
		Extras:        q.Extras,
	})
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.MapQuote(quote.Price, quote.Tax), nil
}

var _ queries.Handler[QuoteQuery, dto.Quote] = (*QuoteHandler)(nil)
