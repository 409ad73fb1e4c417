package pricing

import (
	"context"
	"errors"
	"fmt"

	"staydesk/internal/app/policies"
	"staydesk/internal/domain/inventory"
	domainpricing "staydesk/internal/domain/pricing"
	"staydesk/internal/domain/shared/fault"
	"staydesk/internal/domain/tax"
)

// Quoter prices a stay from trusted catalog data. It is the only place both
// quotes and booking creation compute money, so the two can never disagree.
type Quoter struct {
	Catalog  policies.Catalog
	Settings policies.SettingsProvider
	Tax      tax.Engine
}

func (q Quoter) Quote(ctx context.Context, in domainpricing.QuoteInput) (policies.Quote, error) {
	ref, settings, err := q.load(ctx, in.RoomID)
	if err != nil {
		return policies.Quote{}, err
	}
	calc := domainpricing.NewCalculator(settings.Pricing, settings.Extras)
	price, err := calc.Calculate(in, ref)
	if err != nil {
		return policies.Quote{}, err
	}
	taxes, err := q.Tax.ApplyTax(price.AccommodationSubtotal(), price.ExtrasSubtotal, settings.Tax)
	if err != nil {
		return policies.Quote{}, err
	}
	return policies.Quote{Price: price, Tax: taxes}, nil
}

func (q Quoter) load(ctx context.Context, roomID inventory.RoomID) (domainpricing.Reference, policies.Settings, error) {
	if q.Catalog == nil || q.Settings == nil {
		return domainpricing.Reference{}, policies.Settings{}, fault.Computation("quote", errors.New("pricing: quoter not configured"))
	}
	room, err := q.Catalog.Room(ctx, roomID)
	if err != nil {
		if errors.Is(err, inventory.ErrRoomNotFound) {
			return domainpricing.Reference{}, policies.Settings{}, fault.Validation(fault.CodeInvalidRoomOrDates, "room_id", fmt.Sprintf("room %s does not exist", roomID))
		}
		return domainpricing.Reference{}, policies.Settings{}, err
	}
	roomType, err := q.Catalog.RoomType(ctx, room.TypeID)
	if err != nil {
		if errors.Is(err, inventory.ErrRoomTypeNotFound) {
			return domainpricing.Reference{}, policies.Settings{}, fault.Computation("load room type", err)
		}
		return domainpricing.Reference{}, policies.Settings{}, err
	}
	rules, err := q.Catalog.Rules(ctx, roomType.ID)
	if err != nil {
		return domainpricing.Reference{}, policies.Settings{}, err
	}
	extras, err := q.Catalog.Extras(ctx)
	if err != nil {
		return domainpricing.Reference{}, policies.Settings{}, err
	}
	settings, err := q.Settings.Settings(ctx)
	if err != nil {
		return domainpricing.Reference{}, policies.Settings{}, err
	}
	return domainpricing.Reference{Room: room, RoomType: roomType, Rules: rules, Extras: extras}, settings, nil
}

var _ policies.PricingPort = Quoter{}
