package policies

import (
	"context"

	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/pricing"
	"staydesk/internal/domain/tax"
)

// Quote is a priced stay: the pre-tax breakdown plus the tax breakdown.
type Quote struct {
	Price pricing.Breakdown
	Tax   tax.Breakdown
}

type PricingPort interface {
	Quote(ctx context.Context, in pricing.QuoteInput) (Quote, error)
}

// Catalog is the read-only reference data owned by inventory management.
type Catalog interface {
	inventory.Repository
	pricing.Repository
}

// Settings is the typed engine configuration assembled once per calculation.
type Settings struct {
	Pricing pricing.Policy
	Extras  pricing.ExtrasPricer
	Tax     tax.Config
}

type SettingsProvider interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticSettings serves a fixed configuration loaded at startup.
type StaticSettings Settings

func (s StaticSettings) Settings(context.Context) (Settings, error) {
	return Settings(s), nil
}
