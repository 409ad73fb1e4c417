package pricing

import (
	"slices"
	"time"

	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/money"
)

const (
	SourceRoomOverride = "room_override"
	SourceRoomType     = "room_type"
)

// NightRate is the resolved price for one occupied night.
type NightRate struct {
	Date    time.Time   `json:"date"`
	Amount  money.Money `json:"amount"`
	Source  string      `json:"source"`
	RuleIDs []string    `json:"rule_ids,omitempty"`
}

// RateTable resolves nightly base rates from room overrides, room type
// defaults and date-scoped rules.
type RateTable struct {
	Policy Policy
	Rules  []Rule
}

func NewRateTable(policy Policy, rules []Rule) RateTable {
	valid := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Validate() == nil {
			r.Start = daterange.Day(r.Start)
			r.End = daterange.Day(r.End)
			valid = append(valid, r)
		}
	}
	return RateTable{Policy: policy, Rules: valid}
}

func (t RateTable) NightlyBaseRate(room inventory.Room, roomType inventory.RoomType, date time.Time) NightRate {
	date = daterange.Day(date)
	if room.PriceOverride != nil {
		return NightRate{Date: date, Amount: room.PriceOverride.Round(t.Policy.Precision), Source: SourceRoomOverride}
	}

	rate := NightRate{Date: date, Amount: roomType.BasePrice, Source: SourceRoomType}
	if seasonal, ok := t.best(RuleSeasonal, roomType.ID, date); ok {
		rate.Amount = seasonal.apply(rate.Amount).NonNegative()
		rate.Source = string(RuleSeasonal)
		rate.RuleIDs = append(rate.RuleIDs, seasonal.ID)
	}

	season := rate.Amount
	var weekend, holiday *Rule
	if t.Policy.WeekendPricing {
		if r, ok := t.best(RuleWeekend, roomType.ID, date); ok {
			weekend = &r
		}
	}
	if t.Policy.HolidayPricing {
		if r, ok := t.best(RuleHoliday, roomType.ID, date); ok {
			holiday = &r
		}
	}

	switch {
	case weekend != nil && holiday != nil:
		rate.Amount, rate.RuleIDs = t.combine(season, *weekend, *holiday, rate.RuleIDs)
	case weekend != nil:
		rate.Amount = weekend.apply(season)
		rate.RuleIDs = append(rate.RuleIDs, weekend.ID)
	case holiday != nil:
		rate.Amount = holiday.apply(season)
		rate.RuleIDs = append(rate.RuleIDs, holiday.ID)
	}

	rate.Amount = rate.Amount.NonNegative().Round(t.Policy.Precision)
	return rate
}

func (t RateTable) combine(season money.Money, weekend, holiday Rule, ids []string) (money.Money, []string) {
	withWeekend := weekend.apply(season)
	withHoliday := holiday.apply(season)
	if t.Policy.Conflict == ConflictSum {
		weekendDelta, _ := withWeekend.Sub(season)
		holidayDelta, _ := withHoliday.Sub(season)
		total, _ := money.Sum(season.Currency, season, weekendDelta, holidayDelta)
		return total, append(ids, weekend.ID, holiday.ID)
	}
	if withHoliday.GreaterThan(withWeekend) {
		return withHoliday, append(ids, holiday.ID)
	}
	return withWeekend, append(ids, weekend.ID)
}

// best picks the most specific rule of a kind: room-type scope first, then
// priority, then the most recently started range, then ID for stability.
func (t RateTable) best(kind RuleKind, typeID inventory.RoomTypeID, date time.Time) (Rule, bool) {
	var (
		chosen Rule
		found  bool
	)
	for _, r := range t.Rules {
		if r.Kind != kind || !r.AppliesTo(typeID, date) {
			continue
		}
		if kind == RuleWeekend && !slices.Contains(t.weekdays(r), date.Weekday()) {
			continue
		}
		if !found || outranks(r, chosen) {
			chosen, found = r, true
		}
	}
	return chosen, found
}

func outranks(a, b Rule) bool {
	if (a.RoomTypeID != "") != (b.RoomTypeID != "") {
		return a.RoomTypeID != ""
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.Start.Equal(b.Start) {
		return a.Start.After(b.Start)
	}
	return a.ID < b.ID
}

// weekdays falls back to the policy's weekend nights when the rule names none.
func (t RateTable) weekdays(r Rule) []time.Weekday {
	if len(r.Weekdays) > 0 {
		return r.Weekdays
	}
	if len(t.Policy.WeekendDays) > 0 {
		return t.Policy.WeekendDays
	}
	return DefaultPolicy().WeekendDays
}
