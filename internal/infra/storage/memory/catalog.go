package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"staydesk/internal/app/policies"
	"staydesk/internal/domain/inventory"
	domainpricing "staydesk/internal/domain/pricing"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/money"
)

// Catalog serves rooms, room types, pricing rules and extras from memory.
// It is seeded from a JSON fixture file for local runs and tests.
type Catalog struct {
	mu        sync.RWMutex
	rooms     map[inventory.RoomID]inventory.Room
	roomTypes map[inventory.RoomTypeID]inventory.RoomType
	rules     []domainpricing.Rule
	extras    []domainpricing.Extra
}

func NewCatalog() *Catalog {
	return &Catalog{
		rooms:     make(map[inventory.RoomID]inventory.Room),
		roomTypes: make(map[inventory.RoomTypeID]inventory.RoomType),
	}
}

// LoadCatalog reads a fixture file, see data/catalog.json.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCatalog(f)
}

func DecodeCatalog(r io.Reader) (*Catalog, error) {
	var doc catalogDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("memory: decode catalog: %w", err)
	}
	return doc.build()
}

func (c *Catalog) Room(_ context.Context, id inventory.RoomID) (inventory.Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room, ok := c.rooms[id]
	if !ok {
		return inventory.Room{}, inventory.ErrRoomNotFound
	}
	return room, nil
}

func (c *Catalog) RoomType(_ context.Context, id inventory.RoomTypeID) (inventory.RoomType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rt, ok := c.roomTypes[id]
	if !ok {
		return inventory.RoomType{}, inventory.ErrRoomTypeNotFound
	}
	return rt, nil
}

// Rules returns the rules scoped to typeID plus the unscoped ones.
func (c *Catalog) Rules(_ context.Context, typeID inventory.RoomTypeID) ([]domainpricing.Rule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domainpricing.Rule, 0, len(c.rules))
	for _, r := range c.rules {
		if r.RoomTypeID == "" || r.RoomTypeID == typeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Catalog) Extras(context.Context) ([]domainpricing.Extra, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domainpricing.Extra(nil), c.extras...), nil
}

func (c *Catalog) PutRoomType(rt inventory.RoomType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomTypes[rt.ID] = rt
}

func (c *Catalog) PutRoom(room inventory.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room.ID] = room
}

func (c *Catalog) AddRule(rule domainpricing.Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rule)
}

func (c *Catalog) AddExtra(extra domainpricing.Extra) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extras = append(c.extras, extra)
}

type catalogDocument struct {
	Currency  string             `json:"currency"`
	RoomTypes []roomTypeDocument `json:"room_types"`
	Rooms     []roomDocument     `json:"rooms"`
	Rules     []ruleDocument     `json:"rules"`
	Extras    []extraDocument    `json:"extras"`
}

type roomTypeDocument struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BasePrice    string `json:"base_price"`
	MaxAdults    int    `json:"max_adults"`
	MaxChildren  int    `json:"max_children"`
	ChildFreeAge int    `json:"child_free_age"`
	ChildRate    string `json:"child_rate"`
}

type roomDocument struct {
	ID            string `json:"id"`
	TypeID        string `json:"type_id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	PriceOverride string `json:"price_override,omitempty"`
}

type ruleDocument struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Weekdays   []string `json:"weekdays,omitempty"`
	Modifier   string   `json:"modifier"`
	Value      string   `json:"value"`
	Operation  string   `json:"operation"`
	RoomTypeID string   `json:"room_type_id,omitempty"`
	Priority   int      `json:"priority,omitempty"`
}

type extraDocument struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Mode      string `json:"mode"`
	Control   string `json:"control"`
}

func (d catalogDocument) build() (*Catalog, error) {
	c := NewCatalog()
	cur := d.Currency
	if cur == "" {
		cur = "USD"
	}
	for _, t := range d.RoomTypes {
		if t.MaxAdults < 1 || t.MaxChildren < 0 {
			return nil, fmt.Errorf("memory: room type %s: max_adults must be at least 1 and max_children not negative", t.ID)
		}
		base, err := money.Parse(t.BasePrice, cur)
		if err != nil {
			return nil, fmt.Errorf("memory: room type %s base price: %w", t.ID, err)
		}
		childRate := money.Zero(cur)
		if t.ChildRate != "" {
			if childRate, err = money.Parse(t.ChildRate, cur); err != nil {
				return nil, fmt.Errorf("memory: room type %s child rate: %w", t.ID, err)
			}
		}
		c.PutRoomType(inventory.RoomType{
			ID:           inventory.RoomTypeID(t.ID),
			Name:         t.Name,
			BasePrice:    base,
			MaxAdults:    t.MaxAdults,
			MaxChildren:  t.MaxChildren,
			ChildFreeAge: t.ChildFreeAge,
			ChildRate:    childRate,
		})
	}
	for _, r := range d.Rooms {
		room := inventory.Room{
			ID:     inventory.RoomID(r.ID),
			TypeID: inventory.RoomTypeID(r.TypeID),
			Name:   r.Name,
			Status: inventory.RoomStatus(r.Status),
		}
		if room.Status == "" {
			room.Status = inventory.RoomAvailable
		}
		if r.PriceOverride != "" {
			override, err := money.Parse(r.PriceOverride, cur)
			if err != nil {
				return nil, fmt.Errorf("memory: room %s price override: %w", r.ID, err)
			}
			room.PriceOverride = &override
		}
		c.PutRoom(room)
	}
	for _, r := range d.Rules {
		rule, err := r.toRule()
		if err != nil {
			return nil, err
		}
		c.AddRule(rule)
	}
	for _, e := range d.Extras {
		price, err := money.Parse(e.UnitPrice, cur)
		if err != nil {
			return nil, fmt.Errorf("memory: extra %s price: %w", e.ID, err)
		}
		c.AddExtra(domainpricing.Extra{
			ID:        e.ID,
			Name:      e.Name,
			UnitPrice: price,
			Mode:      domainpricing.ExtraMode(e.Mode),
			Control:   domainpricing.ControlType(e.Control),
		})
	}
	return c, nil
}

func (r ruleDocument) toRule() (domainpricing.Rule, error) {
	start, err := daterange.ParseDate(r.Start)
	if err != nil {
		return domainpricing.Rule{}, fmt.Errorf("memory: rule %s start: %w", r.ID, err)
	}
	end, err := daterange.ParseDate(r.End)
	if err != nil {
		return domainpricing.Rule{}, fmt.Errorf("memory: rule %s end: %w", r.ID, err)
	}
	value, err := decimal.NewFromString(r.Value)
	if err != nil {
		return domainpricing.Rule{}, fmt.Errorf("memory: rule %s value: %w", r.ID, err)
	}
	rule := domainpricing.Rule{
		ID:         r.ID,
		Kind:       domainpricing.RuleKind(r.Kind),
		Start:      start,
		End:        end,
		Modifier:   domainpricing.ModifierType(r.Modifier),
		Value:      value,
		Operation:  domainpricing.Operation(r.Operation),
		RoomTypeID: inventory.RoomTypeID(r.RoomTypeID),
		Priority:   r.Priority,
	}
	for _, raw := range r.Weekdays {
		day, err := domainpricing.ParseWeekday(raw)
		if err != nil {
			return domainpricing.Rule{}, err
		}
		rule.Weekdays = append(rule.Weekdays, day)
	}
	return rule, nil
}

var _ policies.Catalog = (*Catalog)(nil)
