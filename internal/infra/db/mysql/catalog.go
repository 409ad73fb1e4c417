package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staydesk/internal/app/policies"
	"staydesk/internal/domain/inventory"
	domainpricing "staydesk/internal/domain/pricing"
	"staydesk/internal/domain/shared/money"
)

const (
	roomQuery = `SELECT r.id, r.room_type_id, r.name, r.status, r.price_override, t.currency
FROM rooms r JOIN room_types t ON t.id = r.room_type_id
WHERE r.id = ?`
	roomTypeQuery = `SELECT id, name, base_price, currency, max_adults, max_children, child_free_age, child_rate
FROM room_types WHERE id = ?`
	rulesQuery = `SELECT id, kind, start_date, end_date, weekdays, modifier, value, operation, room_type_id, priority
FROM pricing_rules
WHERE active = 1 AND (room_type_id IS NULL OR room_type_id = ?)
ORDER BY id`
	extrasQuery = `SELECT id, name, unit_price, currency, mode, control
FROM extras WHERE active = 1 ORDER BY sort_order, id`
)

// Catalog implements the read side of the reference data. It never writes.
type Catalog struct {
	DB *sql.DB
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{DB: db}
}

func (c *Catalog) Room(ctx context.Context, id inventory.RoomID) (inventory.Room, error) {
	var (
		room     inventory.Room
		typeID   string
		status   string
		override sql.NullString
		currency string
	)
	err := c.DB.QueryRowContext(ctx, roomQuery, string(id)).Scan(&room.ID, &typeID, &room.Name, &status, &override, &currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.Room{}, inventory.ErrRoomNotFound
		}
		return inventory.Room{}, fmt.Errorf("mysql: room %s: %w", id, err)
	}
	room.TypeID = inventory.RoomTypeID(typeID)
	room.Status = inventory.RoomStatus(status)
	if override.Valid && override.String != "" {
		m, err := money.Parse(override.String, currency)
		if err != nil {
			return inventory.Room{}, fmt.Errorf("mysql: room %s price override: %w", id, err)
		}
		room.PriceOverride = &m
	}
	return room, nil
}

func (c *Catalog) RoomType(ctx context.Context, id inventory.RoomTypeID) (inventory.RoomType, error) {
	var (
		rt        inventory.RoomType
		base      string
		currency  string
		childRate sql.NullString
	)
	err := c.DB.QueryRowContext(ctx, roomTypeQuery, string(id)).Scan(
		&rt.ID, &rt.Name, &base, &currency, &rt.MaxAdults, &rt.MaxChildren, &rt.ChildFreeAge, &childRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.RoomType{}, inventory.ErrRoomTypeNotFound
		}
		return inventory.RoomType{}, fmt.Errorf("mysql: room type %s: %w", id, err)
	}
	if rt.BasePrice, err = money.Parse(base, currency); err != nil {
		return inventory.RoomType{}, fmt.Errorf("mysql: room type %s base price: %w", id, err)
	}
	rt.ChildRate = money.Zero(currency)
	if childRate.Valid && childRate.String != "" {
		if rt.ChildRate, err = money.Parse(childRate.String, currency); err != nil {
			return inventory.RoomType{}, fmt.Errorf("mysql: room type %s child rate: %w", id, err)
		}
	}
	return rt, nil
}

func (c *Catalog) Rules(ctx context.Context, typeID inventory.RoomTypeID) ([]domainpricing.Rule, error) {
	rows, err := c.DB.QueryContext(ctx, rulesQuery, string(typeID))
	if err != nil {
		return nil, fmt.Errorf("mysql: pricing rules: %w", err)
	}
	defer rows.Close()

	var out []domainpricing.Rule
	for rows.Next() {
		var (
			r          domainpricing.Rule
			kind       string
			start, end time.Time
			weekdays   sql.NullString
			modifier   string
			value      string
			operation  string
			scope      sql.NullString
		)
		if err := rows.Scan(&r.ID, &kind, &start, &end, &weekdays, &modifier, &value, &operation, &scope, &r.Priority); err != nil {
			return nil, fmt.Errorf("mysql: scan pricing rule: %w", err)
		}
		if r.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("mysql: pricing rule %s value: %w", r.ID, err)
		}
		r.Kind = domainpricing.RuleKind(kind)
		r.Start = start.UTC()
		r.End = end.UTC()
		r.Modifier = domainpricing.ModifierType(modifier)
		r.Operation = domainpricing.Operation(operation)
		if scope.Valid {
			r.RoomTypeID = inventory.RoomTypeID(scope.String)
		}
		if weekdays.Valid && weekdays.String != "" {
			for _, raw := range strings.Split(weekdays.String, ",") {
				day, err := domainpricing.ParseWeekday(raw)
				if err != nil {
					return nil, fmt.Errorf("mysql: pricing rule %s: %w", r.ID, err)
				}
				r.Weekdays = append(r.Weekdays, day)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *Catalog) Extras(ctx context.Context) ([]domainpricing.Extra, error) {
	rows, err := c.DB.QueryContext(ctx, extrasQuery)
	if err != nil {
		return nil, fmt.Errorf("mysql: extras: %w", err)
	}
	defer rows.Close()

	var out []domainpricing.Extra
	for rows.Next() {
		var (
			e        domainpricing.Extra
			price    string
			currency string
			mode     string
			control  string
		)
		if err := rows.Scan(&e.ID, &e.Name, &price, &currency, &mode, &control); err != nil {
			return nil, fmt.Errorf("mysql: scan extra: %w", err)
		}
		if e.UnitPrice, err = money.Parse(price, currency); err != nil {
			return nil, fmt.Errorf("mysql: extra %s price: %w", e.ID, err)
		}
		e.Mode = domainpricing.ExtraMode(mode)
		e.Control = domainpricing.ControlType(control)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ policies.Catalog = (*Catalog)(nil)
