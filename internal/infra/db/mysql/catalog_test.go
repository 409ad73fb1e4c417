package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"staydesk/internal/domain/inventory"
)

func newCatalog(t *testing.T) (*Catalog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCatalog(db), mock
}

func TestRoomWithOverride(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery("FROM rooms r JOIN room_types t").WithArgs("101").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "name", "status", "price_override", "currency"}).
			AddRow("101", "deluxe", "Room 101", "available", "89.90", "EUR"))

	room, err := c.Room(context.Background(), "101")
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if room.TypeID != "deluxe" || room.PriceOverride == nil || room.PriceOverride.StringFixed(2) != "89.90" || room.PriceOverride.Currency != "EUR" {
		t.Fatalf("unexpected room %+v", room)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoomNotFound(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery("FROM rooms").WithArgs("404").WillReturnError(sql.ErrNoRows)
	if _, err := c.Room(context.Background(), "404"); !errors.Is(err, inventory.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomTypeDefaultsChildRate(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery("FROM room_types").WithArgs("deluxe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "base_price", "currency", "max_adults", "max_children", "child_free_age", "child_rate"}).
			AddRow("deluxe", "Deluxe", "120.00", "EUR", 2, 2, 6, nil))

	rt, err := c.RoomType(context.Background(), "deluxe")
	if err != nil {
		t.Fatalf("room type: %v", err)
	}
	if rt.BasePrice.StringFixed(2) != "120.00" || !rt.ChildRate.IsZero() || rt.ChildRate.Currency != "EUR" {
		t.Fatalf("unexpected room type %+v", rt)
	}
}

func TestRulesParsesWeekdaysAndScope(t *testing.T) {
	c, mock := newCatalog(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM pricing_rules").WithArgs("deluxe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "start_date", "end_date", "weekdays", "modifier", "value", "operation", "room_type_id", "priority"}).
			AddRow("weekend", "weekend", start, end, "fri,saturday", "percent", "15", "increase", nil, 0).
			AddRow("deluxe-summer", "seasonal", start, end, nil, "fixed", "140", "set", "deluxe", 5))

	rules, err := c.Rules(context.Background(), "deluxe")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules", len(rules))
	}
	if len(rules[0].Weekdays) != 2 || rules[0].Weekdays[0] != time.Friday || rules[0].Weekdays[1] != time.Saturday || rules[0].RoomTypeID != "" {
		t.Fatalf("weekend rule = %+v", rules[0])
	}
	if rules[1].RoomTypeID != "deluxe" || rules[1].Priority != 5 || rules[1].Value.String() != "140" {
		t.Fatalf("seasonal rule = %+v", rules[1])
	}
}

func TestRulesRejectsUnknownWeekday(t *testing.T) {
	c, mock := newCatalog(t)
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM pricing_rules").WithArgs("deluxe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "start_date", "end_date", "weekdays", "modifier", "value", "operation", "room_type_id", "priority"}).
			AddRow("bad", "weekend", day, day, "funday", "percent", "15", "increase", nil, 0))
	if _, err := c.Rules(context.Background(), "deluxe"); err == nil {
		t.Fatalf("expected error for unknown weekday")
	}
}

func TestExtras(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery("FROM extras").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "unit_price", "currency", "mode", "control"}).
			AddRow("breakfast", "Breakfast", "12.50", "EUR", "per_person_per_night", "checkbox").
			AddRow("parking", "Parking", "15", "EUR", "per_night", "quantity"))

	extras, err := c.Extras(context.Background())
	if err != nil {
		t.Fatalf("extras: %v", err)
	}
	if len(extras) != 2 || extras[0].UnitPrice.StringFixed(2) != "12.50" || extras[1].Control != "quantity" {
		t.Fatalf("extras = %+v", extras)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
