package inventory

import (
	"context"
	"errors"

	"staydesk/internal/domain/shared/money"
)

var (
	ErrRoomNotFound     = errors.New("inventory: room not found")
	ErrRoomTypeNotFound = errors.New("inventory: room type not found")
)

type RoomID string

type RoomTypeID string

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomMaintenance RoomStatus = "maintenance"
)

// Room is reference data owned by inventory management.
type Room struct {
	ID            RoomID
	TypeID        RoomTypeID
	Name          string
	PriceOverride *money.Money
	Status        RoomStatus
}

func (r Room) Bookable() bool {
	return r.Status != RoomMaintenance
}

// RoomType carries the default rate and capacity for its rooms. MaxAdults and
// MaxChildren are hard limits: zero children means children are not accepted,
// and a type with MaxAdults below one cannot be booked.
type RoomType struct {
	ID           RoomTypeID
	Name         string
	BasePrice    money.Money
	MaxAdults    int
	MaxChildren  int
	ChildFreeAge int
	ChildRate    money.Money
}

type Repository interface {
	Room(ctx context.Context, id RoomID) (Room, error)
	RoomType(ctx context.Context, id RoomTypeID) (RoomType, error)
}
