package uow

import (
	"context"

	"staydesk/internal/app/outbox"
	"staydesk/internal/domain/booking"
)

// UnitOfWork groups the booking write and its outbox records so they commit together.
type UnitOfWork interface {
	Bookings() booking.Repository
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
