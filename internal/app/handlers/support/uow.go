package support

import (
	"context"

	"staydesk/internal/app/uow"
)

// BeginUnit reuses a unit already in ctx or starts a new one. The returned
// done func is nil for a reused unit; otherwise it must be called and rolls
// back unless commit ran first.
func BeginUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions) (unit uow.UnitOfWork, execCtx context.Context, commit func() error, done func(), err error) {
	if existing, ok := uow.FromContext(ctx); ok {
		return existing, ctx, func() error { return nil }, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, nil, uow.ErrUnitOfWorkMissing
	}
	unit, err = factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, nil, nil, err
	}
	execCtx = ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = uow.ContextWithUnitOfWork(execCtx, unit)
	committed := false
	commit = func() error {
		if err := unit.Commit(execCtx); err != nil {
			return err
		}
		committed = true
		return nil
	}
	done = func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}
	return unit, execCtx, commit, done, nil
}

// BeginReadOnlyUnit is BeginUnit for queries.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, execCtx, _, done, err := BeginUnit(ctx, factory, uow.TxOptions{ReadOnly: true})
	return unit, execCtx, done, err
}
