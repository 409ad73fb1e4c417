package middleware

import (
	"context"
	"log/slog"
	"time"

	"staydesk/internal/app/commands"
	"staydesk/internal/app/queries"
	"staydesk/internal/domain/shared/fault"
)

// Logging records every command with its outcome. Computation and unknown
// failures are logged at error level; caller mistakes stay at info.
func Logging(log *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logOutcome(ctx, log, "command", cmd.Key(), start, err)
			return res, err
		})
	}
}

func QueryLogging(log *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			if err != nil {
				logOutcome(ctx, log, "query", q.Key(), start, err)
			}
			return res, err
		})
	}
}

func logOutcome(ctx context.Context, log *slog.Logger, kind, key string, start time.Time, err error) {
	if log == nil {
		return
	}
	attrs := []any{kind, key, "duration", time.Since(start)}
	if err == nil {
		log.InfoContext(ctx, kind+" handled", attrs...)
		return
	}
	k := fault.KindOf(err)
	attrs = append(attrs, "kind", string(k), "error", err)
	switch k {
	case fault.KindComputation, fault.KindUnknown:
		log.ErrorContext(ctx, kind+" failed", attrs...)
	case fault.KindLockTimeout:
		log.WarnContext(ctx, kind+" failed", attrs...)
	default:
		log.InfoContext(ctx, kind+" rejected", attrs...)
	}
}
