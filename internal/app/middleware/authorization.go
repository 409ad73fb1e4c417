package middleware

import (
	"context"
	"crypto/subtle"
	"errors"

	"staydesk/internal/app/commands"
)

var ErrForbidden = errors.New("middleware: operator credentials required")

// OperatorCommand marks commands reserved for hotel staff, such as status changes.
type OperatorCommand interface {
	commands.Command
	RequiresOperator() bool
}

type operatorKey struct{}

// ContextWithOperatorKey stores the key presented by the caller.
func ContextWithOperatorKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, operatorKey{}, key)
}

// OperatorAuthorization rejects operator commands whose caller did not present
// expected. An empty expected key disables the check.
func OperatorAuthorization(expected string) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			op, ok := cmd.(OperatorCommand)
			if expected == "" || !ok || !op.RequiresOperator() {
				return next.Dispatch(ctx, cmd)
			}
			presented, _ := ctx.Value(operatorKey{}).(string)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				return nil, ErrForbidden
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}
