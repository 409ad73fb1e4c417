package ginserver

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"staydesk/internal/app/middleware"
	"staydesk/internal/domain/shared/fault"
)

type errorBody struct {
	Kind      string   `json:"kind"`
	Code      string   `json:"code,omitempty"`
	Field     string   `json:"field,omitempty"`
	Message   string   `json:"message"`
	Reason    string   `json:"reason,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// writeError maps the engine's failure kinds onto HTTP. Computation and
// unknown failures never leak their details to the client.
func writeError(c *gin.Context, err error) {
	var (
		validation  *fault.ValidationError
		conflict    *fault.ConflictError
		lockTimeout *fault.LockTimeoutError
		notFound    *fault.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		abort(c, http.StatusUnprocessableEntity, errorBody{Kind: string(fault.KindValidation), Code: validation.Code, Field: validation.Field, Message: validation.Msg})
	case errors.As(err, &conflict):
		abort(c, http.StatusConflict, errorBody{Kind: string(fault.KindConflict), Reason: string(conflict.Reason), Message: "room is not available for the requested dates", Conflicts: conflict.Conflicts})
	case errors.As(err, &lockTimeout):
		c.Header("Retry-After", retryAfter(lockTimeout))
		abort(c, http.StatusServiceUnavailable, errorBody{Kind: string(fault.KindLockTimeout), Message: "room is busy, retry shortly"})
	case errors.As(err, &notFound):
		abort(c, http.StatusNotFound, errorBody{Kind: string(fault.KindNotFound), Message: notFound.Error()})
	case errors.Is(err, middleware.ErrForbidden):
		abort(c, http.StatusForbidden, errorBody{Kind: "forbidden", Message: "operator credentials required"})
	case errors.Is(err, middleware.ErrKeyReused):
		abort(c, http.StatusConflict, errorBody{Kind: "idempotency", Code: "idempotency_key_reused", Message: err.Error()})
	default:
		abort(c, http.StatusInternalServerError, errorBody{Kind: string(fault.KindComputation), Message: "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	abort(c, http.StatusBadRequest, errorBody{Kind: "bad_request", Code: "malformed_body", Message: err.Error()})
}

func abort(c *gin.Context, status int, body errorBody) {
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func retryAfter(err *fault.LockTimeoutError) string {
	secs := int(math.Ceil(err.Timeout.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
