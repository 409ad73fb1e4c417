package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staydesk/internal/app/commands"
	"staydesk/internal/app/dto"
	bookingapp "staydesk/internal/app/handlers/booking"
	"staydesk/internal/app/middleware"
	"staydesk/internal/app/queries"
	domainbooking "staydesk/internal/domain/booking"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	RoomID string `json:"room_id"`
	stayRequest
	Guest         domainbooking.Guest `json:"guest"`
	PaymentMethod string              `json:"payment_method"`
	ClientTotal   string              `json:"client_total"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		RoomID:          req.RoomID,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Adults:          req.Adults,
		Children:        req.Children,
		ChildrenAges:    req.ChildrenAges,
		Extras:          req.Extras,
		Guest:           req.Guest,
		PaymentMethod:   req.PaymentMethod,
		ClientTotal:     req.ClientTotal,
		IdempotencyKeyV: c.GetHeader(HeaderIdempotencyKey),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingRecord](c.Request.Context(), h.Queries, bookingapp.GetBookingQuery{ID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Lookup(c *gin.Context) {
	result, err := queries.Ask[bookingapp.LookupBookingQuery, dto.BookingRecord](c.Request.Context(), h.Queries, bookingapp.LookupBookingQuery{Token: c.Param("token")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := middleware.ContextWithOperatorKey(c.Request.Context(), c.GetHeader(HeaderOperatorKey))
	cmd := bookingapp.ChangeStatusCommand{BookingID: c.Param("id"), Status: req.Status, Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.ChangeStatusCommand, *bookingapp.ChangeStatusResult](ctx, h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
