package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staydesk/internal/app/dto"
	availabilityapp "staydesk/internal/app/handlers/availability"
	"staydesk/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	query := availabilityapp.CheckAvailabilityQuery{
		RoomID:           c.Param("id"),
		CheckIn:          c.Query("check_in"),
		CheckOut:         c.Query("check_out"),
		ExcludeBookingID: c.Query("exclude_booking_id"),
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
