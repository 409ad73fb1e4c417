package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staydesk/internal/app/dto"
	pricingapp "staydesk/internal/app/handlers/pricing"
	"staydesk/internal/app/queries"
	domainpricing "staydesk/internal/domain/pricing"
)

type PricingHandler struct {
	Queries queries.Bus
}

type stayRequest struct {
	CheckIn      string                    `json:"check_in"`
	CheckOut     string                    `json:"check_out"`
	Adults       int                       `json:"adults"`
	Children     int                       `json:"children"`
	ChildrenAges []int                     `json:"children_ages"`
	Extras       []domainpricing.Selection `json:"extras"`
}

func (h PricingHandler) Quote(c *gin.Context) {
	var req stayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	query := pricingapp.QuoteQuery{
		RoomID:       c.Param("id"),
		CheckIn:      req.CheckIn,
		CheckOut:     req.CheckOut,
		Adults:       req.Adults,
		Children:     req.Children,
		ChildrenAges: req.ChildrenAges,
		Extras:       req.Extras,
	}
	result, err := queries.Ask[pricingapp.QuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PricingHTTP = PricingHandler{}
