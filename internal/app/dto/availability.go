package dto

import (
	"staydesk/internal/domain/availability"
	"staydesk/internal/domain/shared/daterange"
)

type Availability struct {
	RoomID        string `json:"room_id"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Nights        int    `json:"nights"`
	Available     bool   `json:"available"`
	Reason        string `json:"reason,omitempty"`
	ConflictCount int    `json:"conflict_count,omitempty"`
	Cached        bool   `json:"cached"`
}

func MapAvailability(res availability.Result, cached bool) Availability {
	return Availability{
		RoomID:        string(res.RoomID),
		CheckIn:       res.Range.CheckIn.Format(daterange.DateLayout),
		CheckOut:      res.Range.CheckOut.Format(daterange.DateLayout),
		Nights:        res.Range.Nights(),
		Available:     res.Available,
		Reason:        string(res.Reason),
		ConflictCount: len(res.Conflicts),
		Cached:        cached,
	}
}
