package support

import (
	"errors"

	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/fault"
)

// ParseStay parses YYYY-MM-DD check-in/check-out strings into a validated range.
func ParseStay(checkIn, checkOut string) (daterange.DateRange, error) {
	dr, err := daterange.Parse(checkIn, checkOut)
	switch {
	case err == nil:
		return dr, nil
	case errors.Is(err, daterange.ErrInvalidDate):
		return daterange.DateRange{}, fault.Validation(fault.CodeInvalidRoomOrDates, "check_in", "dates must use YYYY-MM-DD")
	default:
		return daterange.DateRange{}, fault.Validation(fault.CodeInvalidRoomOrDates, "check_out", "check-out must be after check-in")
	}
}
