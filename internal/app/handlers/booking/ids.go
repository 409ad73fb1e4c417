package booking

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

const tokenBytes = 24

// NewBookingToken returns an opaque, non-enumerable lookup token.
func NewBookingToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func NewBookingID() string {
	return uuid.NewString()
}
