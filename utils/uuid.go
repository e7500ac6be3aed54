package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new time-ordered identifier so auctions and bids sort
// by creation in the store. Falls back to a random UUID if the clock source fails.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
