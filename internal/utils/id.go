package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a unique ID for a trial run
func GenerateID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return "unknown"
	}
	return id.String()
}
