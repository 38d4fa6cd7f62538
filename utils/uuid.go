package utils

import (
	"github.com/google/uuid"
)

// NewConnectionID returns an identifier for a transport session.
func NewConnectionID() string {
	return "conn-" + uuid.NewString()
}
