package models

import (
	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

// Actor is who is acting and in what role. It is resolved once at the call
// boundary and passed down explicitly.
type Actor struct {
	ID   uuid.UUID  `json:"id"`
	Role types.Role `json:"role"`
}

func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil
}

func (a Actor) IsDriver() bool {
	return a.Role == types.RoleDriver
}

func (a Actor) IsPassenger() bool {
	return a.Role == types.RolePassenger
}
