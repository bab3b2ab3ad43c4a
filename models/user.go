package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the coarse access level of a user
type Role string

const (
	RoleUser          Role = "user"
	RoleFrontDesk     Role = "front_desk"
	RoleManager       Role = "manager"
	RoleCoordinator   Role = "coordinator"
	RoleAdministrator Role = "administrator"
)

// IsValid reports whether the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleFrontDesk, RoleManager, RoleCoordinator, RoleAdministrator:
		return true
	}
	return false
}

// Capability is a named permission grantable per user on top of the role
type Capability string

const (
	CapabilityUploadGDB      Capability = "upload_gdb"
	CapabilityImportR1R2     Capability = "import_r1r2"
	CapabilityApproveChanges Capability = "approve_changes"
	CapabilityProposeChanges Capability = "propose_changes"
)

// KnownCapabilities is the fixed catalog of grantable capabilities.
// Grants outside this set are rejected, never silently ignored.
var KnownCapabilities = []Capability{
	CapabilityUploadGDB,
	CapabilityImportR1R2,
	CapabilityApproveChanges,
	CapabilityProposeChanges,
}

// IsKnownCapability reports whether name is in the capability catalog
func IsKnownCapability(name Capability) bool {
	for _, c := range KnownCapabilities {
		if c == name {
			return true
		}
	}
	return false
}

// User represents a user entity
type User struct {
	ID           uuid.UUID    `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never serialize password hash
	Name         string       `json:"name"`
	Role         Role         `json:"role"`
	Capabilities []Capability `json:"capabilities"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Actor is the authenticated identity handed to the engines. The API layer
// builds it from the bearer token plus the stored capability grants.
type Actor struct {
	UserID       uuid.UUID
	Name         string
	Role         Role
	Capabilities []Capability
}

// HasCapability reports whether the actor carries an explicit grant
func (a Actor) HasCapability(name Capability) bool {
	for _, c := range a.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// ActorFromUser builds an Actor from a stored user record
func ActorFromUser(u *User) Actor {
	return Actor{
		UserID:       u.ID,
		Name:         u.Name,
		Role:         u.Role,
		Capabilities: u.Capabilities,
	}
}
