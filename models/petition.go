package models

import (
	"time"

	"github.com/google/uuid"
)

// PetitionState represents the lifecycle state of a petition
type PetitionState string

const (
	StateRadicado   PetitionState = "radicado"
	StateAsignado   PetitionState = "asignado"
	StateRevision   PetitionState = "revision"
	StateDevuelto   PetitionState = "devuelto"
	StateRechazado  PetitionState = "rechazado"
	StateFinalizado PetitionState = "finalizado"
)

// IsValid reports whether the state is one of the known lifecycle states
func (s PetitionState) IsValid() bool {
	switch s {
	case StateRadicado, StateAsignado, StateRevision, StateDevuelto, StateRechazado, StateFinalizado:
		return true
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions
func (s PetitionState) IsTerminal() bool {
	return s == StateRechazado || s == StateFinalizado
}

// forwardTransitions is the nominal lifecycle. devuelto -> revision is
// deliberately absent: that edge belongs to the owner's resend action only.
var forwardTransitions = map[PetitionState][]PetitionState{
	StateRadicado: {StateAsignado},
	StateAsignado: {StateRevision},
	StateRevision: {StateDevuelto, StateRechazado, StateFinalizado},
}

// CanTransition reports whether from -> to is a nominal forward edge
func CanTransition(from, to PetitionState) bool {
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestType represents the kind of cadastral request being filed
type RequestType string

const (
	RequestMutacion        RequestType = "mutacion"
	RequestRectificacion   RequestType = "rectificacion"
	RequestComplementacion RequestType = "complementacion"
	RequestRevisionAvaluo  RequestType = "revision_avaluo"
	RequestCertificado     RequestType = "certificado"
)

// RequestTypes is the fixed catalog of request types
var RequestTypes = []RequestType{
	RequestMutacion,
	RequestRectificacion,
	RequestComplementacion,
	RequestRevisionAvaluo,
	RequestCertificado,
}

// IsValidRequestType reports whether t is in the request-type catalog
func IsValidRequestType(t RequestType) bool {
	for _, rt := range RequestTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// Municipalities is the fixed catalog of municipalities served
var Municipalities = []string{
	"Pasto",
	"Ipiales",
	"Tumaco",
	"Tuquerres",
	"Samaniego",
	"La Union",
	"Sandona",
	"Buesaco",
}

// IsValidMunicipality reports whether name is in the municipality catalog
func IsValidMunicipality(name string) bool {
	for _, m := range Municipalities {
		if m == name {
			return true
		}
	}
	return false
}

// Petition represents a citizen-filed cadastral request tracked through a
// fixed lifecycle
type Petition struct {
	ID            uuid.UUID     `json:"id"`
	TrackingCode  string        `json:"tracking_code"`
	RequesterID   uuid.UUID     `json:"requester_id"`
	RequesterName string        `json:"requester_name"`
	ContactEmail  string        `json:"contact_email"`
	ContactPhone  string        `json:"contact_phone"`
	RequestType   RequestType   `json:"request_type"`
	Municipality  string        `json:"municipality"`
	State         PetitionState `json:"state"`

	// Manager assignment: primary drives the radicado -> asignado
	// transition, auxiliary never does.
	PrimaryManagerID   *uuid.UUID `json:"primary_manager_id,omitempty"`
	AuxiliaryManagerID *uuid.UUID `json:"auxiliary_manager_id,omitempty"`

	Notes              string  `json:"notes"`
	ReturnObservations string  `json:"return_observations,omitempty"`
	ReturnedBy         *string `json:"returned_by,omitempty"`

	Imported bool `json:"imported"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAssigned reports whether a primary manager has been set
func (p *Petition) IsAssigned() bool {
	return p.PrimaryManagerID != nil
}

// PetitionStats is a per-state breakdown computed from a single snapshot,
// so Total always equals the sum of the per-state counts.
type PetitionStats struct {
	ByState map[PetitionState]int `json:"by_state"`
	Total   int                   `json:"total"`
}
