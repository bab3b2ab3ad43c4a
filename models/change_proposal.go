package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeState represents the review state of a change proposal
type ChangeState string

const (
	ChangePending  ChangeState = "pendiente"
	ChangeApproved ChangeState = "aprobado"
	ChangeRejected ChangeState = "rechazado"
)

// IsTerminal reports whether the proposal has been reviewed
func (s ChangeState) IsTerminal() bool {
	return s == ChangeApproved || s == ChangeRejected
}

// ChangeKind represents what a proposal does to its target parcel
type ChangeKind string

const (
	ChangeCreate ChangeKind = "creacion"
	ChangeModify ChangeKind = "modificacion"
	ChangeDelete ChangeKind = "eliminacion"
)

// IsValid reports whether the kind is one of the known change kinds
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeCreate, ChangeModify, ChangeDelete:
		return true
	}
	return false
}

// ChangeProposal represents a proposed edit to a parcel record awaiting
// review. Transitions are one-way: pendiente -> aprobado | rechazado.
type ChangeProposal struct {
	ID            uuid.UUID    `json:"id"`
	ParcelID      *uuid.UUID   `json:"parcel_id,omitempty"` // nil for creacion
	Kind          ChangeKind   `json:"kind"`
	Payload       FieldPayload `json:"payload"`
	Justification string       `json:"justification"`
	ProposerID    uuid.UUID    `json:"proposer_id"`
	ProposerName  string       `json:"proposer_name"`
	State         ChangeState  `json:"state"`

	ReviewerID    *uuid.UUID `json:"reviewer_id,omitempty"`
	ReviewerName  *string    `json:"reviewer_name,omitempty"`
	ReviewComment *string    `json:"review_comment,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeStats partitions the pending proposal count by change kind
type ChangeStats struct {
	ByKind map[ChangeKind]int `json:"by_kind"`
	Total  int                `json:"total"`
}
