package models

import (
	"time"

	"github.com/google/uuid"
)

// History action labels. Stored verbatim so the trail reads as filed events,
// not as generic state diffs.
const (
	ActionFiled      = "radicacion"
	ActionSelfAssign = "autoasignacion"
	ActionAssign     = "asignacion"
	ActionUpdate     = "actualizacion"
	ActionReturn     = "devolucion"
	ActionResend     = "reenvio"
)

// HistoryRecord is one append-only entry in a petition's transition trail.
// Records are never mutated or deleted after creation.
type HistoryRecord struct {
	ID         uuid.UUID     `json:"id"`
	PetitionID uuid.UUID     `json:"petition_id"`
	Action     string        `json:"action"`
	ActorID    uuid.UUID     `json:"actor_id"`
	ActorName  string        `json:"actor_name"`
	ActorRole  Role          `json:"actor_role"`
	FromState  PetitionState `json:"from_state"`
	ToState    PetitionState `json:"to_state"`
	Note       string        `json:"note,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
