package service

import (
	"context"

	"catastro-backend/models"
	"catastro-backend/repository"

	"github.com/google/uuid"
)

// Store interfaces consumed by the engines. The pgx repositories satisfy
// them in production; tests use in-memory implementations. Keeping them
// here means the engines never hold a process-wide database handle.

// PetitionStore persists petitions with conditional writes keyed by the
// state the petition was read with
type PetitionStore interface {
	Create(ctx context.Context, petition *models.Petition, record *models.HistoryRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Petition, error)
	UpdateWithHistory(ctx context.Context, petition *models.Petition, expectedState models.PetitionState, record *models.HistoryRecord) error
	ListHistory(ctx context.Context, petitionID uuid.UUID) ([]*models.HistoryRecord, error)
	List(ctx context.Context, filter repository.PetitionFilter, limit, offset int) ([]*models.Petition, error)
	CountByState(ctx context.Context, filter repository.PetitionFilter) (map[models.PetitionState]int, error)
}

// ParcelStore persists parcel records
type ParcelStore interface {
	Create(ctx context.Context, parcel *models.Parcel) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Parcel, error)
	ApplyFields(ctx context.Context, id uuid.UUID, payload models.FieldPayload) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// ChangeStore persists change proposals with a conditional review write
type ChangeStore interface {
	Create(ctx context.Context, proposal *models.ChangeProposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChangeProposal, error)
	Review(ctx context.Context, proposal *models.ChangeProposal) error
	ListPending(ctx context.Context) ([]*models.ChangeProposal, error)
	CountPendingByKind(ctx context.Context) (map[models.ChangeKind]int, error)
}

// NotificationStore persists notification records
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
}

// UserStore resolves users and capability grants
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GrantCapability(ctx context.Context, userID uuid.UUID, capability models.Capability) error
	RevokeCapability(ctx context.Context, userID uuid.UUID, capability models.Capability) error
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
}
