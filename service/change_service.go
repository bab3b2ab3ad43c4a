package service

import (
	"context"
	"errors"
	"fmt"

	"catastro-backend/models"
	"catastro-backend/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ChangeService validates and applies change-proposal transitions. A
// proposal moves pendiente -> aprobado | rechazado exactly once; the
// target parcel is only touched after the reviewer wins the conditional
// write, so a parcel is mutated at most once per proposal.
type ChangeService struct {
	changes  ChangeStore
	parcels  ParcelStore
	users    UserStore
	notifier *NotificationService
	logger   *logrus.Logger
}

// ChangeServiceOption is a functional option for ChangeService
type ChangeServiceOption func(*ChangeService)

// ChangeWithStore sets the change proposal store
func ChangeWithStore(store ChangeStore) ChangeServiceOption {
	return func(s *ChangeService) {
		s.changes = store
	}
}

// ChangeWithParcelStore sets the parcel store
func ChangeWithParcelStore(store ParcelStore) ChangeServiceOption {
	return func(s *ChangeService) {
		s.parcels = store
	}
}

// ChangeWithUserStore sets the user store
func ChangeWithUserStore(store UserStore) ChangeServiceOption {
	return func(s *ChangeService) {
		s.users = store
	}
}

// ChangeWithNotifier sets the notification dispatcher
func ChangeWithNotifier(notifier *NotificationService) ChangeServiceOption {
	return func(s *ChangeService) {
		s.notifier = notifier
	}
}

// ChangeWithLogger sets the logger
func ChangeWithLogger(logger *logrus.Logger) ChangeServiceOption {
	return func(s *ChangeService) {
		s.logger = logger
	}
}

// NewChangeService creates a new change service
func NewChangeService(opts ...ChangeServiceOption) *ChangeService {
	s := &ChangeService{logger: logrus.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProposeChangeRequest describes a proposed parcel edit
type ProposeChangeRequest struct {
	ParcelID      *uuid.UUID
	Kind          models.ChangeKind
	Payload       models.FieldPayload
	Justification string
}

// ProposeChange files a change proposal in state pendiente. Deletions must
// carry an empty payload, creations and modifications a non-empty one with
// known parcel fields only.
func (s *ChangeService) ProposeChange(ctx context.Context, actor models.Actor, req ProposeChangeRequest) (*models.ChangeProposal, error) {
	if !Allowed(actor, ActionProposeChange) {
		return nil, ErrForbidden
	}
	if !req.Kind.IsValid() {
		return nil, validationf("unknown change kind %q", req.Kind)
	}

	switch req.Kind {
	case models.ChangeDelete:
		if len(req.Payload) > 0 {
			return nil, validationf("a deletion proposal must not carry a payload")
		}
	default:
		if len(req.Payload) == 0 {
			return nil, validationf("a %s proposal requires a non-empty payload", req.Kind)
		}
	}
	for field := range req.Payload {
		if !models.IsParcelField(field) {
			return nil, validationf("unknown parcel field %q", field)
		}
	}

	if req.Kind == models.ChangeCreate {
		if req.ParcelID != nil {
			return nil, validationf("a creation proposal must not target an existing parcel")
		}
		if _, ok := req.Payload[models.FieldParcelNumber]; !ok {
			return nil, validationf("a creation proposal requires %s", models.FieldParcelNumber)
		}
	} else {
		if req.ParcelID == nil {
			return nil, validationf("a %s proposal requires a target parcel", req.Kind)
		}
		if _, err := s.parcels.GetByID(ctx, *req.ParcelID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: parcel %s", ErrNotFound, *req.ParcelID)
			}
			return nil, translateStoreError(err)
		}
	}

	proposal := &models.ChangeProposal{
		ParcelID:      req.ParcelID,
		Kind:          req.Kind,
		Payload:       req.Payload,
		Justification: req.Justification,
		ProposerID:    actor.UserID,
		ProposerName:  actor.Name,
		State:         models.ChangePending,
	}
	if proposal.Payload == nil {
		proposal.Payload = models.FieldPayload{}
	}

	if err := s.changes.Create(ctx, proposal); err != nil {
		return nil, translateStoreError(err)
	}

	s.notifyCoordinators(ctx, proposal)

	return proposal, nil
}

// ReviewChangeRequest carries the reviewer's verdict
type ReviewChangeRequest struct {
	ChangeID uuid.UUID
	Approve  bool
	Comment  string
}

// ReviewChange settles a pending proposal. On approval the payload is
// applied to the parcel record: full replace for creations, field merge
// for modifications, soft delete for deletions. A rejected proposal never
// touches the parcel. Reviewing a settled proposal fails.
func (s *ChangeService) ReviewChange(ctx context.Context, actor models.Actor, req ReviewChangeRequest) (*models.ChangeProposal, error) {
	if !Allowed(actor, ActionReviewChange) {
		return nil, ErrForbidden
	}

	proposal, err := s.changes.GetByID(ctx, req.ChangeID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if proposal.State.IsTerminal() {
		return nil, ErrAlreadyReviewed
	}

	reviewerID := actor.UserID
	reviewerName := actor.Name
	comment := req.Comment
	proposal.ReviewerID = &reviewerID
	proposal.ReviewerName = &reviewerName
	proposal.ReviewComment = &comment
	if req.Approve {
		proposal.State = models.ChangeApproved
	} else {
		proposal.State = models.ChangeRejected
	}

	// The conditional write settles racing reviews; only the winner
	// proceeds to mutate the parcel.
	if err := s.changes.Review(ctx, proposal); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, ErrAlreadyReviewed
		}
		return nil, translateStoreError(err)
	}

	if req.Approve {
		if err := s.applyToParcel(ctx, proposal); err != nil {
			// The proposal is settled; the parcel write failed on its own.
			s.logger.WithField("proposal", proposal.ID).WithError(err).Error("approved change could not be applied to parcel")
			return nil, err
		}
	}

	s.notifier.Notify(ctx, []uuid.UUID{proposal.ProposerID},
		"Propuesta revisada",
		fmt.Sprintf("Su propuesta de %s quedo %s", proposal.Kind, proposal.State),
		models.ReferenceChange, proposal.ID)

	return proposal, nil
}

func (s *ChangeService) applyToParcel(ctx context.Context, proposal *models.ChangeProposal) error {
	switch proposal.Kind {
	case models.ChangeCreate:
		parcel := parcelFromPayload(proposal.Payload)
		if err := s.parcels.Create(ctx, parcel); err != nil {
			return translateStoreError(err)
		}
	case models.ChangeModify:
		if err := s.parcels.ApplyFields(ctx, *proposal.ParcelID, proposal.Payload); err != nil {
			return translateStoreError(err)
		}
	case models.ChangeDelete:
		if err := s.parcels.SoftDelete(ctx, *proposal.ParcelID); err != nil {
			return translateStoreError(err)
		}
	}
	return nil
}

func parcelFromPayload(payload models.FieldPayload) *models.Parcel {
	parcel := &models.Parcel{}
	if v, ok := payload[models.FieldParcelNumber].(string); ok {
		parcel.ParcelNumber = v
	}
	if v, ok := payload[models.FieldOwnerName].(string); ok {
		parcel.OwnerName = v
	}
	if v, ok := payload[models.FieldOwnerDocument].(string); ok {
		parcel.OwnerDocument = v
	}
	if v, ok := payload[models.FieldAddress].(string); ok {
		parcel.Address = v
	}
	if v, ok := payload[models.FieldArea].(float64); ok {
		parcel.Area = v
	}
	if v, ok := payload[models.FieldLandUse].(string); ok {
		parcel.LandUse = v
	}
	if v, ok := payload[models.FieldMunicipality].(string); ok {
		parcel.Municipality = v
	}
	return parcel
}

// ListPending returns proposals awaiting review, oldest first
func (s *ChangeService) ListPending(ctx context.Context, actor models.Actor) ([]*models.ChangeProposal, error) {
	if !Allowed(actor, ActionListPendingChanges) {
		return nil, ErrForbidden
	}
	proposals, err := s.changes.ListPending(ctx)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return proposals, nil
}

// Stats partitions the pending count by change kind
func (s *ChangeService) Stats(ctx context.Context, actor models.Actor) (*models.ChangeStats, error) {
	if !Allowed(actor, ActionChangeStats) {
		return nil, ErrForbidden
	}
	counts, err := s.changes.CountPendingByKind(ctx)
	if err != nil {
		return nil, translateStoreError(err)
	}
	stats := &models.ChangeStats{ByKind: counts}
	for _, count := range counts {
		stats.Total += count
	}
	return stats, nil
}

// GetParcel retrieves a parcel record
func (s *ChangeService) GetParcel(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Parcel, error) {
	parcel, err := s.parcels.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return parcel, nil
}

// GrantCapability records an administrator's capability grant for a user.
// Unknown capability names are rejected, never silently ignored.
func (s *ChangeService) GrantCapability(ctx context.Context, actor models.Actor, userID uuid.UUID, capability models.Capability) error {
	if !Allowed(actor, ActionGrantCapability) {
		return ErrForbidden
	}
	if !models.IsKnownCapability(capability) {
		return validationf("unknown capability %q", capability)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return translateStoreError(err)
	}
	if err := s.users.GrantCapability(ctx, userID, capability); err != nil {
		return translateStoreError(err)
	}
	return nil
}

// RevokeCapability removes a capability grant
func (s *ChangeService) RevokeCapability(ctx context.Context, actor models.Actor, userID uuid.UUID, capability models.Capability) error {
	if !Allowed(actor, ActionGrantCapability) {
		return ErrForbidden
	}
	if !models.IsKnownCapability(capability) {
		return validationf("unknown capability %q", capability)
	}
	if err := s.users.RevokeCapability(ctx, userID, capability); err != nil {
		return translateStoreError(err)
	}
	return nil
}

// notifyCoordinators tells every coordinator a proposal awaits review
func (s *ChangeService) notifyCoordinators(ctx context.Context, proposal *models.ChangeProposal) {
	if s.users == nil {
		return
	}
	coordinators, err := s.users.ListByRole(ctx, models.RoleCoordinator)
	if err != nil {
		s.logger.WithError(err).Warn("could not resolve coordinators for notification")
		return
	}
	recipients := make([]uuid.UUID, 0, len(coordinators))
	for _, coordinator := range coordinators {
		recipients = append(recipients, coordinator.ID)
	}
	s.notifier.Notify(ctx, recipients,
		"Nueva propuesta de cambio",
		fmt.Sprintf("%s propuso una %s pendiente de revision", proposal.ProposerName, proposal.Kind),
		models.ReferenceChange, proposal.ID)
}
