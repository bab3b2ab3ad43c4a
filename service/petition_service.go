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

// PetitionService validates and applies petition state transitions. Every
// accepted transition is written together with its history record; the
// conditional write in the store guarantees at most one winner among
// racing transitions, the losers get ErrConflict and must re-read.
type PetitionService struct {
	petitions PetitionStore
	users     UserStore
	notifier  *NotificationService
	logger    *logrus.Logger
}

// PetitionServiceOption is a functional option for PetitionService
type PetitionServiceOption func(*PetitionService)

// WithPetitionStore sets the petition store
func WithPetitionStore(store PetitionStore) PetitionServiceOption {
	return func(s *PetitionService) {
		s.petitions = store
	}
}

// WithUserStore sets the user store
func WithUserStore(store UserStore) PetitionServiceOption {
	return func(s *PetitionService) {
		s.users = store
	}
}

// WithNotifier sets the notification dispatcher
func WithNotifier(notifier *NotificationService) PetitionServiceOption {
	return func(s *PetitionService) {
		s.notifier = notifier
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) PetitionServiceOption {
	return func(s *PetitionService) {
		s.logger = logger
	}
}

// NewPetitionService creates a new petition service
func NewPetitionService(opts ...PetitionServiceOption) *PetitionService {
	s := &PetitionService{logger: logrus.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePetitionRequest carries the filing data for a new petition
type CreatePetitionRequest struct {
	RequestType  models.RequestType
	Municipality string
	ContactEmail string
	ContactPhone string
	Notes        string
	Imported     bool
}

// CreatePetition files a new petition in state radicado. The tracking code
// is assigned by the store; the "radicacion" history record is written in
// the same transaction as the row itself.
func (s *PetitionService) CreatePetition(ctx context.Context, actor models.Actor, req CreatePetitionRequest) (*models.Petition, error) {
	if !Allowed(actor, ActionCreatePetition) {
		return nil, ErrForbidden
	}
	if !models.IsValidRequestType(req.RequestType) {
		return nil, validationf("unknown request type %q", req.RequestType)
	}
	if !models.IsValidMunicipality(req.Municipality) {
		return nil, validationf("unknown municipality %q", req.Municipality)
	}

	petition := &models.Petition{
		RequesterID:   actor.UserID,
		RequesterName: actor.Name,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		RequestType:   req.RequestType,
		Municipality:  req.Municipality,
		State:         models.StateRadicado,
		Notes:         req.Notes,
		Imported:      req.Imported,
	}

	record := &models.HistoryRecord{
		Action:    models.ActionFiled,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		FromState: models.StateRadicado,
		ToState:   models.StateRadicado,
	}

	if err := s.petitions.Create(ctx, petition, record); err != nil {
		return nil, translateStoreError(err)
	}

	return petition, nil
}

// GetPetition retrieves a petition. Plain users only see their own.
func (s *PetitionService) GetPetition(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Petition, error) {
	petition, err := s.petitions.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if actor.Role == models.RoleUser && petition.RequesterID != actor.UserID {
		return nil, ErrForbidden
	}
	return petition, nil
}

// GetHistory retrieves a petition's transition trail
func (s *PetitionService) GetHistory(ctx context.Context, actor models.Actor, id uuid.UUID) ([]*models.HistoryRecord, error) {
	if _, err := s.GetPetition(ctx, actor, id); err != nil {
		return nil, err
	}
	records, err := s.petitions.ListHistory(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return records, nil
}

// ListPetitionsRequest narrows a petition listing
type ListPetitionsRequest struct {
	State        *models.PetitionState
	Municipality *string
	Limit        int
	Offset       int
}

// ListPetitions lists petitions visible to the actor: requesters see their
// own filings, managers see their assignments, staff see everything.
func (s *PetitionService) ListPetitions(ctx context.Context, actor models.Actor, req ListPetitionsRequest) ([]*models.Petition, error) {
	filter := repository.PetitionFilter{
		State:        req.State,
		Municipality: req.Municipality,
	}
	switch actor.Role {
	case models.RoleUser:
		requesterID := actor.UserID
		filter.RequesterID = &requesterID
	case models.RoleManager:
		managerID := actor.UserID
		filter.ManagerID = &managerID
	}

	petitions, err := s.petitions.List(ctx, filter, req.Limit, req.Offset)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return petitions, nil
}

// SelfAssign lets a manager take an unassigned petition. Requires state
// radicado and an empty primary slot; racing callers are decided by the
// store's conditional write.
func (s *PetitionService) SelfAssign(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Petition, error) {
	if !Allowed(actor, ActionSelfAssignPetition) {
		return nil, ErrForbidden
	}

	petition, err := s.petitions.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if petition.IsAssigned() {
		return nil, ErrAlreadyAssigned
	}
	if petition.State != models.StateRadicado {
		return nil, fmt.Errorf("%w: cannot self-assign from %s", ErrInvalidTransition, petition.State)
	}

	previous := petition.State
	managerID := actor.UserID
	petition.PrimaryManagerID = &managerID
	petition.State = models.StateAsignado

	record := &models.HistoryRecord{
		Action:    models.ActionSelfAssign,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		FromState: previous,
		ToState:   petition.State,
	}

	if err := s.petitions.UpdateWithHistory(ctx, petition, previous, record); err != nil {
		return nil, translateStoreError(err)
	}

	s.notifier.Notify(ctx, []uuid.UUID{petition.RequesterID},
		"Peticion asignada",
		fmt.Sprintf("La peticion %s fue asignada a %s", petition.TrackingCode, actor.Name),
		models.ReferencePetition, petition.ID)

	return petition, nil
}

// AssignManagerRequest names the manager and the slot to fill
type AssignManagerRequest struct {
	PetitionID uuid.UUID
	ManagerID  uuid.UUID
	Auxiliary  bool
}

// AssignManager sets the primary or auxiliary manager slot. Filling the
// primary slot while the petition is still radicado also moves it to
// asignado; an auxiliary assignment never changes state.
func (s *PetitionService) AssignManager(ctx context.Context, actor models.Actor, req AssignManagerRequest) (*models.Petition, error) {
	if !Allowed(actor, ActionAssignManager) {
		return nil, ErrForbidden
	}

	manager, err := s.users.GetByID(ctx, req.ManagerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: manager %s", ErrNotFound, req.ManagerID)
		}
		return nil, translateStoreError(err)
	}
	if manager.Role != models.RoleManager && manager.Role != models.RoleAdministrator {
		return nil, fmt.Errorf("%w: user %s cannot be assigned petitions", ErrNotFound, req.ManagerID)
	}

	petition, err := s.petitions.GetByID(ctx, req.PetitionID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if petition.State.IsTerminal() {
		return nil, fmt.Errorf("%w: petition is %s", ErrInvalidTransition, petition.State)
	}

	previous := petition.State
	if req.Auxiliary {
		if petition.PrimaryManagerID != nil && *petition.PrimaryManagerID == req.ManagerID {
			return nil, validationf("manager already holds the primary slot")
		}
		managerID := req.ManagerID
		petition.AuxiliaryManagerID = &managerID
	} else {
		if petition.AuxiliaryManagerID != nil && *petition.AuxiliaryManagerID == req.ManagerID {
			return nil, validationf("manager already holds the auxiliary slot")
		}
		managerID := req.ManagerID
		petition.PrimaryManagerID = &managerID
		if petition.State == models.StateRadicado {
			petition.State = models.StateAsignado
		}
	}

	record := &models.HistoryRecord{
		Action:    models.ActionAssign,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		FromState: previous,
		ToState:   petition.State,
		Note:      fmt.Sprintf("asignado a %s", manager.Name),
	}

	if err := s.petitions.UpdateWithHistory(ctx, petition, previous, record); err != nil {
		return nil, translateStoreError(err)
	}

	s.notifier.Notify(ctx, []uuid.UUID{req.ManagerID, petition.RequesterID},
		"Peticion asignada",
		fmt.Sprintf("La peticion %s fue asignada a %s", petition.TrackingCode, manager.Name),
		models.ReferencePetition, petition.ID)

	return petition, nil
}

// UpdatePetitionRequest carries a partial update; nil pointers leave the
// field untouched. Note goes into the history record.
type UpdatePetitionRequest struct {
	PetitionID         uuid.UUID
	State              *models.PetitionState
	Notes              *string
	ContactEmail       *string
	ContactPhone       *string
	RequestType        *models.RequestType
	Municipality       *string
	ReturnObservations *string
	Note               string
}

// UpdatePetition applies a field-level authorized update. State changes
// follow the transition policy; moving to devuelto demands return
// observations in the same call and records who returned it. Terminal
// petitions reject every update.
func (s *PetitionService) UpdatePetition(ctx context.Context, actor models.Actor, req UpdatePetitionRequest) (*models.Petition, error) {
	if !Allowed(actor, ActionUpdatePetition) {
		return nil, ErrForbidden
	}

	petition, err := s.petitions.GetByID(ctx, req.PetitionID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if actor.Role == models.RoleUser && petition.RequesterID != actor.UserID {
		return nil, ErrForbidden
	}
	if petition.State.IsTerminal() {
		return nil, fmt.Errorf("%w: petition is %s", ErrInvalidTransition, petition.State)
	}

	previous := petition.State

	if req.ContactEmail != nil || req.ContactPhone != nil {
		if !CanUpdateField(actor.Role, FieldContact) {
			return nil, ErrForbidden
		}
		if req.ContactEmail != nil {
			petition.ContactEmail = *req.ContactEmail
		}
		if req.ContactPhone != nil {
			petition.ContactPhone = *req.ContactPhone
		}
	}

	if req.RequestType != nil || req.Municipality != nil {
		if !CanUpdateField(actor.Role, FieldCatalog) {
			return nil, ErrForbidden
		}
		if req.RequestType != nil {
			if !models.IsValidRequestType(*req.RequestType) {
				return nil, validationf("unknown request type %q", *req.RequestType)
			}
			petition.RequestType = *req.RequestType
		}
		if req.Municipality != nil {
			if !models.IsValidMunicipality(*req.Municipality) {
				return nil, validationf("unknown municipality %q", *req.Municipality)
			}
			petition.Municipality = *req.Municipality
		}
	}

	if req.Notes != nil {
		if !CanUpdateField(actor.Role, FieldNotes) {
			return nil, ErrForbidden
		}
		petition.Notes = *req.Notes
	}

	action := models.ActionUpdate
	if req.State != nil && *req.State != previous {
		if !CanUpdateField(actor.Role, FieldState) {
			return nil, ErrForbidden
		}
		if !transitionAllowed(actor.Role, previous, *req.State) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, *req.State)
		}

		petition.State = *req.State
		if *req.State == models.StateDevuelto {
			if req.ReturnObservations == nil || *req.ReturnObservations == "" {
				return nil, validationf("returning a petition requires observations")
			}
			action = models.ActionReturn
			returnedBy := actor.Name
			petition.ReturnObservations = *req.ReturnObservations
			petition.ReturnedBy = &returnedBy
		} else {
			// Observations only live while the petition sits in devuelto.
			petition.ReturnObservations = ""
			petition.ReturnedBy = nil
		}
	}

	record := &models.HistoryRecord{
		Action:    action,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		FromState: previous,
		ToState:   petition.State,
		Note:      req.Note,
	}

	if err := s.petitions.UpdateWithHistory(ctx, petition, previous, record); err != nil {
		return nil, translateStoreError(err)
	}

	if petition.State != previous {
		s.notifyTransition(ctx, actor, petition, previous)
	}

	return petition, nil
}

// Resend is the owner's resubmission of a returned petition: clears the
// return observations and moves devuelto back to revision.
func (s *PetitionService) Resend(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Petition, error) {
	petition, err := s.petitions.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if petition.RequesterID != actor.UserID {
		return nil, ErrForbidden
	}
	if petition.State != models.StateDevuelto {
		return nil, fmt.Errorf("%w: cannot resend from %s", ErrInvalidTransition, petition.State)
	}

	previous := petition.State
	petition.State = models.StateRevision
	petition.ReturnObservations = ""
	petition.ReturnedBy = nil

	record := &models.HistoryRecord{
		Action:    models.ActionResend,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		FromState: previous,
		ToState:   petition.State,
	}

	if err := s.petitions.UpdateWithHistory(ctx, petition, previous, record); err != nil {
		return nil, translateStoreError(err)
	}

	s.notifyTransition(ctx, actor, petition, previous)

	return petition, nil
}

// DashboardStats returns per-state counts plus a total derived from the
// same snapshot, so total always equals the sum of the counts. Requesters
// get stats over their own petitions, managers over their assignments.
func (s *PetitionService) DashboardStats(ctx context.Context, actor models.Actor) (*models.PetitionStats, error) {
	if !Allowed(actor, ActionPetitionStats) {
		return nil, ErrForbidden
	}

	filter := repository.PetitionFilter{}
	switch actor.Role {
	case models.RoleUser:
		requesterID := actor.UserID
		filter.RequesterID = &requesterID
	case models.RoleManager:
		managerID := actor.UserID
		filter.ManagerID = &managerID
	}

	counts, err := s.petitions.CountByState(ctx, filter)
	if err != nil {
		return nil, translateStoreError(err)
	}

	stats := &models.PetitionStats{ByState: counts}
	for _, count := range counts {
		stats.Total += count
	}
	return stats, nil
}

// notifyTransition fans a state change out to the requester and both
// assigned managers, skipping whoever performed it.
func (s *PetitionService) notifyTransition(ctx context.Context, actor models.Actor, petition *models.Petition, previous models.PetitionState) {
	var recipients []uuid.UUID
	if petition.RequesterID != actor.UserID {
		recipients = append(recipients, petition.RequesterID)
	}
	if petition.PrimaryManagerID != nil && *petition.PrimaryManagerID != actor.UserID {
		recipients = append(recipients, *petition.PrimaryManagerID)
	}
	if petition.AuxiliaryManagerID != nil && *petition.AuxiliaryManagerID != actor.UserID {
		recipients = append(recipients, *petition.AuxiliaryManagerID)
	}

	message := fmt.Sprintf("La peticion %s paso de %s a %s", petition.TrackingCode, previous, petition.State)
	if petition.State == models.StateDevuelto {
		message = fmt.Sprintf("La peticion %s fue devuelta: %s", petition.TrackingCode, petition.ReturnObservations)
	}

	s.notifier.Notify(ctx, recipients, "Cambio de estado", message, models.ReferencePetition, petition.ID)
}
