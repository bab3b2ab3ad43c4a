package service

import "catastro-backend/models"

// Action labels every operation the engines expose. Authorization is one
// table lookup per operation instead of role checks scattered through the
// business logic.
type Action string

const (
	ActionCreatePetition     Action = "petition.create"
	ActionSelfAssignPetition Action = "petition.self_assign"
	ActionAssignManager      Action = "petition.assign_manager"
	ActionUpdatePetition     Action = "petition.update"
	ActionResendPetition     Action = "petition.resend"
	ActionPetitionStats      Action = "petition.stats"
	ActionExportPetitions    Action = "petition.export"
	ActionProposeChange      Action = "change.propose"
	ActionReviewChange       Action = "change.review"
	ActionListPendingChanges Action = "change.list_pending"
	ActionChangeStats        Action = "change.stats"
	ActionGrantCapability    Action = "user.grant_capability"
)

// roleActions maps each action to the roles allowed to perform it. A nil
// entry means any authenticated role.
var roleActions = map[Action][]models.Role{
	ActionCreatePetition:     nil,
	ActionSelfAssignPetition: {models.RoleManager, models.RoleAdministrator},
	ActionAssignManager:      {models.RoleCoordinator, models.RoleAdministrator},
	ActionUpdatePetition:     {models.RoleUser, models.RoleFrontDesk, models.RoleManager, models.RoleCoordinator, models.RoleAdministrator},
	ActionResendPetition:     nil, // ownership enforced by the engine
	ActionPetitionStats:      nil,
	ActionExportPetitions:    {models.RoleCoordinator, models.RoleAdministrator},
	ActionListPendingChanges: {models.RoleCoordinator, models.RoleAdministrator},
	ActionChangeStats:        {models.RoleCoordinator, models.RoleAdministrator},
	ActionGrantCapability:    {models.RoleAdministrator},
}

// capabilityActions maps capability-gated actions to the capability that
// unlocks them, and capabilityDefaultRoles to the roles that hold the
// capability implicitly. Authorization passes on role OR explicit grant;
// administrator is always implicit.
var capabilityActions = map[Action]models.Capability{
	ActionProposeChange: models.CapabilityProposeChanges,
	ActionReviewChange:  models.CapabilityApproveChanges,
}

var capabilityDefaultRoles = map[models.Capability][]models.Role{
	models.CapabilityProposeChanges: {models.RoleManager, models.RoleAdministrator},
	models.CapabilityApproveChanges: {models.RoleAdministrator},
}

// Allowed evaluates the authorization matrix for one actor and action
func Allowed(actor models.Actor, action Action) bool {
	if capability, ok := capabilityActions[action]; ok {
		for _, role := range capabilityDefaultRoles[capability] {
			if actor.Role == role {
				return true
			}
		}
		return actor.HasCapability(capability)
	}

	roles, ok := roleActions[action]
	if !ok {
		return false
	}
	if roles == nil {
		return actor.Role.IsValid()
	}
	for _, role := range roles {
		if actor.Role == role {
			return true
		}
	}
	return false
}

// Petition fields for per-role update authorization
type PetitionField string

const (
	FieldState   PetitionField = "state"
	FieldNotes   PetitionField = "notes"
	FieldContact PetitionField = "contact"
	FieldCatalog PetitionField = "catalog" // request type and municipality
)

// updateFields maps each role to the petition fields it may change. The
// requester and plain users never change state; front desk and managers
// work the lifecycle but not the filing data.
var updateFields = map[models.Role][]PetitionField{
	models.RoleUser:          {FieldContact},
	models.RoleFrontDesk:     {FieldState, FieldNotes},
	models.RoleManager:       {FieldState, FieldNotes},
	models.RoleCoordinator:   {FieldState, FieldNotes, FieldContact, FieldCatalog},
	models.RoleAdministrator: {FieldState, FieldNotes, FieldContact, FieldCatalog},
}

// CanUpdateField reports whether the role may change the given field
func CanUpdateField(role models.Role, field PetitionField) bool {
	for _, f := range updateFields[role] {
		if f == field {
			return true
		}
	}
	return false
}

// transitionAllowed decides state-change legality for an update. Terminal
// states are frozen for everyone. Coordinators and administrators may move
// a petition between any two live states, including backward; other roles
// follow the nominal forward path only. The devuelto -> revision edge is
// reserved for the owner's resend in every case except the privileged
// override.
func transitionAllowed(role models.Role, from, to models.PetitionState) bool {
	if from.IsTerminal() {
		return false
	}
	if role == models.RoleCoordinator || role == models.RoleAdministrator {
		return to.IsValid() && to != from
	}
	return models.CanTransition(from, to)
}
