package service

import (
	"context"
	"testing"

	"catastro-backend/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeFixture struct {
	svc           *ChangeService
	changes       *memChangeStore
	parcels       *memParcelStore
	users         *memUserStore
	notifications *memNotificationStore
}

func newChangeFixture(t *testing.T, users ...models.User) *changeFixture {
	t.Helper()

	changes := newMemChangeStore()
	parcels := newMemParcelStore()
	userStore := newMemUserStore(users...)
	notifications := newMemNotificationStore()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	notifier := NewNotificationService(
		NotifyWithStore(notifications),
		NotifyWithLogger(logger),
	)

	svc := NewChangeService(
		ChangeWithStore(changes),
		ChangeWithParcelStore(parcels),
		ChangeWithUserStore(userStore),
		ChangeWithNotifier(notifier),
		ChangeWithLogger(logger),
	)

	return &changeFixture{svc: svc, changes: changes, parcels: parcels, users: userStore, notifications: notifications}
}

func (f *changeFixture) seedParcel(t *testing.T) *models.Parcel {
	t.Helper()
	parcel := &models.Parcel{
		ParcelNumber:  "520010001000",
		OwnerName:     "Jorge Enriquez",
		OwnerDocument: "12345678",
		Address:       "Calle 18 # 25-30",
		Area:          320.5,
		LandUse:       "residencial",
		Municipality:  "Pasto",
	}
	require.NoError(t, f.parcels.Create(context.Background(), parcel))
	return parcel
}

func TestProposeModification(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")

	proposal, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID:      &parcel.ID,
		Kind:          models.ChangeModify,
		Payload:       models.FieldPayload{models.FieldOwnerName: "X"},
		Justification: "escritura actualizada",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ChangePending, proposal.State)
	assert.Equal(t, manager.UserID, proposal.ProposerID)

	admin := testActor(models.RoleAdministrator, "Root")
	stats, err := f.svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ByKind[models.ChangeModify])
	assert.Equal(t, 1, stats.Total)
}

func TestProposePayloadShapeValidation(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")

	// A deletion must not carry a payload.
	_, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeDelete,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// A modification needs one.
	_, err = f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
	})
	assert.ErrorIs(t, err, ErrValidation)

	// Unknown parcel fields are rejected.
	_, err = f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{"favorite_color": "green"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// Unknown kinds are rejected.
	_, err = f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     "fusion",
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// Modifying a parcel that does not exist.
	missing := uuid.New()
	_, err = f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &missing,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProposeCapabilityOverlay(t *testing.T) {
	coordinator := models.User{ID: uuid.New(), Email: "lucia@catastro.gov", Name: "Lucia Paz", Role: models.RoleCoordinator}
	f := newChangeFixture(t, coordinator)
	parcel := f.seedParcel(t)

	actor := models.ActorFromUser(&coordinator)
	request := ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	}

	// A coordinator holds no propose-changes capability by default.
	_, err := f.svc.ProposeChange(context.Background(), actor, request)
	assert.ErrorIs(t, err, ErrForbidden)

	admin := testActor(models.RoleAdministrator, "Root")
	require.NoError(t, f.svc.GrantCapability(context.Background(), admin, coordinator.ID, models.CapabilityProposeChanges))

	granted, err := f.users.GetByID(context.Background(), coordinator.ID)
	require.NoError(t, err)

	_, err = f.svc.ProposeChange(context.Background(), models.ActorFromUser(granted), request)
	assert.NoError(t, err)
}

func TestGrantCapabilityValidation(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "carlos@catastro.gov", Name: "Carlos Diaz", Role: models.RoleManager}
	f := newChangeFixture(t, user)
	admin := testActor(models.RoleAdministrator, "Root")

	// Unknown capability names fail loudly, never silently.
	err := f.svc.GrantCapability(context.Background(), admin, user.ID, "launch_rockets")
	assert.ErrorIs(t, err, ErrValidation)

	// Only administrators grant capabilities.
	err = f.svc.GrantCapability(context.Background(), testActor(models.RoleCoordinator, "Lucia Paz"), user.ID, models.CapabilityApproveChanges)
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.svc.GrantCapability(context.Background(), admin, user.ID, models.CapabilityApproveChanges)
	assert.NoError(t, err)
}

func TestReviewApproveModifyMergesFields(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")
	admin := testActor(models.RoleAdministrator, "Root")

	proposal, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	require.NoError(t, err)

	reviewed, err := f.svc.ReviewChange(context.Background(), admin, ReviewChangeRequest{
		ChangeID: proposal.ID,
		Approve:  true,
		Comment:  "conforme",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChangeApproved, reviewed.State)
	require.NotNil(t, reviewed.ReviewerID)
	assert.Equal(t, admin.UserID, *reviewed.ReviewerID)

	// Exactly the proposed field changed; everything else is untouched.
	updated, err := f.parcels.GetByID(context.Background(), parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", updated.OwnerName)
	assert.Equal(t, parcel.OwnerDocument, updated.OwnerDocument)
	assert.Equal(t, parcel.Address, updated.Address)
	assert.Equal(t, parcel.Area, updated.Area)
	assert.False(t, updated.Removed)

	// Pending count went back down.
	stats, err := f.svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	// The proposer hears the verdict.
	assert.NotEmpty(t, f.notifications.forRecipient(manager.UserID))
}

func TestReviewRejectLeavesParcelUntouched(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")
	admin := testActor(models.RoleAdministrator, "Root")

	proposal, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	require.NoError(t, err)

	reviewed, err := f.svc.ReviewChange(context.Background(), admin, ReviewChangeRequest{
		ChangeID: proposal.ID,
		Approve:  false,
		Comment:  "sin soporte",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRejected, reviewed.State)

	untouched, err := f.parcels.GetByID(context.Background(), parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, parcel.OwnerName, untouched.OwnerName)
}

func TestReviewTwiceFails(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")
	admin := testActor(models.RoleAdministrator, "Root")

	proposal, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	require.NoError(t, err)

	_, err = f.svc.ReviewChange(context.Background(), admin, ReviewChangeRequest{ChangeID: proposal.ID, Approve: true})
	require.NoError(t, err)

	_, err = f.svc.ReviewChange(context.Background(), admin, ReviewChangeRequest{ChangeID: proposal.ID, Approve: false})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// The parcel was mutated exactly once.
	updated, err := f.parcels.GetByID(context.Background(), parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", updated.OwnerName)
}

func TestReviewRequiresCapability(t *testing.T) {
	manager := models.User{ID: uuid.New(), Email: "carlos@catastro.gov", Name: "Carlos Diaz", Role: models.RoleManager}
	f := newChangeFixture(t, manager)
	parcel := f.seedParcel(t)

	proposal, err := f.svc.ProposeChange(context.Background(), models.ActorFromUser(&manager), ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	require.NoError(t, err)

	// A manager without the approve-changes grant cannot review,
	// even their own proposal.
	_, err = f.svc.ReviewChange(context.Background(), models.ActorFromUser(&manager), ReviewChangeRequest{
		ChangeID: proposal.ID,
		Approve:  true,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	admin := testActor(models.RoleAdministrator, "Root")
	require.NoError(t, f.svc.GrantCapability(context.Background(), admin, manager.ID, models.CapabilityApproveChanges))

	granted, err := f.users.GetByID(context.Background(), manager.ID)
	require.NoError(t, err)
	_, err = f.svc.ReviewChange(context.Background(), models.ActorFromUser(granted), ReviewChangeRequest{
		ChangeID: proposal.ID,
		Approve:  true,
	})
	assert.NoError(t, err)
}

func TestApproveDeleteSoftRemoves(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")
	admin := testActor(models.RoleAdministrator, "Root")

	proposal, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID:      &parcel.ID,
		Kind:          models.ChangeDelete,
		Justification: "predio englobado",
	})
	require.NoError(t, err)

	_, err = f.svc.ReviewChange(context.Background(), admin, ReviewChangeRequest{ChangeID: proposal.ID, Approve: true})
	require.NoError(t, err)

	// Soft removed: the record survives with its data intact.
	removed, err := f.parcels.GetByID(context.Background(), parcel.ID)
	require.NoError(t, err)
	assert.True(t, removed.Removed)
	assert.Equal(t, parcel.OwnerName, removed.OwnerName)
}

func TestApproveCreateBuildsParcel(t *testing.T) {
	f := newChangeFixture(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")
	admin := testActor(models.RoleAdministrator, "Root")

	proposal, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		Kind: models.ChangeCreate,
		Payload: models.FieldPayload{
			models.FieldParcelNumber: "520010009999",
			models.FieldOwnerName:    "Nueva Propietaria",
			models.FieldMunicipality: "Ipiales",
			models.FieldArea:         150.0,
		},
	})
	require.NoError(t, err)

	_, err = f.svc.ReviewChange(context.Background(), admin, ReviewChangeRequest{ChangeID: proposal.ID, Approve: true})
	require.NoError(t, err)

	created := false
	for _, parcel := range f.parcels.parcels {
		if parcel.ParcelNumber == "520010009999" {
			created = true
			assert.Equal(t, "Nueva Propietaria", parcel.OwnerName)
			assert.Equal(t, 150.0, parcel.Area)
		}
	}
	assert.True(t, created)
}

func TestCreateProposalShape(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")

	// A creation must not target an existing parcel.
	_, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeCreate,
		Payload:  models.FieldPayload{models.FieldParcelNumber: "520010009999"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// And it needs a parcel number.
	_, err = f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		Kind:    models.ChangeCreate,
		Payload: models.FieldPayload{models.FieldOwnerName: "X"},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListPendingRestricted(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")

	_, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	require.NoError(t, err)

	_, err = f.svc.ListPending(context.Background(), manager)
	assert.ErrorIs(t, err, ErrForbidden)

	pending, err := f.svc.ListPending(context.Background(), testActor(models.RoleCoordinator, "Lucia Paz"))
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.svc.Stats(context.Background(), manager)
	assert.ErrorIs(t, err, ErrForbidden)
}

// End to end: manager proposes, administrator approves, parcel changes,
// pending count drains.
func TestChangeScenario(t *testing.T) {
	f := newChangeFixture(t)
	parcel := f.seedParcel(t)
	manager := testActor(models.RoleManager, "Carlos Diaz")
	admin := testActor(models.RoleAdministrator, "Root")

	before, err := f.svc.Stats(context.Background(), admin)
	require.NoError(t, err)

	proposal, err := f.svc.ProposeChange(context.Background(), manager, ProposeChangeRequest{
		ParcelID: &parcel.ID,
		Kind:     models.ChangeModify,
		Payload:  models.FieldPayload{models.FieldOwnerName: "X"},
	})
	require.NoError(t, err)

	during, err := f.svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, before.ByKind[models.ChangeModify]+1, during.ByKind[models.ChangeModify])

	reviewed, err := f.svc.ReviewChange(context.Background(), admin, ReviewChangeRequest{
		ChangeID: proposal.ID,
		Approve:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChangeApproved, reviewed.State)

	after, err := f.svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, before.ByKind[models.ChangeModify], after.ByKind[models.ChangeModify])

	updated, err := f.parcels.GetByID(context.Background(), parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", updated.OwnerName)
}
