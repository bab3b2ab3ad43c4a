package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"catastro-backend/models"
	"catastro-backend/repository"

	"github.com/google/uuid"
)

// In-memory stores backing the engine tests. They mirror the conditional
// write semantics of the pgx repositories: an update is accepted only when
// the stored state matches the state the caller read with.

type memPetitionStore struct {
	mu        sync.Mutex
	petitions map[uuid.UUID]models.Petition
	history   map[uuid.UUID][]models.HistoryRecord
	seq       int
}

func newMemPetitionStore() *memPetitionStore {
	return &memPetitionStore{
		petitions: make(map[uuid.UUID]models.Petition),
		history:   make(map[uuid.UUID][]models.HistoryRecord),
	}
}

func (s *memPetitionStore) Create(_ context.Context, petition *models.Petition, record *models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	petition.ID = uuid.New()
	petition.TrackingCode = fmt.Sprintf("R-2026-%06d", s.seq)
	s.petitions[petition.ID] = *petition

	record.ID = uuid.New()
	record.PetitionID = petition.ID
	s.history[petition.ID] = append(s.history[petition.ID], *record)
	return nil
}

func (s *memPetitionStore) GetByID(_ context.Context, id uuid.UUID) (*models.Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	petition, ok := s.petitions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := petition
	return &copied, nil
}

func (s *memPetitionStore) UpdateWithHistory(_ context.Context, petition *models.Petition, expectedState models.PetitionState, record *models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.petitions[petition.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.State != expectedState {
		return repository.ErrStateChanged
	}

	s.petitions[petition.ID] = *petition

	record.ID = uuid.New()
	record.PetitionID = petition.ID
	s.history[petition.ID] = append(s.history[petition.ID], *record)
	return nil
}

func (s *memPetitionStore) ListHistory(_ context.Context, petitionID uuid.UUID) ([]*models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []*models.HistoryRecord
	for i := range s.history[petitionID] {
		copied := s.history[petitionID][i]
		records = append(records, &copied)
	}
	return records, nil
}

func matchesFilter(petition models.Petition, filter repository.PetitionFilter) bool {
	if filter.RequesterID != nil && petition.RequesterID != *filter.RequesterID {
		return false
	}
	if filter.ManagerID != nil {
		primary := petition.PrimaryManagerID != nil && *petition.PrimaryManagerID == *filter.ManagerID
		auxiliary := petition.AuxiliaryManagerID != nil && *petition.AuxiliaryManagerID == *filter.ManagerID
		if !primary && !auxiliary {
			return false
		}
	}
	if filter.State != nil && petition.State != *filter.State {
		return false
	}
	if filter.Municipality != nil && petition.Municipality != *filter.Municipality {
		return false
	}
	return true
}

func (s *memPetitionStore) List(_ context.Context, filter repository.PetitionFilter, limit, offset int) ([]*models.Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var petitions []*models.Petition
	for _, petition := range s.petitions {
		if matchesFilter(petition, filter) {
			copied := petition
			petitions = append(petitions, &copied)
		}
	}
	return petitions, nil
}

func (s *memPetitionStore) CountByState(_ context.Context, filter repository.PetitionFilter) (map[models.PetitionState]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.PetitionState]int)
	for _, petition := range s.petitions {
		if matchesFilter(petition, filter) {
			counts[petition.State]++
		}
	}
	return counts, nil
}

// gatedPetitionStore holds every reader at the gate until all expected
// readers have arrived, forcing racing transitions to act on the same
// snapshot.
type gatedPetitionStore struct {
	*memPetitionStore
	gate *sync.WaitGroup
}

func (s *gatedPetitionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Petition, error) {
	petition, err := s.memPetitionStore.GetByID(ctx, id)
	s.gate.Done()
	s.gate.Wait()
	return petition, err
}

type memParcelStore struct {
	mu      sync.Mutex
	parcels map[uuid.UUID]models.Parcel
}

func newMemParcelStore() *memParcelStore {
	return &memParcelStore{parcels: make(map[uuid.UUID]models.Parcel)}
}

func (s *memParcelStore) Create(_ context.Context, parcel *models.Parcel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parcel.ID = uuid.New()
	s.parcels[parcel.ID] = *parcel
	return nil
}

func (s *memParcelStore) GetByID(_ context.Context, id uuid.UUID) (*models.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parcel, ok := s.parcels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := parcel
	return &copied, nil
}

func (s *memParcelStore) ApplyFields(_ context.Context, id uuid.UUID, payload models.FieldPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parcel, ok := s.parcels[id]
	if !ok {
		return repository.ErrNotFound
	}
	for field, value := range payload {
		switch field {
		case models.FieldParcelNumber:
			parcel.ParcelNumber, _ = value.(string)
		case models.FieldOwnerName:
			parcel.OwnerName, _ = value.(string)
		case models.FieldOwnerDocument:
			parcel.OwnerDocument, _ = value.(string)
		case models.FieldAddress:
			parcel.Address, _ = value.(string)
		case models.FieldArea:
			parcel.Area, _ = value.(float64)
		case models.FieldLandUse:
			parcel.LandUse, _ = value.(string)
		case models.FieldMunicipality:
			parcel.Municipality, _ = value.(string)
		}
	}
	s.parcels[id] = parcel
	return nil
}

func (s *memParcelStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parcel, ok := s.parcels[id]
	if !ok {
		return repository.ErrNotFound
	}
	parcel.Removed = true
	s.parcels[id] = parcel
	return nil
}

type memChangeStore struct {
	mu        sync.Mutex
	proposals map[uuid.UUID]models.ChangeProposal
}

func newMemChangeStore() *memChangeStore {
	return &memChangeStore{proposals: make(map[uuid.UUID]models.ChangeProposal)}
}

func (s *memChangeStore) Create(_ context.Context, proposal *models.ChangeProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal.ID = uuid.New()
	s.proposals[proposal.ID] = *proposal
	return nil
}

func (s *memChangeStore) GetByID(_ context.Context, id uuid.UUID) (*models.ChangeProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := proposal
	return &copied, nil
}

func (s *memChangeStore) Review(_ context.Context, proposal *models.ChangeProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.proposals[proposal.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.State != models.ChangePending {
		return repository.ErrStateChanged
	}
	s.proposals[proposal.ID] = *proposal
	return nil
}

func (s *memChangeStore) ListPending(_ context.Context) ([]*models.ChangeProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var proposals []*models.ChangeProposal
	for _, proposal := range s.proposals {
		if proposal.State == models.ChangePending {
			copied := proposal
			proposals = append(proposals, &copied)
		}
	}
	return proposals, nil
}

func (s *memChangeStore) CountPendingByKind(_ context.Context) (map[models.ChangeKind]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.ChangeKind]int)
	for _, proposal := range s.proposals {
		if proposal.State == models.ChangePending {
			counts[proposal.Kind]++
		}
	}
	return counts, nil
}

type memNotificationStore struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{}
}

func (s *memNotificationStore) Create(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification.ID = uuid.New()
	s.notifications = append(s.notifications, *notification)
	return nil
}

func (s *memNotificationStore) ListByRecipient(_ context.Context, recipientID uuid.UUID, limit int) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notifications []*models.Notification
	for i := len(s.notifications) - 1; i >= 0 && len(notifications) < limit; i-- {
		if s.notifications[i].RecipientID == recipientID {
			copied := s.notifications[i]
			notifications = append(notifications, &copied)
		}
	}
	return notifications, nil
}

func (s *memNotificationStore) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, notification := range s.notifications {
		if notification.RecipientID == recipientID && !notification.Read {
			count++
		}
	}
	return count, nil
}

func (s *memNotificationStore) MarkRead(_ context.Context, id, recipientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].RecipientID == recipientID {
			s.notifications[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memNotificationStore) forRecipient(recipientID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notifications []models.Notification
	for _, notification := range s.notifications {
		if notification.RecipientID == recipientID {
			notifications = append(notifications, notification)
		}
	}
	return notifications
}

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newMemUserStore(users ...models.User) *memUserStore {
	store := &memUserStore{users: make(map[uuid.UUID]models.User)}
	for _, user := range users {
		store.users[user.ID] = user
	}
	return store
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memUserStore) GrantCapability(_ context.Context, userID uuid.UUID, capability models.Capability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range user.Capabilities {
		if existing == capability {
			return nil
		}
	}
	user.Capabilities = append(user.Capabilities, capability)
	s.users[userID] = user
	return nil
}

func (s *memUserStore) RevokeCapability(_ context.Context, userID uuid.UUID, capability models.Capability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	var kept []models.Capability
	for _, existing := range user.Capabilities {
		if existing != capability {
			kept = append(kept, existing)
		}
	}
	user.Capabilities = kept
	s.users[userID] = user
	return nil
}

func (s *memUserStore) ListByRole(_ context.Context, role models.Role) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []*models.User
	for _, user := range s.users {
		if user.Role == role {
			copied := user
			users = append(users, &copied)
		}
	}
	return users, nil
}
