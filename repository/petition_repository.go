package repository

import (
	"context"
	"errors"
	"fmt"

	"catastro-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PetitionRepository handles database operations for petitions
type PetitionRepository struct {
	db *pgxpool.Pool
}

// NewPetitionRepository creates a new petition repository
func NewPetitionRepository(db *pgxpool.Pool) *PetitionRepository {
	return &PetitionRepository{db: db}
}

const petitionColumns = `id, tracking_code, requester_id, requester_name, contact_email,
	contact_phone, request_type, municipality, state, primary_manager_id,
	auxiliary_manager_id, notes, return_observations, returned_by, imported,
	created_at, updated_at`

func scanPetition(row pgx.Row) (*models.Petition, error) {
	petition := &models.Petition{}
	err := row.Scan(
		&petition.ID,
		&petition.TrackingCode,
		&petition.RequesterID,
		&petition.RequesterName,
		&petition.ContactEmail,
		&petition.ContactPhone,
		&petition.RequestType,
		&petition.Municipality,
		&petition.State,
		&petition.PrimaryManagerID,
		&petition.AuxiliaryManagerID,
		&petition.Notes,
		&petition.ReturnObservations,
		&petition.ReturnedBy,
		&petition.Imported,
		&petition.CreatedAt,
		&petition.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return petition, nil
}

// Create inserts a new petition and its first history record in one
// transaction. The tracking code comes from a database sequence so codes
// are unique and monotonically distinguishable, never reused.
func (r *PetitionRepository) Create(ctx context.Context, petition *models.Petition, record *models.HistoryRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO petitions (
			tracking_code, requester_id, requester_name, contact_email,
			contact_phone, request_type, municipality, state, notes, imported
		) VALUES (
			'R-' || to_char(NOW(), 'YYYY') || '-' || lpad(nextval('petition_code_seq')::text, 6, '0'),
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		) RETURNING id, tracking_code, created_at, updated_at`

	err = tx.QueryRow(
		ctx, query,
		petition.RequesterID,
		petition.RequesterName,
		petition.ContactEmail,
		petition.ContactPhone,
		petition.RequestType,
		petition.Municipality,
		petition.State,
		petition.Notes,
		petition.Imported,
	).Scan(&petition.ID, &petition.TrackingCode, &petition.CreatedAt, &petition.UpdatedAt)
	if err != nil {
		return err
	}

	record.PetitionID = petition.ID
	if err := appendHistory(ctx, tx, record); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a petition by ID
func (r *PetitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Petition, error) {
	query := fmt.Sprintf(`SELECT %s FROM petitions WHERE id = $1`, petitionColumns)
	return scanPetition(r.db.QueryRow(ctx, query, id))
}

// UpdateWithHistory writes back a petition together with one appended
// history record as a single atomic unit. The update is conditional on the
// state the caller read the petition with: if the row's state no longer
// matches expectedState, nothing is written and ErrStateChanged is
// returned, which gives racing transitions at most one winner.
func (r *PetitionRepository) UpdateWithHistory(ctx context.Context, petition *models.Petition, expectedState models.PetitionState, record *models.HistoryRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE petitions SET
			contact_email = $3,
			contact_phone = $4,
			request_type = $5,
			municipality = $6,
			state = $7,
			primary_manager_id = $8,
			auxiliary_manager_id = $9,
			notes = $10,
			return_observations = $11,
			returned_by = $12,
			updated_at = NOW()
		WHERE id = $1 AND state = $2
		RETURNING updated_at`

	err = tx.QueryRow(
		ctx, query,
		petition.ID,
		expectedState,
		petition.ContactEmail,
		petition.ContactPhone,
		petition.RequestType,
		petition.Municipality,
		petition.State,
		petition.PrimaryManagerID,
		petition.AuxiliaryManagerID,
		petition.Notes,
		petition.ReturnObservations,
		petition.ReturnedBy,
	).Scan(&petition.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a lost race from a vanished row.
			var exists bool
			if checkErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM petitions WHERE id = $1)`, petition.ID).Scan(&exists); checkErr != nil {
				return checkErr
			}
			if exists {
				return ErrStateChanged
			}
			return ErrNotFound
		}
		return err
	}

	record.PetitionID = petition.ID
	if err := appendHistory(ctx, tx, record); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func appendHistory(ctx context.Context, tx pgx.Tx, record *models.HistoryRecord) error {
	query := `
		INSERT INTO petition_history (
			petition_id, action, actor_id, actor_name, actor_role,
			from_state, to_state, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return tx.QueryRow(
		ctx, query,
		record.PetitionID,
		record.Action,
		record.ActorID,
		record.ActorName,
		record.ActorRole,
		record.FromState,
		record.ToState,
		record.Note,
	).Scan(&record.ID, &record.CreatedAt)
}

// ListHistory returns a petition's transition trail, oldest first
func (r *PetitionRepository) ListHistory(ctx context.Context, petitionID uuid.UUID) ([]*models.HistoryRecord, error) {
	query := `
		SELECT id, petition_id, action, actor_id, actor_name, actor_role,
			from_state, to_state, note, created_at
		FROM petition_history
		WHERE petition_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, petitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoryRecord
	for rows.Next() {
		record := &models.HistoryRecord{}
		err := rows.Scan(
			&record.ID,
			&record.PetitionID,
			&record.Action,
			&record.ActorID,
			&record.ActorName,
			&record.ActorRole,
			&record.FromState,
			&record.ToState,
			&record.Note,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// PetitionFilter narrows List results
type PetitionFilter struct {
	RequesterID  *uuid.UUID
	ManagerID    *uuid.UUID
	State        *models.PetitionState
	Municipality *string
}

// List retrieves petitions matching the filter, newest first
func (r *PetitionRepository) List(ctx context.Context, filter PetitionFilter, limit, offset int) ([]*models.Petition, error) {
	query := fmt.Sprintf(`SELECT %s FROM petitions WHERE 1=1`, petitionColumns)

	args := []interface{}{}
	argIndex := 1

	if filter.RequesterID != nil {
		query += fmt.Sprintf(" AND requester_id = $%d", argIndex)
		args = append(args, *filter.RequesterID)
		argIndex++
	}
	if filter.ManagerID != nil {
		query += fmt.Sprintf(" AND (primary_manager_id = $%d OR auxiliary_manager_id = $%d)", argIndex, argIndex)
		args = append(args, *filter.ManagerID)
		argIndex++
	}
	if filter.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argIndex)
		args = append(args, *filter.State)
		argIndex++
	}
	if filter.Municipality != nil {
		query += fmt.Sprintf(" AND municipality = $%d", argIndex)
		args = append(args, *filter.Municipality)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
		if offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var petitions []*models.Petition
	for rows.Next() {
		petition, err := scanPetition(rows)
		if err != nil {
			return nil, err
		}
		petitions = append(petitions, petition)
	}

	return petitions, rows.Err()
}

// CountByState returns per-state counts from one query so the caller can
// derive a total that is consistent with the breakdown.
func (r *PetitionRepository) CountByState(ctx context.Context, filter PetitionFilter) (map[models.PetitionState]int, error) {
	query := `SELECT state, COUNT(*) FROM petitions WHERE 1=1`

	args := []interface{}{}
	argIndex := 1

	if filter.RequesterID != nil {
		query += fmt.Sprintf(" AND requester_id = $%d", argIndex)
		args = append(args, *filter.RequesterID)
		argIndex++
	}
	if filter.ManagerID != nil {
		query += fmt.Sprintf(" AND (primary_manager_id = $%d OR auxiliary_manager_id = $%d)", argIndex, argIndex)
		args = append(args, *filter.ManagerID)
		argIndex++
	}

	query += " GROUP BY state"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.PetitionState]int)
	for rows.Next() {
		var state models.PetitionState
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[state] = count
	}

	return counts, rows.Err()
}
