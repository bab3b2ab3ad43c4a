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

// ChangeProposalRepository handles database operations for change proposals
type ChangeProposalRepository struct {
	db *pgxpool.Pool
}

// NewChangeProposalRepository creates a new change proposal repository
func NewChangeProposalRepository(db *pgxpool.Pool) *ChangeProposalRepository {
	return &ChangeProposalRepository{db: db}
}

const proposalColumns = `id, parcel_id, kind, payload, justification, proposer_id,
	proposer_name, state, reviewer_id, reviewer_name, review_comment,
	reviewed_at, created_at, updated_at`

func scanProposal(row pgx.Row) (*models.ChangeProposal, error) {
	proposal := &models.ChangeProposal{}
	err := row.Scan(
		&proposal.ID,
		&proposal.ParcelID,
		&proposal.Kind,
		&proposal.Payload,
		&proposal.Justification,
		&proposal.ProposerID,
		&proposal.ProposerName,
		&proposal.State,
		&proposal.ReviewerID,
		&proposal.ReviewerName,
		&proposal.ReviewComment,
		&proposal.ReviewedAt,
		&proposal.CreatedAt,
		&proposal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return proposal, nil
}

// Create inserts a new change proposal
func (r *ChangeProposalRepository) Create(ctx context.Context, proposal *models.ChangeProposal) error {
	query := `
		INSERT INTO change_proposals (
			parcel_id, kind, payload, justification, proposer_id,
			proposer_name, state
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		proposal.ParcelID,
		proposal.Kind,
		proposal.Payload,
		proposal.Justification,
		proposal.ProposerID,
		proposal.ProposerName,
		proposal.State,
	).Scan(&proposal.ID, &proposal.CreatedAt, &proposal.UpdatedAt)
}

// GetByID retrieves a change proposal by ID
func (r *ChangeProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChangeProposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM change_proposals WHERE id = $1`, proposalColumns)
	return scanProposal(r.db.QueryRow(ctx, query, id))
}

// Review writes the reviewer's verdict conditional on the proposal still
// being pendiente. A second reviewer matches zero rows and gets
// ErrStateChanged, so a proposal is reviewed at most once.
func (r *ChangeProposalRepository) Review(ctx context.Context, proposal *models.ChangeProposal) error {
	query := `
		UPDATE change_proposals SET
			state = $2,
			reviewer_id = $3,
			reviewer_name = $4,
			review_comment = $5,
			reviewed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND state = $6
		RETURNING reviewed_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		proposal.ID,
		proposal.State,
		proposal.ReviewerID,
		proposal.ReviewerName,
		proposal.ReviewComment,
		models.ChangePending,
	).Scan(&proposal.ReviewedAt, &proposal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM change_proposals WHERE id = $1)`, proposal.ID).Scan(&exists); checkErr != nil {
				return checkErr
			}
			if exists {
				return ErrStateChanged
			}
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ListPending retrieves all proposals still awaiting review, oldest first
func (r *ChangeProposalRepository) ListPending(ctx context.Context) ([]*models.ChangeProposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM change_proposals WHERE state = $1 ORDER BY created_at ASC`, proposalColumns)

	rows, err := r.db.Query(ctx, query, models.ChangePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []*models.ChangeProposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, proposal)
	}

	return proposals, rows.Err()
}

// CountPendingByKind returns pending counts partitioned by change kind from
// a single query
func (r *ChangeProposalRepository) CountPendingByKind(ctx context.Context) (map[models.ChangeKind]int, error) {
	rows, err := r.db.Query(ctx, `SELECT kind, COUNT(*) FROM change_proposals WHERE state = $1 GROUP BY kind`, models.ChangePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ChangeKind]int)
	for rows.Next() {
		var kind models.ChangeKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}

	return counts, rows.Err()
}
