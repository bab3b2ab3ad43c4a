package repository

import (
	"context"
	"errors"

	"catastro-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for petition documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document record
func (r *DocumentRepository) Create(ctx context.Context, document *models.Document) error {
	query := `
		INSERT INTO petition_documents (
			petition_id, uploader_id, uploader_name, uploader_role,
			filename, mime_type, size, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return r.db.QueryRow(
		ctx, query,
		document.PetitionID,
		document.UploaderID,
		document.UploaderName,
		document.UploaderRole,
		document.Filename,
		document.MimeType,
		document.Size,
		document.StoragePath,
	).Scan(&document.ID, &document.CreatedAt)
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	document := &models.Document{}
	query := `
		SELECT id, petition_id, uploader_id, uploader_name, uploader_role,
			filename, mime_type, size, storage_path, created_at
		FROM petition_documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&document.ID,
		&document.PetitionID,
		&document.UploaderID,
		&document.UploaderName,
		&document.UploaderRole,
		&document.Filename,
		&document.MimeType,
		&document.Size,
		&document.StoragePath,
		&document.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return document, nil
}

// ListByPetitionID retrieves all documents attached to a petition
func (r *DocumentRepository) ListByPetitionID(ctx context.Context, petitionID uuid.UUID) ([]*models.Document, error) {
	query := `
		SELECT id, petition_id, uploader_id, uploader_name, uploader_role,
			filename, mime_type, size, storage_path, created_at
		FROM petition_documents
		WHERE petition_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, petitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		document := &models.Document{}
		err := rows.Scan(
			&document.ID,
			&document.PetitionID,
			&document.UploaderID,
			&document.UploaderName,
			&document.UploaderRole,
			&document.Filename,
			&document.MimeType,
			&document.Size,
			&document.StoragePath,
			&document.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		documents = append(documents, document)
	}

	return documents, rows.Err()
}
