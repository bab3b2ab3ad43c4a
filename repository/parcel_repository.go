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

// ParcelRepository handles database operations for parcels
type ParcelRepository struct {
	db *pgxpool.Pool
}

// NewParcelRepository creates a new parcel repository
func NewParcelRepository(db *pgxpool.Pool) *ParcelRepository {
	return &ParcelRepository{db: db}
}

const parcelColumns = `id, parcel_number, owner_name, owner_document, address,
	area, land_use, municipality, removed, created_at, updated_at`

func scanParcel(row pgx.Row) (*models.Parcel, error) {
	parcel := &models.Parcel{}
	err := row.Scan(
		&parcel.ID,
		&parcel.ParcelNumber,
		&parcel.OwnerName,
		&parcel.OwnerDocument,
		&parcel.Address,
		&parcel.Area,
		&parcel.LandUse,
		&parcel.Municipality,
		&parcel.Removed,
		&parcel.CreatedAt,
		&parcel.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return parcel, nil
}

// Create inserts a new parcel record
func (r *ParcelRepository) Create(ctx context.Context, parcel *models.Parcel) error {
	query := `
		INSERT INTO parcels (
			parcel_number, owner_name, owner_document, address, area,
			land_use, municipality
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		parcel.ParcelNumber,
		parcel.OwnerName,
		parcel.OwnerDocument,
		parcel.Address,
		parcel.Area,
		parcel.LandUse,
		parcel.Municipality,
	).Scan(&parcel.ID, &parcel.CreatedAt, &parcel.UpdatedAt)
}

// GetByID retrieves a parcel by ID
func (r *ParcelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Parcel, error) {
	query := fmt.Sprintf(`SELECT %s FROM parcels WHERE id = $1`, parcelColumns)
	return scanParcel(r.db.QueryRow(ctx, query, id))
}

// ApplyFields merges the given payload onto a parcel as one atomic update.
// Only keys present in the payload change; every other column keeps its
// stored value.
func (r *ParcelRepository) ApplyFields(ctx context.Context, id uuid.UUID, payload models.FieldPayload) error {
	query := `UPDATE parcels SET updated_at = NOW()`

	args := []interface{}{id}
	argIndex := 2

	set := func(column string, value interface{}) {
		query += fmt.Sprintf(", %s = $%d", column, argIndex)
		args = append(args, value)
		argIndex++
	}

	for field, value := range payload {
		switch field {
		case models.FieldParcelNumber:
			set("parcel_number", value)
		case models.FieldOwnerName:
			set("owner_name", value)
		case models.FieldOwnerDocument:
			set("owner_document", value)
		case models.FieldAddress:
			set("address", value)
		case models.FieldArea:
			set("area", value)
		case models.FieldLandUse:
			set("land_use", value)
		case models.FieldMunicipality:
			set("municipality", value)
		}
	}

	query += " WHERE id = $1"

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a parcel removed without erasing the row
func (r *ParcelRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE parcels SET removed = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
