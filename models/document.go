package models

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a file attached to a petition. The storage path is an
// opaque identifier resolved by the storage layer; the engine never touches
// file contents.
type Document struct {
	ID           uuid.UUID `json:"id"`
	PetitionID   uuid.UUID `json:"petition_id"`
	UploaderID   uuid.UUID `json:"uploader_id"`
	UploaderName string    `json:"uploader_name"`
	UploaderRole Role      `json:"uploader_role"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	StoragePath  string    `json:"storage_path"`
	CreatedAt    time.Time `json:"created_at"`
}
