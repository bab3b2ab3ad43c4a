package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FieldPayload carries the field-level content of a change proposal
type FieldPayload map[string]interface{}

// Value implements driver.Valuer for JSONB
func (f FieldPayload) Value() (driver.Value, error) {
	if f == nil {
		return json.Marshal(FieldPayload{})
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB
func (f *FieldPayload) Scan(value interface{}) error {
	if value == nil {
		*f = make(FieldPayload)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*f = make(FieldPayload)
		return nil
	}

	if len(bytes) == 0 {
		*f = make(FieldPayload)
		return nil
	}

	return json.Unmarshal(bytes, f)
}

// Parcel field names accepted in a change-proposal payload
const (
	FieldParcelNumber  = "parcel_number"
	FieldOwnerName     = "owner_name"
	FieldOwnerDocument = "owner_document"
	FieldAddress       = "address"
	FieldArea          = "area"
	FieldLandUse       = "land_use"
	FieldMunicipality  = "municipality"
)

// ParcelFields is the set of parcel fields a proposal may touch
var ParcelFields = []string{
	FieldParcelNumber,
	FieldOwnerName,
	FieldOwnerDocument,
	FieldAddress,
	FieldArea,
	FieldLandUse,
	FieldMunicipality,
}

// IsParcelField reports whether name is an editable parcel field
func IsParcelField(name string) bool {
	for _, f := range ParcelFields {
		if f == name {
			return true
		}
	}
	return false
}

// Parcel represents a cadastral property record. Parcels are soft-deleted
// (Removed flag) so their trail of approved changes survives removal.
type Parcel struct {
	ID            uuid.UUID `json:"id"`
	ParcelNumber  string    `json:"parcel_number"`
	OwnerName     string    `json:"owner_name"`
	OwnerDocument string    `json:"owner_document"`
	Address       string    `json:"address"`
	Area          float64   `json:"area"`
	LandUse       string    `json:"land_use"`
	Municipality  string    `json:"municipality"`
	Removed       bool      `json:"removed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
