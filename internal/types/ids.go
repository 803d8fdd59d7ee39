package types

import (
	"time"

	"github.com/google/uuid"
)

// NewFormID generates a UUIDv7 form identifier.
// Time-ordered IDs keep list queries in creation order without a sort column.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewFormID() FormID {
	return FormID(uuid.Must(uuid.NewV7()).String())
}

// NewFieldID generates a UUIDv7 field identifier.
func NewFieldID() FieldID {
	return FieldID(uuid.Must(uuid.NewV7()).String())
}

// ParseFormID validates and converts a string to FormID.
func ParseFormID(s string) (FormID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return FormID(s), nil
}

// FormIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func FormIDTime(id FormID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
