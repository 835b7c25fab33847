package launchbase

import (
	"github.com/google/uuid"
)

// NewSnapshotID returns a UUIDv7. Its text form sorts by creation time, so
// the lexically greatest snapshot key is the most recent one.
func NewSnapshotID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to UUIDv4 if NewV7 fails (extremely rare)
		id = uuid.New()
	}
	return id.String()
}

// IsValidSnapshotID checks if a string is a valid UUID
func IsValidSnapshotID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
