package uid

import (
	"strings"

	"github.com/google/uuid"
)

// LocalPrefix marks identifiers generated on-device for records that have not
// been confirmed by the remote store yet.
const LocalPrefix = "local-"

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// NewLocal generates a placeholder identifier for an item created while
// offline. The remote store assigns the real identifier during sync.
func NewLocal() string {
	return LocalPrefix + uuid.New().String()
}

// IsLocal reports whether an identifier is an unconfirmed placeholder.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, LocalPrefix)
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
