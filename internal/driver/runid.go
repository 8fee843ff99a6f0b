package driver

import "github.com/google/uuid"

// RunIDSource mints identifiers for recorded runs.
type RunIDSource interface {
	NewRunID() string
}

// UUIDv7Source issues time-sortable UUIDv7 run identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so run ids
// listed under the store's binary collation come out in creation
// order.
//
// Uses github.com/google/uuid for RFC 4122 compliant UUIDs.
//
// Thread-safety: UUIDv7Source is stateless and safe for concurrent use.
type UUIDv7Source struct{}

// NewRunID creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Source) NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
