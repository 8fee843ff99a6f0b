package driver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Source_Format(t *testing.T) {
	id := UUIDv7Source{}.NewRunID()
	require.Len(t, id, 36)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Source_Unique(t *testing.T) {
	src := UUIDv7Source{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := src.NewRunID()
		require.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true
	}
}
