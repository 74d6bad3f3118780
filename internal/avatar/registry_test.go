package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/server/internal/session"
)

func TestRegistrySpawnAndDestroy(t *testing.T) {
	registry := NewRegistry()
	owner := session.Handle{Index: 2, Generation: 1}

	first := registry.SpawnAvatar(owner)
	second := registry.SpawnAvatar(owner)
	require.NotZero(t, first)
	assert.NotEqual(t, first, second, "handles are unique")
	assert.Equal(t, 2, registry.Live())

	got, ok := registry.Owner(first)
	require.True(t, ok)
	assert.Equal(t, owner, got)

	registry.DestroyAvatar(first)
	registry.DestroyAvatar(first)
	_, ok = registry.Owner(first)
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Live())

	third := registry.SpawnAvatar(owner)
	assert.Greater(t, uint64(third), uint64(second), "destroyed handles are not reused")
}
