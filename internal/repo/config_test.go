package repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, uint64(50000), config.Mempool.PoolSize)
	require.Equal(t, uint64(100), config.Mempool.AccountSlots)
	require.Equal(t, 10*time.Second, config.Broadcast.BackoffCap)
	require.Equal(t, 5, config.Broadcast.FailureThreshold)
}

func TestInitializeAndLoad(t *testing.T) {
	root := t.TempDir()
	require.False(t, Initialized(root))
	require.Nil(t, Initialize(root))
	require.True(t, Initialized(root))

	repo, err := Load(root)
	require.Nil(t, err)
	require.Equal(t, root, repo.Config.RepoRoot)
	require.Equal(t, "info", repo.Config.Log.Level)
	require.Equal(t, uint64(100), repo.Config.Broadcast.BatchSize)
}
