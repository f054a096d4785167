package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/nodeprep/internal/config"
	"github.com/imamik/nodeprep/internal/provisioning"
	"github.com/imamik/nodeprep/internal/state"
)

func TestStorage_RunsOnlyStorageStage(t *testing.T) {
	env := setupProvisionEnv(t)

	err := Storage(context.Background(), StorageOptions{ConfigPath: env.cfgPath, Yes: true})

	require.NoError(t, err)
	store := env.store(t)
	rec, err := store.Stage("storage")
	require.NoError(t, err)
	assert.Equal(t, state.StageComplete, rec.Status)

	rec, err = store.Stage("base-packages")
	require.NoError(t, err)
	assert.Equal(t, state.StagePending, rec.Status)
	assert.Equal(t, 0, env.hook.installs)
}

func TestStorage_SkipsWhenAlreadyComplete(t *testing.T) {
	env := setupProvisionEnv(t)
	require.NoError(t, Storage(context.Background(), StorageOptions{ConfigPath: env.cfgPath, Yes: true}))

	err := Storage(context.Background(), StorageOptions{ConfigPath: env.cfgPath, Yes: true})

	require.NoError(t, err)
	assert.True(t, env.obs.Has(provisioning.EventStageSkipped, "storage"))
}

func TestStorage_LockContention(t *testing.T) {
	env := setupProvisionEnv(t)
	cfg, err := config.LoadFile(env.cfgPath)
	require.NoError(t, err)
	lock, err := state.Acquire(cfg.LockPath())
	require.NoError(t, err)
	defer lock.Release()

	err = Storage(context.Background(), StorageOptions{ConfigPath: env.cfgPath, Yes: true})

	assert.ErrorIs(t, err, state.ErrLocked)
}
