package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/nodeprep/internal/state"
)

func TestReset_ClearsStateAndHook(t *testing.T) {
	env := setupProvisionEnv(t)
	require.NoError(t, Provision(context.Background(), ProvisionOptions{ConfigPath: env.cfgPath, Yes: true}))

	err := Reset(context.Background(), env.cfgPath, true)

	require.NoError(t, err)
	store := env.store(t)
	rec, err := store.Stage("storage")
	require.NoError(t, err)
	assert.Equal(t, state.StagePending, rec.Status)
	assert.False(t, store.SentinelExists())
	assert.Equal(t, 1, env.hook.uninstalls)
}

func TestReset_DeclinedLeavesStateAlone(t *testing.T) {
	env := setupProvisionEnv(t)
	require.NoError(t, Provision(context.Background(), ProvisionOptions{ConfigPath: env.cfgPath, Yes: true}))

	isTerminal = func() bool { return true }
	origConfirm := confirmReset
	defer func() { confirmReset = origConfirm }()
	confirmReset = func() (bool, error) { return false, nil }

	err := Reset(context.Background(), env.cfgPath, false)

	require.NoError(t, err)
	rec, err := env.store(t).Stage("storage")
	require.NoError(t, err)
	assert.Equal(t, state.StageComplete, rec.Status)
}

func TestReset_ThenProvisionStartsFresh(t *testing.T) {
	env := setupProvisionEnv(t)
	require.NoError(t, Provision(context.Background(), ProvisionOptions{ConfigPath: env.cfgPath, Yes: true}))
	require.NoError(t, Reset(context.Background(), env.cfgPath, true))

	require.NoError(t, Provision(context.Background(), ProvisionOptions{ConfigPath: env.cfgPath, Yes: true}))

	// The driver installs again: skip probes, not stale records, decide.
	assert.Equal(t, 2, env.driver.installs)
}
