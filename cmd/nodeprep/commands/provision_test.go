package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvision(t *testing.T) {
	cmd := Provision()

	require.NotNil(t, cmd)
	assert.Equal(t, "provision", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestProvision_Flags(t *testing.T) {
	cmd := Provision()

	for _, name := range []string{"yes", "resume", "from-hook", "device", "pool", "config"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "Expected flag --%s", name)
	}
}

func TestProvision_DeviceAndPoolMutuallyExclusive(t *testing.T) {
	cmd := Provision()
	cmd.SetArgs([]string{"--device", "nvme1n1", "--pool", "vg0"})
	// RunE never fires; flag validation rejects the combination first.
	cmd.RunE = func(_ *cobra.Command, _ []string) error { return nil }

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestStorage_Flags(t *testing.T) {
	cmd := Storage()

	require.NotNil(t, cmd)
	assert.Equal(t, "storage", cmd.Use)
	for _, name := range []string{"yes", "device", "pool", "config"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "Expected flag --%s", name)
	}
}

func TestReset_Flags(t *testing.T) {
	cmd := Reset()

	require.NotNil(t, cmd)
	assert.NotNil(t, cmd.Flags().Lookup("yes"))
	assert.NotNil(t, cmd.Flags().Lookup("config"))
}

func TestStatus_Flags(t *testing.T) {
	cmd := Status()

	require.NotNil(t, cmd)
	assert.NotNil(t, cmd.Flags().Lookup("config"))
}
