package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()

	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Equal(t, DefaultMountTarget, cfg.MountTarget)
	assert.Equal(t, "ext4", cfg.Filesystem)
	assert.Equal(t, uint64(DefaultMinFreeBytes), cfg.MinFreeBytes)
	assert.NotEmpty(t, cfg.Hostname)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
state_dir: /tmp/np-state
mount_target: /scratch
filesystem: xfs
pinned_device: nvme1n1
driver_version: "570.86.15"
`), 0o600))

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/np-state", cfg.StateDir)
	assert.Equal(t, "/scratch", cfg.MountTarget)
	assert.Equal(t, "xfs", cfg.Filesystem)
	assert.Equal(t, "nvme1n1", cfg.PinnedDevice)
	assert.Equal(t, "570.86.15", cfg.DriverVersion)
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"relative mount target", func(c *Config) { c.MountTarget = "data" }, "absolute path"},
		{"bad filesystem", func(c *Config) { c.Filesystem = "btrfs" }, "unsupported filesystem"},
		{"both pins", func(c *Config) { c.PinnedDevice = "sdb"; c.PinnedPool = "vg0" }, "mutually exclusive"},
		{"empty state dir", func(c *Config) { c.StateDir = "" }, "state_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()
	cfg := &Config{StateDir: "/s", LogDir: "/l"}

	assert.Equal(t, "/s/stages.yaml", cfg.StagesPath())
	assert.Equal(t, "/s/phases/storage.yaml", cfg.PhasesPath("storage"))
	assert.Equal(t, "/s/complete", cfg.SentinelPath())
	assert.Equal(t, "/s/lock", cfg.LockPath())
	assert.Equal(t, "/l/events.jsonl", cfg.EventLogPath())
}
