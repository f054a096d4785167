// Package config defines the runtime context for a nodeprep invocation.
//
// Everything location- or policy-dependent is carried explicitly in a Config
// value that is passed to every component, so tests can point the whole tool
// at temporary directories instead of the live host.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults for a live host. Tests override per-field.
const (
	DefaultStateDir    = "/var/lib/nodeprep"
	DefaultLogDir      = "/var/log/nodeprep"
	DefaultMountTarget = "/data"
	DefaultFstabPath   = "/etc/fstab"
	DefaultConfigPath  = "/etc/nodeprep/config.yaml"

	// DefaultMinFreeBytes is the usable free space below which the storage
	// stage warns (never fails) after mounting the data volume.
	DefaultMinFreeBytes = 100 << 30 // 100 GiB

	// PoolAllocFraction of a volume group's free capacity is allocated when
	// a new logical volume is carved from it. Fixed in this version.
	PoolAllocFraction = 0.80
)

// Config is the explicit runtime context passed to every component.
type Config struct {
	// StateDir holds stage/phase records, the lock and the completion marker.
	StateDir string `yaml:"state_dir"`

	// LogDir receives the JSON event log.
	LogDir string `yaml:"log_dir"`

	// MountTarget is the managed data directory backed by selected storage.
	MountTarget string `yaml:"mount_target"`

	// FstabPath is the persistent mount table. Overridable for tests.
	FstabPath string `yaml:"-"`

	// Filesystem is the filesystem kind for newly created volumes.
	Filesystem string `yaml:"filesystem"`

	// MinFreeBytes is the post-mount free space warning threshold.
	MinFreeBytes uint64 `yaml:"min_free_bytes"`

	// PinnedDevice, when set, bypasses device selection (e.g. "nvme1n1").
	PinnedDevice string `yaml:"pinned_device"`

	// PinnedPool, when set, bypasses pool selection (volume group name).
	PinnedPool string `yaml:"pinned_pool"`

	// DriverVersion pins the GPU driver release to install.
	DriverVersion string `yaml:"driver_version"`

	// DriverURL is where the driver installer artifact is downloaded from.
	DriverURL string `yaml:"driver_url"`

	// DriverSHA256 is the pinned digest of the driver artifact. Verification
	// against it is mandatory and a mismatch is always fatal.
	DriverSHA256 string `yaml:"driver_sha256"`

	// BasePackages are installed before the driver. Defaults cover kernel
	// headers and build tooling the driver installer needs.
	BasePackages []string `yaml:"base_packages"`

	// Hostname identifies this node in emitted events. Defaults to os.Hostname.
	Hostname string `yaml:"hostname"`
}

// StagesPath returns the stage record file.
func (c *Config) StagesPath() string { return filepath.Join(c.StateDir, "stages.yaml") }

// PhasesDir returns the directory holding per-stage phase record files.
func (c *Config) PhasesDir() string { return filepath.Join(c.StateDir, "phases") }

// PhasesPath returns the phase record file for one stage.
func (c *Config) PhasesPath(stage string) string {
	return filepath.Join(c.PhasesDir(), stage+".yaml")
}

// ArtifactsDir returns the download cache for verified artifacts.
func (c *Config) ArtifactsDir() string { return filepath.Join(c.StateDir, "artifacts") }

// SentinelPath returns the completion marker file.
func (c *Config) SentinelPath() string { return filepath.Join(c.StateDir, "complete") }

// LockPath returns the exclusive run lock file.
func (c *Config) LockPath() string { return filepath.Join(c.StateDir, "lock") }

// EventLogPath returns the JSON event log file.
func (c *Config) EventLogPath() string { return filepath.Join(c.LogDir, "events.jsonl") }

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state_dir must not be empty")
	}
	if c.MountTarget == "" || !filepath.IsAbs(c.MountTarget) {
		return fmt.Errorf("mount_target must be an absolute path, got %q", c.MountTarget)
	}
	if c.Filesystem != "ext4" && c.Filesystem != "xfs" {
		return fmt.Errorf("unsupported filesystem %q (want ext4 or xfs)", c.Filesystem)
	}
	if c.PinnedDevice != "" && c.PinnedPool != "" {
		return fmt.Errorf("pinned_device and pinned_pool are mutually exclusive")
	}
	return nil
}

// applyDefaults fills zero-valued fields.
func (c *Config) applyDefaults() {
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.MountTarget == "" {
		c.MountTarget = DefaultMountTarget
	}
	if c.FstabPath == "" {
		c.FstabPath = DefaultFstabPath
	}
	if c.Filesystem == "" {
		c.Filesystem = "ext4"
	}
	if c.MinFreeBytes == 0 {
		c.MinFreeBytes = DefaultMinFreeBytes
	}
	if len(c.BasePackages) == 0 {
		c.BasePackages = []string{"build-essential", "linux-headers-generic", "dkms", "pciutils"}
	}
	if c.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			c.Hostname = h
		} else {
			c.Hostname = "unknown"
		}
	}
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}
