package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/nodeprep/internal/config"
	"github.com/imamik/nodeprep/internal/platform/execx"
	"github.com/imamik/nodeprep/internal/provisioning"
)

const (
	findmntCmd = "findmnt --noheadings --mountpoint /data"
	lsblkCmd   = "lsblk --bytes --json -o NAME,PATH,SIZE,TYPE,MOUNTPOINT,FSTYPE,RM"
	vgsCmd     = "vgs --reportformat json --units b --nosuffix -o vg_name,vg_size,vg_free"
)

var errExit1 = errors.New("exit status 1")

func testSelector(t *testing.T) (*Selector, *execx.Fake, *provisioning.MockObserver) {
	t.Helper()
	fake := execx.NewFake()
	obs := provisioning.NewMockObserver()
	cfg := &config.Config{
		MountTarget:  "/data",
		Filesystem:   "ext4",
		FstabPath:    filepath.Join(t.TempDir(), "fstab"),
		MinFreeBytes: 1, // effectively disable low-space warnings
	}
	return &Selector{Config: cfg, Runner: fake, Observer: obs}, fake, obs
}

func lsblkJSON(devices string) string {
	return `{"blockdevices":[` + devices + `]}`
}

func TestSelect_ExistingMountWins(t *testing.T) {
	t.Parallel()
	s, fake, obs := testSelector(t)
	fake.On(findmntCmd, "/data", nil)

	d, err := s.Select(context.Background())

	require.NoError(t, err)
	assert.Equal(t, KindExisting, d.Kind)
	assert.True(t, obs.Has(provisioning.EventStorageDecision, "storage/select"))
	// The decision tree stops before any enumeration.
	assert.False(t, fake.CalledWith("lsblk"))
}

func TestSelect_DeviceBeatsPool(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	fake.On(findmntCmd, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(`{"name":"sdb","path":"/dev/sdb","size":1000,"type":"disk"}`), nil)
	fake.On(vgsCmd, `{"report":[{"vg":[{"vg_name":"vg0","vg_size":"5000","vg_free":"5000"}]}]}`, nil)

	d, err := s.Select(context.Background())

	require.NoError(t, err)
	assert.Equal(t, KindDevice, d.Kind)
	assert.Equal(t, "/dev/sdb", d.Device)
	assert.False(t, fake.CalledWith("vgs"))
}

func TestSelect_LargestDeviceWins(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	fake.On(findmntCmd, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(
		`{"name":"sdb","path":"/dev/sdb","size":100,"type":"disk"},
		 {"name":"sdc","path":"/dev/sdc","size":500,"type":"disk"},
		 {"name":"sdd","path":"/dev/sdd","size":50,"type":"disk"}`), nil)

	d, err := s.Select(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/dev/sdc", d.Device)
}

func TestSelect_CapacityTieBrokenByName(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	fake.On(findmntCmd, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(
		`{"name":"sdc","path":"/dev/sdc","size":500,"type":"disk"},
		 {"name":"sdb","path":"/dev/sdb","size":500,"type":"disk"}`), nil)

	d, err := s.Select(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/dev/sdb", d.Device)
}

func TestSelect_PinnedDeviceOverridesLargest(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	s.Config.PinnedDevice = "sdd"
	fake.On(findmntCmd, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(
		`{"name":"sdc","path":"/dev/sdc","size":500,"type":"disk"},
		 {"name":"sdd","path":"/dev/sdd","size":50,"type":"disk"}`), nil)

	d, err := s.Select(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/dev/sdd", d.Device)
}

func TestSelect_PinnedDeviceMissingFails(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	s.Config.PinnedDevice = "nvme9n1"
	fake.On(findmntCmd, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(`{"name":"sdb","path":"/dev/sdb","size":500,"type":"disk"}`), nil)

	_, err := s.Select(context.Background())

	assert.ErrorContains(t, err, "pinned candidate")
}

func TestSelect_PinnedPoolBypassesDevices(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	s.Config.PinnedPool = "vg0"
	fake.On(findmntCmd, "", errExit1)
	// A free raw device exists; the pinned pool must still win.
	fake.On(lsblkCmd, lsblkJSON(`{"name":"sdb","path":"/dev/sdb","size":500,"type":"disk"}`), nil)
	fake.On(vgsCmd, `{"report":[{"vg":[{"vg_name":"vg0","vg_size":"5000","vg_free":"1000"}]}]}`, nil)

	d, err := s.Select(context.Background())

	require.NoError(t, err)
	assert.Equal(t, KindPool, d.Kind)
	assert.Equal(t, "vg0", d.Pool)
	assert.Empty(t, d.Device)
	assert.False(t, fake.CalledWith("lsblk"), "pinned pool must skip device enumeration")
}

func TestSelect_PinnedPoolMissingFails(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	s.Config.PinnedPool = "vg9"
	fake.On(findmntCmd, "", errExit1)
	fake.On(vgsCmd, `{"report":[{"vg":[{"vg_name":"vg0","vg_size":"5000","vg_free":"1000"}]}]}`, nil)

	_, err := s.Select(context.Background())

	assert.ErrorContains(t, err, "pinned candidate")
}

func TestSelect_PoolWhenNoDevices(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	fake.On(findmntCmd, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(``), nil)
	fake.On(vgsCmd, `{"report":[{"vg":[
		{"vg_name":"vg0","vg_size":"2000","vg_free":"1000"},
		{"vg_name":"vg1","vg_size":"2000","vg_free":"1500"}
	]}]}`, nil)

	d, err := s.Select(context.Background())

	require.NoError(t, err)
	assert.Equal(t, KindPool, d.Kind)
	assert.Equal(t, "vg1", d.Pool)
	// Fixed 80% of the pool's free capacity.
	assert.Equal(t, uint64(1200), d.AllocBytes)
}

func TestSelect_InteractiveSkipFallsThrough(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	s.Interactive = true
	s.Choose = func(_ string, _ []Candidate) (*Candidate, bool, error) { return nil, true, nil }
	s.Confirm = func(string) (bool, error) { return false, nil }
	fake.On(findmntCmd, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(`{"name":"sdb","path":"/dev/sdb","size":500,"type":"disk"}`), nil)
	fake.Missing["vgs"] = true

	_, err := s.Select(context.Background())

	// Skipped the device, no pools, and the operator declined the fallback.
	require.ErrorIs(t, err, ErrDeclined)
}

func TestSelect_AutomatedRootFallback(t *testing.T) {
	t.Parallel()
	s, fake, obs := testSelector(t)
	fake.On(findmntCmd, "", errExit1)
	fake.Missing["lsblk"] = true
	fake.Missing["vgs"] = true

	d, err := s.Select(context.Background())

	require.NoError(t, err)
	assert.Equal(t, KindRootFS, d.Kind)
	assert.True(t, obs.Has(provisioning.EventStorageDecision, "storage/select"))
}

func TestSetup_DeviceFormatsAndMounts(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	s.Config.MountTarget = filepath.Join(t.TempDir(), "data")
	target := s.Config.MountTarget
	fake.On("findmnt --noheadings --mountpoint "+target, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(`{"name":"sdb","path":"/dev/sdb","size":500,"type":"disk"}`), nil)
	fake.On("mkfs.ext4 -F /dev/sdb", "", nil)
	fake.On("blkid -s UUID -o value /dev/sdb", "9f3c1a2e-0000-4f6e-8a7b-1234567890ab\n", nil)
	fake.On("mount "+target, "", nil)

	d, err := s.Setup(context.Background())

	require.NoError(t, err)
	assert.Equal(t, KindDevice, d.Kind)
	assert.True(t, fake.CalledWith("mkfs.ext4"))
	assert.True(t, fake.CalledWith("mount "+target))

	added, err := EnsureFstabEntry(s.Config.FstabPath, "9f3c1a2e-0000-4f6e-8a7b-1234567890ab", target, "ext4")
	require.NoError(t, err)
	assert.False(t, added, "setup must have written the fstab entry exactly once")
}

func TestSetup_ExistingMountMutatesNothing(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	fake.On(findmntCmd, "/data", nil)

	d, err := s.Setup(context.Background())

	require.NoError(t, err)
	assert.Equal(t, KindExisting, d.Kind)
	assert.False(t, fake.CalledWith("mkfs"))
	assert.False(t, fake.CalledWith("mount"))
}

func TestSetup_FormatFailureAborts(t *testing.T) {
	t.Parallel()
	s, fake, _ := testSelector(t)
	fake.On(findmntCmd, "", errExit1)
	fake.On(lsblkCmd, lsblkJSON(`{"name":"sdb","path":"/dev/sdb","size":500,"type":"disk"}`), nil)
	fake.On("mkfs.ext4 -F /dev/sdb", "", errExit1)

	_, err := s.Setup(context.Background())

	assert.ErrorContains(t, err, "format /dev/sdb")
}
