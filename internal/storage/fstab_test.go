package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUUID = "9f3c1a2e-5b1d-4f6e-8a7b-1234567890ab"

func TestEnsureFstabEntry_AppendsOnce(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fstab")
	require.NoError(t, os.WriteFile(path, []byte("UUID=root-uuid / ext4 defaults 0 1\n"), 0o644))

	added, err := EnsureFstabEntry(path, testUUID, "/data", "ext4")
	require.NoError(t, err)
	assert.True(t, added)

	// Second run must not duplicate the entry.
	added, err = EnsureFstabEntry(path, testUUID, "/data", "ext4")
	require.NoError(t, err)
	assert.False(t, added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), testUUID))
	assert.Contains(t, string(data), "UUID="+testUUID+" /data ext4 defaults,nofail 0 2")
	// Pre-existing entries survive.
	assert.Contains(t, string(data), "UUID=root-uuid")
}

func TestEnsureFstabEntry_MissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fstab")

	added, err := EnsureFstabEntry(path, testUUID, "/data", "xfs")

	require.NoError(t, err)
	assert.True(t, added)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
}

func TestEnsureFstabEntry_NoTrailingNewline(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fstab")
	require.NoError(t, os.WriteFile(path, []byte("UUID=root-uuid / ext4 defaults 0 1"), 0o644))

	_, err := EnsureFstabEntry(path, testUUID, "/data", "ext4")

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 2)
}
